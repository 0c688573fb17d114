// Package cli implements the applylens command line tool
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/applylens/inbox-policy/internal/di"
)

// version is set by ldflags at build time.
var version = "dev"

var flags di.CLIFlags

var rootCmd = &cobra.Command{
	Use:           "applylens",
	Short:         "Classify inbox mail and gate policy actions",
	Long:          "Classifies emails into categories, evaluates declarative policies against them\nand passes every proposed action through the safety gate.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file (defaults are used when empty)")
	pf.StringVarP(&flags.PolicyFile, "policies", "p", "", "Policy file overriding the configured source")
	pf.StringVar(&flags.AuditType, "audit", "", "Audit store type (none|memory|sqlite|mysql|postgres)")
	pf.StringVar(&flags.Advisor, "advisor", "", "Enable the advisor with a provider (bedrock|gemini|openai)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
