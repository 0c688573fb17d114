package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/applylens/inbox-policy/internal/daemon"
	"github.com/applylens/inbox-policy/internal/di"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mail filter and HTTP API until interrupted",
	Long:  "Runs the same daemon as applylensd, configured from --config and APPLYLENS_* environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := di.BuildContainer(flags.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to build dependency container: %w", err)
		}
		return container.Invoke(daemon.Run)
	},
}
