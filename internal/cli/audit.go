package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/di"
	"github.com/applylens/inbox-policy/internal/factory"
)

var (
	auditEmailID  string
	auditPolicyID string
	auditBlocked  bool
	auditSince    time.Duration
	auditLimit    int
	auditJSON     bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditEmailID, "email", "", "Only entries for this email id")
	auditCmd.Flags().StringVar(&auditPolicyID, "policy", "", "Only entries for this policy id")
	auditCmd.Flags().BoolVar(&auditBlocked, "blocked", false, "Only blocked decisions")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "Only entries newer than this age (e.g. 24h)")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "Maximum number of entries")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Print entries as JSON")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recorded safety gate decisions",
	Long:  "Lists audit entries from a persistent audit store (sqlite, mysql or postgres).",
	RunE:  runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(store factory.AuditStore) error {
		if store == nil {
			return errors.New("audit store is disabled")
		}
		defer store.Stop()

		filter := core.AuditFilter{
			EmailID:  auditEmailID,
			PolicyID: auditPolicyID,
			Limit:    auditLimit,
		}
		if auditBlocked {
			allowed := false
			filter.Allowed = &allowed
		}
		if auditSince > 0 {
			filter.Since = time.Now().Add(-auditSince)
		}

		entries, err := store.List(contextOrBackground(cmd), filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if auditJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tEMAIL\tPOLICY\tACTION\tCONF\tVERDICT")
		for _, e := range entries {
			verdict := "allowed"
			if !e.Allowed {
				verdict = "blocked: " + e.ReasonIfBlocked
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
				e.CreatedAt.Format(time.RFC3339), e.EmailID, e.PolicyID, e.ActionType, e.Confidence, verdict)
		}
		return tw.Flush()
	})
}
