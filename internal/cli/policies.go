package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/applylens/inbox-policy/internal/adapters/policystore"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/di"
	"github.com/applylens/inbox-policy/internal/factory"
	"github.com/applylens/inbox-policy/internal/policy"
	"github.com/applylens/inbox-policy/internal/safety"
)

var policiesJSON bool

func init() {
	rootCmd.AddCommand(policiesCmd)
	policiesCmd.AddCommand(policiesValidateCmd, policiesListCmd, policiesPushCmd)
	policiesListCmd.Flags().BoolVar(&policiesJSON, "json", false, "Print policies as JSON")
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Inspect, validate and publish policy sets",
}

var policiesValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a policy file",
	Long: "Loads a policy file and reports structural errors and conditions that\n" +
		"would be skipped at evaluation time. Exits non-zero on any problem.",
	Args: cobra.MaximumNArgs(1),
	RunE: runPoliciesValidate,
}

var policiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active policy set",
	RunE:  runPoliciesList,
}

var policiesPushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Validate a policy file and upsert it into PostgreSQL",
	Args:  cobra.ExactArgs(1),
	RunE:  runPoliciesPush,
}

func runPoliciesValidate(cmd *cobra.Command, args []string) error {
	path := flags.PolicyFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no policy file given")
	}

	policies, err := policy.LoadFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	compileErrs := policy.CompileErrors(policies)
	ids := make([]string, 0, len(compileErrs))
	for id := range compileErrs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "WARN  %s: %v\n", id, compileErrs[id])
	}

	if len(compileErrs) > 0 {
		return fmt.Errorf("%d of %d policies have invalid conditions", len(compileErrs), len(policies))
	}
	fmt.Fprintf(out, "OK    %d policies in %s\n", len(policies), path)
	return nil
}

func runPoliciesList(cmd *cobra.Command, args []string) error {
	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(source core.PolicySource) error {
		policies, err := source.Load(contextOrBackground(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if policiesJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(policies)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tACTION\tTIER\tMIN\tNOTIFY\tDESCRIPTION")
		for _, p := range policies {
			tier := "?"
			if t, err := safety.TierFor(p.Action.Type); err == nil {
				tier = t.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%t\t%s\n",
				p.ID, p.Action.Type, tier, p.Action.ConfidenceMin, p.Action.Notify, p.Description)
		}
		return tw.Flush()
	})
}

func runPoliciesPush(cmd *cobra.Command, args []string) error {
	policies, err := policy.LoadFile(args[0])
	if err != nil {
		return err
	}

	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, db *factory.DatabaseFactory) error {
		defer db.Close()

		conn, err := db.Postgres()
		if err != nil {
			return err
		}
		if err := policystore.NewPostgresSource(conn, logger).Upsert(contextOrBackground(cmd), policies); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d policies\n", len(policies))
		return nil
	})
}
