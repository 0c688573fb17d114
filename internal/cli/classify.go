package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/applylens/inbox-policy/internal/adapters/filter"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/di"
	"github.com/applylens/inbox-policy/internal/inbox"
)

var (
	classifyJSON   bool
	classifyFormat string
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print reports as JSON")
	classifyCmd.Flags().StringVarP(&classifyFormat, "input", "i", "eml", "Input format (eml|json)")
}

var classifyCmd = &cobra.Command{
	Use:   "classify [file...]",
	Short: "Classify emails and show the gated policy decisions",
	Long: "Reads RFC 5322 messages (or JSON emails with --input json) from the given\n" +
		"files, or stdin when none are given, and runs the full pipeline on them.",
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, svc *inbox.Service) error {
		defer logger.Sync()

		emails, err := readEmails(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		start := time.Now()
		reports, err := svc.ProcessBatch(contextOrBackground(cmd), emails)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if classifyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if len(reports) == 1 {
				return enc.Encode(reports[0])
			}
			return enc.Encode(reports)
		}

		printer := filter.NewCliFilter(svc, logger, out, flags.Verbose)
		for _, report := range reports {
			fmt.Fprintf(out, "\n=== Email %s ===\n", report.Email.ID)
			fmt.Fprintf(out, "From: %s\nSubject: %s\n", report.Email.Sender, report.Email.Subject)
			printer.PrintReport(report, 0)
		}
		fmt.Fprintf(out, "\nProcessed %d email(s) in %v\n", len(reports), time.Since(start))
		return nil
	})
}

func readEmails(paths []string, stdin io.Reader) ([]core.Email, error) {
	type input struct {
		name string
		data []byte
	}

	var inputs []input
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		inputs = append(inputs, input{name: "stdin", data: data})
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs = append(inputs, input{name: path, data: data})
	}

	var emails []core.Email
	for _, in := range inputs {
		parsed, err := decodeEmails(in.data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", in.name, err)
		}
		emails = append(emails, parsed...)
	}
	return emails, nil
}

// decodeEmails parses one message, or with --input json either one email
// object or an array of them
func decodeEmails(data []byte) ([]core.Email, error) {
	switch classifyFormat {
	case "eml":
		email, err := filter.ParseMessage(data, time.Now())
		if err != nil {
			return nil, err
		}
		return []core.Email{email}, nil
	case "json":
		var many []core.Email
		if err := json.Unmarshal(data, &many); err == nil {
			return many, nil
		}
		var one core.Email
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		return []core.Email{one}, nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", classifyFormat)
	}
}

// contextOrBackground returns the command context, which is nil when a
// command runs outside Execute
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
