package filter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/ports"
	"go.uber.org/zap"
)

// CliFilter runs the pipeline on a single message and prints the report
type CliFilter struct {
	pipeline ports.Pipeline
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
}

// NewCliFilter creates a new CLI filter writing to out
func NewCliFilter(pipeline ports.Pipeline, logger *zap.Logger, out io.Writer, verbose bool) *CliFilter {
	return &CliFilter{
		pipeline: pipeline,
		logger:   logger,
		out:      out,
		verbose:  verbose,
	}
}

// ProcessRaw parses a raw message and processes it
func (f *CliFilter) ProcessRaw(ctx context.Context, raw []byte) (*core.Report, error) {
	email, err := ParseMessage(raw, time.Now())
	if err != nil {
		return nil, err
	}
	return f.ProcessEmail(ctx, email)
}

// ProcessEmail processes an email and prints the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email core.Email) (*core.Report, error) {
	f.logger.Debug("Processing email", zap.String("email_id", email.ID))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "ID: %s\n", email.ID)
	fmt.Fprintf(f.out, "From: %s\n", email.Sender)
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.BodyText))

	if f.verbose {
		preview := email.BodyText
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	start := time.Now()
	report, err := f.pipeline.Process(ctx, email)
	if err != nil {
		f.logger.Error("Failed to process email", zap.Error(err))
		return nil, err
	}
	f.PrintReport(report, time.Since(start))
	return report, nil
}

// PrintReport writes a human readable report
func (f *CliFilter) PrintReport(report *core.Report, duration time.Duration) {
	r := report.Result
	fmt.Fprintf(f.out, "\n=== Classification ===\n")
	fmt.Fprintf(f.out, "Category: %s\n", r.Category)
	fmt.Fprintf(f.out, "Risk score: %.0f\n", r.RiskScore)
	fmt.Fprintf(f.out, "Confidence: %.2f\n", r.Confidence)
	fmt.Fprintf(f.out, "Tags: %s\n", strings.Join(r.Tags, ", "))
	if r.ExpiresAt != nil {
		fmt.Fprintf(f.out, "Expires at: %s\n", r.ExpiresAt.Format(time.RFC3339))
	}

	fmt.Fprintf(f.out, "\n=== Decisions ===\n")
	if len(report.Decisions) == 0 {
		fmt.Fprintf(f.out, "No policy matched\n")
	}
	for _, d := range report.Decisions {
		verdict := "allowed"
		if !d.Allowed {
			verdict = "blocked: " + d.Reason
		}
		fmt.Fprintf(f.out, "%s via %s (confidence %.2f) -> %s\n",
			d.Action.ActionType, d.Action.PolicyID, d.Action.Confidence, verdict)
		if f.verbose && d.Action.Rationale != "" {
			fmt.Fprintf(f.out, "  rationale: %s\n", d.Action.Rationale)
		}
	}

	if report.Advice != nil {
		fmt.Fprintf(f.out, "\n=== Advisor ===\n")
		fmt.Fprintf(f.out, "Category: %s (%.2f)\n", report.Advice.Category, report.Advice.Confidence)
		fmt.Fprintf(f.out, "Explanation: %s\n", report.Advice.Explanation)
		fmt.Fprintf(f.out, "Model used: %s\n", report.Advice.ModelUsed)
	}
	if duration > 0 {
		fmt.Fprintf(f.out, "\nProcessing time: %v\n", duration)
	}
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
