package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/applylens/inbox-policy/internal/core"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the allowed action
func (n *LogNotifier) Notify(ctx context.Context, email core.Email, d core.Decision) error {
	n.logger.Info("Policy notification",
		zap.String("email_id", email.ID),
		zap.String("sender_domain", email.SenderDomain),
		zap.String("policy_id", d.Action.PolicyID),
		zap.String("action_type", string(d.Action.ActionType)),
		zap.String("rationale", d.Action.Rationale))
	return nil
}

// Multi fans a notification out to several notifiers. All are attempted;
// errors are combined.
type Multi []core.Notifier

// Notify sends to every notifier
func (m Multi) Notify(ctx context.Context, email core.Email, d core.Decision) error {
	var failed []string
	for _, n := range m {
		if err := n.Notify(ctx, email, d); err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to notify: %s", strings.Join(failed, "; "))
	}
	return nil
}

// subject and body shared by mail-based notifiers
func renderMessage(email core.Email, d core.Decision) (string, string) {
	subject := fmt.Sprintf("[ApplyLens] %s applied to \"%s\"", d.Action.ActionType, email.Subject)

	var b strings.Builder
	fmt.Fprintf(&b, "Policy: %s\n", d.Action.PolicyID)
	fmt.Fprintf(&b, "Action: %s\n", d.Action.ActionType)
	fmt.Fprintf(&b, "Confidence: %.2f\n", d.Action.Confidence)
	fmt.Fprintf(&b, "From: %s\n", email.Sender)
	fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
	if d.Action.Rationale != "" {
		fmt.Fprintf(&b, "Rationale: %s\n", d.Action.Rationale)
	}
	fmt.Fprintf(&b, "Audit ID: %s\n", d.Audit.ID)
	return subject, b.String()
}
