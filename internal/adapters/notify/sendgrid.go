package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// sender abstracts the SendGrid client
type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier emails a digest of each allowed action
type SendGridNotifier struct {
	client sender
	from   *mail.Email
	to     *mail.Email
	logger *zap.Logger
}

// NewSendGridNotifier creates a SendGrid-backed notifier
func NewSendGridNotifier(apiKey, fromName, fromAddress, toAddress string, logger *zap.Logger) (*SendGridNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SendGrid API key is required")
	}
	if fromAddress == "" || toAddress == "" {
		return nil, fmt.Errorf("SendGrid from and to addresses are required")
	}
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
		to:     mail.NewEmail("", toAddress),
		logger: logger,
	}, nil
}

// Notify sends the notification mail
func (n *SendGridNotifier) Notify(ctx context.Context, email core.Email, d core.Decision) error {
	subject, text := renderMessage(email, d)
	htmlContent := "<pre>" + html.EscapeString(text) + "</pre>"

	message := mail.NewSingleEmail(n.from, subject, n.to, text, htmlContent)
	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("failed to send notification: status %d: %s",
			response.StatusCode, strings.TrimSpace(response.Body))
	}

	n.logger.Debug("Notification sent",
		zap.String("email_id", email.ID),
		zap.String("policy_id", d.Action.PolicyID),
		zap.Int("status", response.StatusCode))
	return nil
}
