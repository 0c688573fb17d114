package filter

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/ports"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// PostfixConfig holds the content filter settings
type PostfixConfig struct {
	ListenAddr     string
	HeaderPrefix   string
	RejectBlocked  bool
	ModifySubject  bool
	SubjectPrefix  string
	PostfixAddr    string
	PostfixPort    int
	PostfixEnabled bool
	Timeout        time.Duration
}

// PostfixFilter implements a Postfix content filter. Messages are annotated
// with X-ApplyLens-* headers and re-injected into Postfix.
type PostfixFilter struct {
	pipeline ports.Pipeline
	logger   *zap.Logger
	cfg      PostfixConfig
	server   *smtp.Server
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(pipeline ports.Pipeline, logger *zap.Logger, cfg PostfixConfig) *PostfixFilter {
	if cfg.HeaderPrefix == "" {
		cfg.HeaderPrefix = "X-ApplyLens"
	}
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = "[QUARANTINE] "
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PostfixFilter{
		pipeline: pipeline,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start starts the SMTP listener
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	f.logger.Info("Postfix filter starting", zap.String("address", f.cfg.ListenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail runs the pipeline directly
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email core.Email) (*core.Report, error) {
	return f.pipeline.Process(ctx, email)
}

// handle processes one message. It returns the bytes to re-inject, or an
// SMTP error when the message is rejected.
func (f *PostfixFilter) handle(ctx context.Context, raw []byte) ([]byte, error) {
	email, err := ParseMessage(raw, time.Now())
	if err != nil {
		f.logger.Error("Failed to parse email message", zap.Error(err))
		return annotate(raw, reportHeaders(f.cfg.HeaderPrefix, nil, err), ""), nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	report, err := f.pipeline.Process(ctx, email)
	if err != nil {
		f.logger.Error("Failed to process email",
			zap.String("email_id", email.ID),
			zap.String("sender_domain", email.SenderDomain),
			zap.Error(err))
		return annotate(raw, reportHeaders(f.cfg.HeaderPrefix, nil, err), ""), nil
	}

	allowed := report.AllowedActions()
	if f.cfg.RejectBlocked {
		for _, a := range allowed {
			if a.ActionType == core.ActionBlock {
				f.logger.Info("Rejecting email by policy",
					zap.String("email_id", email.ID),
					zap.String("sender_domain", email.SenderDomain),
					zap.String("policy_id", a.PolicyID),
					zap.Float64("risk_score", report.Result.RiskScore))
				return nil, &smtp.SMTPError{
					Code:         550,
					EnhancedCode: smtp.EnhancedCode{5, 7, 1},
					Message:      fmt.Sprintf("Rejected by policy %s", a.PolicyID),
				}
			}
		}
	}

	subject := ""
	if f.cfg.ModifySubject && hasAction(allowed, core.ActionQuarantine) &&
		!strings.HasPrefix(email.Subject, f.cfg.SubjectPrefix) {
		subject = f.cfg.SubjectPrefix + email.Subject
	}

	f.logger.Info("Processed email",
		zap.String("email_id", email.ID),
		zap.String("sender_domain", email.SenderDomain),
		zap.String("category", string(report.Result.Category)),
		zap.Float64("risk_score", report.Result.RiskScore),
		zap.Int("allowed_actions", len(allowed)))

	return annotate(raw, reportHeaders(f.cfg.HeaderPrefix, report, nil), subject), nil
}

func hasAction(actions []core.ProposedAction, t core.ActionType) bool {
	for _, a := range actions {
		if a.ActionType == t {
			return true
		}
	}
	return false
}

// sendToPostfix re-injects the processed message into Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, data []byte) error {
	addr := net.JoinHostPort(f.cfg.PostfixAddr, fmt.Sprint(f.cfg.PostfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := false
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", rcpt),
				zap.Error(err))
			continue
		}
		accepted = true
	}
	if !accepted {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	out, err := s.filter.handle(context.Background(), raw)
	if err != nil {
		return err
	}

	if !s.filter.cfg.PostfixEnabled {
		s.filter.logger.Warn("Postfix forwarding disabled, message dropped after annotation")
		return nil
	}
	if err := s.filter.sendToPostfix(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to send email back to Postfix",
			zap.String("sender", s.sender),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
