package inbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/applylens/inbox-policy/internal/classifier"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/policy"
	"github.com/applylens/inbox-policy/internal/safety"
	"github.com/applylens/inbox-policy/internal/whitelist"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds ProcessBatch parallelism when no limit is configured
const DefaultWorkers = 4

// Service runs the classify -> evaluate -> gate -> audit pipeline
type Service struct {
	classifier *classifier.Classifier
	engine     atomic.Pointer[policy.Engine]
	gate       *safety.Gate
	audit      core.AuditRepository
	notifier   core.Notifier
	advisor    core.Advisor
	whitelist  *whitelist.Checker
	logger     *zap.Logger
	now        func() time.Time
	workers    int
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the clock used for report timestamps and "now" in policies
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithWorkers bounds batch parallelism
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithNotifier sets the notifier used for allowed actions flagged notify
func WithNotifier(n core.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithAdvisor enables the second-opinion advisor
func WithAdvisor(a core.Advisor) Option {
	return func(s *Service) {
		s.advisor = a
	}
}

// WithWhitelist sets the sender domains that bypass the advisor
func WithWhitelist(w *whitelist.Checker) Option {
	return func(s *Service) {
		s.whitelist = w
	}
}

// NewService creates a new pipeline service
func NewService(
	clf *classifier.Classifier,
	policies []core.Policy,
	gate *safety.Gate,
	audit core.AuditRepository,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gate == nil {
		gate = safety.NewGate()
	}
	s := &Service{
		classifier: clf,
		gate:       gate,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.SetPolicies(policies)
	return s
}

// SetPolicies swaps the active policy set. In-flight evaluations finish
// against the set they started with.
func (s *Service) SetPolicies(policies []core.Policy) {
	engine := policy.NewEngine(policies, s.logger, policy.WithClock(s.now))
	s.engine.Store(engine)
	s.logger.Info("Policy set loaded", zap.Int("policies", len(policies)))
}

// Policies returns the active policy set
func (s *Service) Policies() []core.Policy {
	return s.engine.Load().Policies()
}

// Classify classifies an email without evaluating policies
func (s *Service) Classify(email core.Email) core.ClassificationResult {
	return s.classifier.ClassifyEmail(s.normalize(email))
}

// Evaluate runs policies and the safety gate for an already classified email.
// Nothing is persisted.
func (s *Service) Evaluate(email core.Email, result core.ClassificationResult) []core.Decision {
	email = s.normalize(email)
	actions := s.engine.Load().EvaluateAll(email, result)
	return s.gate.CheckAll(actions)
}

// Process runs the full pipeline for one email. Every gate decision is
// recorded before the report is returned.
func (s *Service) Process(ctx context.Context, email core.Email) (*core.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email = s.normalize(email)
	result := s.classifier.ClassifyEmail(email)
	decisions := s.Evaluate(email, result)

	for _, d := range decisions {
		fields := []zap.Field{
			zap.String("email_id", email.ID),
			zap.String("policy_id", d.Action.PolicyID),
			zap.String("action_type", string(d.Action.ActionType)),
			zap.Float64("confidence", d.Action.Confidence),
			zap.Bool("allowed", d.Allowed),
		}
		if d.Allowed {
			s.logger.Info("Action allowed", fields...)
		} else {
			s.logger.Info("Action blocked", append(fields, zap.String("reason", d.Reason))...)
		}

		if s.audit != nil {
			if err := s.audit.Record(ctx, d.Audit); err != nil {
				return nil, fmt.Errorf("failed to record audit entry for email %s: %w", email.ID, err)
			}
		}
	}

	s.notify(ctx, email, decisions)

	report := &core.Report{
		Email:       email,
		Result:      result,
		Decisions:   decisions,
		Advice:      s.review(ctx, email, result),
		ProcessedAt: s.now(),
	}
	return report, nil
}

// ProcessBatch processes emails in parallel. Reports keep input order; the
// first failure cancels the remaining work.
func (s *Service) ProcessBatch(ctx context.Context, emails []core.Email) ([]*core.Report, error) {
	reports := make([]*core.Report, len(emails))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, email := range emails {
		i, email := i, email
		g.Go(func() error {
			report, err := s.Process(ctx, email)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to process batch: %w", err)
	}
	return reports, nil
}

func (s *Service) notify(ctx context.Context, email core.Email, decisions []core.Decision) {
	if s.notifier == nil {
		return
	}
	for _, d := range decisions {
		if !d.Allowed || !d.Action.Notify {
			continue
		}
		if err := s.notifier.Notify(ctx, email, d); err != nil {
			s.logger.Error("Failed to send notification",
				zap.String("email_id", email.ID),
				zap.String("policy_id", d.Action.PolicyID),
				zap.Error(err))
		}
	}
}

func (s *Service) review(ctx context.Context, email core.Email, result core.ClassificationResult) *core.Advice {
	if s.advisor == nil {
		return nil
	}
	if s.whitelist != nil && s.whitelist.IsWhitelisted(email.Sender) {
		s.logger.Debug("Skipping advisor for whitelisted domain",
			zap.String("sender", email.Sender),
			zap.String("action", "whitelist_bypass"))
		return nil
	}

	advice, err := s.advisor.Review(ctx, email, result)
	if err != nil {
		s.logger.Warn("Advisor review failed",
			zap.String("email_id", email.ID),
			zap.Error(err))
		return nil
	}
	if advice != nil && advice.Category != result.Category {
		s.logger.Info("Advisor disagrees with classification",
			zap.String("email_id", email.ID),
			zap.String("category", string(result.Category)),
			zap.String("advisor_category", string(advice.Category)),
			zap.String("model", advice.ModelUsed))
	}
	return advice
}

// normalize fills the sender domain from the sender address and stamps
// ReceivedAt with the service clock when missing, so relative expiry
// phrases resolve for emails submitted without a receive time
func (s *Service) normalize(email core.Email) core.Email {
	if email.SenderDomain == "" {
		email.SenderDomain = whitelist.DomainOf(email.Sender)
	}
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = s.now()
	}
	return email
}
