package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"go.uber.org/zap"
)

// EvaluationError reports a policy that could not be evaluated
type EvaluationError struct {
	PolicyID string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("policy %s: %v", e.PolicyID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Outcome is the per-policy evaluation result. Exactly one of Action and Err
// is set when the policy matched or failed; both are nil when it did not match.
type Outcome struct {
	PolicyID string
	Action   *core.ProposedAction
	Err      error
}

type compiledPolicy struct {
	policy core.Policy
	node   Node
	err    error
}

// Engine evaluates a fixed policy set against classified emails.
// The policy set is supplied at construction and never mutated.
type Engine struct {
	policies []compiledPolicy
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the clock "now" resolves against
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine compiles the policies. Policies that fail to compile are kept and
// reported as failures on every evaluation.
func NewEngine(policies []core.Policy, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		policies: make([]compiledPolicy, 0, len(policies)),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, p := range policies {
		node, err := Compile(p.Condition)
		if err != nil {
			logger.Warn("Policy condition failed to compile",
				zap.String("policy_id", p.ID),
				zap.Error(err))
		}
		e.policies = append(e.policies, compiledPolicy{policy: p, node: node, err: err})
	}
	return e
}

// Policies returns the configured policy set
func (e *Engine) Policies() []core.Policy {
	out := make([]core.Policy, len(e.policies))
	for i, cp := range e.policies {
		out[i] = cp.policy
	}
	return out
}

// Evaluate runs every policy and returns one outcome per policy, in order
func (e *Engine) Evaluate(email core.Email, result core.ClassificationResult) []Outcome {
	ctx := NewEmailContext(email, result, e.now())
	outcomes := make([]Outcome, 0, len(e.policies))

	for _, cp := range e.policies {
		outcome := Outcome{PolicyID: cp.policy.ID}
		switch {
		case cp.err != nil:
			outcome.Err = &EvaluationError{PolicyID: cp.policy.ID, Err: cp.err}
		case cp.node.Eval(ctx):
			outcome.Action = e.propose(cp.policy, email, result)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// EvaluateAll returns the proposed actions of all matching policies. Failed
// policies are logged and skipped; the rest still evaluate.
func (e *Engine) EvaluateAll(email core.Email, result core.ClassificationResult) []core.ProposedAction {
	var actions []core.ProposedAction
	for _, outcome := range e.Evaluate(email, result) {
		if outcome.Err != nil {
			e.logger.Warn("Skipping policy",
				zap.String("policy_id", outcome.PolicyID),
				zap.String("email_id", email.ID),
				zap.Error(outcome.Err))
			continue
		}
		if outcome.Action != nil {
			actions = append(actions, *outcome.Action)
		}
	}
	return actions
}

// propose builds the action for a matched policy. A confidence below the
// policy's confidence_min still yields a proposal so the gate blocks and
// audits it.
func (e *Engine) propose(p core.Policy, email core.Email, result core.ClassificationResult) *core.ProposedAction {
	confidence := result.Confidence
	if p.Action.Confidence != nil {
		confidence = *p.Action.Confidence
	}

	var params map[string]interface{}
	if len(p.Action.Params) > 0 {
		params = make(map[string]interface{}, len(p.Action.Params))
		for k, v := range p.Action.Params {
			params[k] = v
		}
	}

	return &core.ProposedAction{
		EmailID:       email.ID,
		PolicyID:      p.ID,
		ActionType:    p.Action.Type,
		Confidence:    confidence,
		ConfidenceMin: p.Action.ConfidenceMin,
		Rationale:     RenderRationale(p, email, result, confidence),
		Params:        params,
		Notify:        p.Action.Notify,
	}
}

// RenderRationale fills the policy's rationale template, or returns the
// default "Policy {id} matched"
func RenderRationale(p core.Policy, email core.Email, result core.ClassificationResult, confidence float64) string {
	template := p.Rationale
	if strings.TrimSpace(template) == "" {
		template = "Policy {id} matched"
	}
	r := strings.NewReplacer(
		"{id}", p.ID,
		"{policy_id}", p.ID,
		"{email_id}", email.ID,
		"{category}", string(result.Category),
		"{risk_score}", strconv.FormatFloat(result.RiskScore, 'f', -1, 64),
		"{confidence}", strconv.FormatFloat(confidence, 'f', 2, 64),
		"{sender_domain}", email.SenderDomain,
	)
	return r.Replace(template)
}

// EvaluateAll evaluates policies against one classified email with a
// throwaway engine
func EvaluateAll(policies []core.Policy, email core.Email, result core.ClassificationResult, logger *zap.Logger) []core.ProposedAction {
	return NewEngine(policies, logger).EvaluateAll(email, result)
}

// EvaluateCondition compiles and evaluates a single condition tree
func EvaluateCondition(c core.Condition, ctx Context) (bool, error) {
	node, err := Compile(c)
	if err != nil {
		return false, err
	}
	return node.Eval(ctx), nil
}
