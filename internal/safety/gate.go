package safety

import (
	"fmt"
	"strings"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/google/uuid"
)

// Block reasons
const (
	ReasonRationaleRequired = "high-risk action requires rationale"
)

// Gate validates proposed actions before execution. It does not execute
// anything and keeps no state between calls.
type Gate struct {
	now   func() time.Time
	newID func() string
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithClock sets the clock used for audit timestamps
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// WithIDGenerator sets the audit entry id generator
func WithIDGenerator(newID func() string) GateOption {
	return func(g *Gate) {
		g.newID = newID
	}
}

// NewGate creates a safety gate
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check decides whether the action may execute. Every call yields exactly one
// audit entry, allowed or blocked.
func (g *Gate) Check(action core.ProposedAction) core.Decision {
	allowed, reason := evaluate(action)

	return core.Decision{
		Action:  action,
		Allowed: allowed,
		Reason:  reason,
		Audit: core.AuditEntry{
			ID:              g.newID(),
			EmailID:         action.EmailID,
			ActionType:      action.ActionType,
			Actor:           core.AuditActor,
			PolicyID:        action.PolicyID,
			Confidence:      action.Confidence,
			Rationale:       action.Rationale,
			Allowed:         allowed,
			ReasonIfBlocked: reason,
			CreatedAt:       g.now().UTC(),
		},
	}
}

// CheckAll gates each action in order
func (g *Gate) CheckAll(actions []core.ProposedAction) []core.Decision {
	decisions := make([]core.Decision, 0, len(actions))
	for _, a := range actions {
		decisions = append(decisions, g.Check(a))
	}
	return decisions
}

// evaluate applies the validation sequence:
//  1. high tier without rationale blocks
//  2. confidence below the tier minimum blocks
//  3. confidence below the proposing policy's confidence_min blocks
//  4. otherwise allowed
//
// A missing rationale is reported ahead of low confidence, so a high-risk
// action without rationale always carries that reason.
func evaluate(action core.ProposedAction) (bool, string) {
	rule, err := RuleFor(action.ActionType)
	if err != nil {
		return false, fmt.Sprintf("unknown action type %s", action.ActionType)
	}

	if rule.RationaleRequired && strings.TrimSpace(action.Rationale) == "" {
		return false, ReasonRationaleRequired
	}

	if action.Confidence < rule.MinConfidence {
		return false, fmt.Sprintf("confidence below threshold for %s action", rule.Tier)
	}

	if action.Confidence < action.ConfidenceMin {
		return false, fmt.Sprintf("confidence below policy minimum %.2f", action.ConfidenceMin)
	}

	return true, ""
}
