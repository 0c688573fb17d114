package safety

import (
	"errors"
	"fmt"

	"github.com/applylens/inbox-policy/internal/core"
)

// ErrUnknownActionType is returned for action types with no tier mapping
var ErrUnknownActionType = errors.New("unknown action type")

// Tier is an action risk tier. Higher tier = stricter checks.
type Tier int

const (
	TierLow  Tier = 0 // reversible mailbox changes
	TierHigh Tier = 1 // destructive or sender-level actions
)

// String returns the label used in block reasons
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierHigh:
		return "high"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// TierRule is the gate requirement for a tier
type TierRule struct {
	Tier              Tier
	MinConfidence     float64
	RationaleRequired bool
}

var tierRules = map[Tier]TierRule{
	TierLow:  {Tier: TierLow, MinConfidence: 0.5, RationaleRequired: false},
	TierHigh: {Tier: TierHigh, MinConfidence: 0.8, RationaleRequired: true},
}

var actionTiers = map[core.ActionType]Tier{
	core.ActionLabel:      TierLow,
	core.ActionArchive:    TierLow,
	core.ActionMove:       TierLow,
	core.ActionQuarantine: TierHigh,
	core.ActionDelete:     TierHigh,
	core.ActionBlock:      TierHigh,
}

// TierFor maps an action type to its tier
func TierFor(action core.ActionType) (Tier, error) {
	tier, ok := actionTiers[action]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownActionType, action)
	}
	return tier, nil
}

// RuleFor returns the requirements of the action type's tier
func RuleFor(action core.ActionType) (TierRule, error) {
	tier, err := TierFor(action)
	if err != nil {
		return TierRule{}, err
	}
	return tierRules[tier], nil
}

// ActionTypes lists every action type with a tier mapping
func ActionTypes() []core.ActionType {
	return []core.ActionType{
		core.ActionLabel, core.ActionArchive, core.ActionMove,
		core.ActionQuarantine, core.ActionDelete, core.ActionBlock,
	}
}
