package policy

import "github.com/applylens/inbox-policy/internal/core"

// DefaultPolicies returns the built-in policy set used when no policy source
// is configured. Each call returns a fresh copy.
func DefaultPolicies() []core.Policy {
	return []core.Policy{
		{
			ID:          "promo-expired-archive",
			Description: "Archive promotions whose offer has expired",
			Condition: core.Condition{All: []core.Condition{
				{Field: "category", Op: "=", Value: "promotions"},
				{Field: "expires_at", Op: "<", Value: ValueNow},
			}},
			Action: core.ActionSpec{Type: core.ActionArchive, ConfidenceMin: 0.5},
		},
		{
			ID:          "phishing-quarantine",
			Description: "Quarantine security mail flagged as a phishing suspect",
			Condition: core.Condition{All: []core.Condition{
				{Field: "category", Op: "=", Value: "security"},
				{Field: "tags", Op: "contains", Value: "phishing-suspect"},
			}},
			Action:    core.ActionSpec{Type: core.ActionQuarantine, ConfidenceMin: 0.8},
			Rationale: "Policy {id}: risk score {risk_score} from {sender_domain} with phishing indicators",
		},
		{
			ID:          "ats-label",
			Description: "Label job application mail",
			Condition: core.Condition{
				Field: "category", Op: "=", Value: "applications",
			},
			Action: core.ActionSpec{
				Type:   core.ActionLabel,
				Params: map[string]interface{}{"label": "Applications"},
			},
		},
		{
			ID:          "bills-label",
			Description: "Label bills and invoices",
			Condition: core.Condition{
				Field: "category", Op: "=", Value: "bills",
			},
			Action: core.ActionSpec{
				Type:   core.ActionLabel,
				Params: map[string]interface{}{"label": "Bills"},
				Notify: true,
			},
		},
		{
			ID:          "high-risk-block",
			Description: "Block senders of very high risk mail",
			Condition: core.Condition{
				Field: "risk_score", Op: ">=", Value: 90,
			},
			Action:    core.ActionSpec{Type: core.ActionBlock, ConfidenceMin: 0.8},
			Rationale: "Policy {id}: risk score {risk_score} at or above block threshold",
		},
	}
}
