package core

import (
	"time"
)

// Email represents an ingested mail message as seen by the classifier
type Email struct {
	ID                   string    `json:"id" yaml:"id"`
	Sender               string    `json:"sender" yaml:"sender"`
	SenderDomain         string    `json:"sender_domain" yaml:"sender_domain"`
	Subject              string    `json:"subject" yaml:"subject"`
	BodyText             string    `json:"body_text" yaml:"body_text"`
	ReceivedAt           time.Time `json:"received_at" yaml:"received_at"`
	HasUnsubscribeHeader bool      `json:"has_unsubscribe_header" yaml:"has_unsubscribe_header"`
	ExistingLabels       []string  `json:"existing_labels,omitempty" yaml:"existing_labels,omitempty"`
}

// Category is the fixed set of inbox categories
type Category string

const (
	CategoryPromotions   Category = "promotions"
	CategoryBills        Category = "bills"
	CategorySecurity     Category = "security"
	CategoryApplications Category = "applications"
	CategoryPersonal     Category = "personal"
)

// Categories lists every valid category
var Categories = []Category{
	CategoryPromotions,
	CategoryBills,
	CategorySecurity,
	CategoryApplications,
	CategoryPersonal,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ClassificationResult is the outcome of classifying a single email
type ClassificationResult struct {
	EmailID    string     `json:"email_id"`
	Category   Category   `json:"category"`
	RiskScore  float64    `json:"risk_score"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Tags       []string   `json:"tags"`
	Confidence float64    `json:"confidence"`
}

// HasTag reports whether the result carries the given tag
func (r *ClassificationResult) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ActionType is an automation action a policy can propose
type ActionType string

const (
	ActionLabel      ActionType = "label"
	ActionArchive    ActionType = "archive"
	ActionMove       ActionType = "move"
	ActionQuarantine ActionType = "quarantine"
	ActionDelete     ActionType = "delete"
	ActionBlock      ActionType = "block"
)

// Condition is the serialized form of a policy condition tree.
// A node is either a leaf (Field/Operator/Value) or a combinator (All or Any).
type Condition struct {
	Field    string      `json:"field,omitempty" yaml:"field,omitempty"`
	Operator string      `json:"operator,omitempty" yaml:"operator,omitempty"`
	Op       string      `json:"op,omitempty" yaml:"op,omitempty"`
	Value    interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	All      []Condition `json:"all,omitempty" yaml:"all,omitempty"`
	Any      []Condition `json:"any,omitempty" yaml:"any,omitempty"`
}

// OperatorName returns the operator, accepting the short "op" spelling
func (c Condition) OperatorName() string {
	if c.Operator != "" {
		return c.Operator
	}
	return c.Op
}

// ActionSpec describes what a policy proposes when its condition matches
type ActionSpec struct {
	Type          ActionType             `json:"type" yaml:"type"`
	ConfidenceMin float64                `json:"confidence_min,omitempty" yaml:"confidence_min,omitempty"`
	Confidence    *float64               `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Params        map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	Notify        bool                   `json:"notify,omitempty" yaml:"notify,omitempty"`
}

// Policy is a declarative condition -> action rule
type Policy struct {
	ID          string     `json:"id" yaml:"id"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Condition   Condition  `json:"condition" yaml:"condition"`
	Action      ActionSpec `json:"action" yaml:"action"`
	Rationale   string     `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// ProposedAction is a recommended action pending safety validation
type ProposedAction struct {
	EmailID    string                 `json:"email_id"`
	PolicyID   string                 `json:"policy_id"`
	ActionType ActionType             `json:"action_type"`
	Confidence float64                `json:"confidence"`
	Rationale  string                 `json:"rationale,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty"`
	Notify     bool                   `json:"notify,omitempty"`

	// ConfidenceMin is the proposing policy's own floor, checked by the gate
	// on top of the tier minimum
	ConfidenceMin float64 `json:"confidence_min,omitempty"`
}

// AuditActor is the actor recorded for every policy-engine decision
const AuditActor = "policy-engine"

// AuditEntry records a single safety gate decision
type AuditEntry struct {
	ID              string     `json:"id" db:"id"`
	EmailID         string     `json:"email_id" db:"email_id"`
	ActionType      ActionType `json:"action_type" db:"action_type"`
	Actor           string     `json:"actor" db:"actor"`
	PolicyID        string     `json:"policy_id" db:"policy_id"`
	Confidence      float64    `json:"confidence" db:"confidence"`
	Rationale       string     `json:"rationale" db:"rationale"`
	Allowed         bool       `json:"allowed" db:"allowed"`
	ReasonIfBlocked string     `json:"reason_if_blocked,omitempty" db:"reason_if_blocked"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Decision is the safety gate verdict for one proposed action
type Decision struct {
	Action  ProposedAction `json:"action"`
	Allowed bool           `json:"allowed"`
	Reason  string         `json:"reason,omitempty"`
	Audit   AuditEntry     `json:"audit"`
}

// Advice is an optional second opinion attached to a report
type Advice struct {
	Category    Category `json:"category"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	ModelUsed   string   `json:"model_used"`
}

// Report is the full pipeline output for one email
type Report struct {
	Email       Email                `json:"email"`
	Result      ClassificationResult `json:"result"`
	Decisions   []Decision           `json:"decisions"`
	Advice      *Advice              `json:"advice,omitempty"`
	ProcessedAt time.Time            `json:"processed_at"`
}

// AllowedActions returns the actions the safety gate let through
func (r *Report) AllowedActions() []ProposedAction {
	var allowed []ProposedAction
	for _, d := range r.Decisions {
		if d.Allowed {
			allowed = append(allowed, d.Action)
		}
	}
	return allowed
}

// AuditFilter narrows audit queries
type AuditFilter struct {
	EmailID  string
	PolicyID string
	Allowed  *bool
	Since    time.Time
	Limit    int
}
