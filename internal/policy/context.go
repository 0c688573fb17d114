package policy

import (
	"time"

	"github.com/applylens/inbox-policy/internal/core"
)

// Fields lists every field a policy condition can reference
var Fields = []string{
	"id", "email_id", "sender", "sender_domain", "subject", "body_text", "received_at",
	"has_unsubscribe_header", "labels", "existing_labels",
	"category", "risk_score", "expires_at", "tags", "confidence",
}

// EmailContext exposes a classified email to condition evaluation
type EmailContext struct {
	fields map[string]interface{}
	now    time.Time
}

// NewEmailContext builds the evaluation context. Unset optional values
// (expires_at, received_at) are absent rather than zero.
func NewEmailContext(email core.Email, result core.ClassificationResult, now time.Time) *EmailContext {
	labels := make([]string, len(email.ExistingLabels))
	copy(labels, email.ExistingLabels)
	tags := make([]string, len(result.Tags))
	copy(tags, result.Tags)

	fields := map[string]interface{}{
		"id":                     email.ID,
		"email_id":               email.ID,
		"sender":                 email.Sender,
		"sender_domain":          email.SenderDomain,
		"subject":                email.Subject,
		"body_text":              email.BodyText,
		"has_unsubscribe_header": email.HasUnsubscribeHeader,
		"labels":                 labels,
		"existing_labels":        labels,
		"category":               string(result.Category),
		"risk_score":             result.RiskScore,
		"tags":                   tags,
		"confidence":             result.Confidence,
	}
	if !email.ReceivedAt.IsZero() {
		fields["received_at"] = email.ReceivedAt
	}
	if result.ExpiresAt != nil {
		fields["expires_at"] = *result.ExpiresAt
	}

	return &EmailContext{fields: fields, now: now}
}

// Lookup returns the field value and whether it is present
func (c *EmailContext) Lookup(field string) (interface{}, bool) {
	v, ok := c.fields[field]
	return v, ok
}

// Now returns the timestamp "now" resolves to
func (c *EmailContext) Now() time.Time {
	return c.now
}
