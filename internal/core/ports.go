package core

import (
	"context"
	"time"
)

// AuditRepository persists safety gate decisions
type AuditRepository interface {
	// Record appends an audit entry
	Record(ctx context.Context, entry AuditEntry) error

	// List returns entries matching the filter, newest first
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)

	// Cleanup removes entries created before the cutoff
	Cleanup(ctx context.Context, before time.Time) error
}

// PolicySource supplies the current policy set
type PolicySource interface {
	// Load returns all configured policies
	Load(ctx context.Context) ([]Policy, error)
}

// Notifier delivers notifications for allowed actions flagged with notify
type Notifier interface {
	Notify(ctx context.Context, email Email, decision Decision) error
}

// Advisor provides an optional second opinion on a classification
type Advisor interface {
	// Review asks the advisor which category it would assign
	Review(ctx context.Context, email Email, result ClassificationResult) (*Advice, error)
}
