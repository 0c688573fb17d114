package ports

import (
	"context"

	"github.com/applylens/inbox-policy/internal/core"
)

// Pipeline runs classification, policy evaluation and gating for one email
type Pipeline interface {
	Process(ctx context.Context, email core.Email) (*core.Report, error)
}

// EmailFilter defines the interface for email filtering front ends
type EmailFilter interface {
	// ProcessEmail processes an email and returns the pipeline report
	ProcessEmail(ctx context.Context, email core.Email) (*core.Report, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
