package ports

import (
	"context"

	"github.com/mikey/threat-verdict/internal/core"
)

// Evaluator produces a verdict for a single message
type Evaluator interface {
	Evaluate(ctx context.Context, email *core.Email) (*core.ThreatVerdict, error)
}

// EmailFilter defines the interface for the front ends that feed messages to the engine
type EmailFilter interface {
	// ProcessEmail evaluates an email and returns its verdict
	ProcessEmail(ctx context.Context, email *core.Email) (*core.ThreatVerdict, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
