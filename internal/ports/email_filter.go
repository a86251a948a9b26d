package ports

import (
	"context"

	"github.com/mikey/email-triage/internal/core"
)

// EmailFilter defines the interface for a triage frontend
type EmailFilter interface {
	// ProcessRecord triages one raw mail record and returns the result
	ProcessRecord(ctx context.Context, raw *core.RawRecord) (*core.TriageResult, error)

	// Start starts the frontend
	Start() error

	// Stop stops the frontend
	Stop() error
}
