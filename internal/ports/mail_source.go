package ports

import (
	"context"

	"github.com/mikey/email-triage/internal/core"
)

// FetchOptions narrows a mail source query
type FetchOptions struct {
	Folder      string
	UnreadOnly  bool
	MaxMessages int
}

// MailSource defines the interface for reading raw mail records
type MailSource interface {
	// Fetch returns records newest first, capped at MaxMessages
	Fetch(ctx context.Context, opts FetchOptions) ([]*core.RawRecord, error)
}
