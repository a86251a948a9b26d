package core

import (
	"context"
)

// Classifier defines the interface for the external AI classifier
type Classifier interface {
	// Classify labels one normalized email. Failures that should trigger
	// the heuristic fallback are returned as *ClassifierError.
	Classify(ctx context.Context, email *Email) (*Verdict, error)
}

// Normalizer converts raw mail records into canonical emails
type Normalizer interface {
	// Normalize returns *ValidationError for structurally unusable records
	Normalize(raw *RawRecord) (*Email, error)
}

// Extractor derives signal contributions from an email and sender prior
type Extractor interface {
	// Extract returns contributions in fixed rule-declaration order.
	// profile may be nil for a first-seen sender.
	Extract(email *Email, profile *SenderProfile) []SignalContribution
}

// SenderStore defines the interface for the persistent sender memory
type SenderStore interface {
	// Load reads the full profile set. A missing backing store yields an
	// empty set; a corrupt one yields an empty set after a recorded
	// warning, never an error that stops the run.
	Load(ctx context.Context) (map[string]*SenderProfile, error)

	// Get retrieves a single profile by lowercased address
	Get(ctx context.Context, address string) (*SenderProfile, bool, error)

	// Commit replaces the stored profile set as one atomic update. A
	// crash mid-commit must leave the previous state intact.
	Commit(ctx context.Context, profiles map[string]*SenderProfile) error

	// Close releases any backing resources
	Close() error
}
