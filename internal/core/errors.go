package core

import "fmt"

// ValidationError marks a raw record that is structurally unusable. The
// record is skipped and counted; the batch continues.
type ValidationError struct {
	MessageID string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.MessageID == "" {
		return fmt.Sprintf("invalid record: %s", e.Reason)
	}
	return fmt.Sprintf("invalid record %s: %s", e.MessageID, e.Reason)
}

// ClassifierErrorKind distinguishes the ways an AI call can fail
type ClassifierErrorKind string

const (
	ClassifierTimeout     ClassifierErrorKind = "timeout"
	ClassifierMalformed   ClassifierErrorKind = "malformed"
	ClassifierRateLimited ClassifierErrorKind = "rate_limited"
)

// ClassifierError is a non-fatal AI failure. The affected email falls back
// to the heuristic decision; the batch is never aborted by one of these.
type ClassifierError struct {
	Kind ClassifierErrorKind
	Err  error
}

func (e *ClassifierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier unavailable (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("classifier unavailable (%s)", e.Kind)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// StoreCorruptionError marks an unreadable sender memory file. The store is
// reset to empty with a recorded warning; never fatal.
type StoreCorruptionError struct {
	Path string
	Err  error
}

func (e *StoreCorruptionError) Error() string {
	return fmt.Sprintf("sender memory store corrupt at %s: %v", e.Path, e.Err)
}

func (e *StoreCorruptionError) Unwrap() error { return e.Err }

// ConfigError is an inconsistent or incomplete configuration. Raised before
// any email is processed; fatal to the run.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}
