// Package senderstore provides the persistence backends for learned sender
// profiles. All backends implement core.SenderStore: reads during a run,
// one atomic commit after the run's decisions are final.
package senderstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/core"
)

// storeVersion is the on-disk schema version. Bump when fields change shape
// so old stores can be migrated instead of misread.
const storeVersion = 1

// fileDocument is the on-disk layout of the JSON store
type fileDocument struct {
	Version int                            `json:"version"`
	Senders map[string]*core.SenderProfile `json:"senders"`
}

// FileStore is the default sender memory backend: a single versioned JSON
// file replaced atomically on commit (write to a temp file, then rename),
// so a crash mid-write never leaves a half-written store.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file-backed sender store at path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the profile set. A missing file yields an empty set; an
// unreadable or corrupt file yields an empty set with a recorded warning,
// never a fatal error.
func (s *FileStore) Load(_ context.Context) (map[string]*core.SenderProfile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*core.SenderProfile{}, nil
		}
		s.warnCorrupt(err)
		return map[string]*core.SenderProfile{}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.warnCorrupt(err)
		return map[string]*core.SenderProfile{}, nil
	}
	if doc.Version <= 0 || doc.Version > storeVersion || doc.Senders == nil {
		s.warnCorrupt(fmt.Errorf("unsupported store version %d", doc.Version))
		return map[string]*core.SenderProfile{}, nil
	}

	// Keys are lowercased addresses; normalize defensively on read so a
	// hand-edited file cannot introduce duplicate senders.
	profiles := make(map[string]*core.SenderProfile, len(doc.Senders))
	for addr, profile := range doc.Senders {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" || profile == nil {
			continue
		}
		profile.Address = key
		profiles[key] = profile
	}
	return profiles, nil
}

// Get retrieves a single profile by lowercased address
func (s *FileStore) Get(ctx context.Context, address string) (*core.SenderProfile, bool, error) {
	profiles, err := s.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	p, ok := profiles[strings.ToLower(strings.TrimSpace(address))]
	return p, ok, nil
}

// Commit atomically replaces the stored profile set
func (s *FileStore) Commit(_ context.Context, profiles map[string]*core.SenderProfile) error {
	doc := fileDocument{Version: storeVersion, Senders: profiles}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sender profiles: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Committed sender profiles",
			zap.String("path", s.path),
			zap.Int("senders", len(profiles)))
	}
	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error { return nil }

func (s *FileStore) warnCorrupt(err error) {
	cerr := &core.StoreCorruptionError{Path: s.path, Err: err}
	if s.logger != nil {
		s.logger.Warn("Sender memory store unreadable, resetting to empty",
			zap.String("path", s.path),
			zap.Error(cerr))
	}
}
