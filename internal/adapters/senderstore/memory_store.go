package senderstore

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/core"
)

// MemoryStore is an in-memory implementation of core.SenderStore for tests
// and throwaway runs. Nothing survives the process.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*core.SenderProfile
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory sender store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*core.SenderProfile),
		logger:   logger,
	}
}

// Load returns a copy of the profile set so callers can mutate freely
func (s *MemoryStore) Load(_ context.Context) (map[string]*core.SenderProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*core.SenderProfile, len(s.profiles))
	for addr, p := range s.profiles {
		cp := *p
		out[addr] = &cp
	}
	return out, nil
}

// Get retrieves a single profile by lowercased address
func (s *MemoryStore) Get(_ context.Context, address string) (*core.SenderProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[strings.ToLower(strings.TrimSpace(address))]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

// Commit replaces the held profile set in one swap
func (s *MemoryStore) Commit(_ context.Context, profiles map[string]*core.SenderProfile) error {
	next := make(map[string]*core.SenderProfile, len(profiles))
	for addr, p := range profiles {
		cp := *p
		next[strings.ToLower(strings.TrimSpace(addr))] = &cp
	}

	s.mu.Lock()
	s.profiles = next
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error { return nil }
