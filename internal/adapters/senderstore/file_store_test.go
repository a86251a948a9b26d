package senderstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/core"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sender_profiles.json")
	return NewFileStore(path, zap.NewNop()), path
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store, _ := newTestFileStore(t)

	profiles, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected an empty set, got %d profiles", len(profiles))
	}
}

func TestFileStoreLoadCorruptFile(t *testing.T) {
	store, path := newTestFileStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	profiles, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("corrupt file must reset, not fail: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected an empty set after corruption, got %d profiles", len(profiles))
	}
}

func TestFileStoreLoadUnsupportedVersion(t *testing.T) {
	store, path := newTestFileStore(t)
	doc := `{"version": 99, "senders": {"a@x.com": {"address": "a@x.com", "seen": 3}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	profiles, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected reset on unsupported version, got %d profiles", len(profiles))
	}
}

func TestFileStoreCommitRoundTrip(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	in := map[string]*core.SenderProfile{
		"alice@example.com": {Address: "alice@example.com", Seen: 4, Flagged: 2, Surfaced: 1, Ignored: 1, LastUpdated: now},
	}
	if err := store.Commit(ctx, in); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	p, ok := out["alice@example.com"]
	if !ok {
		t.Fatal("profile missing after round trip")
	}
	if p.Seen != 4 || p.Flagged != 2 || p.Surfaced != 1 || p.Ignored != 1 {
		t.Errorf("counts changed: %+v", p)
	}
	if !p.LastUpdated.Equal(now) {
		t.Errorf("timestamp changed: %v", p.LastUpdated)
	}
}

func TestFileStoreLoadLowercasesKeys(t *testing.T) {
	store, path := newTestFileStore(t)
	doc := `{"version": 1, "senders": {"Alice@Example.COM": {"address": "Alice@Example.COM", "seen": 2}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	profiles, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := profiles["alice@example.com"]
	if !ok {
		t.Fatalf("key not lowercased: %v", profiles)
	}
	if p.Address != "alice@example.com" {
		t.Errorf("address not normalized: %q", p.Address)
	}
}

func TestFileStoreCommitReplacesAtomically(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	first := map[string]*core.SenderProfile{
		"a@x.com": {Address: "a@x.com", Seen: 1},
	}
	if err := store.Commit(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := map[string]*core.SenderProfile{
		"b@x.com": {Address: "b@x.com", Seen: 7},
	}
	if err := store.Commit(ctx, second); err != nil {
		t.Fatal(err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, stale := out["a@x.com"]; stale {
		t.Error("previous content survived the replace")
	}
	if p, ok := out["b@x.com"]; !ok || p.Seen != 7 {
		t.Errorf("replacement content wrong: %v", out)
	}

	// No temp files may remain next to the store
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestFileStoreCommitWritesVersionedDocument(t *testing.T) {
	store, path := newTestFileStore(t)
	if err := store.Commit(context.Background(), map[string]*core.SenderProfile{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("store file is not valid JSON: %v", err)
	}
	if doc.Version != 1 {
		t.Errorf("expected version 1, got %d", doc.Version)
	}
}

func TestFileStoreGet(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	if err := store.Commit(ctx, map[string]*core.SenderProfile{
		"carol@example.com": {Address: "carol@example.com", Seen: 3},
	}); err != nil {
		t.Fatal(err)
	}

	p, ok, err := store.Get(ctx, "Carol@Example.com")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if p.Seen != 3 {
		t.Errorf("wrong profile: %+v", p)
	}

	_, ok, err = store.Get(ctx, "nobody@example.com")
	if err != nil || ok {
		t.Errorf("expected miss, got ok=%v err=%v", ok, err)
	}
}
