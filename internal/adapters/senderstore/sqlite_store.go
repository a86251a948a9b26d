package senderstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/core"
)

// SQLiteStore is a SQLite implementation of the core.SenderStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite sender store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_profiles (
			address TEXT PRIMARY KEY,
			seen INTEGER NOT NULL DEFAULT 0,
			flagged INTEGER NOT NULL DEFAULT 0,
			surfaced INTEGER NOT NULL DEFAULT 0,
			ignored INTEGER NOT NULL DEFAULT 0,
			last_updated TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Load reads all profiles
func (s *SQLiteStore) Load(ctx context.Context) (map[string]*core.SenderProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, seen, flagged, surfaced, ignored, last_updated
		FROM sender_profiles
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sender profiles: %w", err)
	}
	defer rows.Close()

	profiles := make(map[string]*core.SenderProfile)
	for rows.Next() {
		var p core.SenderProfile
		var lastUpdated string
		if err := rows.Scan(&p.Address, &p.Seen, &p.Flagged, &p.Surfaced, &p.Ignored, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan sender profile: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, lastUpdated); err == nil {
			p.LastUpdated = ts
		}
		profiles[p.Address] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sender profiles: %w", err)
	}
	return profiles, nil
}

// Get retrieves a single profile by lowercased address
func (s *SQLiteStore) Get(ctx context.Context, address string) (*core.SenderProfile, bool, error) {
	var p core.SenderProfile
	var lastUpdated string
	err := s.db.QueryRowContext(ctx, `
		SELECT address, seen, flagged, surfaced, ignored, last_updated
		FROM sender_profiles
		WHERE address = ?
	`, strings.ToLower(strings.TrimSpace(address))).
		Scan(&p.Address, &p.Seen, &p.Flagged, &p.Surfaced, &p.Ignored, &lastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query sender profile: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, lastUpdated); err == nil {
		p.LastUpdated = ts
	}
	return &p, true, nil
}

// Commit upserts the full profile set in a single transaction
func (s *SQLiteStore) Commit(ctx context.Context, profiles map[string]*core.SenderProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO sender_profiles (address, seen, flagged, surfaced, ignored, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		if _, err := stmt.ExecContext(ctx,
			p.Address, p.Seen, p.Flagged, p.Surfaced, p.Ignored,
			p.LastUpdated.UTC().Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert sender profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sender profiles: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Committed sender profiles", zap.Int("senders", len(profiles)))
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
