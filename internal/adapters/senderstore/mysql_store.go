package senderstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/core"
)

// MySQLStore is a MySQL implementation of the core.SenderStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL sender store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_profiles (
			address VARCHAR(255) PRIMARY KEY,
			seen INT NOT NULL DEFAULT 0,
			flagged INT NOT NULL DEFAULT 0,
			surfaced INT NOT NULL DEFAULT 0,
			ignored INT NOT NULL DEFAULT 0,
			last_updated TIMESTAMP NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Load reads all profiles
func (s *MySQLStore) Load(ctx context.Context) (map[string]*core.SenderProfile, error) {
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
		var lastUpdated sql.NullTime
		if err := rows.Scan(&p.Address, &p.Seen, &p.Flagged, &p.Surfaced, &p.Ignored, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan sender profile: %w", err)
		}
		if lastUpdated.Valid {
			p.LastUpdated = lastUpdated.Time
		}
		profiles[p.Address] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sender profiles: %w", err)
	}
	return profiles, nil
}

// Get retrieves a single profile by lowercased address
func (s *MySQLStore) Get(ctx context.Context, address string) (*core.SenderProfile, bool, error) {
	var p core.SenderProfile
	var lastUpdated sql.NullTime
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
	if lastUpdated.Valid {
		p.LastUpdated = lastUpdated.Time
	}
	return &p, true, nil
}

// Commit upserts the full profile set in a single transaction
func (s *MySQLStore) Commit(ctx context.Context, profiles map[string]*core.SenderProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sender_profiles (address, seen, flagged, surfaced, ignored, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			seen = VALUES(seen),
			flagged = VALUES(flagged),
			surfaced = VALUES(surfaced),
			ignored = VALUES(ignored),
			last_updated = VALUES(last_updated)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		if _, err := stmt.ExecContext(ctx,
			p.Address, p.Seen, p.Flagged, p.Surfaced, p.Ignored, p.LastUpdated.UTC(),
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
