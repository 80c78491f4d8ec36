package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// SQLiteStore keeps one JSON document per user in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("NewSQLite: create database directory: %w", err)
	}

	// modernc.org/sqlite applies _pragma parameters on every new connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewSQLite: open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLite: ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLite: initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		profile_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Get implements ProfileStore.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile_json FROM profiles WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewProfile(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("SQLiteStore.Get: scan profile row: %w", err)
	}

	p, err := decodeProfile([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("SQLiteStore.Get: %w", err)
	}
	return p, nil
}

// Save implements ProfileStore.
func (s *SQLiteStore) Save(ctx context.Context, profile *domain.UserProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("SQLiteStore.Save: user id is required")
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	data, err := encodeProfile(profile)
	if err != nil {
		return fmt.Errorf("SQLiteStore.Save: %w", err)
	}

	query := `
	INSERT INTO profiles (user_id, profile_json, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		profile_json = excluded.profile_json,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query,
		profile.UserID, string(data), profile.CreatedAt.Unix(), now.Unix()); err != nil {
		return fmt.Errorf("SQLiteStore.Save: upsert profile: %w", err)
	}
	return nil
}

// Delete implements ProfileStore.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("SQLiteStore.Delete: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements ProfileStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ProfileStore = (*SQLiteStore)(nil)
