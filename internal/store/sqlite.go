package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the negotiation persistence interfaces using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS rounds (
		negotiation_id INTEGER NOT NULL,
		round INTEGER NOT NULL,
		total_clauses INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (negotiation_id, round)
	);

	CREATE TABLE IF NOT EXISTS round_clauses (
		negotiation_id INTEGER NOT NULL,
		round INTEGER NOT NULL,
		ord INTEGER NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		owner_level TEXT NOT NULL,
		owner_reason TEXT NOT NULL,
		tenant_level TEXT NOT NULL,
		tenant_reason TEXT NOT NULL,
		revised INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (negotiation_id, round, ord)
	);

	CREATE TABLE IF NOT EXISTS selections (
		negotiation_id INTEGER NOT NULL,
		ord INTEGER NOT NULL,
		owner_accepted INTEGER,
		tenant_accepted INTEGER,
		PRIMARY KEY (negotiation_id, ord)
	);

	CREATE TABLE IF NOT EXISTS fixed_clauses (
		negotiation_id INTEGER NOT NULL,
		round INTEGER NOT NULL,
		ord INTEGER NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		owner_level TEXT NOT NULL,
		owner_reason TEXT NOT NULL,
		tenant_level TEXT NOT NULL,
		tenant_reason TEXT NOT NULL,
		is_passed INTEGER NOT NULL DEFAULT 1,
		fixed_at INTEGER NOT NULL,
		PRIMARY KEY (negotiation_id, ord)
	);

	CREATE TABLE IF NOT EXISTS participants (
		negotiation_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (negotiation_id, role)
	);
	CREATE INDEX IF NOT EXISTS idx_participants_user ON participants(negotiation_id, user_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DB exposes the underlying connection pool so the chat log can share it.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
