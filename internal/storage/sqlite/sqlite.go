// Package sqlite provides a SQLite-backed implementation of the storage
// interfaces using the pure Go driver (no CGO).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sqlite3 "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// schema is the idempotent DDL executed by Setup. Every statement uses
// IF NOT EXISTS so re-running is a no-op.
//
// The partial unique index on group_members is load-bearing: it is what
// guarantees at most one active membership per (group, user) pair while
// still letting inactive history rows accumulate.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    group_type TEXT NOT NULL CHECK (group_type IN ('personal', 'shared')),
    created_by TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('admin', 'member')),
    is_active INTEGER NOT NULL DEFAULT 1,
    joined_at INTEGER NOT NULL,
    left_at INTEGER,
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    group_id TEXT,
    date TEXT NOT NULL,
    amount TEXT NOT NULL,
    category TEXT NOT NULL,
    subcategory TEXT NOT NULL DEFAULT '',
    note TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_members_active_pair
    ON group_members(group_id, user_id) WHERE is_active = 1;
CREATE INDEX IF NOT EXISTS idx_members_group ON group_members(group_id, is_active);
CREATE INDEX IF NOT EXISTS idx_members_user ON group_members(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category);
`

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs Setup automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// The pragmas ride in the DSN so that every connection in the pool
	// gets them, not just the one a plain Exec happens to run on.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys and wait for locks instead of failing fast;
	// multiple server instances may share the file.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Setup(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up schema: %w", err)
	}

	return store, nil
}

// Setup ensures the schema and indexes exist and verifies the store
// accepts writes with a probe insert that is immediately deleted.
// Calling it more than once has no effect beyond the first.
func (s *SQLiteStore) Setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run schema setup: %w", err)
	}

	// Probe write: insert and delete a throwaway expense.
	probe := &models.Expense{
		ID:       uuid.New().String(),
		UserID:   "setup-probe",
		Date:     "2000-01-01",
		Amount:   decimal.Zero,
		Category: "test",
	}
	if err := s.AddExpense(ctx, probe); err != nil {
		return fmt.Errorf("probe write failed: %w", err)
	}
	if _, err := s.DeleteExpense(ctx, probe.ID, probe.UserID); err != nil {
		return fmt.Errorf("probe delete failed: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// now returns the current Unix timestamp. Split out so tests can reason
// about timestamp fields without sleeping.
func now() int64 {
	return time.Now().Unix()
}

// isUniqueViolation reports whether err is a sqlite uniqueness constraint
// failure, checked by result code rather than message text.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
}
