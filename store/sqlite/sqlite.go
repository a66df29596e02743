/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the serialized application state and its backup history in a
  single SQLite file. The engine never sees SQL: it hands over a blob and
  gets a blob back.

INTERFACES IMPLEMENTED:
  generic.Store:       Load/Save of the state blob
  generic.BackupStore: Append-only backup history

KEY TABLES:
  app_state: Exactly one row (id = 1) holding the current blob
  backups:   One row per backup, never updated

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single open connection so an
  in-memory database is shared by every call.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc, err := service.New(ctx, store, service.WithBackups(store))

MIGRATION:
  The table schema is auto-migrated on New(). The blob's own schema is
  versioned separately and migrated by the factory package.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - factory/state.go: What is inside the blob
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/generic"
)

// Store implements generic.Store and generic.BackupStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.Store       = (*Store)(nil)
	_ generic.BackupStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Current state (single row)
	CREATE TABLE IF NOT EXISTS app_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		blob BLOB NOT NULL,
		saved_at TEXT NOT NULL
	);

	-- Backup history (append-only)
	CREATE TABLE IF NOT EXISTS backups (
		id TEXT PRIMARY KEY,
		taken_at TEXT NOT NULL,
		reason TEXT NOT NULL,
		blob BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_backups_taken_at
		ON backups(taken_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STATE BLOB
// =============================================================================

// Load returns the current blob, or (nil, nil) when nothing was saved.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM app_state WHERE id = 1`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return blob, nil
}

// Save replaces the current blob.
func (s *Store) Save(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO app_state (id, blob, saved_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			blob = excluded.blob,
			saved_at = excluded.saved_at
	`
	if _, err := s.db.ExecContext(ctx, query, blob, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// =============================================================================
// BACKUPS
// =============================================================================

// SaveBackup appends a backup. Reusing an id is an error.
func (s *Store) SaveBackup(ctx context.Context, b generic.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (id, taken_at, reason, blob) VALUES (?, ?, ?, ?)`,
		b.ID, b.TakenAt.UTC().Format(time.RFC3339Nano), string(b.Reason), b.Blob,
	)
	if err != nil {
		return fmt.Errorf("failed to save backup %s: %w", b.ID, err)
	}
	return nil
}

// ListBackups returns the newest backups first. limit <= 0 means all.
func (s *Store) ListBackups(ctx context.Context, limit int) ([]generic.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, taken_at, reason, blob FROM backups ORDER BY taken_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var result []generic.Backup
	for rows.Next() {
		var b generic.Backup
		var takenAt, reason string
		if err := rows.Scan(&b.ID, &takenAt, &reason, &b.Blob); err != nil {
			return nil, err
		}
		b.TakenAt, _ = time.Parse(time.RFC3339Nano, takenAt)
		b.Reason = generic.BackupReason(reason)
		result = append(result, b)
	}
	return result, rows.Err()
}

// LatestBackup returns generic.ErrBackupNotFound when there are no backups.
func (s *Store) LatestBackup(ctx context.Context) (*generic.Backup, error) {
	list, err := s.ListBackups(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, generic.ErrBackupNotFound
	}
	return &list[0], nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"app_state", "backups"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
