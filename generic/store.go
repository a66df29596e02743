/*
store.go - Persistence interface for the serialized application state

PURPOSE:
  Defines the interface between the application shell and the database.
  The engine treats persistence as an opaque load/save of one state blob;
  what is inside the blob is owned by the factory package.

KEY INTERFACES:
  Store:       Load and save the single state blob
  BackupStore: Append-only history of blob snapshots (imports, manual backups)

SAVE CONTRACT:
  Save() replaces the whole blob. There is no partial update: the shell
  builds the next state value, encodes it, and saves it in one call.
  If Save() fails the shell keeps its previous in-memory state.

BACKUPS ARE APPEND-ONLY:
  SaveBackup() never overwrites an earlier backup. Restoring is done by
  importing a backup's blob, which itself takes a new backup first.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (file or :memory:)
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  store, _ := sqlite.New("./payroll.db")
  blob, err := store.Load(ctx)
  if blob == nil {
      // Fresh install, nothing persisted yet
  }

SEE ALSO:
  - factory/state.go: Encodes/decodes the blob
  - service/service.go: Saves after every mutation
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface for state blob persistence
// =============================================================================

// Store persists the serialized application state.
type Store interface {
	// Load returns the persisted blob, or (nil, nil) when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the persisted blob.
	Save(ctx context.Context, blob []byte) error
}

// =============================================================================
// BACKUPS - Frozen copies of the state blob
// =============================================================================

// Backup captures the state blob at a specific moment.
// Used for:
//   - Safety net before an import overwrites state
//   - Manual "backup now" from the API or CLI
//   - Keeping the pre-migration blob of an old install
type Backup struct {
	ID      string
	TakenAt time.Time
	Reason  BackupReason
	Blob    []byte
}

type BackupReason string

const (
	BackupManual    BackupReason = "manual"    // User triggered
	BackupImport    BackupReason = "import"    // Taken right before an import
	BackupMigration BackupReason = "migration" // Taken before a legacy blob is upgraded
	BackupRecovery  BackupReason = "recovery"  // Unreadable blob kept before starting fresh
)

// BackupStore keeps an append-only backup history.
type BackupStore interface {
	SaveBackup(ctx context.Context, backup Backup) error
	// ListBackups returns the newest backups first, at most limit (limit <= 0 means all).
	ListBackups(ctx context.Context, limit int) ([]Backup, error)
	// LatestBackup returns ErrBackupNotFound when the history is empty.
	LatestBackup(ctx context.Context) (*Backup, error)
}
