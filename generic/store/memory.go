// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	blob    []byte
	backups []generic.Backup
	saves   int
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a store pre-seeded with blob, as if a previous run saved it.
func NewMemoryWith(blob []byte) *Memory {
	return &Memory{blob: clone(blob)}
}

// Load returns a copy of the current blob, nil when nothing was saved.
func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.blob), nil
}

// Save replaces the blob.
func (m *Memory) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = clone(blob)
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// =============================================================================
// BACKUP HISTORY
// =============================================================================

func (m *Memory) SaveBackup(_ context.Context, b generic.Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.Blob = clone(b.Blob)

	// Keep ordered by TakenAt; equal timestamps keep insertion order
	i := sort.Search(len(m.backups), func(i int) bool {
		return m.backups[i].TakenAt.After(b.TakenAt)
	})
	m.backups = append(m.backups, generic.Backup{})
	copy(m.backups[i+1:], m.backups[i:])
	m.backups[i] = b
	return nil
}

func (m *Memory) ListBackups(_ context.Context, limit int) ([]generic.Backup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Backup
	for i := len(m.backups) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		b := m.backups[i]
		b.Blob = clone(b.Blob)
		result = append(result, b)
	}
	return result, nil
}

func (m *Memory) LatestBackup(ctx context.Context) (*generic.Backup, error) {
	list, err := m.ListBackups(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, generic.ErrBackupNotFound
	}
	return &list[0], nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
