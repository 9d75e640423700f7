// Package memory keeps room snapshots in process memory. It backs tests and
// single-node deployments that do not need restarts to preserve rooms.
package memory

import (
	"context"
	"fmt"
	"sync"

	"courtpiece/internal/domain"
	"courtpiece/internal/ports"
)

// Store is an in-memory SnapshotStore with compare-and-set writes.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Snapshot
}

var _ ports.SnapshotStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{rooms: make(map[string]*domain.Snapshot)}
}

func (s *Store) ReadSnapshot(_ context.Context, roomID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.rooms[roomID]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (s *Store) WriteSnapshot(_ context.Context, roomID string, snap *domain.Snapshot, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	if cur, ok := s.rooms[roomID]; ok {
		stored = cur.Version
	}
	if stored != expectedVersion {
		return fmt.Errorf("%w: room %s at version %d, expected %d", ports.ErrVersionMismatch, roomID, stored, expectedVersion)
	}
	s.rooms[roomID] = snap.Clone()
	return nil
}
