package ports

import (
	"context"
	"errors"

	"courtpiece/internal/domain"
)

var (
	// ErrSnapshotNotFound is returned by ReadSnapshot when the room has no stored state.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrVersionMismatch is returned by WriteSnapshot when the stored version
	// is not the one the caller computed against.
	ErrVersionMismatch = errors.New("snapshot version mismatch")
)

// SnapshotStore persists one full snapshot per room.
type SnapshotStore interface {
	// ReadSnapshot returns the latest snapshot for roomID or ErrSnapshotNotFound.
	ReadSnapshot(ctx context.Context, roomID string) (*domain.Snapshot, error)

	// WriteSnapshot atomically replaces the room's snapshot with snap, provided
	// the stored version still equals expectedVersion. Version zero means the
	// room must not exist yet. Returns ErrVersionMismatch otherwise.
	WriteSnapshot(ctx context.Context, roomID string, snap *domain.Snapshot, expectedVersion int64) error
}
