package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"courtpiece/internal/domain"
	"courtpiece/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	// SnapshotCollection is the Nakama storage collection holding room snapshots.
	SnapshotCollection = "courtpiece_rooms"

	// Room snapshots are system-owned and readable only through the server.
	snapshotPermissionRead  = 0
	snapshotPermissionWrite = 0
)

// StorageAPI is the subset of runtime.NakamaModule used for snapshot persistence.
type StorageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

// NakamaSnapshotStore implements ports.SnapshotStore on Nakama storage. The
// snapshot version lives in the payload; Nakama's object version is used as
// the conditional-write token so a concurrent writer cannot slip in between
// the read and the write.
type NakamaSnapshotStore struct {
	nk StorageAPI
}

// NewNakamaSnapshotStore creates a new storage-backed snapshot store.
func NewNakamaSnapshotStore(nk StorageAPI) *NakamaSnapshotStore {
	return &NakamaSnapshotStore{nk: nk}
}

var _ ports.SnapshotStore = (*NakamaSnapshotStore)(nil)

func (s *NakamaSnapshotStore) ReadSnapshot(ctx context.Context, roomID string) (*domain.Snapshot, error) {
	snap, _, err := s.read(ctx, roomID)
	return snap, err
}

func (s *NakamaSnapshotStore) WriteSnapshot(ctx context.Context, roomID string, snap *domain.Snapshot, expectedVersion int64) error {
	objectVersion := "*" // must not exist
	if expectedVersion != 0 {
		cur, v, err := s.read(ctx, roomID)
		if errors.Is(err, ports.ErrSnapshotNotFound) {
			return fmt.Errorf("%w: room %s does not exist", ports.ErrVersionMismatch, roomID)
		}
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return fmt.Errorf("%w: room %s at version %d, expected %d", ports.ErrVersionMismatch, roomID, cur.Version, expectedVersion)
		}
		objectVersion = v
	}

	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode room snapshot: %w", err)
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      SnapshotCollection,
		Key:             roomID,
		Value:           string(value),
		Version:         objectVersion,
		PermissionRead:  snapshotPermissionRead,
		PermissionWrite: snapshotPermissionWrite,
	}})
	if err != nil {
		if isVersionRejection(err) {
			return fmt.Errorf("%w: %v", ports.ErrVersionMismatch, err)
		}
		return fmt.Errorf("storage write room %s: %w", roomID, err)
	}
	return nil
}

func (s *NakamaSnapshotStore) read(ctx context.Context, roomID string) (*domain.Snapshot, string, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: SnapshotCollection,
		Key:        roomID,
	}})
	if err != nil {
		return nil, "", fmt.Errorf("storage read room %s: %w", roomID, err)
	}
	if len(objects) == 0 {
		return nil, "", ports.ErrSnapshotNotFound
	}

	snap := domain.NewSnapshot()
	if err := json.Unmarshal([]byte(objects[0].GetValue()), snap); err != nil {
		return nil, "", fmt.Errorf("decode room snapshot %s: %w", roomID, err)
	}
	return snap, objects[0].GetVersion(), nil
}

// storageVersionRejected is the text of Nakama's conditional write failure
// ("Storage write rejected - version check failed."), which is not exported
// as a sentinel.
const storageVersionRejected = "version check failed"

// isVersionRejection recognizes a failed conditional write. Other rejections,
// such as permission failures, are ordinary storage errors.
func isVersionRejection(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), storageVersionRejected)
}
