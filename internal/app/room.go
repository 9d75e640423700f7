package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"courtpiece/internal/domain"
	"courtpiece/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Room applies commands to one room's snapshot with optimistic concurrency and
// pushes every accepted snapshot to its subscribers.
type Room struct {
	id     string
	store  ports.SnapshotStore
	svc    *Service
	logger runtime.Logger

	mu   sync.Mutex // serializes Apply within this process; the store guards across processes
	subs map[string]func(*domain.Snapshot)

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewRoom binds a room id to a snapshot store and state machine.
func NewRoom(id string, store ports.SnapshotStore, svc *Service, logger runtime.Logger) *Room {
	return &Room{
		id:     id,
		store:  store,
		svc:    svc,
		logger: logger.WithField("room_id", id),
		subs:   make(map[string]func(*domain.Snapshot)),
	}
}

// ID returns the room id.
func (r *Room) ID() string {
	return r.id
}

// Snapshot returns the latest stored snapshot, or an empty waiting room when
// nothing has been written yet.
func (r *Room) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := r.store.ReadSnapshot(ctx, r.id)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return domain.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return snap, nil
}

// Apply runs cmd against the latest snapshot. expectedVersion is the version
// the caller computed the command against; any other stored version fails
// with ErrConflict and nothing is written. On success the new snapshot has
// been persisted and pushed to subscribers.
func (r *Room) Apply(ctx context.Context, expectedVersion int64, cmd Command) (*domain.Snapshot, []Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	if cur.Version != expectedVersion {
		return nil, nil, fmt.Errorf("%w: %s computed against version %d, latest is %d", ErrConflict, cmd.Name(), expectedVersion, cur.Version)
	}

	return r.commit(ctx, cur, cmd)
}

// ResolvePendingTrick resolves the current trick if it is full. It applies
// against whatever version is latest, so a timer firing after someone else
// already resolved the trick is a no-op.
func (r *Room) ResolvePendingTrick(ctx context.Context) (*domain.Snapshot, []Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return r.commit(ctx, cur, ResolveTrickCommand{})
}

// Subscribe registers fn to receive every accepted snapshot. The current
// snapshot is delivered immediately so observers never depend on deltas.
// Snapshots handed to fn are private copies.
func (r *Room) Subscribe(ctx context.Context, fn func(*domain.Snapshot)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	r.subs[id] = fn
	fn(cur.Clone())

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}, nil
}

func (r *Room) commit(ctx context.Context, cur *domain.Snapshot, cmd Command) (*domain.Snapshot, []Event, error) {
	next, events, err := cmd.apply(r.svc, cur)
	if err != nil {
		if errors.Is(err, domain.ErrInvariant) {
			r.logger.Error("Room: %s rejected, invariant violated at version %d: %v", cmd.Name(), cur.Version, err)
		} else {
			r.logger.Debug("Room: %s rejected at version %d: %v", cmd.Name(), cur.Version, err)
		}
		return nil, nil, err
	}
	if next == cur {
		return cur, nil, nil
	}

	next.Version = cur.Version + 1
	if err := r.store.WriteSnapshot(ctx, r.id, next, cur.Version); err != nil {
		if errors.Is(err, ports.ErrVersionMismatch) {
			r.logger.Warn("Room: %s lost write race at version %d", cmd.Name(), cur.Version)
			return nil, nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, nil, fmt.Errorf("write snapshot: %w", err)
	}

	r.logger.Debug("Room: %s applied, version %d -> %d (phase=%s)", cmd.Name(), cur.Version, next.Version, next.Phase)
	for _, fn := range r.subs {
		fn(next.Clone())
	}
	return next, events, nil
}

// ScheduleResolve resolves a pending full trick after delay so every client
// sees the four cards before they are cleared. A timer already armed is left
// alone. A zero delay resolves synchronously.
func (r *Room) ScheduleResolve(delay time.Duration) {
	if delay <= 0 {
		r.resolveLogged()
		return
	}

	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.timer != nil {
		return
	}
	r.timer = time.AfterFunc(delay, func() {
		r.timerMu.Lock()
		r.timer = nil
		r.timerMu.Unlock()
		r.resolveLogged()
	})
}

// Close stops a pending resolve timer.
func (r *Room) Close() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Room) resolveLogged() {
	if _, _, err := r.ResolvePendingTrick(context.Background()); err != nil {
		r.logger.Error("Room: deferred trick resolution failed: %v", err)
	}
}
