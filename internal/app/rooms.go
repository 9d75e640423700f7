package app

import (
	"strings"
	"sync"

	"courtpiece/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Registry hands out Room instances keyed by room id. All rooms share the
// same store and state machine.
type Registry struct {
	store  ports.SnapshotStore
	svc    *Service
	logger runtime.Logger

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry(store ports.SnapshotStore, svc *Service, logger runtime.Logger) *Registry {
	return &Registry{
		store:  store,
		svc:    svc,
		logger: logger,
		rooms:  make(map[string]*Room),
	}
}

// NewRoomID returns a fresh random room id.
func NewRoomID() string {
	return uuid.NewString()
}

// Room returns the room for id, creating the in-process handle on first use.
// Stored state is loaded lazily by the room itself.
func (g *Registry) Room(id string) (*Room, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("room id is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok := g.rooms[id]; ok {
		return room, nil
	}
	room := NewRoom(id, g.store, g.svc, g.logger)
	g.rooms[id] = room
	return room, nil
}

// Close stops every room's pending timers.
func (g *Registry) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, room := range g.rooms {
		room.Close()
	}
}
