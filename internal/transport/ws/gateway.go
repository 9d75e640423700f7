package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"courtpiece/internal/app"
	"courtpiece/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	pingPeriod   = 30 * time.Second
	readTimeout  = 120 * time.Second
	writeTimeout = 10 * time.Second
	maxFrameSize = 8 << 10
)

// Gateway serves the standalone WebSocket protocol. One connection joins one
// room as one player; every accepted snapshot is pushed back as that
// player's view.
type Gateway struct {
	rooms        *app.Registry
	logger       runtime.Logger
	resolveDelay time.Duration
	upgrader     websocket.Upgrader

	mu    sync.Mutex
	conns map[string]map[*Conn]struct{} // room id -> live connections
}

// NewGateway builds a gateway over rooms. An empty allowedOrigins accepts any
// origin.
func NewGateway(rooms *app.Registry, logger runtime.Logger, resolveDelay time.Duration, allowedOrigins []string) *Gateway {
	g := &Gateway{
		rooms:        rooms,
		logger:       logger,
		resolveDelay: resolveDelay,
		conns:        make(map[string]map[*Conn]struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSpace(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Handler returns the HTTP routes of the gateway.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/ws", g)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ServeHTTP upgrades /ws?room=<id>&user=<id>&name=<display name>.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := strings.TrimSpace(q.Get("room"))
	userID := strings.TrimSpace(q.Get("user"))
	if userID == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	room, err := g.rooms.Room(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("Gateway: upgrade failed: %v", err)
		return
	}
	ws.SetReadLimit(maxFrameSize)

	c := newConn(ws, room, userID, g.logger.WithFields(map[string]interface{}{"room_id": room.ID(), "user_id": userID}))
	go c.writePump()

	profile := app.PlayerProfile{ID: userID, DisplayName: q.Get("name"), AvatarRef: q.Get("avatar")}
	ctx := r.Context()
	if _, evs, err := g.applyLatest(ctx, room, app.JoinCommand{Profile: profile}); err != nil {
		// Late arrivals watch the table instead of playing.
		c.observer = true
		c.sendErr("", err)
	} else {
		g.broadcastEvents(room.ID(), evs)
	}

	cancel, err := room.Subscribe(ctx, c.pushSnapshot)
	if err != nil {
		c.sendErr("", err)
		c.close()
		return
	}
	g.attach(room.ID(), c)

	g.readPump(c)

	cancel()
	g.detach(room.ID(), c)
	if !c.observer {
		// Leaving mid-game keeps the seat; only a waiting room drops the player.
		if _, evs, err := g.applyLatest(context.Background(), room, app.LeaveCommand{PlayerID: userID}); err == nil {
			g.broadcastEvents(room.ID(), evs)
		} else if !errors.Is(err, app.ErrValidation) {
			c.logger.Warn("Gateway: leave on disconnect failed: %v", err)
		}
	}
	c.close()
}

func (g *Gateway) readPump(c *Conn) {
	_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Gateway: read error: %v", err)
			}
			return
		}

		var in InMsg
		if err := json.Unmarshal(data, &in); err != nil {
			c.sendErr("", errMalformed)
			continue
		}
		g.handle(c, in)
	}
}

func (g *Gateway) handle(c *Conn, in InMsg) {
	ctx := context.Background()

	if in.T == TypeGetSnapshot {
		snap, err := c.room.Snapshot(ctx)
		if err != nil {
			c.sendErr(in.ReqID, err)
			return
		}
		c.send(OutMsg{T: TypeSnapshotOut, ReqID: in.ReqID, P: domain.ViewFor(snap, c.userID)})
		return
	}

	version, cmd, err := decodeCommand(in, c.userID)
	if err != nil {
		c.sendErr(in.ReqID, err)
		return
	}
	snap, evs, err := c.room.Apply(ctx, version, cmd)
	if err != nil {
		c.sendErr(in.ReqID, err)
		return
	}
	if _, ok := cmd.(app.LeaveCommand); ok {
		c.observer = true
	}

	c.send(OutMsg{T: TypeAckOut, ReqID: in.ReqID, P: AckPayload{Version: snap.Version}})
	g.broadcastEvents(c.room.ID(), evs)

	if snap.Phase == domain.PhasePlaying && snap.TrickFull() {
		c.room.ScheduleResolve(g.resolveDelay)
	}
}

// applyLatest applies a server-originated command against the latest version,
// retrying once if another writer got there first.
func (g *Gateway) applyLatest(ctx context.Context, room *app.Room, cmd app.Command) (*domain.Snapshot, []app.Event, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var cur *domain.Snapshot
		cur, err = room.Snapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
		var (
			next *domain.Snapshot
			evs  []app.Event
		)
		next, evs, err = room.Apply(ctx, cur.Version, cmd)
		if !errors.Is(err, app.ErrConflict) {
			return next, evs, err
		}
	}
	return nil, nil, err
}

func (g *Gateway) attach(roomID string, c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.conns[roomID]
	if !ok {
		set = make(map[*Conn]struct{})
		g.conns[roomID] = set
	}
	set[c] = struct{}{}
}

func (g *Gateway) detach(roomID string, c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns[roomID], c)
	if len(g.conns[roomID]) == 0 {
		delete(g.conns, roomID)
	}
}

// broadcastEvents sends events to the room's connections. Targeted events only
// reach their recipients.
func (g *Gateway) broadcastEvents(roomID string, evs []app.Event) {
	if len(evs) == 0 {
		return
	}
	g.mu.Lock()
	conns := make([]*Conn, 0, len(g.conns[roomID]))
	for c := range g.conns[roomID] {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, ev := range evs {
		for _, c := range conns {
			if len(ev.Recipients) > 0 && !contains(ev.Recipients, c.userID) {
				continue
			}
			c.send(OutMsg{T: TypeEventOut, P: ev})
		}
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
