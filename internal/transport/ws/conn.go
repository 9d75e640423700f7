package ws

import (
	"encoding/json"
	"sync"
	"time"

	"courtpiece/internal/app"
	"courtpiece/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Conn is one client socket bound to a room and player.
type Conn struct {
	ws     *websocket.Conn
	room   *app.Room
	userID string
	logger runtime.Logger

	// observer is set when the player is not seated, either because the join
	// was refused or because they left.
	observer bool

	out   chan []byte
	snaps chan *domain.Snapshot // holds only the newest undelivered snapshot

	snapMu    sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, room *app.Room, userID string, logger runtime.Logger) *Conn {
	return &Conn{
		ws:     ws,
		room:   room,
		userID: userID,
		logger: logger,
		out:    make(chan []byte, 64),
		snaps:  make(chan *domain.Snapshot, 1),
		done:   make(chan struct{}),
	}
}

// pushSnapshot queues s for delivery, replacing any snapshot the writer has
// not picked up yet. Snapshots are complete, so skipping one loses nothing.
func (c *Conn) pushSnapshot(s *domain.Snapshot) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	select {
	case <-c.snaps:
	default:
	}
	c.snaps <- s
}

func (c *Conn) send(out OutMsg) {
	b, err := json.Marshal(out)
	if err != nil {
		c.logger.Error("Gateway: marshal %s: %v", out.T, err)
		return
	}
	select {
	case c.out <- b:
	case <-c.done:
	default:
		c.logger.Warn("Gateway: send buffer full, dropping %s", out.T)
	}
}

func (c *Conn) sendErr(reqID string, err error) {
	c.send(OutMsg{T: TypeErrorOut, ReqID: reqID, P: ErrPayload{Code: errorCode(err), Msg: err.Error()}})
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.out:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case s := <-c.snaps:
			b, err := json.Marshal(OutMsg{T: TypeSnapshotOut, P: domain.ViewFor(s, c.userID)})
			if err != nil {
				c.logger.Error("Gateway: marshal snapshot: %v", err)
				continue
			}
			if err := c.write(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Conn) write(kind int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(kind, data)
}
