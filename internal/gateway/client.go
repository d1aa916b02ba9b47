package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/pkg/wire"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

// client is one connected socket. Outbound frames go through a buffered
// channel drained by writePump, so enqueuing never blocks a session lock.
type client struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	roomID string

	send      chan wire.Frame
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan wire.Frame, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *client) room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *client) setRoom(id string) {
	c.mu.Lock()
	c.roomID = id
	c.mu.Unlock()
}

// enqueue hands a frame to the write pump. A full buffer means the consumer
// cannot keep up with the room; the connection is torn down rather than
// letting it stall everyone else's fan-out. Sessions call this under their
// lock, so the overflow path must not block on the close handshake either.
func (c *client) enqueue(f wire.Frame) {
	select {
	case c.send <- f:
	case <-c.done:
	default:
		obslog.L().Warn("ws_slow_consumer",
			zap.String("conn_id", c.id),
			zap.String("event", f.Event),
		)
		c.closeNow()
	}
}

func (c *client) writePump() {
	for {
		select {
		case f := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, c.conn, f)
			cancel()
			if err != nil {
				c.closeNow()
				return
			}
		case <-c.done:
			return
		}
	}
}

// close runs the graceful close handshake. Only safe from the connection's
// own handler goroutine; everything else uses closeNow.
func (c *client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close(code, reason)
	})
}

// closeNow drops the transport without the close handshake, so it never
// waits on the peer. Used from broadcast and write paths that may run while
// a session lock is held.
func (c *client) closeNow() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.CloseNow()
	})
}
