// Package gateway is the socket edge: it upgrades connections, validates
// inbound frames, invokes room session operations and fans session broadcasts
// out to every connection in a room. It owns the connection-to-room mapping
// and never touches room internals directly.
package gateway

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/arena"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/pkg/wire"
)

type Gateway struct {
	reg     *arena.Registry
	cat     *msgcat.Catalog
	origins []string

	mu    sync.RWMutex
	conns map[string]*client
	rooms map[string]map[string]*client
}

func New(reg *arena.Registry, cat *msgcat.Catalog, allowedOrigins []string) *Gateway {
	return &Gateway{
		reg:     reg,
		cat:     cat,
		origins: allowedOrigins,
		conns:   make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
	}
}

// Broadcast enqueues one frame to every connection currently joined to the
// room. Sessions call this while holding their lock; nothing here blocks.
func (g *Gateway) Broadcast(roomID, event string, payload any) {
	g.mu.RLock()
	members := g.rooms[roomID]
	targets := make([]*client, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	g.mu.RUnlock()

	f := wire.Frame{Event: event, Data: payload}
	for _, c := range targets {
		c.enqueue(f)
	}
}

func (g *Gateway) register(c *client) {
	g.mu.Lock()
	g.conns[c.id] = c
	g.mu.Unlock()
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	delete(g.conns, c.id)
	if room := c.room(); room != "" {
		if members, ok := g.rooms[room]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(g.rooms, room)
			}
		}
	}
	g.mu.Unlock()
}

// joinRoomMap adds the connection to the room fan-out set before the session
// join runs, so a gameStart triggered by this very join reaches the joiner.
func (g *Gateway) joinRoomMap(c *client, roomID string) {
	g.mu.Lock()
	if members, ok := g.rooms[c.room()]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(g.rooms, c.room())
		}
	}
	if _, ok := g.rooms[roomID]; !ok {
		g.rooms[roomID] = make(map[string]*client)
	}
	g.rooms[roomID][c.id] = c
	g.mu.Unlock()
	c.setRoom(roomID)
}

func (g *Gateway) leaveRoomMap(c *client) {
	g.mu.Lock()
	if room := c.room(); room != "" {
		if members, ok := g.rooms[room]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(g.rooms, room)
			}
		}
	}
	g.mu.Unlock()
	c.setRoom("")
}

// disconnect runs the leave protocol for a dropped connection. A dropped
// transport is an immediate leave: no grace period, no replay.
func (g *Gateway) disconnect(c *client) {
	roomID := c.room()
	g.unregister(c)
	if roomID == "" {
		return
	}

	sess, err := g.reg.Get(roomID)
	if err != nil {
		return
	}
	out, err := sess.Leave(c.id)
	if err != nil {
		return
	}
	if out.Destroyed {
		g.reg.Remove(roomID)
	}
	obslog.L().Info("ws_disconnect",
		zap.String("conn_id", c.id),
		zap.String("room_id", roomID),
		zap.Bool("was_player", out.WasPlayer),
	)
}

// errKey maps an arena error to its catalog key.
func errKey(err error) string {
	switch {
	case errors.Is(err, arena.ErrRoomNotFound):
		return "error.room_not_found"
	case errors.Is(err, arena.ErrRoomFull):
		return "error.room_full"
	case errors.Is(err, arena.ErrPlayerNotFound):
		return "error.player_not_found"
	case errors.Is(err, arena.ErrNotYourTurn):
		return "error.not_your_turn"
	case errors.Is(err, arena.ErrInvalidMove):
		return "error.invalid_move"
	case errors.Is(err, arena.ErrTooManyRooms):
		return "error.room_limit"
	case errors.Is(err, arena.ErrTimeout):
		return "error.timeout"
	default:
		return "error.internal"
	}
}

func (g *Gateway) sendError(c *client, key string) {
	c.enqueue(wire.Frame{
		Event: wire.EventError,
		Data:  wire.ErrorMessage{Message: g.cat.Message(key)},
	})
}
