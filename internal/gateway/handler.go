package gateway

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/internal/arena"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/wire"
)

// HandleWS upgrades the request and runs the connection's read loop until the
// peer goes away. One inbound frame is handled at a time per connection.
func (g *Gateway) HandleWS(c *gin.Context) {
	opts := &websocket.AcceptOptions{}
	for _, o := range g.origins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			opts.OriginPatterns = nil
			break
		}
		opts.OriginPatterns = append(opts.OriginPatterns, o)
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}

	cl := newClient(uuid.NewString(), conn)
	g.register(cl)
	go cl.writePump()

	obslog.L().Info("ws_connect", zap.String("conn_id", cl.id))

	ctx := c.Request.Context()
	for {
		var env wire.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			break
		}
		g.dispatch(cl, env)
	}

	cl.close(websocket.StatusNormalClosure, "")
	g.disconnect(cl)
}

func (g *Gateway) dispatch(cl *client, env wire.Envelope) {
	switch env.Event {
	case wire.EventCreateRoom:
		g.handleCreateRoom(cl)
	case wire.EventJoinRoom:
		g.handleJoinRoom(cl, env.Data)
	case wire.EventSelectPiece:
		g.handleSelectPiece(cl, env.Data)
	case wire.EventMove:
		g.handleMove(cl, env.Data)
	default:
		obslog.L().Debug("ws_unknown_event",
			zap.String("conn_id", cl.id),
			zap.String("event", env.Event),
		)
		g.sendError(cl, "error.malformed")
	}
}

func (g *Gateway) handleCreateRoom(cl *client) {
	sess, err := g.reg.CreateRoom()
	if err != nil {
		g.sendError(cl, errKey(err))
		return
	}
	cl.enqueue(wire.Frame{
		Event: wire.EventRoomCreated,
		Data:  wire.RoomCreated{RoomID: sess.ID()},
	})
}

func (g *Gateway) handleJoinRoom(cl *client, data json.RawMessage) {
	var req wire.JoinRoom
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.RoomID) == "" {
		g.sendError(cl, "error.malformed")
		return
	}
	roomID := strings.TrimSpace(req.RoomID)

	sess, err := g.reg.Get(roomID)
	if err != nil {
		g.sendError(cl, errKey(err))
		return
	}

	// A connection holds at most one room membership; switching rooms
	// leaves the old one first.
	if prev := cl.room(); prev != "" && prev != roomID {
		g.leaveRoom(cl, prev)
	}

	g.joinRoomMap(cl, roomID)
	out, err := sess.Join(cl.id)
	if err != nil {
		g.leaveRoomMap(cl)
		g.sendError(cl, errKey(err))
		return
	}

	cl.enqueue(wire.Frame{Event: wire.EventPlayerRole, Data: string(out.Role)})
	cl.enqueue(wire.Frame{
		Event: wire.EventRoomState,
		Data: wire.RoomState{
			Game: wire.GameState{
				FEN:    out.Snapshot.FEN,
				Status: string(out.Snapshot.Status),
			},
			Players: wirePlayers(out.Snapshot.Players),
		},
	})
}

func (g *Gateway) handleSelectPiece(cl *client, data json.RawMessage) {
	var req wire.SelectPiece
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Square) == "" {
		g.sendError(cl, "error.malformed")
		return
	}

	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID = cl.room()
	}
	if roomID == "" {
		g.sendError(cl, "error.not_in_room")
		return
	}

	sess, err := g.reg.Get(roomID)
	if err != nil {
		g.sendError(cl, errKey(err))
		return
	}
	moves, err := sess.LegalMoves(cl.id, req.Square)
	if err != nil {
		g.sendError(cl, errKey(err))
		return
	}

	out := wire.LegalMoves{Square: strings.ToLower(strings.TrimSpace(req.Square))}
	for _, m := range moves {
		out.Moves = append(out.Moves, wire.LegalMove{
			From:      m.From,
			To:        m.To,
			Piece:     m.Piece,
			Color:     m.Color,
			Captured:  m.Captured,
			Promotion: m.Promotion,
		})
	}
	cl.enqueue(wire.Frame{Event: wire.EventLegalMoves, Data: out})
}

func (g *Gateway) handleMove(cl *client, data json.RawMessage) {
	var req wire.Move
	if err := json.Unmarshal(data, &req); err != nil ||
		strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		g.sendError(cl, "error.malformed")
		return
	}

	roomID := cl.room()
	if roomID == "" {
		g.sendError(cl, "error.not_in_room")
		return
	}
	sess, err := g.reg.Get(roomID)
	if err != nil {
		g.sendError(cl, errKey(err))
		return
	}

	_, err = sess.RequestMove(cl.id, rules.Candidate{
		From:      req.From,
		To:        req.To,
		Promotion: req.Promotion,
	})
	if err == nil {
		return
	}
	if errors.Is(err, arena.ErrInvalidMove) {
		cl.enqueue(wire.Frame{Event: wire.EventInvalidMove, Data: req})
		return
	}
	g.sendError(cl, errKey(err))
}

// leaveRoom runs the leave protocol for an explicit room switch.
func (g *Gateway) leaveRoom(cl *client, roomID string) {
	g.leaveRoomMap(cl)
	sess, err := g.reg.Get(roomID)
	if err != nil {
		return
	}
	out, err := sess.Leave(cl.id)
	if err != nil {
		return
	}
	if out.Destroyed {
		g.reg.Remove(roomID)
	}
}

func wirePlayers(seats []arena.PlayerSeat) []wire.Player {
	out := make([]wire.Player, 0, len(seats))
	for _, s := range seats {
		out = append(out, wire.Player{ID: s.ConnID, Color: string(s.Color)})
	}
	return out
}
