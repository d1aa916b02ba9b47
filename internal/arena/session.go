package arena

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/wire"
)

type sessionConfig struct {
	resetOnEmpty bool
	sink         SnapshotSink
	storeTimeout time.Duration
	broadcaster  Broadcaster
}

// Session owns one room's position, seats and status. Every mutating
// operation takes the session mutex, so moves, joins and leaves in one room
// are strictly serialized while different rooms never block each other.
// Broadcasts happen under the lock, which is what gives every occupant the
// same event order; the Broadcaster contract is to enqueue only.
type Session struct {
	mu sync.Mutex

	id      string
	fen     string
	status  Status
	players []PlayerSeat
	removed bool

	createdAt time.Time
	updatedAt time.Time

	cfg sessionConfig
}

func newSession(id string, cfg sessionConfig) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		fen:       rules.StartFEN,
		status:    StatusWaiting,
		createdAt: now,
		updatedAt: now,
		cfg:       cfg,
	}
}

// ID returns the room id. Immutable, safe without the lock.
func (s *Session) ID() string { return s.id }

// Join seats the connection, or re-issues its existing seat, or admits it as
// an observer when both seats are taken. The first distinct connection gets
// white, the second black; filling the second seat starts the game and
// broadcasts gameStart to the room.
func (s *Session) Join(connID string) (JoinOutcome, error) {
	connID = strings.TrimSpace(connID)
	if connID == "" {
		return JoinOutcome{}, ErrPlayerNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return JoinOutcome{}, ErrRoomNotFound
	}

	if seat, ok := s.seatOf(connID); ok {
		obslog.L().Debug("room_rejoin",
			zap.String("room_id", s.id),
			zap.String("conn_id", connID),
			zap.String("color", string(seat.Color)),
		)
		return JoinOutcome{Role: Role(seat.Color), Rejoined: true, Snapshot: s.snapshotLocked()}, nil
	}

	if len(s.players) >= 2 {
		obslog.L().Debug("room_observe",
			zap.String("room_id", s.id),
			zap.String("conn_id", connID),
		)
		return JoinOutcome{Role: RoleObserver, Snapshot: s.snapshotLocked()}, nil
	}

	// Take whichever color is free. On a fresh room that is white first,
	// black second; after a mid-game departure it is the leaver's color.
	color := rules.White
	if len(s.players) == 1 && s.players[0].Color == rules.White {
		color = rules.Black
	}
	s.players = append(s.players, PlayerSeat{ConnID: connID, Color: color})
	s.updatedAt = time.Now()

	started := false
	if len(s.players) == 2 && s.status != StatusFinished {
		// The position is deliberately not reset here: a replacement
		// player resumes the game the leaver abandoned. A finished room
		// stays finished; filling the second seat cannot restart play on
		// a terminal position.
		s.status = StatusInProgress
		started = true
		s.broadcastLocked(wire.EventGameStart, wire.GameStart{
			Players: s.wirePlayersLocked(),
			Status:  string(s.status),
			FEN:     s.fen,
		})
	}
	s.persistLocked()

	obslog.L().Info("room_join",
		zap.String("room_id", s.id),
		zap.String("conn_id", connID),
		zap.String("color", string(color)),
		zap.Bool("started", started),
	)
	return JoinOutcome{Role: Role(color), Started: started, Snapshot: s.snapshotLocked()}, nil
}

// RequestMove validates and applies a candidate move for the seated
// connection. The side to move is derived from the position itself on every
// call; client-side turn bookkeeping is never trusted. An accepted move is
// broadcast to the whole room, followed by gameOver when it ends the game.
func (s *Session) RequestMove(connID string, cand rules.Candidate) (MoveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return MoveOutcome{}, ErrRoomNotFound
	}

	seat, ok := s.seatOf(strings.TrimSpace(connID))
	if !ok {
		return MoveOutcome{}, ErrPlayerNotFound
	}
	switch s.status {
	case StatusWaiting:
		// Opponent seat is empty; there is nobody to move against.
		return MoveOutcome{}, ErrPlayerNotFound
	case StatusFinished:
		return MoveOutcome{}, ErrInvalidMove
	}

	turn, err := rules.SideToMove(s.fen)
	if err != nil {
		obslog.L().Error("room_position_corrupt",
			zap.String("room_id", s.id),
			zap.String("fen", s.fen),
			zap.Error(err),
		)
		return MoveOutcome{}, err
	}
	if seat.Color != turn {
		return MoveOutcome{}, ErrNotYourTurn
	}

	res, err := rules.Apply(s.fen, cand)
	if err != nil {
		return MoveOutcome{}, err
	}
	if !res.Accepted {
		obslog.L().Debug("room_move_rejected",
			zap.String("room_id", s.id),
			zap.String("conn_id", connID),
			zap.String("uci", cand.UCI()),
		)
		return MoveOutcome{}, ErrInvalidMove
	}

	s.fen = res.FEN
	s.updatedAt = time.Now()
	if res.Terminal.Over {
		s.status = StatusFinished
	}

	s.broadcastLocked(wire.EventMovePlayed, wire.MovePlayed{
		Move: wire.MoveDetail{
			From:      res.Move.From,
			To:        res.Move.To,
			Promotion: res.Move.Promotion,
			Color:     string(res.Move.Color),
			Captured:  res.Move.Captured,
			SAN:       res.Move.SAN,
		},
		FEN:    s.fen,
		Status: string(s.status),
	})
	if res.Terminal.Over {
		s.broadcastLocked(wire.EventGameOver, wire.GameOver{
			Winner: res.Terminal.Winner,
			Reason: res.Terminal.Reason,
		})
	}
	s.persistLocked()

	obslog.L().Info("room_move",
		zap.String("room_id", s.id),
		zap.String("conn_id", connID),
		zap.String("san", res.Move.SAN),
		zap.String("status", string(s.status)),
	)
	if res.Terminal.Over {
		obslog.L().Info("game_over",
			zap.String("room_id", s.id),
			zap.String("winner", res.Terminal.Winner),
			zap.String("reason", res.Terminal.Reason),
		)
	}
	return MoveOutcome{Move: res.Move, FEN: s.fen, Status: s.status, Terminal: res.Terminal}, nil
}

// LegalMoves lists the legal destinations from square for the seated
// connection, and only while it is that player's turn. Everyone else gets an
// empty result; this is a UI hint, authority stays with RequestMove.
func (s *Session) LegalMoves(connID, square string) ([]rules.LegalMove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil, ErrRoomNotFound
	}

	seat, ok := s.seatOf(strings.TrimSpace(connID))
	if !ok || s.status != StatusInProgress {
		return nil, nil
	}
	turn, err := rules.SideToMove(s.fen)
	if err != nil {
		return nil, err
	}
	if seat.Color != turn {
		return nil, nil
	}
	return rules.MovesFrom(s.fen, square)
}

// Leave removes the connection's seat if it held one. Observer departures
// change nothing. When the last seat empties the room is either destroyed or,
// under the reset policy, wound back to the starting position and kept. The
// caller is responsible for Registry.Remove when Destroyed is set.
func (s *Session) Leave(connID string) (LeaveOutcome, error) {
	connID = strings.TrimSpace(connID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return LeaveOutcome{}, ErrRoomNotFound
	}

	idx := -1
	for i, seat := range s.players {
		if seat.ConnID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return LeaveOutcome{Status: s.status}, nil
	}

	color := s.players[idx].Color
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	s.updatedAt = time.Now()

	if len(s.players) == 0 {
		if s.cfg.resetOnEmpty {
			s.fen = rules.StartFEN
			s.status = StatusWaiting
			s.persistLocked()
			obslog.L().Info("room_reset",
				zap.String("room_id", s.id),
				zap.String("conn_id", connID),
			)
			return LeaveOutcome{WasPlayer: true, Color: color, Status: s.status, Reset: true}, nil
		}
		s.removed = true
		s.deleteSnapshotLocked()
		obslog.L().Info("room_leave",
			zap.String("room_id", s.id),
			zap.String("conn_id", connID),
			zap.String("color", string(color)),
			zap.Bool("destroyed", true),
		)
		return LeaveOutcome{WasPlayer: true, Color: color, Status: s.status, Destroyed: true}, nil
	}

	if s.status != StatusFinished {
		s.status = StatusWaiting
	}
	s.broadcastLocked(wire.EventPlayerLeft, wire.PlayerLeft{
		Color:  string(color),
		Status: string(s.status),
	})
	s.persistLocked()

	obslog.L().Info("room_leave",
		zap.String("room_id", s.id),
		zap.String("conn_id", connID),
		zap.String("color", string(color)),
		zap.Bool("destroyed", false),
	)
	return LeaveOutcome{WasPlayer: true, Color: color, Status: s.status}, nil
}

// Snapshot returns a consistent copy of the observable room state.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return Snapshot{}, ErrRoomNotFound
	}
	return s.snapshotLocked(), nil
}

// expireIfIdle marks an unoccupied room removed when it has not been touched
// since cutoff. The registry's idle sweep uses it so rooms that were created
// but never joined do not pile up toward the room limit.
func (s *Session) expireIfIdle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed || len(s.players) != 0 || s.updatedAt.After(cutoff) {
		return false
	}
	s.removed = true
	s.deleteSnapshotLocked()
	return true
}

func (s *Session) seatOf(connID string) (PlayerSeat, bool) {
	for _, seat := range s.players {
		if seat.ConnID == connID {
			return seat, true
		}
	}
	return PlayerSeat{}, false
}

func (s *Session) snapshotLocked() Snapshot {
	players := make([]PlayerSeat, len(s.players))
	copy(players, s.players)
	return Snapshot{
		RoomID:    s.id,
		FEN:       s.fen,
		Status:    s.status,
		Players:   players,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) wirePlayersLocked() []wire.Player {
	out := make([]wire.Player, 0, len(s.players))
	for _, seat := range s.players {
		out = append(out, wire.Player{ID: seat.ConnID, Color: string(seat.Color)})
	}
	return out
}

func (s *Session) broadcastLocked(event string, payload any) {
	if s.cfg.broadcaster == nil {
		return
	}
	s.cfg.broadcaster.Broadcast(s.id, event, payload)
}

// persistLocked mirrors the room state into the snapshot store. Best-effort:
// a failed save never fails the player-facing operation.
func (s *Session) persistLocked() {
	if s.cfg.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.storeTimeout)
	defer cancel()
	if err := s.cfg.sink.Save(ctx, s.snapshotLocked()); err != nil {
		obslog.L().Warn("room_store_save_failed",
			zap.String("room_id", s.id),
			zap.Error(err),
		)
	}
}

func (s *Session) deleteSnapshotLocked() {
	if s.cfg.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.storeTimeout)
	defer cancel()
	if err := s.cfg.sink.Delete(ctx, s.id); err != nil {
		obslog.L().Warn("room_store_delete_failed",
			zap.String("room_id", s.id),
			zap.Error(err),
		)
	}
}
