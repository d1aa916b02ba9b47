package arena

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chess-arena/internal/rules"
)

// Status represents a room lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Role is what a connection is to a room.
type Role string

const (
	RoleWhite    Role = Role(rules.White)
	RoleBlack    Role = Role(rules.Black)
	RoleObserver Role = "observer"
)

// PlayerSeat binds a connection to a color for the room's lifetime.
// Seat identity is a single equality check on ConnID.
type PlayerSeat struct {
	ConnID string      `json:"conn_id"`
	Color  rules.Color `json:"color"`
}

// Snapshot is the full observable state of a room at one point in time.
// It is what late joiners receive and what the snapshot store persists.
type Snapshot struct {
	RoomID    string       `json:"room_id"`
	FEN       string       `json:"fen"`
	Status    Status       `json:"status"`
	Players   []PlayerSeat `json:"players"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// JoinOutcome reports how a join request was resolved.
type JoinOutcome struct {
	Role     Role
	Rejoined bool
	Started  bool
	Snapshot Snapshot
}

// MoveOutcome reports an accepted move.
type MoveOutcome struct {
	Move     rules.MoveInfo
	FEN      string
	Status   Status
	Terminal rules.Terminal
}

// LeaveOutcome reports the effect of a connection leaving a room.
type LeaveOutcome struct {
	WasPlayer bool
	Color     rules.Color
	Status    Status
	Destroyed bool
	Reset     bool
}

// Broadcaster delivers one event to every connection currently joined to a
// room. Sessions call it while holding their lock, so implementations must
// only enqueue, never block on I/O.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any)
}

// SnapshotSink receives room snapshots after every mutating session
// operation. Persistence is best-effort; failures are logged, not surfaced.
type SnapshotSink interface {
	Save(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, roomID string) error
}

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room already has two players")
	ErrPlayerNotFound = errors.New("player not seated in room")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrInvalidMove    = errors.New("invalid move")
	ErrTooManyRooms   = errors.New("room limit reached")
	ErrTimeout        = errors.New("operation timed out")
)
