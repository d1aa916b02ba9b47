package arena

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/obslog"
)

const roomIDLength = 8

// Options configures a Registry.
type Options struct {
	MaxRooms     int
	ResetOnEmpty bool
	Sink         SnapshotSink
	StoreTimeout time.Duration
}

// Registry owns the set of live rooms and their lifetime. It is an explicit
// handle passed into the gateway and HTTP layer; there is no process-global
// room table. Structural changes take the registry lock only, never while a
// room lock is held.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Session

	opts Options
	bc   Broadcaster
}

func NewRegistry(opts Options) *Registry {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	return &Registry{
		rooms: make(map[string]*Session),
		opts:  opts,
	}
}

// SetBroadcaster wires the transport fan-out. Must be called before any room
// is created; sessions capture it at construction.
func (r *Registry) SetBroadcaster(b Broadcaster) {
	r.mu.Lock()
	r.bc = b
	r.mu.Unlock()
}

// CreateRoom allocates a room with a fresh collision-checked id, the standard
// starting position and an empty seat list.
func (r *Registry) CreateRoom() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.MaxRooms > 0 && len(r.rooms) >= r.opts.MaxRooms {
		return nil, ErrTooManyRooms
	}

	var id string
	for {
		id = newRoomID()
		if _, exists := r.rooms[id]; !exists {
			break
		}
	}

	sess := newSession(id, sessionConfig{
		resetOnEmpty: r.opts.ResetOnEmpty,
		sink:         r.opts.Sink,
		storeTimeout: r.opts.StoreTimeout,
		broadcaster:  r.bc,
	})
	r.rooms[id] = sess

	obslog.L().Info("room_create",
		zap.String("room_id", id),
		zap.Int("room_count", len(r.rooms)),
	)
	return sess, nil
}

// Get returns the session for id, or ErrRoomNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.rooms[strings.TrimSpace(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return sess, nil
}

// Remove deletes the room entry. Removing an absent id is a no-op. A session
// operation racing with removal observes the session's removed flag and fails
// with ErrRoomNotFound.
func (r *Registry) Remove(id string) {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	_, ok := r.rooms[id]
	delete(r.rooms, id)
	count := len(r.rooms)
	r.mu.Unlock()
	if ok {
		obslog.L().Info("room_destroy",
			zap.String("room_id", id),
			zap.Int("room_count", count),
		)
	}
}

// SweepIdle removes rooms that have no seated players and have been idle for
// at least maxIdle, returning how many were removed. Candidates are collected
// under the registry read lock and each room is checked under its own lock,
// so the sweep never nests the two.
func (r *Registry) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.rooms))
	for _, sess := range r.rooms {
		candidates = append(candidates, sess)
	}
	r.mu.RUnlock()

	removed := 0
	for _, sess := range candidates {
		if sess.expireIfIdle(cutoff) {
			r.Remove(sess.ID())
			removed++
		}
	}
	if removed > 0 {
		obslog.L().Info("room_sweep", zap.Int("removed", removed))
	}
	return removed
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// newRoomID derives a short uppercase room code from uuid material.
func newRoomID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:roomIDLength])
}
