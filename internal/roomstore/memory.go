package roomstore

import (
	"context"
	"strings"
	"sync"

	"github.com/park285/chess-arena/internal/arena"
)

// MemoryStore is the in-process fallback used when no Redis URL is
// configured, and the store of choice in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]arena.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]arena.Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, snap arena.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[strings.TrimSpace(snap.RoomID)] = snap
	return nil
}

func (s *MemoryStore) Load(_ context.Context, roomID string) (arena.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.rooms[strings.TrimSpace(roomID)]
	if !ok {
		return arena.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, strings.TrimSpace(roomID))
	return nil
}
