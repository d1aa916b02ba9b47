// Package roomstore persists live room snapshots so operators can inspect
// rooms out of process and a restarted node starts from a known-clean slate
// once stale keys expire. It is a mirror, not a source of truth: the arena
// sessions own room state and write through here best-effort.
package roomstore

import (
	"context"
	"errors"

	"github.com/park285/chess-arena/internal/arena"
)

// ErrNotFound is returned by Load when no snapshot exists for the room id.
var ErrNotFound = errors.New("room snapshot not found")

// Store holds one snapshot per live room.
type Store interface {
	Save(ctx context.Context, snap arena.Snapshot) error
	Load(ctx context.Context, roomID string) (arena.Snapshot, error)
	Delete(ctx context.Context, roomID string) error
}
