package roomstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arena/internal/arena"
)

// RedisStore keeps room snapshots in Redis under a TTL so abandoned rooms
// eventually disappear even if a node dies without deleting them.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient builds a client from a redis:// or rediss:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func roomKey(id string) string { return "arena:room:" + strings.TrimSpace(id) }

func (s *RedisStore) Save(ctx context.Context, snap arena.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, roomKey(snap.RoomID), raw, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, roomID string) (arena.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, roomKey(roomID)).Bytes()
	if err == redis.Nil {
		return arena.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return arena.Snapshot{}, err
	}
	var snap arena.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return arena.Snapshot{}, err
	}
	return snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, roomKey(roomID)).Err()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
