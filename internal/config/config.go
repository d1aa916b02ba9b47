package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr     string
	AllowedOrigins []string

	RedisURL string

	RoomTTL      time.Duration
	StoreTimeout time.Duration

	// SweepInterval is how often the registry reclaims rooms that were
	// created but never occupied; RoomTTL is the idle threshold.
	SweepInterval time.Duration

	MaxRooms int

	// ResetOnEmpty restores the legacy single-room behavior: when both seats
	// empty out the position is reset instead of the room being destroyed.
	ResetOnEmpty bool

	MsgTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":3000",
		AllowedOrigins: []string{"*"},
		RoomTTL:        24 * time.Hour,
		StoreTimeout:   3 * time.Second,
		SweepInterval:  time.Minute,
		MaxRooms:       1000,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		var origins []string
		for _, p := range strings.Split(v, ",") {
			s := strings.TrimSpace(p)
			if s != "" {
				origins = append(origins, s)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}

	if v := strings.TrimSpace(os.Getenv("ROOM_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RoomTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("STORE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.StoreTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_ROOMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRooms = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RESET_ON_EMPTY")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ResetOnEmpty = b
		}
	}

	return cfg, nil
}
