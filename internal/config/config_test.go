package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.RoomTTL != 24*time.Hour || cfg.StoreTimeout != 3*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.RoomTTL, cfg.StoreTimeout)
	}
	if cfg.MaxRooms != 1000 || cfg.ResetOnEmpty {
		t.Fatalf("unexpected room defaults: %d %v", cfg.MaxRooms, cfg.ResetOnEmpty)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("unexpected sweep interval: %v", cfg.SweepInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":8080")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("ALLOWED_ORIGINS", "example.com, play.example.com")
	t.Setenv("ROOM_TTL", "1h")
	t.Setenv("STORE_TIMEOUT", "500ms")
	t.Setenv("MAX_ROOMS", "5")
	t.Setenv("RESET_ON_EMPTY", "true")
	t.Setenv("SWEEP_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.RedisURL != "redis://localhost:6379/1" {
		t.Fatalf("unexpected addr/redis: %q %q", cfg.ListenAddr, cfg.RedisURL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "play.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.RoomTTL != time.Hour || cfg.StoreTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected durations: %v %v", cfg.RoomTTL, cfg.StoreTimeout)
	}
	if cfg.MaxRooms != 5 || !cfg.ResetOnEmpty {
		t.Fatalf("unexpected room settings: %d %v", cfg.MaxRooms, cfg.ResetOnEmpty)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Fatalf("unexpected sweep interval: %v", cfg.SweepInterval)
	}
}

func TestLoad_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("ROOM_TTL", "soon")
	t.Setenv("MAX_ROOMS", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RoomTTL != 24*time.Hour || cfg.MaxRooms != 1000 {
		t.Fatalf("invalid values not ignored: %v %d", cfg.RoomTTL, cfg.MaxRooms)
	}
}
