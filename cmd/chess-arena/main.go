package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/arena"
	appcfg "github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/gateway"
	"github.com/park285/chess-arena/internal/httpapi"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/roomstore"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		obslog.L().Fatal("msgcat_init_failed", zap.Error(err))
	}

	var store roomstore.Store
	if cfg.RedisURL != "" {
		rdb, err := roomstore.NewRedisClient(cfg.RedisURL)
		if err != nil {
			obslog.L().Fatal("redis_init_failed", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		store = roomstore.NewRedisStore(rdb, cfg.RoomTTL)
		obslog.L().Info("room_store", zap.String("backend", "redis"))
	} else {
		store = roomstore.NewMemoryStore()
		obslog.L().Info("room_store", zap.String("backend", "memory"))
	}

	reg := arena.NewRegistry(arena.Options{
		MaxRooms:     cfg.MaxRooms,
		ResetOnEmpty: cfg.ResetOnEmpty,
		Sink:         store,
		StoreTimeout: cfg.StoreTimeout,
	})
	gw := gateway.New(reg, cat, cfg.AllowedOrigins)
	reg.SetBroadcaster(gw)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				reg.SweepIdle(cfg.RoomTTL)
			}
		}
	}()

	router := httpapi.NewRouter(reg, gw)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("server_shutdown_begin")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obslog.L().Warn("server_shutdown_error", zap.Error(err))
	}
	obslog.L().Info("server_shutdown_done")
}
