package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sranoldo2003/live-location/backend/internal/config"
	"github.com/sranoldo2003/live-location/backend/internal/relay"
	"github.com/sranoldo2003/live-location/backend/internal/server"
	"github.com/sranoldo2003/live-location/internal/logging"
	"github.com/sranoldo2003/live-location/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		DefaultLevel: slog.LevelInfo,
	})
	slog.Info("starting location relay", "version", version.Version, "addr", cfg.HTTP.Addr)

	// The directory lives exactly as long as the hub that owns it.
	directory := relay.NewDirectory()
	hub := relay.NewHub(directory, relay.Options{
		SendBuffer:     cfg.Relay.SendBuffer,
		MaxMessageSize: cfg.Relay.MaxMessageSize,
		LocationRate:   cfg.Relay.LocationRate,
		LocationBurst:  cfg.Relay.LocationBurst,
	})

	ctx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(ctx)

	router := server.NewRouter(hub, server.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		StatsEnabled:   cfg.Stats(),
	})
	httpSrv := server.CreateServer(cfg.HTTP.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(httpSrv)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
		}
	}

	// Hijacked websocket connections are not tracked by Shutdown; stopping
	// the hub closes them.
	_ = server.Shutdown(httpSrv, 10*time.Second)
	stopHub()

	select {
	case <-hub.Done():
	case <-time.After(5 * time.Second):
		slog.Warn("hub did not stop in time")
	}
	slog.Info("stopped")
}
