package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/homevolt/homevolt/pkg/gateway"
	"github.com/homevolt/homevolt/pkg/log"
	"github.com/homevolt/homevolt/pkg/monitor"
	"github.com/homevolt/homevolt/pkg/server"
	"github.com/homevolt/homevolt/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	gw := gateway.Configured()
	s := storage.Configured()

	// init server
	m := monitor.New(gw, s)
	srv := server.Configured(m)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	if err := m.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to initialize monitor", "error", err)
		os.Exit(1)
	}

	// poll the gateway in the background while the server runs
	go func() {
		if err := m.Run(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "monitor failed", "error", err)
			cancel()
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
