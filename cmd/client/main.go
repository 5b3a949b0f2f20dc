package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/studycircle/internal/buildinfo"
	"github.com/dmitrijs2005/studycircle/internal/client/cli"
	"github.com/dmitrijs2005/studycircle/internal/client/client"
	"github.com/dmitrijs2005/studycircle/internal/client/config"
	"github.com/dmitrijs2005/studycircle/internal/client/repositories/kv"
	"github.com/dmitrijs2005/studycircle/internal/client/session"
	"github.com/dmitrijs2005/studycircle/internal/common"
	"github.com/dmitrijs2005/studycircle/internal/logging"
	"github.com/dmitrijs2005/studycircle/internal/telemetry"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, common.AppName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn(ctx, "tracing disabled", "error", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	repo, closeRepo, err := kv.Open(ctx, cfg.StorageOptions())
	if err != nil {
		logger.Warn(ctx, "storage unavailable, falling back to memory", "backend", cfg.Storage, "error", err)
		repo = kv.NewMemoryRepository()
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Error(context.Background(), "close storage", "error", err)
		}
	}()

	backend := client.NewMockClient(cfg.Latency, logger)
	if err := backend.Ping(ctx); err != nil {
		logger.Warn(ctx, "auth backend unreachable", "error", err)
	}

	mgr := session.New(
		backend,
		repo,
		session.WithLogger(logger),
		session.WithKey(cfg.StorageKey),
		session.WithBufferSize(cfg.SubscriberBuffer),
	)
	defer func() { _ = mgr.Close() }()

	go func() {
		if err := mgr.Init(ctx); err != nil {
			logger.Warn(ctx, "session restore interrupted", "error", err)
		}
	}()

	app := cli.NewApp(mgr, logger, os.Stdin, os.Stdout)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
