package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/UdinTarmiji/finance-data/internal/amqp"
	"github.com/UdinTarmiji/finance-data/internal/backend"
	"github.com/UdinTarmiji/finance-data/internal/config"
	applog "github.com/UdinTarmiji/finance-data/internal/log"
	"github.com/UdinTarmiji/finance-data/internal/remote"
	"github.com/UdinTarmiji/finance-data/internal/storage"
	"github.com/UdinTarmiji/finance-data/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting finance-data-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := backend.NewObjectStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize remote store", applog.FieldError, err, "backend", cfg.RemoteBackend)
		os.Exit(1)
	}
	syncer := remote.NewSyncer(store, cfg.RemotePathPrefix)

	syncWorker := worker.NewSyncWorker(repo, syncer, cfg.SyncBatchSize, cfg.SyncInterval)

	// Push anything that was left dirty before this worker started.
	if err := syncWorker.ProcessDirty(ctx); err != nil {
		logger.Error("Startup sync pass failed", applog.FieldError, err)
		// Keep running, the periodic pass retries.
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			return syncWorker.Run(ctx, amqpClient)
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only")
	}

	g.Go(func() error {
		return syncWorker.RunPeriodic(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
