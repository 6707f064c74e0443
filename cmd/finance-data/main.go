package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/UdinTarmiji/finance-data/internal/amqp"
	"github.com/UdinTarmiji/finance-data/internal/backend"
	"github.com/UdinTarmiji/finance-data/internal/config"
	apphttp "github.com/UdinTarmiji/finance-data/internal/http"
	applog "github.com/UdinTarmiji/finance-data/internal/log"
	"github.com/UdinTarmiji/finance-data/internal/remote"
	"github.com/UdinTarmiji/finance-data/internal/services"
	"github.com/UdinTarmiji/finance-data/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

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

	store, err := backend.NewObjectStore(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize remote store", applog.FieldError, err, "backend", cfg.RemoteBackend)
		os.Exit(1)
	}
	syncer := remote.NewSyncer(store, cfg.RemotePathPrefix)

	// AMQP is optional, without it changes still land in SQLite and the
	// worker's periodic pass picks up the dirty owners.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without sync publishing", applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ledgerService := services.NewLedgerService(repo, publisher, syncer)
	srv := apphttp.NewServer(":"+cfg.Port, ledgerService, logger)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting finance-data server", "port", cfg.Port, "backend", cfg.RemoteBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
