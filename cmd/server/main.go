package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/prospector/internal/api"
	"github.com/Harshitk-cp/prospector/internal/config"
	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	cfg, err := config.LoadTuning(config.TuningPath())
	if err != nil {
		logger.Fatal("failed to load tuning config", zap.Error(err))
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")
	}

	var ledgerStore domain.LedgerStore
	switch backend := config.LedgerBackend(); backend {
	case "badger":
		badgerStore, err := store.OpenBadgerLedger(config.BadgerLedgerPath())
		if err != nil {
			logger.Fatal("failed to open badger ledger", zap.Error(err))
		}
		defer func() { _ = badgerStore.Close() }()
		ledgerStore = badgerStore
		logger.Info("belief ledger backend: badger", zap.String("path", config.BadgerLedgerPath()))
	case "postgres":
		if pool == nil {
			logger.Fatal("DATABASE_URL is required for the postgres ledger backend")
		}
		ledgerStore = store.NewLedgerStore(pool)
		logger.Info("belief ledger backend: postgres")
	default:
		logger.Fatal("unknown ledger backend", zap.String("backend", backend))
	}

	app, err := api.NewApp(pool, ledgerStore, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

	// Start background services
	app.Cache.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	app.Cache.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
