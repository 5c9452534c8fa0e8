// Command api is the Scoracle Sync API server.
//
// Usage:
//
//	scoracle-api
//	scoracle-api --memory
//	API_PORT=8080 scoracle-api

// @title Scoracle Sync API
// @version 1.0.0
// @description Sync and reconciliation of SportMonks football reference data into Postgres, with per-record batch audit.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Scoracle
// @license.name MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/albapepper/scoracle-sync/internal/api"
	"github.com/albapepper/scoracle-sync/internal/api/handler"
	"github.com/albapepper/scoracle-sync/internal/app"
	"github.com/albapepper/scoracle-sync/internal/cache"
	"github.com/albapepper/scoracle-sync/internal/config"
	"github.com/albapepper/scoracle-sync/internal/events"
	"github.com/albapepper/scoracle-sync/internal/jobs"
	"github.com/albapepper/scoracle-sync/internal/listener"
	"github.com/albapepper/scoracle-sync/internal/maintenance"
	"github.com/albapepper/scoracle-sync/internal/pipeline"
	"github.com/albapepper/scoracle-sync/internal/store"

	_ "github.com/albapepper/scoracle-sync/docs" // swagger docs
)

func main() {
	memoryMode := flag.Bool("memory", false, "use the in-memory store instead of Postgres")
	applySchema := flag.Bool("apply-schema", false, "apply the embedded schema before starting")
	flag.Parse()

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, logger, app.Options{Memory: *memoryMode, ApplySchema: *applySchema})
	if err != nil {
		logger.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Initialize cache; every local or remote sync invalidates what it changed
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	appCache.Subscribe(a.Bus, logger)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled, "ttl", cfg.CacheTTL)

	// Cross-instance notifications and planner statistics need Postgres
	if a.Pool != nil {
		a.Bus.Subscribe(maintenance.AnalyzeHook(a.Pool, logger))
		if cfg.SyncNotifyEnabled {
			origin := uuid.NewString()
			a.Bus.Subscribe(listener.NewPublisher(a.Pool.Pool, origin, logger).Handle)
			go listener.Start(ctx, cfg.DatabaseURL, origin, func(_ context.Context, ev events.SyncCompleted) {
				appCache.Invalidate(ev.Changed()...)
			}, logger)
		}
	}

	// Jobs outlive the request that started them; shutdown waits briefly
	jobManager := jobs.NewManager(ctx, a.Metrics, logger)

	// Start maintenance tickers (scheduled sync, job pruning, stale batch sweep)
	mcfg := maintenance.DefaultConfig()
	mcfg.SyncInterval = cfg.SyncInterval
	mcfg.JobRetention = cfg.JobRetention
	go maintenance.Start(ctx, maintenance.Deps{
		Jobs:    jobManager,
		Batches: a.Store,
		Scheduled: func() jobs.Spec {
			return a.Pipeline.JobSpec(pipeline.Params{Trigger: store.TriggerScheduled})
		},
	}, mcfg, logger)

	// Create router
	router := api.NewRouter(handler.Deps{
		Store:    a.Store,
		Syncer:   a.Syncer,
		Pipeline: a.Pipeline,
		Jobs:     jobManager,
		Batches:  a.Recorder,
		Cache:    appCache,
		Config:   cfg,
		Logger:   logger,
	}, a.Metrics, cfg)

	// Create HTTP server. Synchronous full runs can take minutes.
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Scoracle Sync API",
			"addr", addr,
			"environment", cfg.Environment,
			"provider", a.Provider.Name(),
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	if err := jobManager.Wait(shutdownCtx); err != nil {
		logger.Warn("Jobs still running at shutdown", "error", err)
	}
	logger.Info("Server stopped")
}
