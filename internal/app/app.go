// Package app wires the sync components from configuration. Both binaries
// build the same graph: store, provider client, batch recorder, syncer,
// events bus and pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-sync/internal/batch"
	"github.com/albapepper/scoracle-sync/internal/config"
	"github.com/albapepper/scoracle-sync/internal/db"
	"github.com/albapepper/scoracle-sync/internal/events"
	"github.com/albapepper/scoracle-sync/internal/metrics"
	"github.com/albapepper/scoracle-sync/internal/pipeline"
	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/provider/sportmonks"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/store/memory"
	"github.com/albapepper/scoracle-sync/internal/store/postgres"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

// Options select optional behavior at build time.
type Options struct {
	// Memory keeps everything in process; no database is needed.
	Memory bool
	// ApplySchema runs the embedded DDL before the pool connects.
	ApplySchema bool
	// Provider overrides the SportMonks client, mainly for tests.
	Provider provider.Client
	// Metrics is shared with the HTTP layer when set; nil creates one.
	Metrics *metrics.Metrics
}

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Pool     *db.Pool // nil in memory mode
	Store    store.Store
	Provider provider.Client
	Recorder *batch.Recorder
	Syncer   *syncer.Syncer
	Bus      *events.Bus
	Pipeline *pipeline.Orchestrator
}

// Build connects the store and wires the sync graph.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: opts.Metrics}
	if a.Metrics == nil {
		a.Metrics = metrics.New()
	}

	if opts.Memory {
		a.Store = memory.New()
		logger.Info("Using in-memory store")
	} else {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
		if opts.ApplySchema {
			if err := applySchema(ctx, cfg.DatabaseURL); err != nil {
				return nil, err
			}
			logger.Info("Schema applied")
		}
		logger.Info("Connecting to database...")
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
		a.Pool = pool
		a.Store = postgres.New(pool, logger)
	}

	a.Provider = opts.Provider
	if a.Provider == nil {
		if cfg.SportMonksAPIToken == "" {
			logger.Warn("SPORTMONKS_API_TOKEN is not set; provider calls will be rejected")
		}
		a.Provider = sportmonks.NewClient(cfg.SportMonksAPIToken, sportmonks.Options{
			BaseURL:           cfg.SportMonksBaseURL,
			RequestsPerMinute: cfg.SportMonksRequestsPerMinute,
			Timeout:           cfg.ProviderTimeout,
			MaxRetries:        cfg.ProviderMaxRetries,
		}, logger)
	}

	a.Recorder = batch.NewRecorder(a.Store, logger)
	a.Syncer = syncer.New(a.Provider, a.Store, a.Recorder,
		syncer.WithWorkers(cfg.SyncWorkers),
		syncer.WithMetrics(a.Metrics),
		syncer.WithLogger(logger))
	a.Bus = events.NewBus(logger)
	a.Pipeline = pipeline.New(a.Syncer, a.Bus,
		pipeline.WithStepTimeout(cfg.SyncStepTimeout),
		pipeline.WithMetrics(a.Metrics),
		pipeline.WithLogger(logger))
	return a, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func applySchema(ctx context.Context, dbURL string) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect for schema: %w", err)
	}
	defer conn.Close(context.Background())
	return db.ApplySchema(ctx, conn)
}
