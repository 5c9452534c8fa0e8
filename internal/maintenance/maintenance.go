// Package maintenance runs periodic background tasks as Go tickers:
// scheduled pipeline runs, job table pruning and the stale batch sweep.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/albapepper/scoracle-sync/internal/jobs"
	"github.com/albapepper/scoracle-sync/internal/store"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	SyncInterval    time.Duration // Scheduled full pipeline runs
	PruneInterval   time.Duration // Drop finished jobs older than JobRetention
	JobRetention    time.Duration
	SweepInterval   time.Duration // Finalize batches abandoned by a crashed run
	StaleBatchAfter time.Duration
}

// DefaultConfig returns sensible production defaults. Scheduled syncs stay
// off until SyncInterval is set.
func DefaultConfig() Config {
	return Config{
		PruneInterval:   10 * time.Minute,
		JobRetention:    1 * time.Hour,
		SweepInterval:   30 * time.Minute,
		StaleBatchAfter: 6 * time.Hour,
	}
}

// Deps are the collaborators the tasks act on. Nil fields disable the
// tasks that need them.
type Deps struct {
	Jobs    *jobs.Manager
	Batches store.BatchStore
	// Scheduled builds the job submitted on every SyncInterval tick.
	Scheduled func() jobs.Spec
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, deps Deps, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"sync", cfg.SyncInterval,
		"prune", cfg.PruneInterval,
		"sweep", cfg.SweepInterval)

	tickers := make([]*time.Ticker, 0, 3)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.SyncInterval > 0 && deps.Jobs != nil && deps.Scheduled != nil {
		t := time.NewTicker(cfg.SyncInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "sync", func() { SubmitScheduled(deps.Jobs, deps.Scheduled(), logger) })
	}

	if cfg.PruneInterval > 0 && deps.Jobs != nil {
		t := time.NewTicker(cfg.PruneInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "prune", func() {
			if n := deps.Jobs.Prune(cfg.JobRetention); n > 0 {
				logger.Info("Pruned finished jobs", "count", n)
			}
		})
	}

	if cfg.SweepInterval > 0 && cfg.StaleBatchAfter > 0 && deps.Batches != nil {
		t := time.NewTicker(cfg.SweepInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "sweep", func() {
			_, _ = SweepStaleBatches(ctx, deps.Batches, time.Now().Add(-cfg.StaleBatchAfter), logger)
		})
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Tasks
// --------------------------------------------------------------------------

// SubmitScheduled submits spec and reports whether it started. A run that
// is still in progress makes the tick a no-op.
func SubmitScheduled(m *jobs.Manager, spec jobs.Spec, logger *slog.Logger) bool {
	job, err := m.Submit(spec)
	if errors.Is(err, jobs.ErrConflict) {
		logger.Info("Scheduled sync skipped, previous run still active", "name", spec.Name)
		return false
	}
	if err != nil {
		logger.Error("Scheduled sync failed to start", "name", spec.Name, "error", err)
		return false
	}
	logger.Info("Scheduled sync started", "job_id", job.ID, "name", spec.Name)
	return true
}

// sweepScanLimit bounds how many recent batches one sweep inspects.
const sweepScanLimit = 500

// SweepStaleBatches finalizes running batches started before cutoff. Their
// counts come from whatever items were recorded before the run died.
func SweepStaleBatches(ctx context.Context, bs store.BatchStore, cutoff time.Time, logger *slog.Logger) (int, error) {
	batches, err := bs.ListBatches(ctx, "", sweepScanLimit)
	if err != nil {
		logger.Warn("Stale batch sweep failed", "error", err)
		return 0, err
	}

	swept := 0
	for _, b := range batches {
		if b.Status != store.BatchRunning || !b.StartedAt.Before(cutoff) {
			continue
		}
		final, err := bs.FinalizeBatch(ctx, b.ID)
		if errors.Is(err, store.ErrBatchFinalized) {
			continue
		}
		if err != nil {
			logger.Warn("Failed to finalize stale batch", "batch_id", b.ID, "error", err)
			continue
		}
		swept++
		logger.Warn("Finalized stale batch",
			"batch_id", b.ID, "name", b.Name, "status", final.Status,
			"items_total", final.ItemsTotal, "started_at", b.StartedAt)
	}
	return swept, nil
}
