// Package batch records the audit trail of sync runs: one batch per run of an
// entity syncer, one item per processed record, and aggregate counts computed
// from the stored items when the batch is finalized.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albapepper/scoracle-sync/internal/store"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Outcome is the result of processing one record. A nil Err is a success.
type Outcome struct {
	Err  error
	Meta map[string]any
}

// Recorder writes batches through a store.BatchStore. Safe for concurrent use
// as long as the underlying store is.
type Recorder struct {
	store  store.BatchStore
	logger *slog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(s store.BatchStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, logger: logger}
}

// Begin opens a running batch and returns its id.
func (r *Recorder) Begin(ctx context.Context, name string, trigger store.Trigger) (int64, error) {
	b, err := r.store.CreateBatch(ctx, name, trigger)
	if err != nil {
		return 0, fmt.Errorf("create batch %s: %w", name, err)
	}
	r.logger.Debug("Batch started", "batch_id", b.ID, "name", name, "trigger", trigger)
	return b.ID, nil
}

// Record appends one item to an open batch.
func (r *Recorder) Record(ctx context.Context, batchID int64, itemKey string, o Outcome) error {
	item := store.BatchItem{
		BatchID: batchID,
		ItemKey: itemKey,
		Status:  store.ItemSuccess,
		Meta:    o.Meta,
	}
	if o.Err != nil {
		msg := o.Err.Error()
		item.Status = store.ItemFailed
		item.ErrorMessage = &msg
	}
	if err := r.store.AppendBatchItem(ctx, item); err != nil {
		return fmt.Errorf("record batch %d item %s: %w", batchID, itemKey, err)
	}
	return nil
}

// Finalize closes the batch: success when nothing failed (including an empty
// batch), failed when everything failed, partial otherwise.
func (r *Recorder) Finalize(ctx context.Context, batchID int64) (store.Batch, error) {
	b, err := r.store.FinalizeBatch(ctx, batchID)
	if err != nil {
		return b, fmt.Errorf("finalize batch %d: %w", batchID, err)
	}
	r.logger.Info("Batch finished",
		"batch_id", b.ID, "name", b.Name, "status", b.Status,
		"total", b.ItemsTotal, "success", b.ItemsSuccess, "failed", b.ItemsFailed)
	return b, nil
}

// List returns the most recent batches, optionally filtered by name.
// Limit defaults to DefaultListLimit and is capped at MaxListLimit.
func (r *Recorder) List(ctx context.Context, name string, limit int) ([]store.Batch, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	batches, err := r.store.ListBatches(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if batches == nil {
		batches = []store.Batch{}
	}
	return batches, nil
}

// Get returns one batch.
func (r *Recorder) Get(ctx context.Context, batchID int64) (store.Batch, error) {
	return r.store.GetBatch(ctx, batchID)
}

// Items returns one page of a batch's items and the total item count.
func (r *Recorder) Items(ctx context.Context, batchID int64, opts store.ListOptions) ([]store.BatchItem, int, error) {
	items, total, err := r.store.ListBatchItems(ctx, batchID, opts)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("list batch %d items: %w", batchID, err)
	}
	if items == nil {
		items = []store.BatchItem{}
	}
	return items, total, nil
}
