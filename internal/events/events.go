// Package events carries sync lifecycle notifications between the pipeline
// and the components that react to finished runs (response cache, Postgres
// NOTIFY publisher).
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/scoracle-sync/internal/store"
)

// StepSummary is the outcome of one step of a run.
type StepSummary struct {
	Kind    store.Kind `json:"kind"`
	BatchID int64      `json:"batchId,omitempty"`
	OK      int        `json:"ok"`
	Fail    int        `json:"fail"`
	Total   int        `json:"total"`
	Error   string     `json:"error,omitempty"`
}

// SyncCompleted is published once per pipeline run or single-entity sync,
// aborted runs included.
type SyncCompleted struct {
	RunID      string        `json:"runId"`
	Results    []StepSummary `json:"results"`
	DryRun     bool          `json:"dryRun"`
	Aborted    bool          `json:"aborted"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Changed lists the kinds whose steps wrote at least one record.
func (e SyncCompleted) Changed() []store.Kind {
	if e.DryRun {
		return nil
	}
	var out []store.Kind
	for _, r := range e.Results {
		if r.OK > 0 {
			out = append(out, r.Kind)
		}
	}
	return out
}

// Handler reacts to a finished run. Handlers run synchronously on the
// publisher's goroutine and must not block for long.
type Handler func(ctx context.Context, ev SyncCompleted)

// Bus fans SyncCompleted out to subscribers. The zero value is not usable;
// a nil *Bus drops every event.
type Bus struct {
	mu       sync.RWMutex
	seq      int
	handlers map[int]Handler
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{handlers: make(map[int]Handler), logger: logger}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := b.seq
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Publish delivers ev to every subscriber. A panicking handler is logged and
// does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, ev SyncCompleted) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, ev SyncCompleted) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Sync event handler panicked", "run_id", ev.RunID, "panic", r)
		}
	}()
	h(ctx, ev)
}
