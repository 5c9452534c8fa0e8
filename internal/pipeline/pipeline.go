// Package pipeline sequences entity syncs in dependency order.
//
// Countries, leagues, seasons and teams are blocking steps: a step-level
// failure ends the run with an abort result. Fixtures and bookmakers are
// independent; their failures are recorded and the run continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-sync/internal/events"
	"github.com/albapepper/scoracle-sync/internal/jobs"
	"github.com/albapepper/scoracle-sync/internal/metrics"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

// EntitySyncer runs one entity kind. *syncer.Syncer satisfies it.
type EntitySyncer interface {
	Sync(ctx context.Context, kind store.Kind, scope syncer.Scope, opts syncer.Options) (syncer.Outcome, error)
}

// Status of one step.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the outcome of one pipeline step.
type Result struct {
	Step     store.Kind    `json:"step"`
	Status   Status        `json:"status"`
	BatchID  *int64        `json:"batchId"`
	OK       int           `json:"ok"`
	Fail     int           `json:"fail"`
	Total    int           `json:"total"`
	Error    *string       `json:"error"`
	Aborted  bool          `json:"aborted,omitempty"`
	Duration time.Duration `json:"-"`
}

// Params configures a run. SeasonID takes precedence over From/To for the
// fixtures step; with neither, fixtures cover every locally stored season.
type Params struct {
	DryRun   bool
	From     *time.Time
	To       *time.Time
	SeasonID string
	Trigger  store.Trigger
}

// AbortError ends a run after a blocking step failed.
type AbortError struct {
	Step store.Kind
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("pipeline stopped at %s: %v", e.Step, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

type step struct {
	kind     store.Kind
	blocking bool
}

// Steps in execution order.
var steps = []step{
	{store.KindCountries, true},
	{store.KindLeagues, true},
	{store.KindSeasons, true},
	{store.KindTeams, true},
	{store.KindFixtures, false},
	{store.KindBookmakers, false},
}

// Orchestrator runs the full pipeline.
type Orchestrator struct {
	syncer      EntitySyncer
	bus         *events.Bus
	metrics     *metrics.Metrics
	logger      *slog.Logger
	stepTimeout time.Duration
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStepTimeout bounds every step; zero disables the deadline.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator. A nil bus disables SyncCompleted events.
func New(s EntitySyncer, bus *events.Bus, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		syncer: s,
		bus:    bus,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every step in order. onStep, when non-nil, is called
// synchronously after each result is appended.
func (o *Orchestrator) Run(ctx context.Context, p Params, onStep func(Result)) []Result {
	runID := uuid.NewString()
	start := time.Now()
	opts := syncer.Options{DryRun: p.DryRun, Trigger: p.Trigger}
	if p.DryRun {
		opts.Projected = syncer.NewProjection()
	}

	o.logger.Info("Pipeline started", "run_id", runID, "dry_run", p.DryRun, "season_id", p.SeasonID)

	results := make([]Result, 0, len(steps))
	aborted := false
	for _, st := range steps {
		res, err := o.runStep(ctx, st.kind, o.scopeFor(st.kind, p), opts)
		if err != nil && st.blocking {
			abort := &AbortError{Step: st.kind, Err: err}
			msg := abort.Error()
			res.Error = &msg
			res.Aborted = true
			aborted = true
		}
		results = append(results, res)
		if onStep != nil {
			onStep(res)
		}
		if aborted {
			o.metrics.RecordAbort()
			o.logger.Error("Pipeline aborted", "run_id", runID, "step", st.kind, "error", err)
			break
		}
	}

	o.publish(ctx, runID, results, p.DryRun, aborted)
	o.logger.Info("Pipeline finished", "run_id", runID, "aborted", aborted,
		"steps", len(results), "duration", time.Since(start).Round(time.Millisecond))
	return results
}

// SyncOne runs a single kind outside the pipeline and publishes its result.
func (o *Orchestrator) SyncOne(ctx context.Context, kind store.Kind, scope syncer.Scope, opts syncer.Options) (syncer.Outcome, error) {
	out, err := o.syncer.Sync(ctx, kind, scope, opts)
	res := toResult(kind, out, err)
	o.publish(ctx, uuid.NewString(), []Result{res}, opts.DryRun, false)
	return out, err
}

func (o *Orchestrator) scopeFor(kind store.Kind, p Params) syncer.Scope {
	switch kind {
	case store.KindFixtures:
		if p.SeasonID != "" {
			return syncer.Scope{SeasonExternalIDs: []string{p.SeasonID}}
		}
		return syncer.Scope{From: p.From, To: p.To}
	case store.KindTeams:
		if p.SeasonID != "" {
			return syncer.Scope{SeasonExternalIDs: []string{p.SeasonID}}
		}
	}
	return syncer.Scope{}
}

func (o *Orchestrator) runStep(ctx context.Context, kind store.Kind, scope syncer.Scope, opts syncer.Options) (Result, error) {
	stepCtx := ctx
	if o.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, o.stepTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := o.syncer.Sync(stepCtx, kind, scope, opts)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("step timed out after %s: %w", o.stepTimeout, err)
	}
	res := toResult(kind, out, err)
	res.Duration = time.Since(start)

	o.metrics.RecordStep(string(kind), err == nil, res.Duration)
	if err != nil {
		o.logger.Error("Step failed", "step", kind, "error", err)
	} else {
		o.logger.Info("Step finished", "step", kind, "batch_id", out.BatchID,
			"ok", out.OK, "fail", out.Fail, "total", out.Total)
	}
	return res, err
}

func toResult(kind store.Kind, out syncer.Outcome, err error) Result {
	if err != nil {
		msg := err.Error()
		return Result{Step: kind, Status: StatusError, Error: &msg}
	}
	id := out.BatchID
	return Result{
		Step:     kind,
		Status:   StatusSuccess,
		BatchID:  &id,
		OK:       out.OK,
		Fail:     out.Fail,
		Total:    out.Total,
		Duration: out.Duration,
	}
}

func (o *Orchestrator) publish(ctx context.Context, runID string, results []Result, dryRun, aborted bool) {
	ev := events.SyncCompleted{
		RunID:      runID,
		DryRun:     dryRun,
		Aborted:    aborted,
		FinishedAt: o.now().UTC(),
		Results:    make([]events.StepSummary, 0, len(results)),
	}
	for _, r := range results {
		sum := events.StepSummary{Kind: r.Step, OK: r.OK, Fail: r.Fail, Total: r.Total}
		if r.BatchID != nil {
			sum.BatchID = *r.BatchID
		}
		if r.Error != nil {
			sum.Error = *r.Error
		}
		ev.Results = append(ev.Results, sum)
	}
	o.bus.Publish(context.WithoutCancel(ctx), ev)
}

// JobName names full pipeline jobs.
const JobName = "sync-all"

// JobSpec wraps a full run as an exclusive background job. The job fails
// when the run aborted; its result is the step list either way.
func (o *Orchestrator) JobSpec(p Params) jobs.Spec {
	return jobs.Spec{
		Name:      JobName,
		Exclusive: true,
		DryRun:    p.DryRun,
		Run: func(ctx context.Context) (any, error) {
			results := o.Run(ctx, p, nil)
			if WasAborted(results) {
				return results, errors.New(*results[len(results)-1].Error)
			}
			return results, nil
		},
	}
}

// Failed reports whether any result is an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusError {
			return true
		}
	}
	return false
}

// WasAborted reports whether the run stopped at a blocking step.
func WasAborted(results []Result) bool {
	return len(results) > 0 && results[len(results)-1].Aborted
}
