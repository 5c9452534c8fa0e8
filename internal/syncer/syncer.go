// Package syncer runs one entity kind through fetch, reconcile and upsert.
//
// Each run fetches the provider set, loads the matching local rows, unifies
// them by external id and writes every record that is missing, new or
// mismatched. Records are processed concurrently with per-record failure
// isolation; each outcome is written to a batch as it completes.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/albapepper/scoracle-sync/internal/batch"
	"github.com/albapepper/scoracle-sync/internal/metrics"
	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/reconcile"
	"github.com/albapepper/scoracle-sync/internal/store"
)

const DefaultWorkers = 4

// Scope narrows a run. ExternalID targets a single record. Season ids and the
// from/to window apply to fixtures; season ids also scope teams.
type Scope struct {
	ExternalID        string
	SeasonExternalIDs []string
	From              *time.Time
	To                *time.Time
}

// Options controls how a run writes.
type Options struct {
	DryRun  bool
	Trigger store.Trigger
	// Projected, on a dry run, resolves parents that earlier dry-run steps
	// would have inserted and collects the inserts of this one.
	Projected *Projection
}

// ActionDryRun marks a record that would have been written.
const ActionDryRun store.UpsertResult = "dry-run"

// RecordResult is the outcome of one processed record.
type RecordResult struct {
	ExternalID string             `json:"externalId"`
	Name       string             `json:"name"`
	Status     reconcile.Status   `json:"status"`
	Action     store.UpsertResult `json:"action,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorKind  string             `json:"errorKind,omitempty"`
}

// Failed reports whether the record was not written.
func (r RecordResult) Failed() bool { return r.Error != "" }

// Outcome summarizes a finished run. Total counts processed records only;
// records already in sync are not part of it.
type Outcome struct {
	Kind     store.Kind     `json:"kind"`
	BatchID  int64          `json:"batchId"`
	DryRun   bool           `json:"dryRun"`
	OK       int            `json:"ok"`
	Fail     int            `json:"fail"`
	Total    int            `json:"total"`
	Results  []RecordResult `json:"results,omitempty"`
	Duration time.Duration  `json:"-"`
}

// Syncer syncs entity kinds from a provider into a store.
type Syncer struct {
	provider provider.Client
	store    store.Store
	recorder *batch.Recorder
	workers  int
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithWorkers bounds per-record concurrency.
func WithWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to classify upcoming records.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// New creates a Syncer.
func New(p provider.Client, st store.Store, rec *batch.Recorder, opts ...Option) *Syncer {
	s := &Syncer{
		provider: p,
		store:    st,
		recorder: rec,
		workers:  DefaultWorkers,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Provider returns the upstream client.
func (s *Syncer) Provider() provider.Client { return s.provider }

// Sync runs one kind. A returned error is step-level: the provider or store
// could not be read, or the batch could not be opened or closed.
func (s *Syncer) Sync(ctx context.Context, kind store.Kind, scope Scope, opts Options) (Outcome, error) {
	switch kind {
	case store.KindCountries:
		return run(ctx, s, s.countries(), scope, opts)
	case store.KindLeagues:
		return run(ctx, s, s.leagues(), scope, opts)
	case store.KindSeasons:
		return run(ctx, s, s.seasons(), scope, opts)
	case store.KindTeams:
		return run(ctx, s, s.teams(), scope, opts)
	case store.KindFixtures:
		scope, err := s.resolveFixtureScope(ctx, scope, opts.Projected)
		if err != nil {
			return Outcome{}, fmt.Errorf("sync %s: %w", kind, err)
		}
		return run(ctx, s, s.fixtures(), scope, opts)
	case store.KindBookmakers:
		return run(ctx, s, s.bookmakers(), scope, opts)
	}
	return Outcome{}, fmt.Errorf("%w: %q", store.ErrUnknownKind, kind)
}

// Diff returns the unified view of one kind without writing anything.
func (s *Syncer) Diff(ctx context.Context, kind store.Kind, scope Scope) ([]reconcile.View, error) {
	switch kind {
	case store.KindCountries:
		return diff(ctx, s.countries(), scope)
	case store.KindLeagues:
		return diff(ctx, s.leagues(), scope)
	case store.KindSeasons:
		return diff(ctx, s.seasons(), scope)
	case store.KindTeams:
		return diff(ctx, s.teams(), scope)
	case store.KindFixtures:
		scope, err := s.ResolveFixtureScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		return diff(ctx, s.fixtures(), scope)
	case store.KindBookmakers:
		return diff(ctx, s.bookmakers(), scope)
	}
	return nil, fmt.Errorf("%w: %q", store.ErrUnknownKind, kind)
}

// Fetch returns the provider records of one kind in scope, untouched by
// the local store except for the default fixture season list.
func (s *Syncer) Fetch(ctx context.Context, kind store.Kind, scope Scope) (any, error) {
	switch kind {
	case store.KindCountries:
		return fetch(ctx, s.countries(), scope)
	case store.KindLeagues:
		return fetch(ctx, s.leagues(), scope)
	case store.KindSeasons:
		return fetch(ctx, s.seasons(), scope)
	case store.KindTeams:
		return fetch(ctx, s.teams(), scope)
	case store.KindFixtures:
		scope, err := s.ResolveFixtureScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		return fetch(ctx, s.fixtures(), scope)
	case store.KindBookmakers:
		return fetch(ctx, s.bookmakers(), scope)
	}
	return nil, fmt.Errorf("%w: %q", store.ErrUnknownKind, kind)
}

// ResolveFixtureScope applies fixture scope precedence: explicit seasons win
// over a from/to window, which wins over every season stored locally.
func (s *Syncer) ResolveFixtureScope(ctx context.Context, scope Scope) (Scope, error) {
	return s.resolveFixtureScope(ctx, scope, nil)
}

// resolveFixtureScope also counts seasons a dry run projected as local.
func (s *Syncer) resolveFixtureScope(ctx context.Context, scope Scope, proj *Projection) (Scope, error) {
	scope = NormalizeFixtureScope(scope)
	if scope.ExternalID != "" || len(scope.SeasonExternalIDs) > 0 || scope.From != nil {
		return scope, nil
	}
	seasons, _, err := s.store.ListSeasons(ctx, store.Filter{}, store.All)
	if err != nil {
		return scope, fmt.Errorf("list local seasons: %w", err)
	}
	scope.SeasonExternalIDs = make([]string, 0, len(seasons))
	local := make(map[string]bool, len(seasons))
	for _, season := range seasons {
		local[season.ExternalID] = true
		scope.SeasonExternalIDs = append(scope.SeasonExternalIDs, season.ExternalID)
	}
	for _, ext := range proj.ExternalIDs(store.KindSeasons) {
		if !local[ext] {
			scope.SeasonExternalIDs = append(scope.SeasonExternalIDs, ext)
		}
	}
	return scope, nil
}

// --------------------------------------------------------------------------
// Generic engine
// --------------------------------------------------------------------------

// refs maps parent kind -> external id -> local id.
type refs map[store.Kind]map[string]int64

func (r refs) resolve(kind store.Kind, externalID string) (int64, error) {
	id, ok := r[kind][externalID]
	if !ok {
		return 0, store.MissingParent(kind, externalID)
	}
	return id, nil
}

// entity describes how one kind is fetched, compared and written.
type entity[D, P, I any] struct {
	kind     store.Kind
	fetch    func(ctx context.Context, scope Scope) ([]P, error)
	fetchOne func(ctx context.Context, externalID string) (P, error)
	list     func(ctx context.Context, scope Scope) ([]D, error)
	spec     reconcile.Spec[D, P]
	parents  []store.Kind
	prepare  func(p P, r refs) (I, error)
	upsert   func(ctx context.Context, in I) (store.UpsertResult, error)
}

func fetch[D, P, I any](ctx context.Context, e entity[D, P, I], scope Scope) ([]P, error) {
	if scope.ExternalID != "" {
		p, err := e.fetchOne(ctx, scope.ExternalID)
		if err != nil {
			return nil, err
		}
		return []P{p}, nil
	}
	return e.fetch(ctx, scope)
}

func load[D, P, I any](ctx context.Context, e entity[D, P, I], scope Scope) ([]reconcile.Unified[D, P], error) {
	prov, err := fetch(ctx, e, scope)
	if err != nil {
		return nil, err
	}

	db, err := e.list(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list local %s: %w", e.kind, err)
	}
	return reconcile.Unify(db, prov, e.spec), nil
}

func diff[D, P, I any](ctx context.Context, e entity[D, P, I], scope Scope) ([]reconcile.View, error) {
	unified, err := load(ctx, e, scope)
	if err != nil {
		return nil, err
	}
	return reconcile.Views(unified), nil
}

func needsWrite(status reconcile.Status) bool {
	switch status {
	case reconcile.StatusMissingInDB, reconcile.StatusNew, reconcile.StatusMismatch:
		return true
	}
	return false
}

func run[D, P, I any](ctx context.Context, s *Syncer, e entity[D, P, I], scope Scope, opts Options) (Outcome, error) {
	start := time.Now()
	trigger := opts.Trigger
	if trigger == "" {
		trigger = store.TriggerManual
	}
	if opts.DryRun {
		trigger = store.TriggerDryRun
	}

	s.logger.Info("Sync started", "kind", e.kind, "dry_run", opts.DryRun, "external_id", scope.ExternalID)

	unified, err := load(ctx, e, scope)
	if err != nil {
		return Outcome{}, fmt.Errorf("sync %s: %w", e.kind, err)
	}

	work := make([]reconcile.Unified[D, P], 0, len(unified))
	for _, u := range unified {
		if u.Provider == nil {
			continue
		}
		if needsWrite(u.Status) || scope.ExternalID != "" {
			work = append(work, u)
		}
	}

	r := make(refs, len(e.parents))
	if len(work) > 0 {
		for _, parent := range e.parents {
			ids, err := s.store.ExternalIDs(ctx, parent)
			if err != nil {
				return Outcome{}, fmt.Errorf("sync %s: load %s ids: %w", e.kind, parent, err)
			}
			r[parent] = opts.Projected.overlay(parent, ids)
		}
	}

	batchID, err := s.recorder.Begin(ctx, e.kind.BatchName(), trigger)
	if err != nil {
		return Outcome{}, fmt.Errorf("sync %s: %w", e.kind, err)
	}

	results := make([]RecordResult, len(work))
	done := make([]bool, len(work))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := range work {
		if ctx.Err() != nil {
			break
		}
		u := work[i]
		g.Go(func() error {
			res := process(ctx, s, e, u, r, opts.DryRun)
			outcome := batch.Outcome{Meta: map[string]any{
				"status": string(u.Status),
				"name":   u.Name,
			}}
			if res.Action != "" {
				outcome.Meta["action"] = string(res.Action)
			}
			if len(u.Diff) > 0 {
				outcome.Meta["diff"] = u.Diff
			}
			if res.Error != "" {
				outcome.Err = errors.New(res.Error)
			}
			if err := s.recorder.Record(ctx, batchID, u.ExternalID, outcome); err != nil {
				s.logger.Warn("Failed to record batch item", "kind", e.kind, "external_id", u.ExternalID, "error", err)
				if res.Error == "" {
					res.Error = err.Error()
					res.ErrorKind = ErrorKind(err)
				}
			}

			mu.Lock()
			results[i] = res
			done[i] = true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := Outcome{Kind: e.kind, BatchID: batchID, DryRun: opts.DryRun}
	for i, res := range results {
		if !done[i] {
			continue
		}
		out.Results = append(out.Results, res)
		out.Total++
		if opts.DryRun && !res.Failed() && work[i].DB == nil {
			opts.Projected.add(e.kind, work[i].ExternalID)
		}
		if res.Failed() {
			out.Fail++
			s.metrics.RecordItem(string(e.kind), "fail")
		} else {
			out.OK++
			s.metrics.RecordItem(string(e.kind), "ok")
		}
	}

	if _, err := s.recorder.Finalize(context.WithoutCancel(ctx), batchID); err != nil {
		return Outcome{}, fmt.Errorf("sync %s: %w", e.kind, err)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("sync %s: %w", e.kind, err)
	}

	out.Duration = time.Since(start)
	s.logger.Info("Sync finished",
		"kind", e.kind, "batch_id", batchID, "dry_run", opts.DryRun,
		"ok", out.OK, "fail", out.Fail, "total", out.Total,
		"duration", out.Duration.Round(time.Millisecond))
	return out, nil
}

func process[D, P, I any](ctx context.Context, s *Syncer, e entity[D, P, I], u reconcile.Unified[D, P], r refs, dryRun bool) RecordResult {
	res := RecordResult{ExternalID: u.ExternalID, Name: u.Name, Status: u.Status}

	in, err := e.prepare(*u.Provider, r)
	if err == nil {
		if dryRun {
			res.Action = ActionDryRun
		} else {
			res.Action, err = e.upsert(ctx, in)
		}
	}
	if err != nil {
		res.Action = ""
		res.Error = err.Error()
		res.ErrorKind = ErrorKind(err)
		s.logger.Warn("Record failed", "kind", e.kind, "external_id", u.ExternalID, "error", err)
	}
	return res
}
