// Package jobs runs syncs in the background and tracks their status for
// polling. Jobs run on the manager's base context, so a caller that stops
// polling does not stop the run.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-sync/internal/metrics"
)

var (
	ErrNotFound = errors.New("job not found")
	// ErrConflict rejects an exclusive job while another exclusive job runs.
	ErrConflict = errors.New("a conflicting job is already running")
)

// State of a job.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is a snapshot of one background run.
type Job struct {
	ID         string     `json:"jobId"`
	Name       string     `json:"name"`
	State      State      `json:"state"`
	DryRun     bool       `json:"dryRun"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Spec describes a job to submit.
type Spec struct {
	Name string
	// Exclusive jobs never overlap; full pipeline runs are exclusive.
	Exclusive bool
	DryRun    bool
	Run       func(ctx context.Context) (any, error)
}

// Manager owns the job table.
type Manager struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	done      map[string]chan struct{}
	exclusive string
	wg        sync.WaitGroup

	base    context.Context
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager creates a manager whose jobs run on base.
func NewManager(base context.Context, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		jobs:    make(map[string]*Job),
		done:    make(map[string]chan struct{}),
		base:    context.WithoutCancel(base),
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit starts spec.Run in the background and returns the running job.
func (m *Manager) Submit(spec Spec) (Job, error) {
	m.mu.Lock()
	if spec.Exclusive && m.exclusive != "" {
		running := m.exclusive
		m.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s", ErrConflict, running)
	}
	job := &Job{
		ID:        uuid.NewString(),
		Name:      spec.Name,
		State:     StateRunning,
		DryRun:    spec.DryRun,
		StartedAt: m.now(),
	}
	m.jobs[job.ID] = job
	m.done[job.ID] = make(chan struct{})
	if spec.Exclusive {
		m.exclusive = job.ID
	}
	snapshot := *job
	m.wg.Add(1)
	m.mu.Unlock()

	m.metrics.RecordJob(string(StateRunning))
	m.logger.Info("Job started", "job_id", job.ID, "name", spec.Name, "dry_run", spec.DryRun)

	go m.run(job.ID, spec)
	return snapshot, nil
}

func (m *Manager) run(id string, spec Spec) {
	defer m.wg.Done()

	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		result, err = spec.Run(m.base)
	}()

	m.mu.Lock()
	job := m.jobs[id]
	now := m.now()
	job.FinishedAt = &now
	job.Result = result
	if err != nil {
		job.State = StateFailed
		job.Error = err.Error()
	} else {
		job.State = StateSucceeded
	}
	if m.exclusive == id {
		m.exclusive = ""
	}
	state := job.State
	close(m.done[id])
	m.mu.Unlock()

	m.metrics.RecordJob(string(state))
	if err != nil {
		m.logger.Error("Job failed", "job_id", id, "name", spec.Name, "error", err)
		return
	}
	m.logger.Info("Job finished", "job_id", id, "name", spec.Name)
}

// Get returns a snapshot of a job.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// Prune drops finished jobs older than retention and returns how many were
// removed. Running jobs are kept.
func (m *Manager) Prune(retention time.Duration) int {
	cutoff := m.now().Add(-retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, job := range m.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
			delete(m.done, id)
			removed++
		}
	}
	return removed
}

// Await blocks until the job finished or ctx is done and returns its final
// snapshot. A cancelled wait leaves the job running.
func (m *Manager) Await(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	done, ok := m.done[id]
	m.mu.Unlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	select {
	case <-done:
		return m.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Wait blocks until every running job finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
