package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
}

func TestSubmitSucceeds(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), nil, nil)

	job, err := m.Submit(Spec{Name: "seed-teams", DryRun: true, Run: func(context.Context) (any, error) {
		return map[string]int{"ok": 3}, nil
	}})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, job.State)
	assert.NotEmpty(t, job.ID)

	waitDone(t, m)
	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, got.State)
	assert.True(t, got.DryRun)
	assert.Equal(t, map[string]int{"ok": 3}, got.Result)
	require.NotNil(t, got.FinishedAt)
}

func TestSubmitRecordsFailureAndPanic(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), nil, nil)

	failed, err := m.Submit(Spec{Name: "a", Run: func(context.Context) (any, error) { return nil, errors.New("provider down") }})
	require.NoError(t, err)
	panicked, err := m.Submit(Spec{Name: "b", Run: func(context.Context) (any, error) { panic("boom") }})
	require.NoError(t, err)
	waitDone(t, m)

	got, _ := m.Get(failed.ID)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, "provider down", got.Error)

	got, _ = m.Get(panicked.ID)
	assert.Equal(t, StateFailed, got.State)
	assert.Contains(t, got.Error, "panicked")
}

func TestExclusiveJobsConflict(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), nil, nil)
	release := make(chan struct{})

	first, err := m.Submit(Spec{Name: "all", Exclusive: true, Run: func(context.Context) (any, error) {
		<-release
		return nil, nil
	}})
	require.NoError(t, err)

	_, err = m.Submit(Spec{Name: "all", Exclusive: true, Run: func(context.Context) (any, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = m.Submit(Spec{Name: "seed-teams", Run: func(context.Context) (any, error) { return nil, nil }})
	assert.NoError(t, err, "non-exclusive jobs may overlap")

	close(release)
	waitDone(t, m)

	got, _ := m.Get(first.ID)
	assert.Equal(t, StateSucceeded, got.State)
	_, err = m.Submit(Spec{Name: "all", Exclusive: true, Run: func(context.Context) (any, error) { return nil, nil }})
	assert.NoError(t, err)
	waitDone(t, m)
}

func TestJobOutlivesCallerContext(t *testing.T) {
	t.Parallel()
	base, cancel := context.WithCancel(context.Background())
	m := NewManager(base, nil, nil)
	cancel()

	job, err := m.Submit(Spec{Name: "all", Run: func(ctx context.Context) (any, error) { return nil, ctx.Err() }})
	require.NoError(t, err)
	waitDone(t, m)

	got, _ := m.Get(job.ID)
	assert.Equal(t, StateSucceeded, got.State)
}

func TestPrune(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), nil, nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	job, err := m.Submit(Spec{Name: "old", Run: func(context.Context) (any, error) { return nil, nil }})
	require.NoError(t, err)
	waitDone(t, m)

	assert.Zero(t, m.Prune(time.Hour))
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, m.Prune(time.Hour))

	_, err = m.Get(job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAwait(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), nil, nil)
	release := make(chan struct{})
	job, err := m.Submit(Spec{Name: "sync-all", Run: func(context.Context) (any, error) {
		<-release
		return "done", nil
	}})
	require.NoError(t, err)

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Await(short, job.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	got, err := m.Await(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, got.State)
	assert.Equal(t, "done", got.Result)

	_, err = m.Await(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
