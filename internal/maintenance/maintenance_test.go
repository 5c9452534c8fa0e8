package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-sync/internal/events"
	"github.com/albapepper/scoracle-sync/internal/jobs"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/store/memory"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSweepStaleBatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()

	abandoned, err := st.CreateBatch(ctx, "seed-teams", store.TriggerManual)
	require.NoError(t, err)
	require.NoError(t, st.AppendBatchItem(ctx, store.BatchItem{BatchID: abandoned.ID, ItemKey: "team:1", Status: store.ItemSuccess}))
	require.NoError(t, st.AppendBatchItem(ctx, store.BatchItem{BatchID: abandoned.ID, ItemKey: "team:2", Status: store.ItemFailed}))

	done, err := st.CreateBatch(ctx, "seed-countries", store.TriggerManual)
	require.NoError(t, err)
	_, err = st.FinalizeBatch(ctx, done.ID)
	require.NoError(t, err)

	n, err := SweepStaleBatches(ctx, st, time.Now().Add(-time.Hour), quiet)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh batches are left alone")

	n, err = SweepStaleBatches(ctx, st, time.Now().Add(time.Hour), quiet)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetBatch(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, store.BatchPartial, got.Status)
	assert.Equal(t, 2, got.ItemsTotal)
	assert.NotNil(t, got.FinishedAt)
}

func TestSubmitScheduledSkipsWhileRunning(t *testing.T) {
	t.Parallel()
	m := jobs.NewManager(context.Background(), nil, quiet)
	release := make(chan struct{})
	spec := jobs.Spec{
		Name:      "sync-all",
		Exclusive: true,
		Run: func(context.Context) (any, error) {
			<-release
			return nil, nil
		},
	}

	assert.True(t, SubmitScheduled(m, spec, quiet))
	assert.False(t, SubmitScheduled(m, spec, quiet))

	close(release)
	require.NoError(t, m.Wait(context.Background()))
	assert.True(t, SubmitScheduled(m, spec, quiet))
	require.NoError(t, m.Wait(context.Background()))
}

func TestStartRunsScheduledSync(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	m := jobs.NewManager(ctx, nil, quiet)

	ran := make(chan struct{}, 8)
	deps := Deps{
		Jobs: m,
		Scheduled: func() jobs.Spec {
			return jobs.Spec{Name: "sync-all", Exclusive: true, Run: func(context.Context) (any, error) {
				ran <- struct{}{}
				return nil, nil
			}}
		},
	}

	stopped := make(chan struct{})
	go func() {
		Start(ctx, deps, Config{SyncInterval: 5 * time.Millisecond}, quiet)
		close(stopped)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled sync never ran")
	}
	cancel()
	<-stopped
	require.NoError(t, m.Wait(context.Background()))
}

type fakeExec struct {
	sql []string
	err error
}

func (f *fakeExec) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	return pgconn.CommandTag{}, f.err
}

func TestAnalyzeHook(t *testing.T) {
	t.Parallel()
	db := &fakeExec{}
	hook := AnalyzeHook(db, quiet)

	hook(context.Background(), events.SyncCompleted{DryRun: true, Results: []events.StepSummary{{Kind: store.KindTeams, OK: 3}}})
	assert.Empty(t, db.sql)

	hook(context.Background(), events.SyncCompleted{Results: []events.StepSummary{
		{Kind: store.KindTeams, OK: 3},
		{Kind: store.KindFixtures},
		{Kind: store.KindBookmakers, OK: 1},
	}})
	assert.Equal(t, []string{"ANALYZE teams", "ANALYZE bookmakers"}, db.sql)
}

func TestAnalyzeTablesStopsOnError(t *testing.T) {
	t.Parallel()
	db := &fakeExec{err: errors.New("permission denied")}
	err := AnalyzeTables(context.Background(), db, []store.Kind{store.KindCountries, store.KindLeagues}, quiet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze countries")
	assert.Len(t, db.sql, 1)
}
