package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-sync/internal/config"
	"github.com/albapepper/scoracle-sync/internal/db"
	"github.com/albapepper/scoracle-sync/internal/store"
)

func TestWhereBuildsPlaceholders(t *testing.T) {
	t.Parallel()
	var w where
	assert.Empty(t, w.sql())

	w.common(store.Filter{ExternalID: "8", Search: "prem"})
	w.add("t.country_id = %s", int64(3))

	assert.Equal(t, " WHERE t.external_id = $1 AND t.name ILIKE '%' || $2 || '%' AND t.country_id = $3", w.sql())
	assert.Equal(t, []any{"8", "prem", int64(3)}, w.args)
	assert.Equal(t, " LIMIT 25 OFFSET 50", w.page(store.ListOptions{Page: 3, PerPage: 25}))
	assert.Empty(t, w.page(store.All))
}

func TestMapError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		err            error
		wantConstraint bool
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "leagues_external_id_key"}, wantConstraint: true},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503", ConstraintName: "seasons_league_id_fkey"}, wantConstraint: true},
		{name: "not null", err: &pgconn.PgError{Code: "23502", Message: "null value in column"}, wantConstraint: true},
		{name: "check", err: &pgconn.PgError{Code: "23514", ConstraintName: "fixtures_distinct_teams_check"}, wantConstraint: true},
		{name: "wrapped", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"}), wantConstraint: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}},
		{name: "plain", err: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mapError(tt.err)
			assert.Equal(t, tt.wantConstraint, errors.Is(got, store.ErrConstraint))
			if tt.wantConstraint {
				var ce *store.ConstraintError
				require.ErrorAs(t, got, &ce)
				assert.NotEmpty(t, ce.Error())
			}
		})
	}
}

// --------------------------------------------------------------------------
// Integration (requires SCORACLE_TEST_DATABASE_URL)
// --------------------------------------------------------------------------

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dbURL := os.Getenv("SCORACLE_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("SCORACLE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, db.ApplySchema(ctx, conn))
	_, err = conn.Exec(ctx, `TRUNCATE batch_items, batches, fixtures, bookmakers, teams, seasons, leagues, countries RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	pool, err := db.New(ctx, &config.Config{DatabaseURL: dbURL, DBPoolMinConns: 1, DBPoolMaxConns: 4, DBPoolMaxLife: time.Minute})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool, nil)
}

func TestIntegrationUpsertLifecycle(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	in := store.CountryInput{ExternalID: "462", Name: "England", ISO2: "GB", ISO3: "GBR"}
	res, err := s.UpsertCountry(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, store.Inserted, res)

	res, err = s.UpsertCountry(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, store.Unchanged, res)

	in.OfficialName = "England"
	res, err = s.UpsertCountry(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, res)

	ids, err := s.ExternalIDs(ctx, store.KindCountries)
	require.NoError(t, err)
	countryID := ids["462"]
	require.NotZero(t, countryID)

	res, err = s.UpsertLeague(ctx, store.LeagueInput{ExternalID: "8", CountryID: &countryID, Name: "Premier League", Active: true})
	require.NoError(t, err)
	assert.Equal(t, store.Inserted, res)

	countries, total, err := s.ListCountries(ctx, store.Filter{Search: "eng"}, store.ListOptions{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, countries, 1)
	assert.Equal(t, 1, countries[0].LeagueCount)

	leagues, _, err := s.ListLeagues(ctx, store.Filter{CountryID: &countryID}, store.All)
	require.NoError(t, err)
	require.Len(t, leagues, 1)
	assert.Equal(t, "462", leagues[0].CountryExternalID)
}

func TestIntegrationForeignKeyViolation(t *testing.T) {
	s := newIntegrationStore(t)
	_, err := s.UpsertSeason(context.Background(), store.SeasonInput{ExternalID: "1", LeagueID: 999999, Name: "2025/2026"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConstraint)
}

func TestIntegrationBatchLifecycle(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	b, err := s.CreateBatch(ctx, "seed-teams", store.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, store.BatchRunning, b.Status)

	msg := "constraint violation"
	require.NoError(t, s.AppendBatchItem(ctx, store.BatchItem{BatchID: b.ID, ItemKey: "1", Status: store.ItemSuccess, Meta: map[string]any{"action": "insert"}}))
	require.NoError(t, s.AppendBatchItem(ctx, store.BatchItem{BatchID: b.ID, ItemKey: "2", Status: store.ItemFailed, ErrorMessage: &msg}))

	final, err := s.FinalizeBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, store.BatchPartial, final.Status)
	assert.Equal(t, 2, final.ItemsTotal)
	assert.Equal(t, 1, final.ItemsFailed)
	require.NotNil(t, final.FinishedAt)

	_, err = s.FinalizeBatch(ctx, b.ID)
	assert.ErrorIs(t, err, store.ErrBatchFinalized)
	err = s.AppendBatchItem(ctx, store.BatchItem{BatchID: b.ID, ItemKey: "3", Status: store.ItemSuccess})
	assert.ErrorIs(t, err, store.ErrBatchFinalized)

	items, total, err := s.ListBatchItems(ctx, b.ID, store.ListOptions{Page: 1, PerPage: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "insert", items[0].Meta["action"])

	_, err = s.GetBatch(ctx, b.ID+1000)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
