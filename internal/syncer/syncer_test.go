package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/albapepper/scoracle-sync/internal/batch"
	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/provider/mocks"
	"github.com/albapepper/scoracle-sync/internal/reconcile"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/store/memory"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

type fixture struct {
	prov  *mocks.MockClient
	store *memory.Store
	hook  *hookStore
	sync  *syncer.Syncer
}

func newFixture(t *testing.T, opts ...syncer.Option) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	prov := mocks.NewMockClient(ctrl)
	st := memory.New()
	hs := &hookStore{Store: st}
	return fixture{
		prov:  prov,
		store: st,
		hook:  hs,
		sync:  syncer.New(prov, hs, batch.NewRecorder(st, nil), opts...),
	}
}

// hookStore runs before ahead of country and bookmaker upserts; a non-nil
// error replaces the write.
type hookStore struct {
	*memory.Store
	before func(ctx context.Context, kind store.Kind, externalID string) error
}

func (h *hookStore) call(ctx context.Context, kind store.Kind, externalID string) error {
	if h.before == nil {
		return nil
	}
	return h.before(ctx, kind, externalID)
}

func (h *hookStore) UpsertCountry(ctx context.Context, in store.CountryInput) (store.UpsertResult, error) {
	if err := h.call(ctx, store.KindCountries, in.ExternalID); err != nil {
		return "", err
	}
	return h.Store.UpsertCountry(ctx, in)
}

func (h *hookStore) UpsertBookmaker(ctx context.Context, in store.BookmakerInput) (store.UpsertResult, error) {
	if err := h.call(ctx, store.KindBookmakers, in.ExternalID); err != nil {
		return "", err
	}
	return h.Store.UpsertBookmaker(ctx, in)
}

func seedCountry(t *testing.T, st store.Store, ext, name, iso2 string) {
	t.Helper()
	_, err := st.UpsertCountry(context.Background(), store.CountryInput{ExternalID: ext, Name: name, ISO2: iso2, ISO3: iso2 + "X"})
	require.NoError(t, err)
}

func TestSync_CountriesEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	seedCountry(t, f.store, "2", "Brazil", "BR")
	seedCountry(t, f.store, "3", "Chile", "CL")

	f.prov.EXPECT().GetCountries(gomock.Any()).Return([]provider.Country{
		{ExternalID: "1", Name: "Argentina", ISO2: "AR", ISO3: "ARX"},
		{ExternalID: "2", Name: "Brazil", ISO2: "BR", ISO3: "BRX"},
		{ExternalID: "3", Name: "Chile (Republic)", ISO2: "CL", ISO3: "CLX"},
	}, nil)

	out, err := f.sync.Sync(ctx, store.KindCountries, syncer.Scope{}, syncer.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, out.OK)
	assert.Equal(t, 0, out.Fail)
	assert.Equal(t, 2, out.Total)
	require.NotZero(t, out.BatchID)

	b, err := f.store.GetBatch(ctx, out.BatchID)
	require.NoError(t, err)
	assert.Equal(t, "seed-countries", b.Name)
	assert.Equal(t, store.BatchSuccess, b.Status)
	assert.Equal(t, store.TriggerManual, b.Trigger)
	assert.Equal(t, 2, b.ItemsTotal)

	rows, total, err := f.store.ListCountries(ctx, store.Filter{}, store.All)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	names := map[string]string{}
	for _, r := range rows {
		names[r.ExternalID] = r.Name
	}
	assert.Equal(t, "Argentina", names["1"])
	assert.Equal(t, "Chile (Republic)", names["3"])

	actions := map[string]store.UpsertResult{}
	for _, r := range out.Results {
		actions[r.ExternalID] = r.Action
	}
	assert.Equal(t, store.Inserted, actions["1"])
	assert.Equal(t, store.Updated, actions["3"])
}

func TestSync_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	countries := []provider.Country{
		{ExternalID: "1", Name: "Argentina", ISO2: "AR", ISO3: "ARG"},
		{ExternalID: "2", Name: "Brazil", ISO2: "BR", ISO3: "BRA"},
	}
	f.prov.EXPECT().GetCountries(gomock.Any()).Return(countries, nil).Times(2)

	first, err := f.sync.Sync(ctx, store.KindCountries, syncer.Scope{}, syncer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)

	second, err := f.sync.Sync(ctx, store.KindCountries, syncer.Scope{}, syncer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total)
	assert.Equal(t, 0, second.Fail)

	b, err := f.store.GetBatch(ctx, second.BatchID)
	require.NoError(t, err)
	assert.Equal(t, store.BatchSuccess, b.Status)
	assert.Equal(t, 0, b.ItemsTotal)
}

func TestSync_DryRunWritesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.prov.EXPECT().GetBookmakers(gomock.Any()).Return([]provider.Bookmaker{
		{ExternalID: "2", Name: "bet365"},
		{ExternalID: "", Name: "orphan"},
		{ExternalID: "9", Name: " "},
	}, nil)

	out, err := f.sync.Sync(ctx, store.KindBookmakers, syncer.Scope{}, syncer.Options{DryRun: true, Trigger: store.TriggerManual})
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	assert.Equal(t, 1, out.OK)
	assert.Equal(t, 1, out.Fail)
	assert.Equal(t, 2, out.Total)

	rows, total, err := f.store.ListBookmakers(ctx, store.Filter{}, store.All)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)

	b, err := f.store.GetBatch(ctx, out.BatchID)
	require.NoError(t, err)
	assert.Equal(t, store.TriggerDryRun, b.Trigger)
	assert.Equal(t, store.BatchPartial, b.Status)

	for _, r := range out.Results {
		if !r.Failed() {
			assert.Equal(t, syncer.ActionDryRun, r.Action)
		}
	}
}

func TestSync_PerRecordFailureIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	seedCountry(t, f.store, "462", "England", "GB")

	f.prov.EXPECT().GetLeagues(gomock.Any()).Return([]provider.League{
		{ExternalID: "8", CountryExternalID: "462", Name: "Premier League"},
		{ExternalID: "9", CountryExternalID: "462", Name: "Championship"},
		{ExternalID: "564", CountryExternalID: "32", Name: "La Liga"},
		{ExternalID: "1", Name: ""},
	}, nil)

	out, err := f.sync.Sync(ctx, store.KindLeagues, syncer.Scope{}, syncer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.OK)
	assert.Equal(t, 2, out.Fail)
	assert.Equal(t, 4, out.Total)

	kinds := map[string]string{}
	for _, r := range out.Results {
		kinds[r.ExternalID] = r.ErrorKind
	}
	assert.Equal(t, "constraint", kinds["564"])
	assert.Equal(t, "validation", kinds["1"])
	assert.Empty(t, kinds["8"])

	b, err := f.store.GetBatch(ctx, out.BatchID)
	require.NoError(t, err)
	assert.Equal(t, store.BatchPartial, b.Status)
	assert.Equal(t, 2, b.ItemsFailed)

	items, _, err := f.store.ListBatchItems(ctx, out.BatchID, store.All)
	require.NoError(t, err)
	for _, it := range items {
		if it.ItemKey == "564" {
			require.NotNil(t, it.ErrorMessage)
			assert.Contains(t, *it.ErrorMessage, `country "32" not found`)
		}
	}

	_, leagues, err := f.store.ListLeagues(ctx, store.Filter{}, store.All)
	require.NoError(t, err)
	assert.Equal(t, 2, leagues)
}

func TestSync_StoreErrorsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, syncer.WithWorkers(8))
	f.hook.before = func(_ context.Context, _ store.Kind, ext string) error {
		n, _ := strconv.Atoi(ext)
		if n%10 == 0 {
			return &store.ConstraintError{Constraint: "bookmakers_name_key", Detail: "duplicate"}
		}
		return nil
	}

	bookmakers := make([]provider.Bookmaker, 0, 200)
	for i := 1; i <= 200; i++ {
		bookmakers = append(bookmakers, provider.Bookmaker{ExternalID: strconv.Itoa(i), Name: fmt.Sprintf("Book %03d", i)})
	}
	f.prov.EXPECT().GetBookmakers(gomock.Any()).Return(bookmakers, nil)

	out, err := f.sync.Sync(ctx, store.KindBookmakers, syncer.Scope{}, syncer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 180, out.OK)
	assert.Equal(t, 20, out.Fail)
	assert.Equal(t, 200, out.Total)
	assert.Len(t, out.Results, 200)

	b, err := f.store.GetBatch(ctx, out.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 200, b.ItemsTotal)
	assert.Equal(t, 20, b.ItemsFailed)
	assert.Equal(t, 180, b.ItemsSuccess)
}

func TestSync_CancellationStopsScheduling(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, syncer.WithWorkers(1))
	f.hook.before = func(context.Context, store.Kind, string) error {
		cancel()
		return nil
	}

	countries := make([]provider.Country, 0, 10)
	for i := 1; i <= 10; i++ {
		countries = append(countries, provider.Country{ExternalID: strconv.Itoa(i), Name: fmt.Sprintf("Country %02d", i), ISO2: "C" + strconv.Itoa(i%10), ISO3: "CCC"})
	}
	f.prov.EXPECT().GetCountries(gomock.Any()).Return(countries, nil)

	_, err := f.sync.Sync(ctx, store.KindCountries, syncer.Scope{}, syncer.Options{})
	require.ErrorIs(t, err, context.Canceled)

	batches, err := f.store.ListBatches(context.Background(), "seed-countries", 1)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	b := batches[0]
	require.NotNil(t, b.FinishedAt)
	assert.NotEqual(t, store.BatchRunning, b.Status)
	assert.Positive(t, b.ItemsTotal)
	assert.Less(t, b.ItemsTotal, 10)
	assert.Equal(t, b.ItemsTotal, b.ItemsSuccess+b.ItemsFailed)

	ids, err := f.store.ExternalIDs(context.Background(), store.KindCountries)
	require.NoError(t, err)
	assert.Less(t, len(ids), 10)
}

func TestSync_ProviderUnavailableIsStepLevel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.prov.EXPECT().GetSeasons(gomock.Any()).Return(nil, fmt.Errorf("%w: 503", provider.ErrUnavailable))

	_, err := f.sync.Sync(ctx, store.KindSeasons, syncer.Scope{}, syncer.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnavailable)
	assert.Equal(t, "provider_unavailable", syncer.ErrorKind(err))

	batches, err := f.store.ListBatches(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestSync_TargetedRecordAlwaysProcessed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	seedCountry(t, f.store, "2", "Brazil", "BR")

	f.prov.EXPECT().GetCountry(gomock.Any(), "2").Return(provider.Country{ExternalID: "2", Name: "Brazil", ISO2: "BR", ISO3: "BRX"}, nil)

	out, err := f.sync.Sync(ctx, store.KindCountries, syncer.Scope{ExternalID: "2"}, syncer.Options{})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, store.Unchanged, out.Results[0].Action)
}

func TestSync_TargetedRecordNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.prov.EXPECT().GetTeam(gomock.Any(), "404").Return(provider.Team{}, provider.ErrNotFound)

	_, err := f.sync.Sync(context.Background(), store.KindTeams, syncer.Scope{ExternalID: "404"}, syncer.Options{})
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestSync_FixturesDefaultToLocalSeasons(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, syncer.WithClock(func() time.Time { return now }))

	seedCountry(t, f.store, "462", "England", "GB")
	ids, err := f.store.ExternalIDs(ctx, store.KindCountries)
	require.NoError(t, err)
	countryID := ids["462"]
	_, err = f.store.UpsertLeague(ctx, store.LeagueInput{ExternalID: "8", CountryID: &countryID, Name: "Premier League"})
	require.NoError(t, err)
	leagues, err := f.store.ExternalIDs(ctx, store.KindLeagues)
	require.NoError(t, err)
	_, err = f.store.UpsertSeason(ctx, store.SeasonInput{ExternalID: "25583", LeagueID: leagues["8"], Name: "2025/2026"})
	require.NoError(t, err)
	for _, ext := range []string{"1", "2"} {
		_, err = f.store.UpsertTeam(ctx, store.TeamInput{ExternalID: ext, Name: "Team " + ext})
		require.NoError(t, err)
	}

	kickoff := now.Add(72 * time.Hour)
	f.prov.EXPECT().
		GetFixtures(gomock.Any(), provider.FixtureScope{SeasonExternalIDs: []string{"25583"}}).
		Return([]provider.Fixture{
			{ExternalID: "100", LeagueExternalID: "8", SeasonExternalID: "25583", HomeTeamExternalID: "1", AwayTeamExternalID: "2", Name: "Team 1 vs Team 2", StartingAt: &kickoff},
			{ExternalID: "101", SeasonExternalID: "25583", HomeTeamExternalID: "1", AwayTeamExternalID: "", Name: "TBD"},
		}, nil)

	out, err := f.sync.Sync(ctx, store.KindFixtures, syncer.Scope{}, syncer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.OK)
	assert.Equal(t, 1, out.Fail)

	for _, r := range out.Results {
		if r.ExternalID == "100" {
			assert.Equal(t, reconcile.StatusNew, r.Status)
			assert.Equal(t, store.Inserted, r.Action)
		}
	}
}

func TestSync_FixturesWithoutSeasonsSkipProvider(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, err := f.sync.Sync(context.Background(), store.KindFixtures, syncer.Scope{}, syncer.Options{})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
}

func TestSync_UnknownKind(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.sync.Sync(context.Background(), store.Kind("players"), syncer.Scope{}, syncer.Options{})
	assert.ErrorIs(t, err, store.ErrUnknownKind)
}

func TestDiff_DoesNotWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	seedCountry(t, f.store, "9", "Atlantis", "AT")

	f.prov.EXPECT().GetCountries(gomock.Any()).Return([]provider.Country{{ExternalID: "1", Name: "Argentina"}}, nil)

	views, err := f.sync.Diff(ctx, store.KindCountries, syncer.Scope{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	counts := reconcile.CountViews(views)
	assert.Equal(t, 1, counts[reconcile.StatusMissingInDB])
	assert.Equal(t, 1, counts[reconcile.StatusExtraInDB])

	batches, err := f.store.ListBatches(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.prov.EXPECT().GetBookmaker(gomock.Any(), "2").Return(provider.Bookmaker{ExternalID: "2", Name: "bet365"}, nil)
	got, err := f.sync.Fetch(ctx, store.KindBookmakers, syncer.Scope{ExternalID: "2"})
	require.NoError(t, err)
	assert.Equal(t, []provider.Bookmaker{{ExternalID: "2", Name: "bet365"}}, got)

	f.prov.EXPECT().GetCountries(gomock.Any()).Return(nil, provider.ErrUnavailable)
	_, err = f.sync.Fetch(ctx, store.KindCountries, syncer.Scope{})
	assert.ErrorIs(t, err, provider.ErrUnavailable)

	_, err = f.sync.Fetch(ctx, store.Kind("players"), syncer.Scope{})
	assert.ErrorIs(t, err, store.ErrUnknownKind)
}

func TestNormalizeFixtureScope(t *testing.T) {
	t.Parallel()
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)

	got := syncer.NormalizeFixtureScope(syncer.Scope{SeasonExternalIDs: []string{"1"}, From: &from, To: &to})
	assert.Nil(t, got.From)
	assert.Nil(t, got.To)

	got = syncer.NormalizeFixtureScope(syncer.Scope{From: &from})
	require.NotNil(t, got.To)
	assert.True(t, got.To.Equal(from))
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", syncer.ErrorKind(nil))
	assert.Equal(t, "validation", syncer.ErrorKind(&syncer.ValidationError{Field: "name", Reason: "required"}))
	assert.Equal(t, "constraint", syncer.ErrorKind(fmt.Errorf("wrap: %w", store.MissingParent(store.KindTeams, "5"))))
	assert.Equal(t, "internal", syncer.ErrorKind(errors.New("boom")))
}
