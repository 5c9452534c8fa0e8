package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/reconcile"
	"github.com/albapepper/scoracle-sync/internal/store"
)

func dbCountry(ext, name, iso2, iso3 string, leagues int) store.Country {
	return store.Country{ExternalID: ext, Name: name, ISO2: iso2, ISO3: iso3, LeagueCount: leagues}
}

func provCountry(ext, name, iso2, iso3 string) provider.Country {
	return provider.Country{ExternalID: ext, Name: name, ISO2: iso2, ISO3: iso3}
}

func byID[D, P any](records []reconcile.Unified[D, P]) map[string]reconcile.Unified[D, P] {
	out := make(map[string]reconcile.Unified[D, P], len(records))
	for _, r := range records {
		out[r.ExternalID] = r
	}
	return out
}

func TestUnify_Completeness(t *testing.T) {
	t.Parallel()

	db := []store.Country{
		dbCountry("1", "Spain", "ES", "ESP", 3),
		dbCountry("2", "France", "FR", "FRA", 1),
		dbCountry("9", "Atlantis", "AT", "ATL", 0),
	}
	prov := []provider.Country{
		provCountry("1", "Spain", "ES", "ESP"),
		provCountry("2", "France", "FR", "FRX"),
		provCountry("3", "Italy", "IT", "ITA"),
	}

	got := reconcile.Unify(db, prov, reconcile.CountrySpec())
	require.Len(t, got, 4)

	m := byID(got)
	assert.Equal(t, reconcile.StatusOK, m["1"].Status)
	assert.Equal(t, reconcile.SourceBoth, m["1"].Source)
	assert.Equal(t, reconcile.StatusMismatch, m["2"].Status)
	assert.Equal(t, []string{"iso3"}, m["2"].Diff)
	assert.Equal(t, reconcile.StatusMissingInDB, m["3"].Status)
	assert.Equal(t, reconcile.SourceProvider, m["3"].Source)
	assert.Nil(t, m["3"].DB)
	assert.Equal(t, reconcile.StatusExtraInDB, m["9"].Status)
	assert.Equal(t, reconcile.SourceDB, m["9"].Source)
	assert.Nil(t, m["9"].Provider)

	for _, r := range got {
		assert.True(t, r.DB != nil || r.Provider != nil, "record %s has neither side", r.ExternalID)
	}
}

func TestUnify_CaseInsensitiveCodes(t *testing.T) {
	t.Parallel()

	db := []store.Country{dbCountry("32", "Spain", "ES", "ESP", 2)}
	prov := []provider.Country{provCountry("32", "Spain", "es", " esp ")}

	got := reconcile.Unify(db, prov, reconcile.CountrySpec())
	require.Len(t, got, 1)
	assert.Equal(t, reconcile.StatusOK, got[0].Status)
	assert.Empty(t, got[0].Diff)
}

func TestUnify_NamesAreExactAfterTrim(t *testing.T) {
	t.Parallel()

	db := []store.Country{dbCountry("1", "  Spain ", "ES", "ESP", 1), dbCountry("2", "france", "FR", "FRA", 1)}
	prov := []provider.Country{provCountry("1", "Spain", "ES", "ESP"), provCountry("2", "France", "FR", "FRA")}

	m := byID(reconcile.Unify(db, prov, reconcile.CountrySpec()))
	assert.Equal(t, reconcile.StatusOK, m["1"].Status)
	assert.Equal(t, reconcile.StatusMismatch, m["2"].Status)
	assert.Equal(t, []string{"name"}, m["2"].Diff)
}

func TestUnify_StatusPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		db   store.Country
		prov provider.Country
		want reconcile.Status
	}{
		{
			name: "mismatch beats iso-missing",
			db:   dbCountry("1", "Old", "", "", 0),
			prov: provCountry("1", "New", "", ""),
			want: reconcile.StatusMismatch,
		},
		{
			name: "iso-missing beats no-leagues",
			db:   dbCountry("1", "Kosovo", "XK", "", 0),
			prov: provCountry("1", "Kosovo", "XK", ""),
			want: reconcile.StatusISOMissing,
		},
		{
			name: "no-leagues when otherwise ok",
			db:   dbCountry("1", "Andorra", "AD", "AND", 0),
			prov: provCountry("1", "Andorra", "AD", "AND"),
			want: reconcile.StatusNoLeagues,
		},
		{
			name: "ok with leagues and codes",
			db:   dbCountry("1", "Andorra", "AD", "AND", 1),
			prov: provCountry("1", "Andorra", "AD", "AND"),
			want: reconcile.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reconcile.Unify([]store.Country{tt.db}, []provider.Country{tt.prov}, reconcile.CountrySpec())
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Status)
		})
	}
}

func TestUnify_ExtraInDBIgnoresAdvisories(t *testing.T) {
	t.Parallel()

	got := reconcile.Unify([]store.Country{dbCountry("5", "Nowhere", "", "", 0)}, nil, reconcile.CountrySpec())
	require.Len(t, got, 1)
	assert.Equal(t, reconcile.StatusExtraInDB, got[0].Status)
}

func TestUnify_Ordering(t *testing.T) {
	t.Parallel()

	db := []store.Country{dbCountry("20", "brazil", "BR", "BRA", 1)}
	prov := []provider.Country{
		provCountry("30", "Chile", "CL", "CHL"),
		provCountry("11", "Argentina", "AR", "ARG"),
		provCountry("10", "Argentina", "AR", "ARG"),
		provCountry("20", "brazil", "BR", "BRA"),
	}

	got := reconcile.Unify(db, prov, reconcile.CountrySpec())
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ExternalID)
	}
	assert.Equal(t, []string{"10", "11", "20", "30"}, ids)
}

func TestUnify_SkipsBlankKeysAndDeduplicates(t *testing.T) {
	t.Parallel()

	prov := []provider.Country{
		provCountry("", "Ghost", "GH", "GHO"),
		provCountry("1", "First", "AA", "AAA"),
		provCountry("1", "Second", "AA", "AAA"),
	}
	got := reconcile.Unify(nil, prov, reconcile.CountrySpec())
	require.Len(t, got, 1)
	assert.Equal(t, "Second", got[0].Name)
}

func TestUnify_NewForUpcomingRecords(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	fixtures := reconcile.Unify(nil, []provider.Fixture{
		{ExternalID: "1", Name: "A vs B", StartingAt: &past},
		{ExternalID: "2", Name: "C vs D", StartingAt: &future},
	}, reconcile.FixtureSpec(now))
	m := byID(fixtures)
	assert.Equal(t, reconcile.StatusMissingInDB, m["1"].Status)
	assert.Equal(t, reconcile.StatusNew, m["2"].Status)

	seasons := reconcile.Unify(nil, []provider.Season{
		{ExternalID: "7", Name: "2027/2028", Pending: true},
	}, reconcile.SeasonSpec())
	require.Len(t, seasons, 1)
	assert.Equal(t, reconcile.StatusNew, seasons[0].Status)
}

func TestUnify_ParentComparedByExternalID(t *testing.T) {
	t.Parallel()

	countryID := int64(77)
	db := []store.League{{ExternalID: "8", CountryID: &countryID, CountryExternalID: "462", Name: "Premier League", ShortCode: "UK PL", Active: true}}
	prov := []provider.League{{ExternalID: "8", CountryExternalID: "462", Name: "Premier League", ShortCode: "uk pl", Active: true}}

	got := reconcile.Unify(db, prov, reconcile.LeagueSpec())
	require.Len(t, got, 1)
	assert.Equal(t, reconcile.StatusOK, got[0].Status)

	prov[0].CountryExternalID = "41"
	got = reconcile.Unify(db, prov, reconcile.LeagueSpec())
	assert.Equal(t, reconcile.StatusMismatch, got[0].Status)
	assert.Equal(t, []string{"countryExternalId"}, got[0].Diff)
}

func TestCountsAndFilter(t *testing.T) {
	t.Parallel()

	got := reconcile.Unify(
		[]store.Bookmaker{{ExternalID: "1", Name: "bet365"}, {ExternalID: "3", Name: "Gone"}},
		[]provider.Bookmaker{{ExternalID: "1", Name: "bet365"}, {ExternalID: "2", Name: "Pinnacle"}},
		reconcile.BookmakerSpec(),
	)

	counts := reconcile.Counts(got)
	assert.Equal(t, 1, counts[reconcile.StatusOK])
	assert.Equal(t, 1, counts[reconcile.StatusMissingInDB])
	assert.Equal(t, 1, counts[reconcile.StatusExtraInDB])

	missing := reconcile.Filter(got, reconcile.StatusMissingInDB)
	require.Len(t, missing, 1)
	assert.Equal(t, "2", missing[0].ExternalID)
	assert.Len(t, reconcile.Filter(got), 3)
}
