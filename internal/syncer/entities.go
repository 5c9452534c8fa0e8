package syncer

import (
	"context"
	"strings"
	"time"

	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/reconcile"
	"github.com/albapepper/scoracle-sync/internal/store"
)

// --------------------------------------------------------------------------
// Countries
// --------------------------------------------------------------------------

func (s *Syncer) countries() entity[store.Country, provider.Country, store.CountryInput] {
	return entity[store.Country, provider.Country, store.CountryInput]{
		kind: store.KindCountries,
		fetch: func(ctx context.Context, _ Scope) ([]provider.Country, error) {
			return s.provider.GetCountries(ctx)
		},
		fetchOne: s.provider.GetCountry,
		list: func(ctx context.Context, scope Scope) ([]store.Country, error) {
			rows, _, err := s.store.ListCountries(ctx, store.Filter{ExternalID: scope.ExternalID}, store.All)
			return rows, err
		},
		spec: reconcile.CountrySpec(),
		prepare: func(p provider.Country, _ refs) (store.CountryInput, error) {
			if err := requireText("externalId", p.ExternalID, "name", p.Name); err != nil {
				return store.CountryInput{}, err
			}
			return store.CountryInput{
				ExternalID:   trim(p.ExternalID),
				Name:         trim(p.Name),
				OfficialName: trim(p.OfficialName),
				ISO2:         trim(p.ISO2),
				ISO3:         trim(p.ISO3),
				ImagePath:    trim(p.ImagePath),
			}, nil
		},
		upsert: s.store.UpsertCountry,
	}
}

// --------------------------------------------------------------------------
// Leagues
// --------------------------------------------------------------------------

func (s *Syncer) leagues() entity[store.League, provider.League, store.LeagueInput] {
	return entity[store.League, provider.League, store.LeagueInput]{
		kind: store.KindLeagues,
		fetch: func(ctx context.Context, _ Scope) ([]provider.League, error) {
			return s.provider.GetLeagues(ctx)
		},
		fetchOne: s.provider.GetLeague,
		list: func(ctx context.Context, scope Scope) ([]store.League, error) {
			rows, _, err := s.store.ListLeagues(ctx, store.Filter{ExternalID: scope.ExternalID}, store.All)
			return rows, err
		},
		spec:    reconcile.LeagueSpec(),
		parents: []store.Kind{store.KindCountries},
		prepare: func(p provider.League, r refs) (store.LeagueInput, error) {
			if err := requireText("externalId", p.ExternalID, "name", p.Name); err != nil {
				return store.LeagueInput{}, err
			}
			countryID, err := optionalRef(r, store.KindCountries, p.CountryExternalID)
			if err != nil {
				return store.LeagueInput{}, err
			}
			return store.LeagueInput{
				ExternalID: trim(p.ExternalID),
				CountryID:  countryID,
				Name:       trim(p.Name),
				ShortCode:  trim(p.ShortCode),
				Type:       trim(p.Type),
				ImagePath:  trim(p.ImagePath),
				Active:     p.Active,
			}, nil
		},
		upsert: s.store.UpsertLeague,
	}
}

// --------------------------------------------------------------------------
// Seasons
// --------------------------------------------------------------------------

func (s *Syncer) seasons() entity[store.Season, provider.Season, store.SeasonInput] {
	return entity[store.Season, provider.Season, store.SeasonInput]{
		kind: store.KindSeasons,
		fetch: func(ctx context.Context, _ Scope) ([]provider.Season, error) {
			return s.provider.GetSeasons(ctx)
		},
		fetchOne: s.provider.GetSeason,
		list: func(ctx context.Context, scope Scope) ([]store.Season, error) {
			rows, _, err := s.store.ListSeasons(ctx, store.Filter{ExternalID: scope.ExternalID}, store.All)
			return rows, err
		},
		spec:    reconcile.SeasonSpec(),
		parents: []store.Kind{store.KindLeagues},
		prepare: func(p provider.Season, r refs) (store.SeasonInput, error) {
			if err := requireText("externalId", p.ExternalID, "name", p.Name, "leagueExternalId", p.LeagueExternalID); err != nil {
				return store.SeasonInput{}, err
			}
			leagueID, err := r.resolve(store.KindLeagues, trim(p.LeagueExternalID))
			if err != nil {
				return store.SeasonInput{}, err
			}
			if p.StartingAt != nil && p.EndingAt != nil && p.EndingAt.Before(*p.StartingAt) {
				return store.SeasonInput{}, &ValidationError{Field: "endingAt", Reason: "before startingAt"}
			}
			return store.SeasonInput{
				ExternalID: trim(p.ExternalID),
				LeagueID:   leagueID,
				Name:       trim(p.Name),
				IsCurrent:  p.IsCurrent,
				Finished:   p.Finished,
				Pending:    p.Pending,
				StartingAt: p.StartingAt,
				EndingAt:   p.EndingAt,
			}, nil
		},
		upsert: s.store.UpsertSeason,
	}
}

// --------------------------------------------------------------------------
// Teams
// --------------------------------------------------------------------------

func (s *Syncer) teams() entity[store.Team, provider.Team, store.TeamInput] {
	return entity[store.Team, provider.Team, store.TeamInput]{
		kind: store.KindTeams,
		fetch: func(ctx context.Context, scope Scope) ([]provider.Team, error) {
			return s.provider.GetTeams(ctx, provider.TeamScope{SeasonExternalIDs: scope.SeasonExternalIDs})
		},
		fetchOne: s.provider.GetTeam,
		list: func(ctx context.Context, scope Scope) ([]store.Team, error) {
			rows, _, err := s.store.ListTeams(ctx, store.Filter{ExternalID: scope.ExternalID}, store.All)
			return rows, err
		},
		spec:    reconcile.TeamSpec(),
		parents: []store.Kind{store.KindCountries},
		prepare: func(p provider.Team, r refs) (store.TeamInput, error) {
			if err := requireText("externalId", p.ExternalID, "name", p.Name); err != nil {
				return store.TeamInput{}, err
			}
			countryID, err := optionalRef(r, store.KindCountries, p.CountryExternalID)
			if err != nil {
				return store.TeamInput{}, err
			}
			return store.TeamInput{
				ExternalID: trim(p.ExternalID),
				CountryID:  countryID,
				Name:       trim(p.Name),
				ShortCode:  trim(p.ShortCode),
				Type:       trim(p.Type),
				ImagePath:  trim(p.ImagePath),
				Founded:    p.Founded,
			}, nil
		},
		upsert: s.store.UpsertTeam,
	}
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

func (s *Syncer) fixtures() entity[store.Fixture, provider.Fixture, store.FixtureInput] {
	return entity[store.Fixture, provider.Fixture, store.FixtureInput]{
		kind: store.KindFixtures,
		fetch: func(ctx context.Context, scope Scope) ([]provider.Fixture, error) {
			if len(scope.SeasonExternalIDs) == 0 && scope.From == nil {
				return nil, nil
			}
			return s.provider.GetFixtures(ctx, provider.FixtureScope{
				SeasonExternalIDs: scope.SeasonExternalIDs,
				From:              scope.From,
				To:                scope.To,
			})
		},
		fetchOne: s.provider.GetFixture,
		list: func(ctx context.Context, scope Scope) ([]store.Fixture, error) {
			rows, _, err := s.store.ListFixtures(ctx, store.Filter{
				ExternalID:        scope.ExternalID,
				SeasonExternalIDs: scope.SeasonExternalIDs,
				From:              scope.From,
				To:                endOfDay(scope.To),
			}, store.All)
			return rows, err
		},
		spec:    reconcile.FixtureSpec(s.now()),
		parents: []store.Kind{store.KindLeagues, store.KindSeasons, store.KindTeams},
		prepare: func(p provider.Fixture, r refs) (store.FixtureInput, error) {
			if err := requireText(
				"externalId", p.ExternalID,
				"seasonExternalId", p.SeasonExternalID,
				"homeTeamExternalId", p.HomeTeamExternalID,
				"awayTeamExternalId", p.AwayTeamExternalID,
			); err != nil {
				return store.FixtureInput{}, err
			}
			if trim(p.HomeTeamExternalID) == trim(p.AwayTeamExternalID) {
				return store.FixtureInput{}, &ValidationError{Field: "awayTeamExternalId", Reason: "same as home team"}
			}
			seasonID, err := r.resolve(store.KindSeasons, trim(p.SeasonExternalID))
			if err != nil {
				return store.FixtureInput{}, err
			}
			homeID, err := r.resolve(store.KindTeams, trim(p.HomeTeamExternalID))
			if err != nil {
				return store.FixtureInput{}, err
			}
			awayID, err := r.resolve(store.KindTeams, trim(p.AwayTeamExternalID))
			if err != nil {
				return store.FixtureInput{}, err
			}
			leagueID, err := optionalRef(r, store.KindLeagues, p.LeagueExternalID)
			if err != nil {
				return store.FixtureInput{}, err
			}
			return store.FixtureInput{
				ExternalID: trim(p.ExternalID),
				LeagueID:   leagueID,
				SeasonID:   seasonID,
				HomeTeamID: homeID,
				AwayTeamID: awayID,
				Name:       trim(p.Name),
				StartingAt: p.StartingAt,
				State:      trim(p.State),
				ResultInfo: trim(p.ResultInfo),
				HomeScore:  p.HomeScore,
				AwayScore:  p.AwayScore,
			}, nil
		},
		upsert: s.store.UpsertFixture,
	}
}

// NormalizeFixtureScope drops the window when seasons are named and closes a
// half-open window to a single day.
func NormalizeFixtureScope(scope Scope) Scope {
	if len(scope.SeasonExternalIDs) > 0 {
		scope.From, scope.To = nil, nil
		return scope
	}
	switch {
	case scope.From != nil && scope.To == nil:
		scope.To = scope.From
	case scope.To != nil && scope.From == nil:
		scope.From = scope.To
	}
	return scope
}

// --------------------------------------------------------------------------
// Bookmakers
// --------------------------------------------------------------------------

func (s *Syncer) bookmakers() entity[store.Bookmaker, provider.Bookmaker, store.BookmakerInput] {
	return entity[store.Bookmaker, provider.Bookmaker, store.BookmakerInput]{
		kind: store.KindBookmakers,
		fetch: func(ctx context.Context, _ Scope) ([]provider.Bookmaker, error) {
			return s.provider.GetBookmakers(ctx)
		},
		fetchOne: s.provider.GetBookmaker,
		list: func(ctx context.Context, scope Scope) ([]store.Bookmaker, error) {
			rows, _, err := s.store.ListBookmakers(ctx, store.Filter{ExternalID: scope.ExternalID}, store.All)
			return rows, err
		},
		spec: reconcile.BookmakerSpec(),
		prepare: func(p provider.Bookmaker, _ refs) (store.BookmakerInput, error) {
			if err := requireText("externalId", p.ExternalID, "name", p.Name); err != nil {
				return store.BookmakerInput{}, err
			}
			return store.BookmakerInput{ExternalID: trim(p.ExternalID), Name: trim(p.Name)}, nil
		},
		upsert: s.store.UpsertBookmaker,
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func trim(s string) string { return strings.TrimSpace(s) }

// requireText takes field/value pairs and rejects the first blank value.
func requireText(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if trim(pairs[i+1]) == "" {
			return required(pairs[i])
		}
	}
	return nil
}

// endOfDay widens a date bound to cover the whole day, matching the
// provider's inclusive date windows.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)
	return &end
}

// optionalRef resolves a parent reference that may be absent.
func optionalRef(r refs, kind store.Kind, externalID string) (*int64, error) {
	externalID = trim(externalID)
	if externalID == "" {
		return nil, nil
	}
	id, err := r.resolve(kind, externalID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
