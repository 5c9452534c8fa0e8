package reconcile

import (
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/store"
)

type (
	CountryRecord   = Unified[store.Country, provider.Country]
	LeagueRecord    = Unified[store.League, provider.League]
	SeasonRecord    = Unified[store.Season, provider.Season]
	TeamRecord      = Unified[store.Team, provider.Team]
	FixtureRecord   = Unified[store.Fixture, provider.Fixture]
	BookmakerRecord = Unified[store.Bookmaker, provider.Bookmaker]
)

// CountrySpec compares countries. ISO codes are case-insensitive. A country
// that otherwise matches is flagged iso-missing when the provider lacks a code,
// then no-leagues when no local league references it.
func CountrySpec() Spec[store.Country, provider.Country] {
	return Spec[store.Country, provider.Country]{
		DBKey:        func(c store.Country) string { return c.ExternalID },
		ProviderKey:  func(c provider.Country) string { return c.ExternalID },
		DBName:       func(c store.Country) string { return c.Name },
		ProviderName: func(c provider.Country) string { return c.Name },
		UpdatedAt:    func(c store.Country) time.Time { return c.UpdatedAt },
		Fields: []Field[store.Country, provider.Country]{
			{Name: "name", DB: func(c store.Country) string { return c.Name }, Provider: func(c provider.Country) string { return c.Name }},
			{Name: "officialName", DB: func(c store.Country) string { return c.OfficialName }, Provider: func(c provider.Country) string { return c.OfficialName }},
			{Name: "iso2", DB: func(c store.Country) string { return c.ISO2 }, Provider: func(c provider.Country) string { return c.ISO2 }, Fold: true},
			{Name: "iso3", DB: func(c store.Country) string { return c.ISO3 }, Provider: func(c provider.Country) string { return c.ISO3 }, Fold: true},
			{Name: "imagePath", DB: func(c store.Country) string { return c.ImagePath }, Provider: func(c provider.Country) string { return c.ImagePath }},
		},
		Advisory: func(u CountryRecord) (Status, bool) {
			if u.Provider != nil && (blank(u.Provider.ISO2) || blank(u.Provider.ISO3)) {
				return StatusISOMissing, true
			}
			if u.DB != nil && u.DB.LeagueCount == 0 {
				return StatusNoLeagues, true
			}
			return "", false
		},
	}
}

// LeagueSpec compares leagues; the country is compared by external id.
func LeagueSpec() Spec[store.League, provider.League] {
	return Spec[store.League, provider.League]{
		DBKey:        func(l store.League) string { return l.ExternalID },
		ProviderKey:  func(l provider.League) string { return l.ExternalID },
		DBName:       func(l store.League) string { return l.Name },
		ProviderName: func(l provider.League) string { return l.Name },
		UpdatedAt:    func(l store.League) time.Time { return l.UpdatedAt },
		Fields: []Field[store.League, provider.League]{
			{Name: "name", DB: func(l store.League) string { return l.Name }, Provider: func(l provider.League) string { return l.Name }},
			{Name: "countryExternalId", DB: func(l store.League) string { return l.CountryExternalID }, Provider: func(l provider.League) string { return l.CountryExternalID }},
			{Name: "shortCode", DB: func(l store.League) string { return l.ShortCode }, Provider: func(l provider.League) string { return l.ShortCode }, Fold: true},
			{Name: "type", DB: func(l store.League) string { return l.Type }, Provider: func(l provider.League) string { return l.Type }},
			{Name: "imagePath", DB: func(l store.League) string { return l.ImagePath }, Provider: func(l provider.League) string { return l.ImagePath }},
			{Name: "active", DB: func(l store.League) string { return fmtBool(l.Active) }, Provider: func(l provider.League) string { return fmtBool(l.Active) }},
		},
	}
}

// SeasonSpec compares seasons. Pending provider-only seasons are new.
func SeasonSpec() Spec[store.Season, provider.Season] {
	return Spec[store.Season, provider.Season]{
		DBKey:        func(s store.Season) string { return s.ExternalID },
		ProviderKey:  func(s provider.Season) string { return s.ExternalID },
		DBName:       func(s store.Season) string { return s.Name },
		ProviderName: func(s provider.Season) string { return s.Name },
		UpdatedAt:    func(s store.Season) time.Time { return s.UpdatedAt },
		Upcoming:     func(s provider.Season) bool { return s.Pending },
		Fields: []Field[store.Season, provider.Season]{
			{Name: "name", DB: func(s store.Season) string { return s.Name }, Provider: func(s provider.Season) string { return s.Name }},
			{Name: "leagueExternalId", DB: func(s store.Season) string { return s.LeagueExternalID }, Provider: func(s provider.Season) string { return s.LeagueExternalID }},
			{Name: "isCurrent", DB: func(s store.Season) string { return fmtBool(s.IsCurrent) }, Provider: func(s provider.Season) string { return fmtBool(s.IsCurrent) }},
			{Name: "finished", DB: func(s store.Season) string { return fmtBool(s.Finished) }, Provider: func(s provider.Season) string { return fmtBool(s.Finished) }},
			{Name: "pending", DB: func(s store.Season) string { return fmtBool(s.Pending) }, Provider: func(s provider.Season) string { return fmtBool(s.Pending) }},
			{Name: "startingAt", DB: func(s store.Season) string { return fmtDate(s.StartingAt) }, Provider: func(s provider.Season) string { return fmtDate(s.StartingAt) }},
			{Name: "endingAt", DB: func(s store.Season) string { return fmtDate(s.EndingAt) }, Provider: func(s provider.Season) string { return fmtDate(s.EndingAt) }},
		},
	}
}

// TeamSpec compares teams; the country is compared by external id.
func TeamSpec() Spec[store.Team, provider.Team] {
	return Spec[store.Team, provider.Team]{
		DBKey:        func(t store.Team) string { return t.ExternalID },
		ProviderKey:  func(t provider.Team) string { return t.ExternalID },
		DBName:       func(t store.Team) string { return t.Name },
		ProviderName: func(t provider.Team) string { return t.Name },
		UpdatedAt:    func(t store.Team) time.Time { return t.UpdatedAt },
		Fields: []Field[store.Team, provider.Team]{
			{Name: "name", DB: func(t store.Team) string { return t.Name }, Provider: func(t provider.Team) string { return t.Name }},
			{Name: "countryExternalId", DB: func(t store.Team) string { return t.CountryExternalID }, Provider: func(t provider.Team) string { return t.CountryExternalID }},
			{Name: "shortCode", DB: func(t store.Team) string { return t.ShortCode }, Provider: func(t provider.Team) string { return t.ShortCode }, Fold: true},
			{Name: "type", DB: func(t store.Team) string { return t.Type }, Provider: func(t provider.Team) string { return t.Type }},
			{Name: "imagePath", DB: func(t store.Team) string { return t.ImagePath }, Provider: func(t provider.Team) string { return t.ImagePath }},
			{Name: "founded", DB: func(t store.Team) string { return fmtInt(t.Founded) }, Provider: func(t provider.Team) string { return fmtInt(t.Founded) }},
		},
	}
}

// FixtureSpec compares fixtures. Provider-only fixtures starting after now
// are new.
func FixtureSpec(now time.Time) Spec[store.Fixture, provider.Fixture] {
	return Spec[store.Fixture, provider.Fixture]{
		DBKey:        func(f store.Fixture) string { return f.ExternalID },
		ProviderKey:  func(f provider.Fixture) string { return f.ExternalID },
		DBName:       func(f store.Fixture) string { return f.Name },
		ProviderName: func(f provider.Fixture) string { return f.Name },
		UpdatedAt:    func(f store.Fixture) time.Time { return f.UpdatedAt },
		Upcoming:     func(f provider.Fixture) bool { return f.StartingAt != nil && f.StartingAt.After(now) },
		Fields: []Field[store.Fixture, provider.Fixture]{
			{Name: "name", DB: func(f store.Fixture) string { return f.Name }, Provider: func(f provider.Fixture) string { return f.Name }},
			{Name: "leagueExternalId", DB: func(f store.Fixture) string { return f.LeagueExternalID }, Provider: func(f provider.Fixture) string { return f.LeagueExternalID }},
			{Name: "seasonExternalId", DB: func(f store.Fixture) string { return f.SeasonExternalID }, Provider: func(f provider.Fixture) string { return f.SeasonExternalID }},
			{Name: "homeTeamExternalId", DB: func(f store.Fixture) string { return f.HomeTeamExternalID }, Provider: func(f provider.Fixture) string { return f.HomeTeamExternalID }},
			{Name: "awayTeamExternalId", DB: func(f store.Fixture) string { return f.AwayTeamExternalID }, Provider: func(f provider.Fixture) string { return f.AwayTeamExternalID }},
			{Name: "startingAt", DB: func(f store.Fixture) string { return fmtTime(f.StartingAt) }, Provider: func(f provider.Fixture) string { return fmtTime(f.StartingAt) }},
			{Name: "state", DB: func(f store.Fixture) string { return f.State }, Provider: func(f provider.Fixture) string { return f.State }, Fold: true},
			{Name: "resultInfo", DB: func(f store.Fixture) string { return f.ResultInfo }, Provider: func(f provider.Fixture) string { return f.ResultInfo }},
			{Name: "homeScore", DB: func(f store.Fixture) string { return fmtScore(f.HomeScore) }, Provider: func(f provider.Fixture) string { return fmtScore(f.HomeScore) }},
			{Name: "awayScore", DB: func(f store.Fixture) string { return fmtScore(f.AwayScore) }, Provider: func(f provider.Fixture) string { return fmtScore(f.AwayScore) }},
		},
	}
}

// BookmakerSpec compares bookmakers by name.
func BookmakerSpec() Spec[store.Bookmaker, provider.Bookmaker] {
	return Spec[store.Bookmaker, provider.Bookmaker]{
		DBKey:        func(b store.Bookmaker) string { return b.ExternalID },
		ProviderKey:  func(b provider.Bookmaker) string { return b.ExternalID },
		DBName:       func(b store.Bookmaker) string { return b.Name },
		ProviderName: func(b provider.Bookmaker) string { return b.Name },
		UpdatedAt:    func(b store.Bookmaker) time.Time { return b.UpdatedAt },
		Fields: []Field[store.Bookmaker, provider.Bookmaker]{
			{Name: "name", DB: func(b store.Bookmaker) string { return b.Name }, Provider: func(b provider.Bookmaker) string { return b.Name }},
		},
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func fmtBool(b bool) string { return strconv.FormatBool(b) }

func fmtInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func fmtScore(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
