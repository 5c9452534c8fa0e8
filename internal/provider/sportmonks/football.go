package sportmonks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/scoracle-sync/internal/provider"
)

// SportMonks caps the fixtures/between window at 100 days.
const maxFixtureWindow = 100 * 24 * time.Hour

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// --------------------------------------------------------------------------
// Countries (core API)
// --------------------------------------------------------------------------

type smCountryRaw struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name"`
	ISO2         string `json:"iso2"`
	ISO3         string `json:"iso3"`
	ImagePath    string `json:"image_path"`
}

func normalizeCountry(raw smCountryRaw) provider.Country {
	return provider.Country{
		ExternalID:   provider.ExternalID(raw.ID),
		Name:         raw.Name,
		OfficialName: raw.OfficialName,
		ISO2:         raw.ISO2,
		ISO3:         raw.ISO3,
		ImagePath:    raw.ImagePath,
	}
}

// GetCountries fetches every country in canonical format.
func (c *Client) GetCountries(ctx context.Context) ([]provider.Country, error) {
	raw, err := c.getPaginated(ctx, "/core/countries", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}
	return mapAll(decodeAll[smCountryRaw](c, "country", raw), normalizeCountry), nil
}

// GetCountry fetches one country by external id.
func (c *Client) GetCountry(ctx context.Context, externalID string) (provider.Country, error) {
	var raw smCountryRaw
	if err := c.getOne(ctx, "/core/countries/"+url.PathEscape(externalID), nil, &raw); err != nil {
		return provider.Country{}, fmt.Errorf("fetch country %s: %w", externalID, err)
	}
	return normalizeCountry(raw), nil
}

// --------------------------------------------------------------------------
// Leagues
// --------------------------------------------------------------------------

type smLeagueRaw struct {
	ID        int64  `json:"id"`
	CountryID *int64 `json:"country_id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
	Type      string `json:"type"`
	ImagePath string `json:"image_path"`
	Active    bool   `json:"active"`
}

func normalizeLeague(raw smLeagueRaw) provider.League {
	return provider.League{
		ExternalID:        provider.ExternalID(raw.ID),
		CountryExternalID: provider.ExternalIDPtr(raw.CountryID),
		Name:              raw.Name,
		ShortCode:         raw.ShortCode,
		Type:              raw.Type,
		ImagePath:         raw.ImagePath,
		Active:            raw.Active,
	}
}

// GetLeagues fetches every league the subscription covers.
func (c *Client) GetLeagues(ctx context.Context) ([]provider.League, error) {
	raw, err := c.getPaginated(ctx, "/football/leagues", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch leagues: %w", err)
	}
	return mapAll(decodeAll[smLeagueRaw](c, "league", raw), normalizeLeague), nil
}

// GetLeague fetches one league by external id.
func (c *Client) GetLeague(ctx context.Context, externalID string) (provider.League, error) {
	var raw smLeagueRaw
	if err := c.getOne(ctx, "/football/leagues/"+url.PathEscape(externalID), nil, &raw); err != nil {
		return provider.League{}, fmt.Errorf("fetch league %s: %w", externalID, err)
	}
	return normalizeLeague(raw), nil
}

// --------------------------------------------------------------------------
// Seasons
// --------------------------------------------------------------------------

type smSeasonRaw struct {
	ID         int64  `json:"id"`
	LeagueID   int64  `json:"league_id"`
	Name       string `json:"name"`
	IsCurrent  bool   `json:"is_current"`
	Finished   bool   `json:"finished"`
	Pending    bool   `json:"pending"`
	StartingAt string `json:"starting_at"`
	EndingAt   string `json:"ending_at"`
}

func normalizeSeason(raw smSeasonRaw) provider.Season {
	return provider.Season{
		ExternalID:       provider.ExternalID(raw.ID),
		LeagueExternalID: provider.ExternalID(raw.LeagueID),
		Name:             raw.Name,
		IsCurrent:        raw.IsCurrent,
		Finished:         raw.Finished,
		Pending:          raw.Pending,
		StartingAt:       parseTime(raw.StartingAt),
		EndingAt:         parseTime(raw.EndingAt),
	}
}

// GetSeasons fetches every season of every covered league.
func (c *Client) GetSeasons(ctx context.Context) ([]provider.Season, error) {
	raw, err := c.getPaginated(ctx, "/football/seasons", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch seasons: %w", err)
	}
	return mapAll(decodeAll[smSeasonRaw](c, "season", raw), normalizeSeason), nil
}

// GetSeason fetches one season by external id.
func (c *Client) GetSeason(ctx context.Context, externalID string) (provider.Season, error) {
	var raw smSeasonRaw
	if err := c.getOne(ctx, "/football/seasons/"+url.PathEscape(externalID), nil, &raw); err != nil {
		return provider.Season{}, fmt.Errorf("fetch season %s: %w", externalID, err)
	}
	return normalizeSeason(raw), nil
}

// --------------------------------------------------------------------------
// Teams
// --------------------------------------------------------------------------

type smTeamRaw struct {
	ID        int64  `json:"id"`
	CountryID *int64 `json:"country_id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
	Type      string `json:"type"`
	ImagePath string `json:"image_path"`
	Founded   *int   `json:"founded"`
}

func normalizeTeam(raw smTeamRaw) provider.Team {
	team := provider.Team{
		ExternalID:        provider.ExternalID(raw.ID),
		CountryExternalID: provider.ExternalIDPtr(raw.CountryID),
		Name:              raw.Name,
		ShortCode:         raw.ShortCode,
		Type:              raw.Type,
		ImagePath:         raw.ImagePath,
	}
	if raw.Founded != nil {
		team.Founded = *raw.Founded
	}
	return team
}

// GetTeams fetches teams, either all or the participants of the given seasons.
// A team playing in several seasons is returned once.
func (c *Client) GetTeams(ctx context.Context, scope provider.TeamScope) ([]provider.Team, error) {
	if len(scope.SeasonExternalIDs) == 0 {
		raw, err := c.getPaginated(ctx, "/football/teams", nil)
		if err != nil {
			return nil, fmt.Errorf("fetch teams: %w", err)
		}
		return mapAll(decodeAll[smTeamRaw](c, "team", raw), normalizeTeam), nil
	}

	seen := make(map[string]bool)
	var teams []provider.Team
	for _, seasonID := range scope.SeasonExternalIDs {
		raw, err := c.getPaginated(ctx, "/football/teams/seasons/"+url.PathEscape(seasonID), nil)
		if err != nil {
			return nil, fmt.Errorf("fetch teams for season %s: %w", seasonID, err)
		}
		for _, t := range decodeAll[smTeamRaw](c, "team", raw) {
			team := normalizeTeam(t)
			if seen[team.ExternalID] {
				continue
			}
			seen[team.ExternalID] = true
			teams = append(teams, team)
		}
	}
	return teams, nil
}

// GetTeam fetches one team by external id.
func (c *Client) GetTeam(ctx context.Context, externalID string) (provider.Team, error) {
	var raw smTeamRaw
	if err := c.getOne(ctx, "/football/teams/"+url.PathEscape(externalID), nil, &raw); err != nil {
		return provider.Team{}, fmt.Errorf("fetch team %s: %w", externalID, err)
	}
	return normalizeTeam(raw), nil
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

const fixtureIncludes = "participants;scores;state"

type smFixtureRaw struct {
	ID                  int64  `json:"id"`
	LeagueID            *int64 `json:"league_id"`
	SeasonID            int64  `json:"season_id"`
	Name                string `json:"name"`
	StartingAt          string `json:"starting_at"`
	StartingAtTimestamp *int64 `json:"starting_at_timestamp"`
	ResultInfo          string `json:"result_info"`
	State               *struct {
		State         string `json:"state"`
		DeveloperName string `json:"developer_name"`
	} `json:"state"`
	Participants []struct {
		ID   int64 `json:"id"`
		Meta struct {
			Location string `json:"location"`
		} `json:"meta"`
	} `json:"participants"`
	Scores []struct {
		Description string `json:"description"`
		Score       struct {
			Goals       int    `json:"goals"`
			Participant string `json:"participant"`
		} `json:"score"`
	} `json:"scores"`
}

func normalizeFixture(raw smFixtureRaw) provider.Fixture {
	fx := provider.Fixture{
		ExternalID:       provider.ExternalID(raw.ID),
		LeagueExternalID: provider.ExternalIDPtr(raw.LeagueID),
		SeasonExternalID: provider.ExternalID(raw.SeasonID),
		Name:             raw.Name,
		ResultInfo:       raw.ResultInfo,
	}

	if raw.StartingAtTimestamp != nil && *raw.StartingAtTimestamp > 0 {
		t := time.Unix(*raw.StartingAtTimestamp, 0).UTC()
		fx.StartingAt = &t
	} else {
		fx.StartingAt = parseTime(raw.StartingAt)
	}

	if raw.State != nil {
		fx.State = raw.State.State
		if fx.State == "" {
			fx.State = raw.State.DeveloperName
		}
	}

	for _, p := range raw.Participants {
		switch p.Meta.Location {
		case "home":
			fx.HomeTeamExternalID = provider.ExternalID(p.ID)
		case "away":
			fx.AwayTeamExternalID = provider.ExternalID(p.ID)
		}
	}

	for _, s := range raw.Scores {
		if s.Description != "CURRENT" {
			continue
		}
		goals := s.Score.Goals
		switch s.Score.Participant {
		case "home":
			fx.HomeScore = &goals
		case "away":
			fx.AwayScore = &goals
		}
	}
	return fx
}

// GetFixtures fetches fixtures for the given seasons, or for the date window
// when no seasons are named. Windows longer than SportMonks allows are split.
func (c *Client) GetFixtures(ctx context.Context, scope provider.FixtureScope) ([]provider.Fixture, error) {
	if len(scope.SeasonExternalIDs) > 0 {
		raw, err := c.getPaginated(ctx, "/football/fixtures", url.Values{
			"include": {fixtureIncludes},
			"filters": {"fixtureSeasons:" + strings.Join(scope.SeasonExternalIDs, ",")},
		})
		if err != nil {
			return nil, fmt.Errorf("fetch fixtures for seasons: %w", err)
		}
		return mapAll(decodeAll[smFixtureRaw](c, "fixture", raw), normalizeFixture), nil
	}

	if scope.From == nil || scope.To == nil {
		return nil, fmt.Errorf("fetch fixtures: a season or a from/to window is required")
	}

	var fixtures []provider.Fixture
	for _, w := range splitWindow(*scope.From, *scope.To, maxFixtureWindow) {
		path := fmt.Sprintf("/football/fixtures/between/%s/%s", w[0].Format(dateLayout), w[1].Format(dateLayout))
		raw, err := c.getPaginated(ctx, path, url.Values{"include": {fixtureIncludes}})
		if err != nil {
			return nil, fmt.Errorf("fetch fixtures between %s and %s: %w",
				w[0].Format(dateLayout), w[1].Format(dateLayout), err)
		}
		fixtures = append(fixtures, mapAll(decodeAll[smFixtureRaw](c, "fixture", raw), normalizeFixture)...)
	}
	return fixtures, nil
}

// GetFixture fetches one fixture by external id.
func (c *Client) GetFixture(ctx context.Context, externalID string) (provider.Fixture, error) {
	var raw smFixtureRaw
	err := c.getOne(ctx, "/football/fixtures/"+url.PathEscape(externalID),
		url.Values{"include": {fixtureIncludes}}, &raw)
	if err != nil {
		return provider.Fixture{}, fmt.Errorf("fetch fixture %s: %w", externalID, err)
	}
	return normalizeFixture(raw), nil
}

// --------------------------------------------------------------------------
// Bookmakers (odds API)
// --------------------------------------------------------------------------

type smBookmakerRaw struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func normalizeBookmaker(raw smBookmakerRaw) provider.Bookmaker {
	return provider.Bookmaker{ExternalID: provider.ExternalID(raw.ID), Name: raw.Name}
}

// GetBookmakers fetches every bookmaker.
func (c *Client) GetBookmakers(ctx context.Context) ([]provider.Bookmaker, error) {
	raw, err := c.getPaginated(ctx, "/odds/bookmakers", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch bookmakers: %w", err)
	}
	return mapAll(decodeAll[smBookmakerRaw](c, "bookmaker", raw), normalizeBookmaker), nil
}

// GetBookmaker fetches one bookmaker by external id.
func (c *Client) GetBookmaker(ctx context.Context, externalID string) (provider.Bookmaker, error) {
	var raw smBookmakerRaw
	if err := c.getOne(ctx, "/odds/bookmakers/"+url.PathEscape(externalID), nil, &raw); err != nil {
		return provider.Bookmaker{}, fmt.Errorf("fetch bookmaker %s: %w", externalID, err)
	}
	return normalizeBookmaker(raw), nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func mapAll[R, T any](raw []R, fn func(R) T) []T {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		out = append(out, fn(r))
	}
	return out
}

// parseTime accepts the date and datetime layouts SportMonks uses.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{dateTimeLayout, time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(ts, 0).UTC()
		return &t
	}
	return nil
}

// splitWindow cuts [from, to] into consecutive inclusive day windows no
// longer than limit.
func splitWindow(from, to time.Time, limit time.Duration) [][2]time.Time {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if to.Before(from) {
		return nil
	}
	var out [][2]time.Time
	for start := from; !start.After(to); {
		end := start.Add(limit - 24*time.Hour)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{start, end})
		start = end.Add(24 * time.Hour)
	}
	return out
}
