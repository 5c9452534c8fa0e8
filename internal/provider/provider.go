package provider

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=provider.go Client

var (
	// ErrUnavailable covers network failures, timeouts, rate limiting and
	// 5xx responses. Callers treat it as step-level: nothing was fetched.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNotFound is returned by single-record lookups for unknown ids.
	ErrNotFound = errors.New("provider record not found")
)

// Client fetches canonical records from an upstream source.
type Client interface {
	Name() string

	GetCountries(ctx context.Context) ([]Country, error)
	GetLeagues(ctx context.Context) ([]League, error)
	GetSeasons(ctx context.Context) ([]Season, error)
	GetTeams(ctx context.Context, scope TeamScope) ([]Team, error)
	GetFixtures(ctx context.Context, scope FixtureScope) ([]Fixture, error)
	GetBookmakers(ctx context.Context) ([]Bookmaker, error)

	GetCountry(ctx context.Context, externalID string) (Country, error)
	GetLeague(ctx context.Context, externalID string) (League, error)
	GetSeason(ctx context.Context, externalID string) (Season, error)
	GetTeam(ctx context.Context, externalID string) (Team, error)
	GetFixture(ctx context.Context, externalID string) (Fixture, error)
	GetBookmaker(ctx context.Context, externalID string) (Bookmaker, error)
}
