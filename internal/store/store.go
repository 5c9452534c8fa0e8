// Package store defines the local relational store for synced reference data:
// entity records keyed by external id, upsert inputs with resolved parent ids,
// and the batch audit trail written by every sync run.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Entity kinds
// --------------------------------------------------------------------------

// Kind names one synced entity table.
type Kind string

const (
	KindCountries  Kind = "countries"
	KindLeagues    Kind = "leagues"
	KindSeasons    Kind = "seasons"
	KindTeams      Kind = "teams"
	KindFixtures   Kind = "fixtures"
	KindBookmakers Kind = "bookmakers"
)

// Kinds lists every kind in dependency order.
var Kinds = []Kind{KindCountries, KindLeagues, KindSeasons, KindTeams, KindFixtures, KindBookmakers}

// ParseKind maps a path segment such as "leagues" to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// BatchName is the audit batch name used when syncing this kind.
func (k Kind) BatchName() string {
	return "seed-" + string(k)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownKind    = errors.New("unknown entity kind")
	ErrBatchFinalized = errors.New("batch already finalized")
	ErrConstraint     = errors.New("store constraint violation")
)

// ConstraintError reports a rejected write: a unique, foreign-key, not-null
// or check violation, or a parent reference that does not resolve locally.
type ConstraintError struct {
	Constraint string
	Detail     string
	Err        error
}

func (e *ConstraintError) Error() string {
	msg := "constraint violation"
	if e.Constraint != "" {
		msg += " (" + e.Constraint + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

func (e *ConstraintError) Unwrap() error { return e.Err }

// MissingParent builds the constraint error raised when a record references a
// parent external id that has no local row.
func MissingParent(parent Kind, externalID string) *ConstraintError {
	return &ConstraintError{
		Constraint: string(parent) + "_fk",
		Detail:     fmt.Sprintf("%s %q not found locally", strings.TrimSuffix(string(parent), "s"), externalID),
	}
}

// --------------------------------------------------------------------------
// Entity records
// --------------------------------------------------------------------------

type Country struct {
	ID           int64     `json:"id"`
	ExternalID   string    `json:"externalId"`
	Name         string    `json:"name"`
	OfficialName string    `json:"officialName,omitempty"`
	ISO2         string    `json:"iso2,omitempty"`
	ISO3         string    `json:"iso3,omitempty"`
	ImagePath    string    `json:"imagePath,omitempty"`
	LeagueCount  int       `json:"leagueCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type League struct {
	ID                int64     `json:"id"`
	ExternalID        string    `json:"externalId"`
	CountryID         *int64    `json:"countryId,omitempty"`
	CountryExternalID string    `json:"countryExternalId,omitempty"`
	Name              string    `json:"name"`
	ShortCode         string    `json:"shortCode,omitempty"`
	Type              string    `json:"type,omitempty"`
	ImagePath         string    `json:"imagePath,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Season struct {
	ID               int64      `json:"id"`
	ExternalID       string     `json:"externalId"`
	LeagueID         int64      `json:"leagueId"`
	LeagueExternalID string     `json:"leagueExternalId"`
	Name             string     `json:"name"`
	IsCurrent        bool       `json:"isCurrent"`
	Finished         bool       `json:"finished"`
	Pending          bool       `json:"pending"`
	StartingAt       *time.Time `json:"startingAt,omitempty"`
	EndingAt         *time.Time `json:"endingAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type Team struct {
	ID                int64     `json:"id"`
	ExternalID        string    `json:"externalId"`
	CountryID         *int64    `json:"countryId,omitempty"`
	CountryExternalID string    `json:"countryExternalId,omitempty"`
	Name              string    `json:"name"`
	ShortCode         string    `json:"shortCode,omitempty"`
	Type              string    `json:"type,omitempty"`
	ImagePath         string    `json:"imagePath,omitempty"`
	Founded           int       `json:"founded,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Fixture struct {
	ID                 int64      `json:"id"`
	ExternalID         string     `json:"externalId"`
	LeagueID           *int64     `json:"leagueId,omitempty"`
	LeagueExternalID   string     `json:"leagueExternalId,omitempty"`
	SeasonID           int64      `json:"seasonId"`
	SeasonExternalID   string     `json:"seasonExternalId"`
	HomeTeamID         int64      `json:"homeTeamId"`
	HomeTeamExternalID string     `json:"homeTeamExternalId"`
	AwayTeamID         int64      `json:"awayTeamId"`
	AwayTeamExternalID string     `json:"awayTeamExternalId"`
	Name               string     `json:"name"`
	StartingAt         *time.Time `json:"startingAt,omitempty"`
	State              string     `json:"state,omitempty"`
	ResultInfo         string     `json:"resultInfo,omitempty"`
	HomeScore          *int       `json:"homeScore,omitempty"`
	AwayScore          *int       `json:"awayScore,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type Bookmaker struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// --------------------------------------------------------------------------
// Upsert inputs (parent references already resolved to local ids)
// --------------------------------------------------------------------------

type CountryInput struct {
	ExternalID   string
	Name         string
	OfficialName string
	ISO2         string
	ISO3         string
	ImagePath    string
}

type LeagueInput struct {
	ExternalID string
	CountryID  *int64
	Name       string
	ShortCode  string
	Type       string
	ImagePath  string
	Active     bool
}

type SeasonInput struct {
	ExternalID string
	LeagueID   int64
	Name       string
	IsCurrent  bool
	Finished   bool
	Pending    bool
	StartingAt *time.Time
	EndingAt   *time.Time
}

type TeamInput struct {
	ExternalID string
	CountryID  *int64
	Name       string
	ShortCode  string
	Type       string
	ImagePath  string
	Founded    int
}

type FixtureInput struct {
	ExternalID string
	LeagueID   *int64
	SeasonID   int64
	HomeTeamID int64
	AwayTeamID int64
	Name       string
	StartingAt *time.Time
	State      string
	ResultInfo string
	HomeScore  *int
	AwayScore  *int
}

type BookmakerInput struct {
	ExternalID string
	Name       string
}

// UpsertResult reports what an upsert did to the row.
type UpsertResult string

const (
	Inserted  UpsertResult = "insert"
	Updated   UpsertResult = "update"
	Unchanged UpsertResult = "unchanged"
)

// --------------------------------------------------------------------------
// Query options
// --------------------------------------------------------------------------

// Filter narrows list queries. Zero values mean "no constraint"; fields that
// do not apply to a kind are ignored.
type Filter struct {
	ExternalID        string
	Search            string
	CountryID         *int64
	LeagueID          *int64
	SeasonExternalIDs []string
	From              *time.Time
	To                *time.Time
}

// ListOptions pages list queries. PerPage <= 0 returns every row.
type ListOptions struct {
	Page    int
	PerPage int
}

// All is the ListOptions used by the syncer to load a full comparison set.
var All = ListOptions{}

// Normalize clamps Page to at least 1.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	return o
}

// Offset is the zero-based row offset for the page.
func (o ListOptions) Offset() int {
	o = o.Normalize()
	if o.PerPage <= 0 {
		return 0
	}
	return (o.Page - 1) * o.PerPage
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

type BatchStatus string

const (
	BatchRunning BatchStatus = "running"
	BatchSuccess BatchStatus = "success"
	BatchPartial BatchStatus = "partial"
	BatchFailed  BatchStatus = "failed"
)

type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
)

// Trigger records what started a batch.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerDryRun    Trigger = "dry-run"
	TriggerScheduled Trigger = "scheduled"
)

type Batch struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Status       BatchStatus `json:"status"`
	Trigger      Trigger     `json:"trigger"`
	StartedAt    time.Time   `json:"startedAt"`
	FinishedAt   *time.Time  `json:"finishedAt,omitempty"`
	ItemsTotal   int         `json:"itemsTotal"`
	ItemsSuccess int         `json:"itemsSuccess"`
	ItemsFailed  int         `json:"itemsFailed"`
}

type BatchItem struct {
	ID           int64          `json:"id"`
	BatchID      int64          `json:"batchId"`
	ItemKey      string         `json:"itemKey"`
	Status       ItemStatus     `json:"status"`
	ErrorMessage *string        `json:"errorMessage,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// FinalStatus derives a finished batch's status from its item counts.
// A batch with no items succeeded.
func FinalStatus(total, failed int) BatchStatus {
	switch {
	case failed == 0:
		return BatchSuccess
	case failed >= total:
		return BatchFailed
	default:
		return BatchPartial
	}
}

// --------------------------------------------------------------------------
// Interfaces
// --------------------------------------------------------------------------

// EntityStore reads and upserts entity rows.
type EntityStore interface {
	ListCountries(ctx context.Context, f Filter, opts ListOptions) ([]Country, int, error)
	ListLeagues(ctx context.Context, f Filter, opts ListOptions) ([]League, int, error)
	ListSeasons(ctx context.Context, f Filter, opts ListOptions) ([]Season, int, error)
	ListTeams(ctx context.Context, f Filter, opts ListOptions) ([]Team, int, error)
	ListFixtures(ctx context.Context, f Filter, opts ListOptions) ([]Fixture, int, error)
	ListBookmakers(ctx context.Context, f Filter, opts ListOptions) ([]Bookmaker, int, error)

	UpsertCountry(ctx context.Context, in CountryInput) (UpsertResult, error)
	UpsertLeague(ctx context.Context, in LeagueInput) (UpsertResult, error)
	UpsertSeason(ctx context.Context, in SeasonInput) (UpsertResult, error)
	UpsertTeam(ctx context.Context, in TeamInput) (UpsertResult, error)
	UpsertFixture(ctx context.Context, in FixtureInput) (UpsertResult, error)
	UpsertBookmaker(ctx context.Context, in BookmakerInput) (UpsertResult, error)

	// ExternalIDs maps every external id of a kind to its local id.
	ExternalIDs(ctx context.Context, kind Kind) (map[string]int64, error)
}

// BatchStore persists the audit trail.
type BatchStore interface {
	CreateBatch(ctx context.Context, name string, trigger Trigger) (Batch, error)
	AppendBatchItem(ctx context.Context, item BatchItem) error
	// FinalizeBatch aggregates counts from the stored items, sets the final
	// status and finish time. ErrBatchFinalized if already finished.
	FinalizeBatch(ctx context.Context, batchID int64) (Batch, error)
	GetBatch(ctx context.Context, batchID int64) (Batch, error)
	// ListBatches returns newest first; empty name matches every batch.
	ListBatches(ctx context.Context, name string, limit int) ([]Batch, error)
	ListBatchItems(ctx context.Context, batchID int64, opts ListOptions) ([]BatchItem, int, error)
}

// Store is the full persistence surface.
type Store interface {
	EntityStore
	BatchStore
	Ping(ctx context.Context) error
}
