// Package provider defines the canonical records every upstream data source
// normalizes into, and the Client interface the syncer pulls them through.
//
// External ids are decimal strings regardless of how the upstream encodes
// them. Parent references are external ids; resolving them to local rows is
// the syncer's job.
package provider

import "time"

// Country is a provider country record.
type Country struct {
	ExternalID   string `json:"externalId"`
	Name         string `json:"name"`
	OfficialName string `json:"officialName,omitempty"`
	ISO2         string `json:"iso2,omitempty"`
	ISO3         string `json:"iso3,omitempty"`
	ImagePath    string `json:"imagePath,omitempty"`
}

// League is a provider league record.
type League struct {
	ExternalID        string `json:"externalId"`
	CountryExternalID string `json:"countryExternalId,omitempty"`
	Name              string `json:"name"`
	ShortCode         string `json:"shortCode,omitempty"`
	Type              string `json:"type,omitempty"`
	ImagePath         string `json:"imagePath,omitempty"`
	Active            bool   `json:"active"`
}

// Season is a provider season record.
type Season struct {
	ExternalID       string     `json:"externalId"`
	LeagueExternalID string     `json:"leagueExternalId"`
	Name             string     `json:"name"`
	IsCurrent        bool       `json:"isCurrent"`
	Finished         bool       `json:"finished"`
	Pending          bool       `json:"pending"`
	StartingAt       *time.Time `json:"startingAt,omitempty"`
	EndingAt         *time.Time `json:"endingAt,omitempty"`
}

// Team is a provider team record.
type Team struct {
	ExternalID        string `json:"externalId"`
	CountryExternalID string `json:"countryExternalId,omitempty"`
	Name              string `json:"name"`
	ShortCode         string `json:"shortCode,omitempty"`
	Type              string `json:"type,omitempty"`
	ImagePath         string `json:"imagePath,omitempty"`
	Founded           int    `json:"founded,omitempty"`
}

// Fixture is a provider fixture record. Home and away come from the
// participant list's location metadata.
type Fixture struct {
	ExternalID         string     `json:"externalId"`
	LeagueExternalID   string     `json:"leagueExternalId,omitempty"`
	SeasonExternalID   string     `json:"seasonExternalId"`
	HomeTeamExternalID string     `json:"homeTeamExternalId"`
	AwayTeamExternalID string     `json:"awayTeamExternalId"`
	Name               string     `json:"name"`
	StartingAt         *time.Time `json:"startingAt,omitempty"`
	State              string     `json:"state,omitempty"`
	ResultInfo         string     `json:"resultInfo,omitempty"`
	HomeScore          *int       `json:"homeScore,omitempty"`
	AwayScore          *int       `json:"awayScore,omitempty"`
}

// Bookmaker is a provider bookmaker record.
type Bookmaker struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
}

// FixtureScope selects fixtures by season or by a date window. Season ids
// take precedence when both are set.
type FixtureScope struct {
	SeasonExternalIDs []string
	From              *time.Time
	To                *time.Time
}

// TeamScope optionally narrows teams to the participants of given seasons.
type TeamScope struct {
	SeasonExternalIDs []string
}
