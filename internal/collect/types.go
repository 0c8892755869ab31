package collect

import (
	"context"
	"encoding/json"
	"time"
)

// Collector is one named fetch routine. Collectors are stateless between
// calls; everything they need is fixed at registration.
type Collector interface {
	Name() string
	Collect(ctx context.Context, useCache bool) (*Dataset, error)
}

// Dataset is the normalized outcome of one collection.
type Dataset struct {
	Action      string
	CollectedAt time.Time
	Items       int
	// Payload is JSON-marshalable normalized data, stored by the Sink.
	Payload any
}

// Sink persists collected datasets. A nil sink disables persistence.
type Sink interface {
	SaveDataset(ctx context.Context, ds *Dataset) error
}

// Params selects what the parameterized collectors operate on.
type Params struct {
	WebAPIBase   string
	StatsAPIBase string
	Team         string
	Season       string
	GameID       string
}

// Team is one league team from the stats API.
type Team struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	TriCode string `json:"triCode"`
}

// StandingRow places one team in a conference and division.
type StandingRow struct {
	Conference string `json:"conference"`
	Division   string `json:"division"`
	Team       string `json:"team"`
	Abbrev     string `json:"abbrev"`
	Points     int    `json:"points"`
}

// Game is one scheduled game, start time in UTC.
type Game struct {
	ID       int       `json:"id"`
	Season   string    `json:"season"`
	Type     string    `json:"type"`
	StartUTC time.Time `json:"startUTC"`
	Home     string    `json:"home"`
	Visitor  string    `json:"visitor"`
	Venue    string    `json:"venue"`
	State    string    `json:"state"`
}

// Arena names a club's home venue for one season.
type Arena struct {
	Team      string `json:"team"`
	Season    string `json:"season"`
	Venue     string `json:"venue"`
	HomeGames int    `json:"homeGames"`
}

// GameReport identifies a game whose report is available.
type GameReport struct {
	GameID   int    `json:"gameId"`
	ReportID string `json:"reportId"`
	Home     string `json:"home"`
	Visitor  string `json:"visitor"`
}

// RosterPlayer is one player on a club roster.
type RosterPlayer struct {
	ID       int    `json:"id"`
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Height   int    `json:"heightInches"`
	Weight   int    `json:"weightPounds"`
	DOB      string `json:"dob"`
	Hometown string `json:"hometown"`
}

// Play is one play-by-play event. Details carries the event-specific fields
// (players involved, coordinates) verbatim; their shape varies per type.
type Play struct {
	EventID   int             `json:"eventId"`
	Period    int             `json:"period"`
	Time      string          `json:"time"`
	Type      string          `json:"type"`
	Situation string          `json:"situation,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// PlaySet is the plays dataset payload.
type PlaySet struct {
	GameID  string `json:"gameId"`
	Home    string `json:"home"`
	Visitor string `json:"visitor"`
	Plays   []Play `json:"plays"`
}
