package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// rosterCollector retrieves the configured club's roster for the season.
type rosterCollector struct {
	g      Getter
	base   string
	team   string
	season string
}

func (c *rosterCollector) Name() string { return "roster" }

type rosterEntry struct {
	ID            int       `json:"id"`
	SweaterNumber int       `json:"sweaterNumber"`
	FirstName     localized `json:"firstName"`
	LastName      localized `json:"lastName"`
	PositionCode  string    `json:"positionCode"`
	HeightInches  int       `json:"heightInInches"`
	WeightPounds  int       `json:"weightInPounds"`
	BirthDate     string    `json:"birthDate"`
	BirthCity     localized `json:"birthCity"`
}

func (c *rosterCollector) Collect(ctx context.Context, useCache bool) (*Dataset, error) {
	if c.team == "" {
		return nil, fmt.Errorf("roster: no team configured")
	}
	if err := CheckSeason(c.season); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/roster/%s/%s", c.base, c.team, c.season)

	b, err := c.g.Get(ctx, url, useCache)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Forwards   []rosterEntry `json:"forwards"`
		Defensemen []rosterEntry `json:"defensemen"`
		Goalies    []rosterEntry `json:"goalies"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	entries := make([]rosterEntry, 0, len(doc.Forwards)+len(doc.Defensemen)+len(doc.Goalies))
	entries = append(entries, doc.Forwards...)
	entries = append(entries, doc.Defensemen...)
	entries = append(entries, doc.Goalies...)
	if len(entries) == 0 {
		return nil, &UnexpectedPayloadError{URL: url, Reason: "roster has no players"}
	}

	players := make([]RosterPlayer, 0, len(entries))
	for _, e := range entries {
		players = append(players, RosterPlayer{
			ID:       e.ID,
			Number:   e.SweaterNumber,
			Name:     e.FirstName.Default + " " + e.LastName.Default,
			Position: e.PositionCode,
			Height:   e.HeightInches,
			Weight:   e.WeightPounds,
			DOB:      e.BirthDate,
			Hometown: e.BirthCity.Default,
		})
	}

	return &Dataset{
		CollectedAt: time.Now().UTC(),
		Items:       len(players),
		Payload:     players,
	}, nil
}
