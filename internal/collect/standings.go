package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// standingsCollector scaffolds the current season: conferences, divisions
// and the teams inside them.
type standingsCollector struct {
	g    Getter
	base string
}

func (c *standingsCollector) Name() string { return "divisions" }

func (c *standingsCollector) Collect(ctx context.Context, useCache bool) (*Dataset, error) {
	url := fmt.Sprintf("%s/v1/standings/now", c.base)
	b, err := c.g.Get(ctx, url, useCache)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Standings []struct {
			ConferenceName string    `json:"conferenceName"`
			DivisionName   string    `json:"divisionName"`
			TeamName       localized `json:"teamName"`
			TeamAbbrev     localized `json:"teamAbbrev"`
			Points         int       `json:"points"`
		} `json:"standings"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode standings: %w", err)
	}
	if len(doc.Standings) == 0 {
		return nil, &UnexpectedPayloadError{URL: url, Reason: "no standings rows"}
	}

	rows := make([]StandingRow, 0, len(doc.Standings))
	for _, s := range doc.Standings {
		if s.ConferenceName == "" || s.DivisionName == "" {
			return nil, &UnexpectedPayloadError{URL: url, Reason: "standings row missing conference or division"}
		}
		rows = append(rows, StandingRow{
			Conference: s.ConferenceName,
			Division:   s.DivisionName,
			Team:       s.TeamName.Default,
			Abbrev:     s.TeamAbbrev.Default,
			Points:     s.Points,
		})
	}

	return &Dataset{
		CollectedAt: time.Now().UTC(),
		Items:       len(rows),
		Payload:     rows,
	}, nil
}

// localized is the API's {"default": "..."} string wrapper.
type localized struct {
	Default string `json:"default"`
}
