package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// teamsCollector retrieves the league-wide team list. The stats API mixes in
// historical franchises; rows without a tri-code are dropped.
type teamsCollector struct {
	g    Getter
	base string
}

func (c *teamsCollector) Name() string { return "teams" }

func (c *teamsCollector) Collect(ctx context.Context, useCache bool) (*Dataset, error) {
	url := fmt.Sprintf("%s/stats/rest/en/team", c.base)
	b, err := c.g.Get(ctx, url, useCache)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Data []struct {
			ID       int    `json:"id"`
			FullName string `json:"fullName"`
			TriCode  string `json:"triCode"`
		} `json:"data"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode teams: %w", err)
	}
	if len(doc.Data) == 0 {
		return nil, &UnexpectedPayloadError{URL: url, Reason: "empty team list"}
	}

	teams := make([]Team, 0, len(doc.Data))
	seen := map[int]bool{}
	for _, t := range doc.Data {
		// The same franchise can show up twice; keep the first row.
		if t.TriCode == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		teams = append(teams, Team{ID: t.ID, Name: t.FullName, TriCode: t.TriCode})
	}

	return &Dataset{
		CollectedAt: time.Now().UTC(),
		Items:       len(teams),
		Payload:     teams,
	}, nil
}
