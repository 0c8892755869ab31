package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// playsCollector retrieves play-by-play events for the configured game.
type playsCollector struct {
	g      Getter
	base   string
	gameID string
}

func (c *playsCollector) Name() string { return "plays" }

func (c *playsCollector) Collect(ctx context.Context, useCache bool) (*Dataset, error) {
	if c.gameID == "" {
		return nil, fmt.Errorf("plays: no game id configured")
	}
	url := fmt.Sprintf("%s/v1/gamecenter/%s/play-by-play", c.base, c.gameID)

	b, err := c.g.Get(ctx, url, useCache)
	if err != nil {
		return nil, err
	}

	var doc struct {
		HomeTeam struct {
			Abbrev string `json:"abbrev"`
		} `json:"homeTeam"`
		AwayTeam struct {
			Abbrev string `json:"abbrev"`
		} `json:"awayTeam"`
		Plays []struct {
			EventID          int `json:"eventId"`
			PeriodDescriptor struct {
				Number int `json:"number"`
			} `json:"periodDescriptor"`
			TimeInPeriod  string          `json:"timeInPeriod"`
			TypeDescKey   string          `json:"typeDescKey"`
			SituationCode string          `json:"situationCode"`
			Details       json.RawMessage `json:"details"`
		} `json:"plays"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode play-by-play: %w", err)
	}
	if len(doc.Plays) == 0 {
		return nil, &UnexpectedPayloadError{URL: url, Reason: "no plays in document"}
	}

	set := PlaySet{
		GameID:  c.gameID,
		Home:    doc.HomeTeam.Abbrev,
		Visitor: doc.AwayTeam.Abbrev,
		Plays:   make([]Play, 0, len(doc.Plays)),
	}
	for _, p := range doc.Plays {
		set.Plays = append(set.Plays, Play{
			EventID:   p.EventID,
			Period:    p.PeriodDescriptor.Number,
			Time:      p.TimeInPeriod,
			Type:      p.TypeDescKey,
			Situation: p.SituationCode,
			Details:   p.Details,
		})
	}

	return &Dataset{
		CollectedAt: time.Now().UTC(),
		Items:       len(set.Plays),
		Payload:     set,
	}, nil
}
