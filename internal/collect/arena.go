package collect

import (
	"context"
	"time"
)

// arenaCollector derives the configured club's home arena from its season
// schedule: the venue hosting the majority of its home games, so the odd
// neutral-site or outdoor game does not win.
type arenaCollector struct {
	g      Getter
	base   string
	team   string
	season string
}

func (c *arenaCollector) Name() string { return "arena" }

func (c *arenaCollector) Collect(ctx context.Context, useCache bool) (*Dataset, error) {
	games, url, err := fetchClubSchedule(ctx, c.g, c.base, c.team, c.season, useCache)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, g := range games {
		if g.Home != c.team || g.Venue == "" {
			continue
		}
		counts[g.Venue]++
	}
	if len(counts) == 0 {
		return nil, &UnexpectedPayloadError{URL: url, Reason: "no home venue in schedule"}
	}

	var venue string
	for v, n := range counts {
		if n > counts[venue] {
			venue = v
		}
	}

	return &Dataset{
		CollectedAt: time.Now().UTC(),
		Items:       1,
		Payload: Arena{
			Team:      c.team,
			Season:    c.season,
			Venue:     venue,
			HomeGames: counts[venue],
		},
	}, nil
}
