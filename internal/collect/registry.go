package collect

import (
	"context"
	"fmt"
	"strings"
)

// Getter fetches one document, optionally served from cache.
// *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string, useCache bool) ([]byte, error)
}

// Registry holds the fixed action set. It is built once at startup and not
// mutated afterwards.
type Registry struct {
	order []string
	byKey map[string]Collector
}

// NewRegistry wires every known collector against the given fetcher and
// parameters. Parameterized collectors (roster, schedule, plays, ...) read
// their team/season/game selectors from params.
func NewRegistry(g Getter, params Params) (*Registry, error) {
	if params.Season != "" {
		if err := CheckSeason(params.Season); err != nil {
			return nil, err
		}
	}

	r := &Registry{byKey: map[string]Collector{}}
	r.add(&teamsCollector{g: g, base: params.StatsAPIBase})
	r.add(&standingsCollector{g: g, base: params.WebAPIBase})
	r.add(&scheduleCollector{g: g, base: params.WebAPIBase, team: params.Team, season: params.Season})
	r.add(&gameReportsCollector{g: g, base: params.WebAPIBase, team: params.Team, season: params.Season})
	r.add(&rosterCollector{g: g, base: params.WebAPIBase, team: params.Team, season: params.Season})
	r.add(&playsCollector{g: g, base: params.WebAPIBase, gameID: params.GameID})
	r.add(&arenaCollector{g: g, base: params.WebAPIBase, team: params.Team, season: params.Season})
	r.add(noopCollector{})
	return r, nil
}

func (r *Registry) add(c Collector) {
	key := strings.ToLower(c.Name())
	r.order = append(r.order, key)
	r.byKey[key] = c
}

// Resolve matches name case-insensitively against the known action set.
func (r *Registry) Resolve(name string) (Collector, error) {
	c, ok := r.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown action %q (known: %s)", name, strings.Join(r.order, ", "))
	}
	return c, nil
}

// Names lists the known actions in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// noopCollector backs the testignore action. Resolving it succeeds; the
// Invoker never dispatches it.
type noopCollector struct{}

func (noopCollector) Name() string { return ActionIgnore }

func (noopCollector) Collect(context.Context, bool) (*Dataset, error) {
	return &Dataset{Action: ActionIgnore}, nil
}
