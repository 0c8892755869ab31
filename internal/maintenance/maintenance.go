// Package maintenance runs periodic housekeeping while a repeating schedule
// is active: stale cache files are removed and the run-history table is
// trimmed. One-shot invocations don't start it.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"nhlstats/pkg/logx"
)

// CachePruner removes cache entries older than maxAge.
type CachePruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// RunsPruner trims run history to the newest keep rows.
type RunsPruner interface {
	PruneRuns(ctx context.Context, keep int) (int64, error)
}

type Options struct {
	// Spec is a cron expression or descriptor, e.g. "@daily".
	Spec        string
	CacheMaxAge time.Duration
	RunsKeep    int
}

type Runner struct {
	c   *cron.Cron
	log logx.Logger
}

// New schedules housekeeping per opts.Spec. runs may be nil when persistence
// is disabled.
func New(opts Options, cache CachePruner, runs RunsPruner, log logx.Logger) (*Runner, error) {
	r := &Runner{c: cron.New(), log: log}

	_, err := r.c.AddFunc(opts.Spec, func() {
		if cache != nil && opts.CacheMaxAge > 0 {
			n, err := cache.Prune(opts.CacheMaxAge)
			if err != nil {
				log.Warn("cache prune failed", logx.Err(err))
			} else if n > 0 {
				log.Info("cache pruned", logx.Int("removed", n))
			}
		}
		if runs != nil && opts.RunsKeep > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := runs.PruneRuns(ctx, opts.RunsKeep)
			if err != nil {
				log.Warn("run history prune failed", logx.Err(err))
			} else if n > 0 {
				log.Info("run history pruned", logx.Int64("removed", n))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) Start() {
	r.c.Start()
	r.log.Debug("maintenance schedule started")
}

// Stop waits for a running housekeeping pass to finish.
func (r *Runner) Stop() {
	<-r.c.Stop().Done()
	r.log.Debug("maintenance schedule stopped")
}
