package collect

import (
	"context"
	"fmt"
	"time"

	"nhlstats/pkg/logx"
)

// Invoker runs a resolved collector and converts every failure mode --
// fetch errors, payload errors, even panics -- into a returned error so the
// scheduler above it never crashes on a bad tick.
type Invoker struct {
	collector Collector
	useCache  bool
	sink      Sink
	log       logx.Logger
}

func NewInvoker(c Collector, useCache bool, sink Sink, log logx.Logger) *Invoker {
	return &Invoker{collector: c, useCache: useCache, sink: sink, log: log}
}

// Invoke performs one collection. For the testignore action it returns
// immediately without touching the collector or the sink.
func (inv *Invoker) Invoke(ctx context.Context) (err error) {
	if inv.collector.Name() == ActionIgnore {
		inv.log.Debug("testignore action; nothing to do")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector %s panicked: %v", inv.collector.Name(), r)
		}
	}()

	start := time.Now()
	ds, err := inv.collector.Collect(ctx, inv.useCache)
	if err != nil {
		return err
	}
	ds.Action = inv.collector.Name()
	if ds.CollectedAt.IsZero() {
		ds.CollectedAt = start
	}

	inv.log.Info("collected",
		logx.String("action", ds.Action),
		logx.Int("items", ds.Items),
		logx.Duration("took", time.Since(start)),
	)

	if inv.sink != nil {
		if err := inv.sink.SaveDataset(ctx, ds); err != nil {
			return fmt.Errorf("store dataset %s: %w", ds.Action, err)
		}
	}
	return nil
}
