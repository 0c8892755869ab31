package maintenance

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"nhlstats/pkg/logx"
)

type fakeCache struct{ pruned atomic.Int32 }

func (f *fakeCache) Prune(time.Duration) (int, error) {
	f.pruned.Add(1)
	return 1, nil
}

type fakeRuns struct{ pruned atomic.Int32 }

func (f *fakeRuns) PruneRuns(context.Context, int) (int64, error) {
	f.pruned.Add(1)
	return 2, nil
}

func TestNewRejectsBadSpec(t *testing.T) {
	t.Parallel()
	_, err := New(Options{Spec: "not a cron spec"}, nil, nil, logx.Nop())
	if err == nil {
		t.Fatal("expected spec parse error")
	}
}

func TestHousekeepingFires(t *testing.T) {
	t.Parallel()
	cache := &fakeCache{}
	runs := &fakeRuns{}

	r, err := New(Options{
		Spec:        "@every 1s",
		CacheMaxAge: time.Hour,
		RunsKeep:    10,
	}, cache, runs, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cache.pruned.Load() > 0 && runs.pruned.Load() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("housekeeping did not fire (cache=%d runs=%d)", cache.pruned.Load(), runs.pruned.Load())
}

func TestStartStopWithoutPruners(t *testing.T) {
	t.Parallel()
	r, err := New(Options{Spec: "@daily"}, nil, nil, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Start()
	r.Stop()
}
