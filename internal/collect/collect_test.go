package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"nhlstats/pkg/logx"
)

// fakeGetter serves canned documents by URL and counts hits.
type fakeGetter struct {
	docs map[string]string
	hits int
}

func (g *fakeGetter) Get(ctx context.Context, url string, useCache bool) ([]byte, error) {
	g.hits++
	doc, ok := g.docs[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return []byte(doc), nil
}

func testParams() Params {
	return Params{
		WebAPIBase:   "https://web.test",
		StatsAPIBase: "https://stats.test",
		Team:         "TOR",
		Season:       "20252026",
		GameID:       "2025020123",
	}
}

func TestCheckSeason(t *testing.T) {
	t.Parallel()
	if err := CheckSeason("20252026"); err != nil {
		t.Fatalf("valid season rejected: %v", err)
	}
	for _, bad := range []string{"2025", "2025202", "202520267", "abcdefgh", "20252027"} {
		if err := CheckSeason(bad); err == nil {
			t.Fatalf("season %q accepted, want error", bad)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry(&fakeGetter{}, testParams())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	for _, name := range []string{"teams", "TEAMS", " Teams ", "testignore", "TestIgnore"} {
		if _, err := r.Resolve(name); err != nil {
			t.Fatalf("Resolve(%q): %v", name, err)
		}
	}

	_, err = r.Resolve("foobar")
	if err == nil {
		t.Fatal("unknown action accepted")
	}
	if !strings.Contains(err.Error(), "teams") {
		t.Fatalf("error should list known actions, got: %v", err)
	}
}

func TestRegistryRejectsBadSeason(t *testing.T) {
	t.Parallel()
	p := testParams()
	p.Season = "not-a-season"
	if _, err := NewRegistry(&fakeGetter{}, p); err == nil {
		t.Fatal("expected season validation error")
	}
}

// countingSink records SaveDataset calls.
type countingSink struct {
	saved []*Dataset
	fail  error
}

func (s *countingSink) SaveDataset(ctx context.Context, ds *Dataset) error {
	if s.fail != nil {
		return s.fail
	}
	s.saved = append(s.saved, ds)
	return nil
}

func TestInvokerIgnoreActionDoesNothing(t *testing.T) {
	t.Parallel()
	sink := &countingSink{}
	inv := NewInvoker(noopCollector{}, false, sink, logx.Nop())

	if err := inv.Invoke(context.Background()); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(sink.saved) != 0 {
		t.Fatalf("testignore reached the sink: %d datasets", len(sink.saved))
	}
}

type panicCollector struct{}

func (panicCollector) Name() string { return "teams" }
func (panicCollector) Collect(context.Context, bool) (*Dataset, error) {
	panic("boom")
}

func TestInvokerRecoversPanic(t *testing.T) {
	t.Parallel()
	inv := NewInvoker(panicCollector{}, false, nil, logx.Nop())
	err := inv.Invoke(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("err = %v, want recovered panic", err)
	}
}

type staticCollector struct {
	ds  *Dataset
	err error
}

func (staticCollector) Name() string { return "teams" }
func (c staticCollector) Collect(context.Context, bool) (*Dataset, error) {
	return c.ds, c.err
}

func TestInvokerStoresDataset(t *testing.T) {
	t.Parallel()
	sink := &countingSink{}
	inv := NewInvoker(staticCollector{ds: &Dataset{Items: 3, Payload: []Team{{ID: 1}}}}, false, sink, logx.Nop())

	if err := inv.Invoke(context.Background()); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(sink.saved))
	}
	if sink.saved[0].Action != "teams" {
		t.Fatalf("dataset action = %q, want teams", sink.saved[0].Action)
	}
	if sink.saved[0].CollectedAt.IsZero() {
		t.Fatal("dataset CollectedAt not set")
	}
}

func TestInvokerSinkFailureSurfaces(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	inv := NewInvoker(staticCollector{ds: &Dataset{}}, false, &countingSink{fail: boom}, logx.Nop())
	if err := inv.Invoke(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
