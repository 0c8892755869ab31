package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"nhlstats/internal/collect"
	"nhlstats/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), time.Second, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAppendAndRecentRuns(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := Run{
			Action:    "teams",
			Seq:       uint64(i),
			Scheduled: base.Add(time.Duration(i) * 10 * time.Second),
			Started:   base.Add(time.Duration(i)*10*time.Second + 50*time.Millisecond),
			Duration:  3 * time.Second,
			OK:        i != 1,
		}
		if i == 1 {
			r.Error = "remote unavailable"
		}
		if err := st.AppendRun(ctx, r); err != nil {
			t.Fatalf("AppendRun: %v", err)
		}
	}

	runs, err := st.RecentRuns(ctx, "teams", 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].Seq != 2 || runs[1].Seq != 1 {
		t.Fatalf("unexpected order: seqs %d,%d", runs[0].Seq, runs[1].Seq)
	}
	if runs[1].OK || runs[1].Error != "remote unavailable" {
		t.Fatalf("failure not recorded: %+v", runs[1])
	}
	if !runs[0].Scheduled.Equal(base.Add(20 * time.Second)) {
		t.Fatalf("scheduled time mangled: %v", runs[0].Scheduled)
	}

	// Other actions are not mixed in.
	other, err := st.RecentRuns(ctx, "roster", 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("got %d runs for unused action", len(other))
	}
}

func TestPruneRuns(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := st.AppendRun(ctx, Run{Action: "teams", Seq: uint64(i), Scheduled: time.Now(), Started: time.Now(), OK: true}); err != nil {
			t.Fatalf("AppendRun: %v", err)
		}
	}

	removed, err := st.PruneRuns(ctx, 4)
	if err != nil {
		t.Fatalf("PruneRuns: %v", err)
	}
	if removed != 6 {
		t.Fatalf("removed = %d, want 6", removed)
	}

	runs, err := st.RecentRuns(ctx, "teams", 100)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 4 || runs[0].Seq != 9 {
		t.Fatalf("unexpected survivors: %d runs, newest seq %d", len(runs), runs[0].Seq)
	}

	// keep <= 0 leaves the table alone.
	if n, err := st.PruneRuns(ctx, 0); err != nil || n != 0 {
		t.Fatalf("PruneRuns(0) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestDatasetUpsert(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	first := &collect.Dataset{
		Action:      "teams",
		CollectedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		Items:       1,
		Payload:     []collect.Team{{ID: 10, Name: "Toronto Maple Leafs", TriCode: "TOR"}},
	}
	if err := st.SaveDataset(ctx, first); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	second := &collect.Dataset{
		Action:      "teams",
		CollectedAt: first.CollectedAt.Add(time.Hour),
		Items:       2,
		Payload: []collect.Team{
			{ID: 10, Name: "Toronto Maple Leafs", TriCode: "TOR"},
			{ID: 6, Name: "Boston Bruins", TriCode: "BOS"},
		},
	}
	if err := st.SaveDataset(ctx, second); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	payload, at, err := st.Dataset(ctx, "teams")
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if !at.Equal(second.CollectedAt) {
		t.Fatalf("collected_at = %v, want %v", at, second.CollectedAt)
	}

	var teams []collect.Team
	if err := json.Unmarshal(payload, &teams); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(teams) != 2 || teams[1].TriCode != "BOS" {
		t.Fatalf("payload not replaced: %+v", teams)
	}
}
