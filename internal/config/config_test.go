package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nhlstats/pkg/logx"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" || !cfg.Logging.Console {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.HTTP.WebAPIBase == "" || cfg.Cache.Dir == "" {
		t.Fatalf("defaults incomplete: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "cfg.yaml", `
logging:
  level: debug
http:
  rate_per_sec: 0.5
collect:
  team: BOS
  season: "20242025"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if cfg.HTTP.RatePerSec != 0.5 {
		t.Fatalf("rate = %v", cfg.HTTP.RatePerSec)
	}
	if cfg.Collect.Team != "BOS" || cfg.Collect.Season != "20242025" {
		t.Fatalf("collect overrides lost: %+v", cfg.Collect)
	}
	// Untouched sections keep their defaults.
	if cfg.HTTP.WebAPIBase != "https://api-web.nhle.com" {
		t.Fatalf("web api base = %q", cfg.HTTP.WebAPIBase)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "cfg.yaml", "frequncy: 10\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "cfg.yaml", "http:\n  timeout: soon\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "http.timeout") {
		t.Fatalf("err = %v, want http.timeout error", err)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "cfg.json", `{"collect": {"game_id": "2025020123"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collect.GameID != "2025020123" {
		t.Fatalf("game id = %q", cfg.Collect.GameID)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("x", " 90s ")
	if err != nil || d != 90*time.Second {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty duration: (%v, %v)", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("default not applied: (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("cache.max_age", "soon"); err == nil || !strings.Contains(err.Error(), "cache.max_age") {
		t.Fatalf("parse error should name the field, got %v", err)
	}
}

func TestCurrentSeasonRollsOverInJuly(t *testing.T) {
	t.Parallel()
	if got := currentSeason(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)); got != "20252026" {
		t.Fatalf("march season = %q", got)
	}
	if got := currentSeason(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)); got != "20262027" {
		t.Fatalf("october season = %q", got)
	}
}

func TestValidateRejectsNegativeRate(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.HTTP.RatePerSec = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative rate accepted")
	}
}

func TestValidateRejectsNegativeFrequency(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Collect.Frequency = -30
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative frequency accepted")
	}
}

func TestManagerLoadCommit(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "cfg.yaml", "logging:\n  level: warn\n")
	m := NewManager(path, logx.Nop())

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get does not return committed config")
	}
}

func TestManagerPublishDeliversNewest(t *testing.T) {
	t.Parallel()
	m := NewManager("unused", logx.Nop())
	ch := m.Subscribe(1)

	a, b := Default(), Default()
	b.Logging.Level = "debug"
	m.publish(a)
	m.publish(b) // a is stale; b replaces it

	got := <-ch
	if got.Logging.Level != "debug" {
		t.Fatalf("got stale config (level %q)", got.Logging.Level)
	}
}
