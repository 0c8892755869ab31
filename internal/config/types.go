// Package config loads and watches the collector configuration file.
//
// The file may be YAML or JSON; YAML is coerced to JSON so both formats go
// through the same strict decoder (unknown fields are rejected). Every field
// has a usable default: the CLI must run with no config file at all.
package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Logging     Logging     `json:"logging"`
	HTTP        HTTP        `json:"http"`
	Cache       Cache       `json:"cache"`
	Database    Database    `json:"database"`
	Collect     Collect     `json:"collect"`
	Maintenance Maintenance `json:"maintenance"`
}

type Logging struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path"`
	} `json:"file"`
}

type HTTP struct {
	// WebAPIBase serves schedule, standings, rosters and play-by-play.
	WebAPIBase string `json:"web_api_base"`
	// StatsAPIBase serves the league-wide team list.
	StatsAPIBase string `json:"stats_api_base"`
	Timeout      string `json:"timeout"`
	// RatePerSec caps outbound requests across all collectors.
	RatePerSec float64 `json:"rate_per_sec"`
	UserAgent  string  `json:"user_agent"`
}

type Cache struct {
	Dir    string `json:"dir"`
	MaxAge string `json:"max_age"`
}

type Database struct {
	// Path of the SQLite file. Empty disables run history and dataset storage.
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout"`
}

// Collect selects what the parameterized actions operate on.
type Collect struct {
	Team   string `json:"team"`   // club abbreviation, e.g. "TOR"
	Season string `json:"season"` // two concatenated YYYY values, e.g. "20252026"
	GameID string `json:"game_id"`
	// Frequency repeats the action every N seconds when the -f flag is
	// absent. Zero means run once.
	Frequency int `json:"frequency"`
	// Timeout bounds one whole invocation (an action may fetch several
	// documents). Empty disables the bound.
	Timeout string `json:"timeout"`
}

type Maintenance struct {
	// Spec is a cron expression or descriptor for housekeeping runs.
	Spec string `json:"spec"`
	// RunsKeep bounds the run-history table.
	RunsKeep int `json:"runs_keep"`
}

// Default returns a fully usable configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Console = true
	cfg.HTTP.WebAPIBase = "https://api-web.nhle.com"
	cfg.HTTP.StatsAPIBase = "https://api.nhle.com"
	cfg.HTTP.Timeout = "15s"
	cfg.HTTP.RatePerSec = 2
	cfg.HTTP.UserAgent = "nhlstats/0.4"
	cfg.Cache.Dir = "cache"
	cfg.Cache.MaxAge = "168h"
	cfg.Database.Path = "nhlstats.db"
	cfg.Database.BusyTimeout = "3s"
	cfg.Collect.Team = "TOR"
	cfg.Collect.Season = currentSeason(time.Now())
	cfg.Collect.Timeout = "2m"
	cfg.Maintenance.Spec = "@daily"
	cfg.Maintenance.RunsKeep = 500
	return cfg
}

// currentSeason derives the YYYYYYYY season string covering t. Seasons roll
// over in July.
func currentSeason(t time.Time) string {
	y := t.Year()
	if t.Month() < time.July {
		y--
	}
	return fmt.Sprintf("%d%d", y, y+1)
}

// Validate rejects configs the rest of the process cannot work with. Every
// load path runs it, so a bad edit never gets published to subscribers.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := ParseDurationField("http.timeout", c.HTTP.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("cache.max_age", c.Cache.MaxAge); err != nil {
		return err
	}
	if _, err := ParseDurationField("database.busy_timeout", c.Database.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("collect.timeout", c.Collect.Timeout); err != nil {
		return err
	}
	if c.HTTP.RatePerSec < 0 {
		return fmt.Errorf("http.rate_per_sec: must be >= 0")
	}
	if strings.TrimSpace(c.HTTP.WebAPIBase) == "" || strings.TrimSpace(c.HTTP.StatsAPIBase) == "" {
		return fmt.Errorf("http: api base urls must not be empty")
	}
	if c.Collect.Frequency < 0 {
		return fmt.Errorf("collect.frequency: must be >= 0")
	}
	if c.Maintenance.RunsKeep < 0 {
		return fmt.Errorf("maintenance.runs_keep: must be >= 0")
	}
	return nil
}

// HTTPTimeout returns the parsed request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	d, err := ParseDurationOrDefault("http.timeout", c.HTTP.Timeout, 15*time.Second)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// CacheMaxAge returns the parsed cache retention age.
func (c *Config) CacheMaxAge() time.Duration {
	d, err := ParseDurationOrDefault("cache.max_age", c.Cache.MaxAge, 7*24*time.Hour)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// CollectTimeout returns the parsed per-invocation timeout (0 = unbounded).
func (c *Config) CollectTimeout() time.Duration {
	d, err := ParseDurationField("collect.timeout", c.Collect.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// DBBusyTimeout returns the parsed SQLite busy timeout.
func (c *Config) DBBusyTimeout() time.Duration {
	d, err := ParseDurationOrDefault("database.busy_timeout", c.Database.BusyTimeout, 3*time.Second)
	if err != nil {
		return 3 * time.Second
	}
	return d
}
