// Package store persists invocation history and collected datasets in a
// local SQLite database. SQLite prefers a single writer, so the pool is
// capped at one connection; the collector has no concurrent writers anyway.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nhlstats/internal/collect"
	"nhlstats/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Run is one recorded invocation.
type Run struct {
	Action    string
	Seq       uint64
	Scheduled time.Time
	Started   time.Time
	Duration  time.Duration
	OK        bool
	Error     string
}

type Store struct {
	db  *sql.DB
	log logx.Logger
}

// Open creates or opens the database at path and applies migrations.
func Open(path string, busyTimeout time.Duration, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendRun records one invocation result.
func (s *Store) AppendRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(action, seq, scheduled_at, started_at, duration_ms, ok, err)
		 VALUES(?,?,?,?,?,?,?)`,
		r.Action, r.Seq,
		r.Scheduled.UTC().Format(time.RFC3339Nano),
		r.Started.UTC().Format(time.RFC3339Nano),
		r.Duration.Milliseconds(), r.OK, nullStr(r.Error),
	)
	return err
}

// RecentRuns returns up to n most recent runs for action, newest first.
func (s *Store) RecentRuns(ctx context.Context, action string, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, seq, scheduled_at, started_at, duration_ms, ok, err
		 FROM runs WHERE action = ? ORDER BY id DESC LIMIT ?`, action, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r              Run
			sched, started string
			durMS          int64
			errStr         sql.NullString
		)
		if err := rows.Scan(&r.Action, &r.Seq, &sched, &started, &durMS, &r.OK, &errStr); err != nil {
			return nil, err
		}
		r.Scheduled, _ = time.Parse(time.RFC3339Nano, sched)
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.Error = errStr.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRuns trims the runs table down to the newest keep rows and reports
// how many were deleted. keep <= 0 leaves the table untouched.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SaveDataset upserts the latest payload for an action. Implements
// collect.Sink.
func (s *Store) SaveDataset(ctx context.Context, ds *collect.Dataset) error {
	payload, err := json.Marshal(ds.Payload)
	if err != nil {
		return fmt.Errorf("marshal dataset %s: %w", ds.Action, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets(action, collected_at, items, payload) VALUES(?,?,?,?)
		 ON CONFLICT(action) DO UPDATE SET
		   collected_at=excluded.collected_at, items=excluded.items, payload=excluded.payload`,
		ds.Action, ds.CollectedAt.UTC().Format(time.RFC3339Nano), ds.Items, string(payload),
	)
	return err
}

// Dataset returns the stored payload for an action, or sql.ErrNoRows.
func (s *Store) Dataset(ctx context.Context, action string) (json.RawMessage, time.Time, error) {
	var (
		payload     string
		collectedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, collected_at FROM datasets WHERE action = ?`, action).
		Scan(&payload, &collectedAt)
	if err != nil {
		return nil, time.Time{}, err
	}
	at, _ := time.Parse(time.RFC3339Nano, collectedAt)
	return json.RawMessage(payload), at, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
