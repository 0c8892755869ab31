// Package scheduler drives invocations of a single job at a fixed cadence.
//
// Ticks are anchored to the start time: tick n fires at start + n*interval,
// regardless of how long individual invocations take. A tick that comes due
// while the previous invocation is still in flight is skipped, never queued,
// so at most one invocation runs at a time and a slow remote cannot pile up
// load. Cancelling the run context aborts the wait for the next tick
// immediately; the in-flight invocation is left to finish within a bounded
// grace period.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"nhlstats/pkg/logx"
)

// State is the lifecycle of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Job is one invocation of the collection action.
type Job func(ctx context.Context) error

// Result describes one finished invocation.
type Result struct {
	Seq       uint64
	Scheduled time.Time
	Started   time.Time
	Finished  time.Time
	Err       error
}

func (r Result) OK() bool { return r.Err == nil }

type Options struct {
	// Interval between tick starts. Required for Run; must be >= 1s.
	Interval time.Duration
	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
	// Grace bounds the wait for an in-flight invocation during shutdown.
	Grace time.Duration
	// Clock defaults to the system clock.
	Clock Clock
	// OnResult receives every invocation result. Optional.
	OnResult func(Result)
}

const defaultGrace = 30 * time.Second

var (
	ErrIntervalTooSmall = errors.New("interval must be at least 1s")
	ErrNotIdle          = errors.New("scheduler has already run")
)

type Scheduler struct {
	job  Job
	opts Options
	clk  Clock
	log  logx.Logger

	state atomic.Int32

	// inflight is checked-and-set under one mutex so two ticks can never
	// both judge themselves clear to dispatch.
	inflightMu sync.Mutex
	inflight   bool

	wg sync.WaitGroup
}

func New(job Job, opts Options, log logx.Logger) (*Scheduler, error) {
	if opts.Interval != 0 && opts.Interval < time.Second {
		return nil, ErrIntervalTooSmall
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Grace <= 0 {
		opts.Grace = defaultGrace
	}
	return &Scheduler{job: job, opts: opts, clk: opts.Clock, log: log}, nil
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// RunOnce performs a single synchronous invocation. Used when no frequency
// was requested.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return Result{Err: ErrNotIdle}
	}
	// Unlike scheduled ticks, a one-shot invocation stays attached to the
	// caller's context: an interrupt aborts it directly.
	res := s.invoke(ctx, 0, s.clk.Now(), false)
	s.emit(res)
	s.state.Store(int32(StateStopped))
	return res
}

// Run executes the job at the fixed cadence until ctx is cancelled. Tick n
// is scheduled at start + n*interval; a late loop fires the pending tick
// immediately and then realigns to the original anchor instead of drifting.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.Interval < time.Second {
		return ErrIntervalTooSmall
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrNotIdle
	}

	anchor := s.clk.Now()
	s.log.Info("schedule started",
		logx.Duration("interval", s.opts.Interval),
		logx.Time("anchor", anchor),
	)

	for n := uint64(0); ; {
		scheduled := anchor.Add(time.Duration(n) * s.opts.Interval)
		if wait := scheduled.Sub(s.clk.Now()); wait > 0 {
			select {
			case <-ctx.Done():
			case <-s.clk.After(wait):
			}
		}
		if ctx.Err() != nil {
			break
		}

		s.dispatch(ctx, n, scheduled)

		// Advance to the next boundary still ahead of us, measured from the
		// original anchor so a late tick never shifts the cadence.
		n++
		if behind := s.clk.Now().Sub(anchor); behind > 0 {
			if m := uint64(behind/s.opts.Interval) + 1; m > n {
				s.log.Debug("ticks missed; realigning to anchor",
					logx.Uint64("next_seq", m),
					logx.Uint64("skipped", m-n),
				)
				n = m
			}
		}
	}

	s.state.Store(int32(StateStopping))
	s.log.Info("stop requested; waiting for in-flight invocation")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-s.clk.After(s.opts.Grace):
		s.log.Warn("in-flight invocation abandoned after grace period",
			logx.Duration("grace", s.opts.Grace),
		)
	}

	s.state.Store(int32(StateStopped))
	s.log.Info("schedule stopped")
	return nil
}

// dispatch starts the invocation for one tick in the background, unless the
// previous invocation is still in flight, in which case the tick is skipped.
func (s *Scheduler) dispatch(ctx context.Context, seq uint64, scheduled time.Time) {
	s.inflightMu.Lock()
	if s.inflight {
		s.inflightMu.Unlock()
		s.log.Debug("tick skipped (previous invocation still in flight)",
			logx.Uint64("seq", seq),
			logx.Time("scheduled", scheduled),
		)
		return
	}
	s.inflight = true
	s.inflightMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.invoke(ctx, seq, scheduled, true)

		s.inflightMu.Lock()
		s.inflight = false
		s.inflightMu.Unlock()

		s.emit(res)
	}()
}

// invoke runs the job once. With detach set the job context is severed from
// the stop signal: shutdown lets a running invocation finish naturally,
// bounded by the per-invocation timeout and the shutdown grace period.
func (s *Scheduler) invoke(ctx context.Context, seq uint64, scheduled time.Time, detach bool) Result {
	runCtx := ctx
	if detach {
		runCtx = context.WithoutCancel(ctx)
	}
	var cancel context.CancelFunc
	if s.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, s.opts.Timeout)
	}

	started := s.clk.Now()
	err := s.job(runCtx)
	if cancel != nil {
		cancel()
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(errors.New("invocation timed out"), err)
	}

	return Result{
		Seq:       seq,
		Scheduled: scheduled,
		Started:   started,
		Finished:  s.clk.Now(),
		Err:       err,
	}
}

func (s *Scheduler) emit(res Result) {
	dur := res.Finished.Sub(res.Started)
	if res.Err != nil {
		s.log.Warn("invocation failed",
			logx.Uint64("seq", res.Seq),
			logx.Duration("dur", dur),
			logx.Err(res.Err),
		)
	} else {
		s.log.Debug("invocation completed",
			logx.Uint64("seq", res.Seq),
			logx.Duration("dur", dur),
		)
	}
	if s.opts.OnResult != nil {
		s.opts.OnResult(res)
	}
}
