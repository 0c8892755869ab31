// Command nhlstats invokes a named NHL statistics collection action, either
// once or repeatedly at a fixed cadence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"nhlstats/internal/collect"
	"nhlstats/internal/config"
	"nhlstats/internal/fetch"
	"nhlstats/internal/maintenance"
	"nhlstats/internal/scheduler"
	"nhlstats/internal/store"
	"nhlstats/internal/version"
	"nhlstats/pkg/logx"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	action   string
	useCache bool
	// frequency in whole seconds; < 0 means run once.
	frequency int
	verbose   bool
	version   bool
	config    string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("nhlstats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.useCache, "c", false, "serve pages from the local cache when present")
	fs.BoolVar(&opts.useCache, "use-cache", false, "serve pages from the local cache when present")
	fs.IntVar(&opts.frequency, "f", -1, "repeat the action every `seconds` (omit to run once)")
	fs.IntVar(&opts.frequency, "frequency", -1, "repeat the action every `seconds` (omit to run once)")
	fs.BoolVar(&opts.verbose, "v", false, "raise log verbosity to debug")
	fs.BoolVar(&opts.verbose, "verbose", false, "raise log verbosity to debug")
	fs.BoolVar(&opts.version, "V", false, "print version and exit")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	fs.StringVar(&opts.config, "config", "./nhlstats.yaml", "path to config file")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: nhlstats [flags] ACTION\n\n")
		fmt.Fprintf(stderr, "Actions: teams, divisions, schedule, gamereports, roster, plays, arena, testignore\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}

	opts.action = fs.Arg(0)
	if opts.action == "" {
		fs.Usage()
		return nil, fmt.Errorf("missing ACTION argument")
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return nil, fmt.Errorf("exactly one ACTION expected, got %d", fs.NArg())
	}
	// The flag default -1 marks "absent"; an explicit non-positive frequency
	// is a usage error.
	if opts.frequency != -1 && opts.frequency < 1 {
		fs.Usage()
		return nil, fmt.Errorf("frequency must be a positive number of seconds")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		// -h/--help already printed the usage text.
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if opts.version {
		fmt.Fprintln(stdout, "nhlstats", version.Version)
		return 0
	}

	bootLog := logx.NewConsole("info")
	if opts.verbose {
		bootLog = logx.NewConsole("debug")
	}

	cfgMgr := config.NewManager(opts.config, bootLog)
	cfg, err := cfgMgr.Load()
	if err != nil {
		bootLog.Error("config load failed", logx.String("path", opts.config), logx.Err(err))
		return 1
	}

	logCfg := logx.Config{Level: cfg.Logging.Level, Console: cfg.Logging.Console}
	logCfg.File.Enabled = cfg.Logging.File.Enabled
	logCfg.File.Path = cfg.Logging.File.Path
	if opts.verbose {
		logCfg.Level = "debug"
	}
	logSvc, log := logx.New(logCfg)
	defer logSvc.Close()

	fetcher := fetch.New(fetch.Options{
		CacheDir:   cfg.Cache.Dir,
		Timeout:    cfg.HTTPTimeout(),
		RatePerSec: cfg.HTTP.RatePerSec,
		UserAgent:  cfg.HTTP.UserAgent,
	}, log.With(logx.String("component", "fetch")))

	registry, err := collect.NewRegistry(fetcher, collect.Params{
		WebAPIBase:   cfg.HTTP.WebAPIBase,
		StatsAPIBase: cfg.HTTP.StatsAPIBase,
		Team:         cfg.Collect.Team,
		Season:       cfg.Collect.Season,
		GameID:       cfg.Collect.GameID,
	})
	if err != nil {
		log.Error("invalid collect configuration", logx.Err(err))
		return 1
	}

	collector, err := registry.Resolve(opts.action)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	var st *store.Store
	if cfg.Database.Path != "" {
		st, err = store.Open(cfg.Database.Path, cfg.DBBusyTimeout(), log.With(logx.String("component", "store")))
		if err != nil {
			log.Error("store open failed", logx.String("path", cfg.Database.Path), logx.Err(err))
			return 1
		}
		defer st.Close()
	}

	var sink collect.Sink
	if st != nil {
		sink = st
	}
	invoker := collect.NewInvoker(collector, opts.useCache, sink, log.With(logx.String("action", collector.Name())))

	onResult := func(res scheduler.Result) {
		if st == nil {
			return
		}
		rec := store.Run{
			Action:    collector.Name(),
			Seq:       res.Seq,
			Scheduled: res.Scheduled,
			Started:   res.Started,
			Duration:  res.Finished.Sub(res.Started),
			OK:        res.OK(),
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DBBusyTimeout())
		defer cancel()
		if err := st.AppendRun(ctx, rec); err != nil {
			log.Warn("run history write failed", logx.Err(err))
		}
	}

	interval := intervalFor(opts, cfg)
	sched, err := scheduler.New(invoker.Invoke, scheduler.Options{
		Interval: interval,
		Timeout:  cfg.CollectTimeout(),
		OnResult: onResult,
	}, log.With(logx.String("component", "scheduler")))
	if err != nil {
		log.Error("scheduler setup failed", logx.Err(err))
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if interval == 0 {
		res := sched.RunOnce(ctx)
		switch {
		case res.Err == nil:
			return 0
		case errors.Is(res.Err, context.Canceled):
			log.Info("interrupted", logx.String("action", collector.Name()))
			return 0
		default:
			log.Error("collection failed", logx.String("action", collector.Name()), logx.Err(res.Err))
			return 1
		}
	}

	// Repeating mode: watch the config file so log level and request rate
	// can be adjusted without restarting the schedule.
	go cfgMgr.Watch(ctx)
	go func() {
		updates := cfgMgr.Subscribe(1)
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-updates:
				if next == nil {
					continue
				}
				lc := logx.Config{Level: next.Logging.Level, Console: next.Logging.Console}
				lc.File.Enabled = next.Logging.File.Enabled
				lc.File.Path = next.Logging.File.Path
				if opts.verbose {
					lc.Level = "debug"
				}
				logSvc.Apply(lc)
				fetcher.SetRate(next.HTTP.RatePerSec)
			}
		}
	}()

	var runsPruner maintenance.RunsPruner
	if st != nil {
		runsPruner = st
	}
	maint, err := maintenance.New(maintenance.Options{
		Spec:        cfg.Maintenance.Spec,
		CacheMaxAge: cfg.CacheMaxAge(),
		RunsKeep:    cfg.Maintenance.RunsKeep,
	}, fetcher, runsPruner, log.With(logx.String("component", "maintenance")))
	if err != nil {
		log.Error("maintenance setup failed", logx.Err(err))
		return 1
	}
	maint.Start()
	defer maint.Stop()

	// Under systemd this flips the unit to active; elsewhere it is a no-op.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	defer func() { _, _ = daemon.SdNotify(false, daemon.SdNotifyStopping) }()

	if err := sched.Run(ctx); err != nil {
		log.Error("schedule failed", logx.Err(err))
		return 1
	}
	return 0
}

// intervalFor resolves the repeat interval. The -f flag wins over the config
// default; zero means run once.
func intervalFor(opts *options, cfg *config.Config) time.Duration {
	secs := opts.frequency
	if secs < 1 {
		secs = cfg.Collect.Frequency
	}
	if secs < 1 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
