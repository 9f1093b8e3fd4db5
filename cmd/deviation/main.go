package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"IndexDeviation/internal/batch"
	"IndexDeviation/internal/collector"
	"IndexDeviation/internal/config"
	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/logger"
	"IndexDeviation/internal/model"
	"IndexDeviation/internal/notifier"
	"IndexDeviation/internal/recorder"
	"IndexDeviation/internal/registry"
	"IndexDeviation/internal/render"
	"IndexDeviation/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	cfgPath := flag.String("config", defaultCfg, "path to the YAML config file")
	daemon := flag.Bool("daemon", os.Getenv("RUN_SCHEDULE") == "true", "run on the cron schedule instead of once")
	only := flag.String("index", "", "comma separated display names to run (default: all configured)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	log := logger.Configure(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		MaxAge: cfg.Log.MaxAge,
	})
	mlog := log.WithComponent("main")
	mlog.Info("IndexDeviation starting")

	specs, err := setup(cfg, *only)
	if err != nil {
		mlog.WithError(err).Error("invalid configuration")
		return exitCode(err)
	}

	pipeline, err := buildPipeline(cfg, log)
	if err != nil {
		mlog.WithError(err).Error("invalid provider configuration")
		return exitCode(err)
	}

	var renderer render.Renderer
	if !cfg.Render.Disabled {
		configureFont(cfg.Render.FontPath, mlog)
		renderer = render.NewPNGRenderer(cfg.OutputDir, cfg.Render.WidthIn, cfg.Render.HeightIn, cfg.Render.DPI)
	}

	rec := openRecorder(cfg, mlog)
	defer rec.Close()

	runner := batch.NewRunner(pipeline, renderer, rec, batch.Options{
		Window:      cfg.Window,
		StartDate:   cfg.Start(),
		Concurrency: cfg.Batch.Concurrency,
	}, log)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Network.Proxy)
	}

	if !*daemon {
		sum := runner.Run(ctx, specs)
		report(sum)
		if tn != nil {
			if err := tn.SendWithRetry(ctx, notifier.FormatRunReport(sum), 3); err != nil {
				mlog.WithError(err).Error("send notification")
			}
		}
		return 0
	}

	loc, _ := time.LoadLocation(cfg.Schedule.Timezone)
	sched := scheduler.NewScheduler(ctx, runner, specs, loc, log)
	if tn != nil {
		sched.Notifier = tn
		go tn.StartPolling(ctx, sched.HandleCommand)
		mlog.Info("Telegram polling started")
	}
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		mlog.WithError(err).Error("register cron task")
		return 1
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		mlog.Info("RUN_ON_START enabled, executing batch now")
		if err := sched.Trigger(); err != nil {
			mlog.WithError(err).Warn("batch on start not triggered")
		}
	}

	mlog.WithField("cron", cfg.Schedule.DailyCron).Info("IndexDeviation is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	mlog.Info("shutdown signal received, stopping...")
	return 0
}

// setup validates the config and resolves the indices to run.
func setup(cfg *config.Config, only string) ([]model.IndexSpec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(specs)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, n := range strings.Split(only, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return reg.Select(names)
}

func buildPipeline(cfg *config.Config, log *logger.Log) (*collector.Pipeline, error) {
	lists := map[model.Category][]config.ProviderEntry{
		model.CategoryDomestic:    cfg.Providers.Domestic,
		model.CategoryCrossBorder: cfg.Providers.CrossBorder,
	}
	candidates := make(map[model.Category][]collector.Candidate, len(lists))
	for cat, entries := range lists {
		for _, e := range entries {
			rps := cfg.Network.RequestsPerSecond
			if e.RequestsPerSecond > 0 {
				rps = e.RequestsPerSecond
			}
			p, err := collector.NewProvider(e.Name, collector.ClientConfig{
				Timeout:           cfg.Network.Timeout,
				Proxy:             cfg.Network.Proxy,
				UserAgent:         cfg.Network.UserAgent,
				RequestsPerSecond: rps,
				HistoryLimit:      cfg.Network.HistoryLimit,
			})
			if err != nil {
				return nil, errs.NewConfigurationError(err, "providers.%s", strings.ToLower(string(cat)))
			}
			candidates[cat] = append(candidates[cat], collector.Candidate{
				Provider:      p,
				MaxRetries:    e.MaxRetries,
				RetryInterval: e.Interval(),
			})
		}
	}
	return collector.NewPipeline(candidates, log), nil
}

// configureFont loads the chart font and reports whether it is in use. The
// bundled plot fonts have no CJK glyphs, so titles need a configured font.
func configureFont(path string, log *logger.Entry) bool {
	if path == "" {
		log.Warn("render.font_path not set, CJK chart titles will show missing glyphs")
		return false
	}
	if err := render.UseFont(path); err != nil {
		log.WithError(err).WithField("font_path", path).Warn("font not loaded, CJK chart titles will show missing glyphs")
		return false
	}
	return true
}

func openRecorder(cfg *config.Config, log *logger.Entry) recorder.Recorder {
	var (
		rec recorder.Recorder
		err error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		rec, err = recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	case "postgres":
		rec, err = recorder.NewPostgresRecorder(cfg.Database.DSN)
	default:
		return recorder.NewNoopRecorder()
	}
	if err != nil {
		log.WithError(err).Warn("init recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return rec
}

func report(sum *batch.Summary) {
	fmt.Printf("run %s: %d succeeded, %d failed\n", sum.RunID, sum.Succeeded(), sum.Failed())
	for _, r := range sum.Results {
		switch {
		case r.Err != nil:
			fmt.Printf("  %-12s FAILED  %v\n", r.Spec.DisplayName, r.Err)
		case r.Series != nil && r.Series.Len() > 0:
			last := r.Series.Latest()
			dev := "n/a"
			if last.Deviation.Valid {
				dev = last.Deviation.Decimal.Shift(2).StringFixed(2) + "%"
			}
			fmt.Printf("  %-12s %s  close=%s  deviation=%s  via %s  %s\n",
				r.Spec.DisplayName, last.Date.Format(model.DateLayout), last.Close.String(), dev, r.Provider, r.ChartPath)
		}
	}
}

func exitCode(err error) int {
	if errs.IsConfiguration(err) {
		return 1
	}
	return 2
}
