// Command monitor runs one check round over the configured targets and
// exits. Schedule it externally (cron, CI); runs must not overlap.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/alerting"
	"github.com/hamed0406/uptimewatch/internal/config"
	"github.com/hamed0406/uptimewatch/internal/logging"
	"github.com/hamed0406/uptimewatch/internal/metrics"
	"github.com/hamed0406/uptimewatch/internal/probe"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/backend"
	"github.com/hamed0406/uptimewatch/internal/runner"
	"github.com/hamed0406/uptimewatch/internal/targets"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	every := flag.Duration("every", 0, "repeat the run at this interval instead of exiting (0 runs once)")
	flag.Parse()

	if err := run(*envFile, *every); err != nil {
		fmt.Fprintln(os.Stderr, "monitor:", err)
		os.Exit(1)
	}
}

func run(envFile string, every time.Duration) (err error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		log.Printf("file logging unavailable (%v); logging to stderr", err)
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	machine := alerting.NewMachine(cfg.FailThreshold, cfg.AlertTracking)
	r := runner.New(
		logger,
		targets.File(cfg.TargetsPath),
		repo.NewDocuments(store),
		probe.NewHTTPProber(cfg.ProbeTimeout, cfg.UserAgent),
		machine,
		cfg.MaxHistory,
		cfg.ProbeConcurrency,
	)
	r.Metrics = metrics.Exporter{
		PushgatewayURL: cfg.PushgatewayURL,
		TextfilePath:   cfg.MetricsTextfile,
	}

	if every > 0 {
		logger.Info("monitor_loop", zap.Duration("every", every))
		return r.Every(ctx, every)
	}

	out, err := r.Run(ctx)
	if err != nil {
		logger.Error("run_failed", zap.Error(err))
		return err
	}

	down := 0
	for _, res := range out.Latest.Results {
		if !res.OK {
			down++
		}
	}
	fmt.Printf("checked %d targets, %d down, %d alerts, %d recoveries\n",
		len(out.Latest.Results), down, len(out.Alerts.Alerts), len(out.Recoveries.Recoveries))
	return nil
}
