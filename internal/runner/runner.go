package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/alerting"
	"github.com/hamed0406/uptimewatch/internal/clock"
	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/history"
	"github.com/hamed0406/uptimewatch/internal/metrics"
	"github.com/hamed0406/uptimewatch/internal/probe"
	"github.com/hamed0406/uptimewatch/internal/repo"
)

// TargetSource supplies the ordered target list for a run.
type TargetSource interface {
	Load(ctx context.Context) ([]domain.Target, error)
}

// Runner performs one complete check round: load, probe, fold, save.
// Runs must not overlap on the same store; nothing here locks it.
type Runner struct {
	Logger      *zap.Logger
	Targets     TargetSource
	Docs        *repo.Documents
	Prober      probe.Prober
	Machine     *alerting.Machine
	MaxHistory  int
	Concurrency int
	Clock       clock.Clock
	Metrics     metrics.Exporter
}

func New(
	logger *zap.Logger,
	ts TargetSource,
	docs *repo.Documents,
	prober probe.Prober,
	machine *alerting.Machine,
	maxHistory int,
	concurrency int,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if machine == nil {
		machine = &alerting.Machine{}
	}
	if maxHistory <= 0 {
		maxHistory = history.DefaultMax
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		Logger:      logger,
		Targets:     ts,
		Docs:        docs,
		Prober:      prober,
		Machine:     machine,
		MaxHistory:  maxHistory,
		Concurrency: concurrency,
		Clock:       clock.RealClock{},
	}
}

// Run executes one round. Probe failures are data; store and target-list
// errors abort the run before anything is written.
//
// A round that has started is not interrupted by ctx: cancelling it mid
// probe would record failures that never happened. Each request is bounded
// by the prober's own timeout instead.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("run not started: %w", err)
	}
	ctx = context.WithoutCancel(ctx)

	ts, err := r.Targets.Load(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load targets: %w", err)
	}
	hist, err := r.Docs.LoadHistory(ctx)
	if err != nil {
		return Outcome{}, err
	}
	st, err := r.Docs.LoadState(ctx)
	if err != nil {
		return Outcome{}, err
	}

	r.Logger.Info("run_start",
		zap.Int("targets", len(ts)),
		zap.Int("history", len(hist.Events)),
		zap.String("alert_mode", r.Machine.Mode.String()),
	)

	results := r.probeAll(ctx, ts)
	out := Execute(results, hist.Events, st, r.Machine, r.MaxHistory, r.now())
	r.logEvents(out)

	if err := r.save(ctx, out); err != nil {
		return out, err
	}

	if r.Metrics.Enabled() {
		rec := metrics.NewRecorder()
		rec.Observe(out.Latest, out.State, len(out.Alerts.Alerts), len(out.Recoveries.Recoveries))
		if err := r.Metrics.Export(ctx, rec); err != nil {
			r.Logger.Warn("metrics_export_error", zap.Error(err))
		}
	}

	r.Logger.Info("run_complete",
		zap.Int("results", len(out.Latest.Results)),
		zap.Int("history", len(out.History.Events)),
		zap.Int("alerts", len(out.Alerts.Alerts)),
		zap.Int("recoveries", len(out.Recoveries.Recoveries)),
	)
	return out, nil
}

// probeAll checks every target once and returns results in target order.
func (r *Runner) probeAll(ctx context.Context, ts []domain.Target) []domain.ProbeResult {
	results := make([]domain.ProbeResult, len(ts))
	if r.Concurrency <= 1 {
		for i, t := range ts {
			results[i] = r.probeOne(ctx, t)
		}
		return results
	}

	sem := make(chan struct{}, r.Concurrency)
	var wg sync.WaitGroup
	for i, tgt := range ts {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, t domain.Target) {
			defer func() { <-sem }()
			defer wg.Done()
			results[i] = r.probeOne(ctx, t)
		}(i, tgt)
	}
	wg.Wait()
	return results
}

func (r *Runner) probeOne(ctx context.Context, t domain.Target) domain.ProbeResult {
	res := r.Prober.Probe(ctx, t.Name, t.URL)
	fields := []zap.Field{
		zap.String("name", t.Name),
		zap.String("url", t.URL),
		zap.Bool("ok", res.OK),
		zap.Int64("latency_ms", res.LatencyMS),
	}
	if res.StatusCode != nil {
		fields = append(fields, zap.Int("status", *res.StatusCode))
	}
	if res.Error != nil {
		fields = append(fields, zap.String("error", *res.Error))
	}
	if res.OK {
		r.Logger.Debug("probe_done", fields...)
	} else {
		r.Logger.Info("probe_failed", fields...)
	}
	return res
}

func (r *Runner) logEvents(out Outcome) {
	for _, a := range out.Alerts.Alerts {
		r.Logger.Warn("alert_opened",
			zap.String("name", a.Name),
			zap.String("url", a.URL),
			zap.Int("streak", a.Streak),
			zap.String("alert_ref", string(a.AlertRef)),
		)
	}
	for _, rc := range out.Recoveries.Recoveries {
		r.Logger.Info("alert_recovered",
			zap.String("name", rc.Name),
			zap.String("url", rc.URL),
			zap.String("alert_ref", string(rc.IssueReference)),
		)
	}
}

// save overwrites every output document. In untracked mode the recoveries
// document is still written, always empty, so a stale one never lingers.
func (r *Runner) save(ctx context.Context, out Outcome) error {
	if err := r.Docs.SaveLatest(ctx, out.Latest); err != nil {
		return err
	}
	if err := r.Docs.SaveHistory(ctx, out.History); err != nil {
		return err
	}
	if err := r.Docs.SaveState(ctx, out.State); err != nil {
		return err
	}
	if err := r.Docs.SaveAlerts(ctx, out.Alerts); err != nil {
		return err
	}
	return r.Docs.SaveRecoveries(ctx, out.Recoveries)
}

func (r *Runner) now() time.Time {
	if r.Clock == nil {
		return clock.RealClock{}.Now()
	}
	return r.Clock.Now()
}
