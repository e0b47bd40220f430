// Package metrics exports per-run gauges for the batch monitor. A batch job
// has no scrape endpoint, so results go to a Pushgateway or a node_exporter
// textfile.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/multierr"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

const (
	namespace = "uptime"
	jobName   = "uptime_monitor"
)

// Recorder collects one run's metrics in a private registry.
type Recorder struct {
	Registry *prometheus.Registry

	up         *prometheus.GaugeVec
	latency    *prometheus.GaugeVec
	status     *prometheus.GaugeVec
	streak     *prometheus.GaugeVec
	openAlert  *prometheus.GaugeVec
	alerts     prometheus.Gauge
	recoveries prometheus.Gauge
	lastRun    prometheus.Gauge
	targets    prometheus.Gauge
}

func NewRecorder() *Recorder {
	labels := []string{"name", "url"}
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "probe_up",
			Help: "1 if the last probe returned a 2xx response.",
		}, labels),
		latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "probe_latency_milliseconds",
			Help: "Wall-clock latency of the last probe.",
		}, labels),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "probe_status_code",
			Help: "HTTP status of the last probe, 0 when no response arrived.",
		}, labels),
		streak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "failure_streak",
			Help: "Consecutive failing probes since the last success.",
		}, labels),
		openAlert: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "alert_open",
			Help: "1 while an alert is open for the target.",
		}, labels),
		alerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_alerts",
			Help: "Alert events emitted by the last run.",
		}),
		recoveries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_recoveries",
			Help: "Recovery events emitted by the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_targets",
			Help: "Targets probed by the last run.",
		}),
	}
	r.Registry.MustRegister(r.up, r.latency, r.status, r.streak, r.openAlert,
		r.alerts, r.recoveries, r.lastRun, r.targets)
	return r
}

// Observe records one run.
func (r *Recorder) Observe(latest domain.LatestDoc, st *domain.RunState, alerts, recoveries int) {
	for _, res := range latest.Results {
		lv := prometheus.Labels{"name": res.Name, "url": res.URL}
		r.up.With(lv).Set(boolf(res.OK))
		r.latency.With(lv).Set(float64(res.LatencyMS))
		code := 0
		if res.StatusCode != nil {
			code = *res.StatusCode
		}
		r.status.With(lv).Set(float64(code))
		if st != nil {
			ts := st.Get(res.URL)
			r.streak.With(lv).Set(float64(ts.Streak))
			r.openAlert.With(lv).Set(boolf(ts.HasOpenAlert()))
		}
	}
	r.alerts.Set(float64(alerts))
	r.recoveries.Set(float64(recoveries))
	r.targets.Set(float64(len(latest.Results)))
	r.lastRun.Set(float64(latest.GeneratedAt.UnixNano()) / 1e9)
}

// Exporter ships a Recorder's registry. Empty fields disable a sink.
type Exporter struct {
	PushgatewayURL string
	TextfilePath   string
}

func (e Exporter) Enabled() bool {
	return e.PushgatewayURL != "" || e.TextfilePath != ""
}

// Export writes to every configured sink and returns all failures.
func (e Exporter) Export(ctx context.Context, r *Recorder) error {
	var err error
	if e.TextfilePath != "" {
		if werr := prometheus.WriteToTextfile(e.TextfilePath, r.Registry); werr != nil {
			err = multierr.Append(err, fmt.Errorf("write textfile: %w", werr))
		}
	}
	if e.PushgatewayURL != "" {
		p := push.New(e.PushgatewayURL, jobName).Gatherer(r.Registry)
		if perr := p.PushContext(ctx); perr != nil {
			err = multierr.Append(err, fmt.Errorf("push metrics: %w", perr))
		}
	}
	return err
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
