package runner

import (
	"time"

	"github.com/hamed0406/uptimewatch/internal/alerting"
	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/history"
)

// Outcome is everything one run produces.
type Outcome struct {
	Latest     domain.LatestDoc
	History    domain.HistoryDoc
	State      *domain.RunState
	Alerts     domain.AlertsDoc
	Recoveries domain.RecoveriesDoc
}

// Execute folds this run's results, in order, into the prior history and
// state. The inputs are not modified.
func Execute(
	results []domain.ProbeResult,
	prior []domain.ProbeResult,
	st *domain.RunState,
	m *alerting.Machine,
	maxHistory int,
	generatedAt time.Time,
) Outcome {
	out := Outcome{
		Latest:     domain.LatestDoc{GeneratedAt: generatedAt, Results: make([]domain.ProbeResult, 0, len(results))},
		State:      cloneState(st),
		Alerts:     domain.AlertsDoc{GeneratedAt: generatedAt, Alerts: []domain.AlertEvent{}},
		Recoveries: domain.RecoveriesDoc{GeneratedAt: generatedAt, Recoveries: []domain.RecoveryEvent{}},
	}

	log := make([]domain.ProbeResult, len(prior), len(prior)+len(results))
	copy(log, prior)

	for _, res := range results {
		out.Latest.Results = append(out.Latest.Results, res)
		log = history.Append(log, res)

		next, ev := m.Transition(out.State.Get(res.URL), res)
		out.State.Set(res.URL, next)
		if ev.Alert != nil {
			out.Alerts.Alerts = append(out.Alerts.Alerts, *ev.Alert)
		}
		if ev.Recovery != nil {
			out.Recoveries.Recoveries = append(out.Recoveries.Recoveries, *ev.Recovery)
		}
	}

	out.History = domain.HistoryDoc{Events: history.Truncate(log, maxHistory)}
	return out
}

func cloneState(st *domain.RunState) *domain.RunState {
	out := domain.NewRunState()
	if st == nil {
		return out
	}
	for k, v := range st.Streaks {
		out.Streaks[k] = v
	}
	for k, v := range st.OpenAlerts {
		out.OpenAlerts[k] = v
	}
	return out
}
