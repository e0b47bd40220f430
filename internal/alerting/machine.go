// Package alerting turns individual probe results into alert and recovery
// events using per-target failure streaks.
package alerting

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// DefaultThreshold is the failure streak that raises an alert.
const DefaultThreshold = 3

// Mode selects how open alerts are tracked.
type Mode int

const (
	// ModeTracked remembers open alerts: one alert per failure episode and a
	// recovery event when the target comes back.
	ModeTracked Mode = iota
	// ModeUntracked keeps no open-alert marker. Every failing probe at or past
	// the threshold raises an alert; the consumer must deduplicate.
	ModeUntracked
)

func (m Mode) String() string {
	switch m {
	case ModeTracked:
		return "tracked"
	case ModeUntracked:
		return "untracked"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "tracked"/"untracked" and boolean spellings.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tracked", "true", "1", "on", "yes":
		return ModeTracked, nil
	case "untracked", "false", "0", "off", "no":
		return ModeUntracked, nil
	default:
		return ModeTracked, fmt.Errorf("unknown alert tracking mode %q", s)
	}
}

// Events holds what one transition emitted; both may be nil.
type Events struct {
	Alert    *domain.AlertEvent
	Recovery *domain.RecoveryEvent
}

// Machine is the streak/alert state machine. The zero value uses the default
// threshold, tracked mode and random UUID references.
type Machine struct {
	Threshold int
	Mode      Mode
	NewRef    func() domain.AlertRef
}

func NewMachine(threshold int, mode Mode) *Machine {
	return &Machine{Threshold: threshold, Mode: mode}
}

// Transition applies one result to the target's state. It never fails: an
// unseen target arrives as the zero TargetState.
func (m *Machine) Transition(st domain.TargetState, r domain.ProbeResult) (domain.TargetState, Events) {
	var ev Events
	prev := st.Streak
	if prev < 0 {
		prev = 0
	}
	tracked := m.Mode == ModeTracked

	next := domain.TargetState{OpenAlert: st.OpenAlert}
	if !tracked {
		// untracked state never carries markers, not even stale ones
		next.OpenAlert = nil
	}

	if r.OK {
		if tracked && prev > 0 && st.OpenAlert != nil {
			ev.Recovery = &domain.RecoveryEvent{
				Name:           r.Name,
				URL:            r.URL,
				IssueReference: *st.OpenAlert,
				Timestamp:      r.Timestamp,
				StatusCode:     r.StatusCode,
				LatencyMS:      r.LatencyMS,
			}
			next.OpenAlert = nil
		}
		next.Streak = 0
		return next, ev
	}

	next.Streak = prev + 1
	threshold := m.threshold()

	var fire bool
	if tracked {
		// crossing only: a streak already past threshold never re-fires
		fire = next.Streak == threshold && st.OpenAlert == nil
	} else {
		fire = next.Streak >= threshold
	}
	if !fire {
		return next, ev
	}

	alert := &domain.AlertEvent{
		Name:           r.Name,
		URL:            r.URL,
		Streak:         next.Streak,
		LastStatusCode: r.StatusCode,
		LastError:      r.Error,
		LastLatencyMS:  r.LatencyMS,
		Timestamp:      r.Timestamp,
	}
	if tracked {
		ref := m.newRef()
		alert.AlertRef = ref
		next.OpenAlert = &ref
	}
	ev.Alert = alert
	return next, ev
}

func (m *Machine) threshold() int {
	switch {
	case m.Threshold == 0:
		return DefaultThreshold
	case m.Threshold < 1:
		return 1
	default:
		return m.Threshold
	}
}

func (m *Machine) newRef() domain.AlertRef {
	if m.NewRef != nil {
		return m.NewRef()
	}
	return domain.AlertRef(uuid.NewString())
}
