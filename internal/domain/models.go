package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Target is a named endpoint. URL is the identity key for all persisted state.
type Target struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	URL  string `json:"url" yaml:"url" toml:"url"`
}

// AlertRef identifies an open alert. The monitor mints UUIDs; the external
// ticket consumer may overwrite them with issue numbers.
type AlertRef string

func (r AlertRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts strings and bare numbers. A null ref still marks
// the alert as open, with an empty reference.
func (r *AlertRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = AlertRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("alert ref: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("alert ref %q: %w", n, err)
	}
	*r = AlertRef(n.String())
	return nil
}

// TargetState is the per-URL streak bookkeeping.
type TargetState struct {
	Streak    int
	OpenAlert *AlertRef
}

// HasOpenAlert reports whether an alert was raised and not yet resolved.
func (s TargetState) HasOpenAlert() bool { return s.OpenAlert != nil }

// RunState is the persisted snapshot of every TargetState, keyed by URL.
// The two-map layout is what the ticket consumer reads and edits.
type RunState struct {
	Streaks    map[string]int      `json:"streaks"`
	OpenAlerts map[string]AlertRef `json:"open_alerts"`
}

func NewRunState() *RunState {
	return &RunState{
		Streaks:    map[string]int{},
		OpenAlerts: map[string]AlertRef{},
	}
}

// Get returns the state for url; unseen targets get the zero state.
func (s *RunState) Get(url string) TargetState {
	s.ensure()
	ts := TargetState{Streak: s.Streaks[url]}
	if ref, ok := s.OpenAlerts[url]; ok {
		r := ref
		ts.OpenAlert = &r
	}
	return ts
}

func (s *RunState) Set(url string, ts TargetState) {
	s.ensure()
	s.Streaks[url] = ts.Streak
	if ts.OpenAlert != nil {
		s.OpenAlerts[url] = *ts.OpenAlert
	} else {
		delete(s.OpenAlerts, url)
	}
}

func (s *RunState) ensure() {
	if s.Streaks == nil {
		s.Streaks = map[string]int{}
	}
	if s.OpenAlerts == nil {
		s.OpenAlerts = map[string]AlertRef{}
	}
}

// AlertEvent is emitted when a target's failure streak reaches the threshold.
type AlertEvent struct {
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	AlertRef       AlertRef  `json:"alert_ref,omitempty"`
	Streak         int       `json:"streak"`
	LastStatusCode *int      `json:"last_status_code"`
	LastError      *string   `json:"last_error"`
	LastLatencyMS  int64     `json:"last_latency_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// RecoveryEvent closes a previously raised alert.
type RecoveryEvent struct {
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	IssueReference AlertRef  `json:"issue_number"`
	Timestamp      time.Time `json:"timestamp"`
	StatusCode     *int      `json:"status_code"`
	LatencyMS      int64     `json:"latency_ms"`
}
