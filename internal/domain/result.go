package domain

import "time"

// ProbeResult is the outcome of one probe. StatusCode is nil when no response
// arrived; Error is nil when one did.
type ProbeResult struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	StatusCode *int      `json:"status_code"`
	LatencyMS  int64     `json:"latency_ms"`
	OK         bool      `json:"ok"`
	Error      *string   `json:"error"`
}

// LatestDoc holds this run's results only.
type LatestDoc struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Results     []ProbeResult `json:"results"`
}

// HistoryDoc is the capped log of past results, oldest first.
type HistoryDoc struct {
	Events []ProbeResult `json:"events"`
}

type AlertsDoc struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Alerts      []AlertEvent `json:"alerts"`
}

type RecoveriesDoc struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Recoveries  []RecoveryEvent `json:"recoveries"`
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool { return code >= 200 && code < 300 }
