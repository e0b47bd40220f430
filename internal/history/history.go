// Package history keeps the bounded, most-recent-preserving probe log.
package history

import "github.com/hamed0406/uptimewatch/internal/domain"

// DefaultMax is the number of results kept across runs.
const DefaultMax = 2000

// Append adds one result at the end, preserving arrival order.
func Append(log []domain.ProbeResult, r domain.ProbeResult) []domain.ProbeResult {
	return append(log, r)
}

// Truncate keeps the newest max entries and drops the oldest first.
// It is applied once per run after all appends.
func Truncate(log []domain.ProbeResult, max int) []domain.ProbeResult {
	if max <= 0 {
		return []domain.ProbeResult{}
	}
	if len(log) <= max {
		return log
	}
	out := make([]domain.ProbeResult, max)
	copy(out, log[len(log)-max:])
	return out
}
