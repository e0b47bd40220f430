package probe

import (
	"context"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// Prober performs a single check of one target.
//
// Implementations must not return errors or panic: every failure mode is
// reported through the result (OK=false, Error set).
type Prober interface {
	Probe(ctx context.Context, name, url string) domain.ProbeResult
}

// Func adapts a plain function to Prober.
type Func func(ctx context.Context, name, url string) domain.ProbeResult

func (f Func) Probe(ctx context.Context, name, url string) domain.ProbeResult {
	return f(ctx, name, url)
}
