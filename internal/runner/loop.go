package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Every runs a round immediately and then once per interval until ctx is
// cancelled. Rounds run back to back on one goroutine, so they never
// overlap. Cancellation is only observed between rounds. A failed round is
// logged and the loop keeps going.
func (r *Runner) Every(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		_, err := r.Run(ctx)
		return err
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	r.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("runner_stopped")
			return nil
		case <-t.C:
			if ctx.Err() != nil {
				r.Logger.Info("runner_stopped")
				return nil
			}
			r.runLogged(ctx)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	if _, err := r.Run(ctx); err != nil {
		r.Logger.Warn("run_error", zap.Error(err))
	}
}
