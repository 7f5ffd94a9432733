// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"time"
)

// Run waits once for new data (or cancellation), then polls until ctx is
// cancelled. Each cycle try-locks the session so registration and UnInit
// are never starved; a busy lock skips the cycle rather than waiting.
// ready may be nil when no new-data event could be created.
func (p *Poller) Run(ctx context.Context, ready Waiter) {
	if ready != nil {
		err := ready.Wait(ctx, p.Clock, p.cfg.NewDataPoll)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			p.Log.Warn("new data wait failed, polling anyway", "error", err)
		}
	}

	p.Log.Debug("poller started", "interval", p.cfg.Interval)
	defer p.Log.Debug("poller stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		start := p.Clock.Now()
		if p.Session.TryLock() {
			p.PollOnce()
			p.Session.Unlock()
		} else {
			p.Metrics.PollCycles.WithLabelValues(string(OutcomeContended)).Inc()
		}

		if !p.sleep(ctx, start) {
			return
		}
	}
}

// sleep waits out the rest of the cycle budget. Never negative.
func (p *Poller) sleep(ctx context.Context, start time.Time) bool {
	remaining := p.cfg.Interval - p.Clock.Since(start)
	if remaining <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.Clock.After(remaining):
		return true
	}
}
