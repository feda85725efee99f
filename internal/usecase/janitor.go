package usecase

import (
	"context"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/tictactoe"
)

// Sweep removes sessions idle for at least the registry ttl and returns how
// many were dropped. Connected participants receive a session:expired event.
func (that *Registry) Sweep(now time.Time) int {
	if that.ttl <= 0 {
		return 0
	}

	removed := 0

	for _, entry := range that.entries() {
		entry.mu.Lock()

		if !entry.closed && now.Sub(entry.session.UpdatedAt) >= that.ttl {
			that.dispatch(tictactoe.Expire(entry.session))
			that.removeLocked(entry)
			removed++
		}

		entry.mu.Unlock()
	}

	return removed
}

// RunJanitor sweeps on every tick until ctx is done.
func (that *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	log := that.logger.With("method", "RunJanitor")

	if that.ttl <= 0 || interval <= 0 {
		log.Info("session expiry disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := that.Sweep(that.now()); removed > 0 {
				log.Info("expired idle sessions", "count", removed)
			}
		}
	}
}
