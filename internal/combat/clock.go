package combat

import (
	"context"
	"errors"
	"time"
)

// ErrIdleTimeout is returned by Clock after it aborted an idle session.
var ErrIdleTimeout = errors.New("combat: battle idle timeout")

// Clock ticks s every interval until the session ends or ctx is cancelled.
// A session left without an attack for the config's IdleTimeout is aborted
// and Clock returns ErrIdleTimeout. It blocks; callers run it on its own
// goroutine.
func Clock(ctx context.Context, s *Session, interval time.Duration) error {
	if interval <= 0 {
		interval = s.cfg.TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Done():
			return nil
		case <-ticker.C:
			s.Tick()
			if s.cfg.IdleTimeout > 0 && s.abortIdle(s.cfg.IdleTimeout) {
				return ErrIdleTimeout
			}
		}
	}
}
