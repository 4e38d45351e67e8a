package routing

import (
	"context"
	"time"
)

const (
	baseBackoff = time.Second
	maxBackoff  = 5 * time.Second
)

// Backoff returns the wait after the given zero-based failed attempt:
// min(1s * 2^attempt, 5s).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 3 {
		return maxBackoff
	}
	return min(baseBackoff<<attempt, maxBackoff)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
