package services

import (
	"context"
	"math/rand"
	"time"
)

const maxRetryDelay = 2 * time.Second

// exponentialBackoff returns base * 2^attempt, capped at maxRetryDelay.
func exponentialBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt > 16 {
		attempt = 16
	}
	d := base << uint(attempt)
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// fullJitter picks a uniformly random delay in [0, d].
func fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
