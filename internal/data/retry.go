package data

import (
	"context"
	"fmt"
	"time"
)

// Retry invokes fn up to attempts times with a fixed delay between
// failures. It is applied explicitly at call sites (the orchestrator
// wraps a whole day's fetch in it) rather than baked into providers.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
