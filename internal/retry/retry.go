// Package retry provides bounded exponential backoff for calls to
// external quote APIs.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config configures backoff behavior. Quote lookups sit on the request
// path, so defaults stay small: a transient blip gets one cheap retry and
// anything slower falls through to the provider chain.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the backoff used for provider HTTP calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
}

// Func is an attempt of a retryable operation.
type Func func(ctx context.Context, attempt int) error

// Do runs fn up to cfg.MaxAttempts times, sleeping with exponential
// backoff between attempts. It returns nil on the first success, the
// context error if the context is cancelled during backoff, and the last
// attempt's error otherwise.
func Do(ctx context.Context, cfg Config, fn Func) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(delayFor(cfg, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func delayFor(cfg Config, attempt int) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}
