package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted is returned when every dial attempt failed.
var ErrAttemptsExhausted = errors.New("connection attempts exhausted")

// ConnectFunc is called to establish a connection.
// It should return nil on success or an error on failure.
type ConnectFunc func(ctx context.Context) error

// DialConfig controls Dial.
type DialConfig struct {
	// MaxAttempts bounds the number of connect calls. Zero or less means one
	// attempt.
	MaxAttempts int

	// AttemptTimeout bounds each connect call (default: 10s).
	AttemptTimeout time.Duration

	// Backoff configures the delay between attempts.
	Backoff BackoffConfig

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultDialConfig returns the dial settings used by the bridge client.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		MaxAttempts:    5,
		AttemptTimeout: 10 * time.Second,
		Backoff:        DefaultBackoffConfig(),
	}
}

// Dial calls fn until it succeeds, the attempts are used up, or ctx ends.
// The returned error wraps ErrAttemptsExhausted and the last failure.
func Dial(ctx context.Context, fn ConnectFunc, cfg DialConfig) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	b := NewBackoff(cfg.Backoff)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		lastErr = fn(actx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := b.Next()
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, cfg.MaxAttempts, lastErr)
}
