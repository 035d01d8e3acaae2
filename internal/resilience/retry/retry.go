// Package retry runs an operation on an exponential backoff schedule.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Config describes a backoff schedule.
type Config struct {
	// MaxAttempts counts the first call.
	MaxAttempts int

	// InitialDelay is the pause after the first failure.
	InitialDelay time.Duration

	// MaxDelay caps a single pause. Zero means uncapped.
	MaxDelay time.Duration

	// Multiplier grows the pause after each failure.
	Multiplier float64

	// JitterFraction adds up to this share of the pause at random (0.0 to 1.0).
	JitterFraction float64

	// ShouldRetry classifies errors. Nil retries everything except context errors.
	ShouldRetry func(error) bool

	// DelayFor lets an error dictate its own pause, such as a Retry-After hint.
	// The computed schedule applies when it is nil or returns false.
	DelayFor func(error) (time.Duration, bool)

	// Wait blocks for d or until ctx is done. Nil means a real timer.
	Wait func(ctx context.Context, d time.Duration) error
}

// FetchConfig is the outbound page fetch schedule: three attempts with
// 2^(attempt+1) seconds between them (2s, then 4s). It carries no jitter so
// the pauses are exact.
func FetchConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns the pause that follows failed attempt n (1-based), before jitter.
func (c Config) Delay(n int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < n; i++ {
		d *= c.Multiplier
	}
	if c.MaxDelay > 0 && time.Duration(d) > c.MaxDelay {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// WithBackoff calls fn until it succeeds, returns an error ShouldRetry rejects,
// or MaxAttempts is spent. A rejected error is returned as is; an exhausted
// budget wraps the last error.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = notContextError
	}
	wait := cfg.Wait
	if wait == nil {
		wait = sleep
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := jitter(cfg.Delay(attempt), cfg.JitterFraction)
		if cfg.DelayFor != nil {
			if d, ok := cfg.DelayFor(err); ok {
				delay = d
			}
		}
		slog.Debug("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		if werr := wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry aborted: %w", werr)
		}
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
}

func notContextError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	fraction = min(fraction, 1.0)
	// #nosec G404 -- jitter does not need a cryptographic source.
	return d + time.Duration(rand.Float64()*float64(d)*fraction)
}
