package retry

import (
	"context"
	"fmt"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// BackoffFunc returns the delay to wait after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// Policy is a bounded retry with a caller-chosen backoff curve.
type Policy struct {
	// MaxAttempts counts the first try. Unlimited retries until ctx is done; other values
	// below 1 are treated as 1.
	MaxAttempts int
	Backoff     BackoffFunc
	// Sleep defaults to a timer honoring ctx. Tests swap it for a recorder.
	Sleep SleepFunc
}

// AttemptFunc is one try of a retried operation.
type AttemptFunc func(ctx context.Context, attempt int) error

// Linear grows the delay as attempt * base.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// Exponential adapts Config into a BackoffFunc.
func Exponential(cfg Config) BackoffFunc {
	return func(attempt int) time.Duration {
		return exponentialDelay(attempt, cfg)
	}
}

// TimerSleep is the production SleepFunc.
func TimerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// Do runs op until it succeeds or MaxAttempts is reached. No delay follows the last attempt.
// It returns the number of attempts made.
func Do(ctx context.Context, p Policy, op AttemptFunc) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 && maxAttempts != Unlimited {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = TimerSleep
	}

	var err error
	for attempt := 1; maxAttempts == Unlimited || attempt <= maxAttempts; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if attempt == maxAttempts {
			break
		}

		if cerr := ctx.Err(); cerr != nil {
			return attempt, fmt.Errorf("operation canceled after %d attempts: %w", attempt, cerr)
		}
		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return attempt, fmt.Errorf("operation canceled after %d attempts: %w", attempt, serr)
		}
	}
	return maxAttempts, fmt.Errorf("operation failed after %d attempts: %w", maxAttempts, err)
}
