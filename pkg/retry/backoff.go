package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Unlimited as Policy.MaxAttempts keeps retrying until ctx is done.
const Unlimited = -1

// Config describes an exponential backoff curve.
type Config struct {
	// MaxRetries counts tries after the first one. -1 retries until ctx is done.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Multiplier grows the delay per retry, 2.0 doubles it.
	Multiplier float64

	// Jitter spreads each delay by up to ±25%.
	Jitter bool

	// Sleep defaults to TimerSleep.
	Sleep SleepFunc
}

// Policy converts cfg into the equivalent bounded (or unlimited) Policy.
func (cfg Config) Policy() Policy {
	attempts := cfg.MaxRetries + 1
	if cfg.MaxRetries < 0 {
		attempts = Unlimited
	}
	return Policy{MaxAttempts: attempts, Backoff: Exponential(cfg), Sleep: cfg.Sleep}
}

// Operation is one try of an operation retried with exponential backoff.
type Operation func(ctx context.Context) error

// WithExponentialBackoff runs op through Do with cfg's curve.
func WithExponentialBackoff(ctx context.Context, cfg Config, op Operation) error {
	_, err := Do(ctx, cfg.Policy(), func(ctx context.Context, _ int) error {
		return op(ctx)
	})
	return err
}

// exponentialDelay is InitialBackoff × Multiplier^(retry-1), capped at MaxBackoff.
func exponentialDelay(retry int, cfg Config) time.Duration {
	if retry <= 0 {
		return 0
	}

	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(retry-1))
	if cfg.MaxBackoff > 0 && d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter {
		d += d * 0.25 * (2*rand.Float64() - 1)
	}

	delay := time.Duration(d)
	if cfg.MaxBackoff > 0 && delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}
	return max(delay, 0)
}
