package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func curve(maxRetries int, rec *sleepRecorder) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		Sleep:          rec.sleep,
	}
}

func TestWithExponentialBackoff_DelaysDoubleUntilSuccess(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	err := WithExponentialBackoff(context.Background(), curve(5, rec), func(ctx context.Context) error {
		calls++
		if calls < 4 {
			return errors.New("refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
	if fmt.Sprint(rec.delays) != "[1s 2s 4s]" {
		t.Fatalf("unexpected delays %v", rec.delays)
	}
}

func TestWithExponentialBackoff_MaxRetriesCountsAfterFirstTry(t *testing.T) {
	rec := &sleepRecorder{}
	down := errors.New("down")
	calls := 0
	err := WithExponentialBackoff(context.Background(), curve(3, rec), func(ctx context.Context) error {
		calls++
		return down
	})
	if !errors.Is(err, down) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if calls != 4 || len(rec.delays) != 3 {
		t.Fatalf("expected 4 calls and 3 delays, got %d and %v", calls, rec.delays)
	}
}

func TestWithExponentialBackoff_ZeroRetriesTriesOnce(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	_ = WithExponentialBackoff(context.Background(), curve(0, rec), func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	if calls != 1 || len(rec.delays) != 0 {
		t.Fatalf("expected a single try without delay, got %d and %v", calls, rec.delays)
	}
}

func TestWithExponentialBackoff_UnlimitedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &sleepRecorder{}
	calls := 0
	err := WithExponentialBackoff(ctx, curve(-1, rec), func(ctx context.Context) error {
		calls++
		if calls == 50 {
			cancel()
		}
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 50 {
		t.Fatalf("expected retries until cancel, got %d calls", calls)
	}
	if last := rec.delays[len(rec.delays)-1]; last != 30*time.Second {
		t.Fatalf("expected delays capped at 30s, got %v", last)
	}
}

func TestWithExponentialBackoff_SleepErrorAborts(t *testing.T) {
	stop := errors.New("stopped")
	cfg := Config{MaxRetries: 5, InitialBackoff: time.Second, Multiplier: 2,
		Sleep: func(context.Context, time.Duration) error { return stop }}
	calls := 0
	err := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected abort after first try, got %d calls, %v", calls, err)
	}
}

func TestExponentialDelay(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 30 * time.Second, Multiplier: 2}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := Exponential(cfg)(tt.retry); got != tt.want {
			t.Errorf("retry %d: got %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestExponentialDelay_JitterStaysInBand(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, Multiplier: 2, Jitter: true}

	seen := make(map[time.Duration]bool)
	for range 50 {
		d := exponentialDelay(3, cfg)
		if d < 3*time.Second || d > 5*time.Second {
			t.Fatalf("delay %v outside ±25%% of 4s", d)
		}
		seen[d] = true
	}
	if len(seen) < 5 {
		t.Fatalf("jitter produced too little variation: %d distinct delays", len(seen))
	}
}
