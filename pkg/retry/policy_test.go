package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestDo_PermanentFailureUsesAllAttempts(t *testing.T) {
	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 3, Backoff: Linear(1500 * time.Millisecond), Sleep: rec.sleep}

	permanent := errors.New("connection refused")
	calls := 0
	attempts, err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		calls++
		if attempt != calls {
			t.Fatalf("attempt %d reported on call %d", attempt, calls)
		}
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Fatalf("expected wrapped permanent error, got %v", err)
	}
	if calls != 3 || attempts != 3 {
		t.Fatalf("expected 3 attempts, got calls=%d attempts=%d", calls, attempts)
	}
	want := []time.Duration{1500 * time.Millisecond, 3 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
		if i > 0 && rec.delays[i] <= rec.delays[i-1] {
			t.Errorf("delays not strictly increasing: %v", rec.delays)
		}
	}
}

func TestDo_StopsOnSuccess(t *testing.T) {
	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 5, Backoff: Linear(time.Second), Sleep: rec.sleep}

	attempts, err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		if attempt < 2 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if len(rec.delays) != 1 {
		t.Fatalf("expected a single sleep, got %v", rec.delays)
	}
}

func TestDo_SleepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, Backoff: Linear(time.Hour)}
	attempts, err := Do(ctx, p, func(ctx context.Context, attempt int) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Policy{}, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("x")
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
