package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

func TestPoller_RunsEachJobOnItsInterval(t *testing.T) {
	p := NewPoller(logger.NewNop(), DefaultConfig())

	var fast, slow atomic.Int32
	p.RegisterFetchFunc("fast", func(ctx context.Context) error {
		fast.Add(1)
		return nil
	}, PollerConfig{Interval: 10 * time.Millisecond})
	p.RegisterFetchFunc("slow", func(ctx context.Context) error {
		slow.Add(1)
		return errors.New("still counted")
	}, PollerConfig{Interval: time.Hour, RunOnStart: true})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if fast.Load() < 2 {
		t.Errorf("expected fast job to run several times, got %d", fast.Load())
	}
	if slow.Load() != 1 {
		t.Errorf("expected slow job to run exactly once (on start), got %d", slow.Load())
	}
}

func TestPoller_DuplicateNamePanics(t *testing.T) {
	p := NewPoller(logger.NewNop(), DefaultConfig())
	noop := func(ctx context.Context) error { return nil }
	p.RegisterFetchFunc("sweep", noop, PollerConfig{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	p.RegisterFetchFunc("sweep", noop, PollerConfig{})
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	p := NewPoller(logger.NewNop(), Config{})
	_ = p.Start(context.Background())
	_ = p.Stop()
	_ = p.Stop()
}
