package poll

import (
	"context"
	"time"
)

type PollerConfig struct {
	Interval time.Duration
	// RunOnStart fires the job once before the first tick.
	RunOnStart bool
}

type MetaFunc struct {
	FetchFunc
	PollerConfig
}

// Poller runs named jobs on their own intervals until stopped.
type Poller interface {
	// Start launches one goroutine per registered job
	Start(ctx context.Context) error
	// Stop gracefully stops the poller and waits for running jobs
	Stop() error
	// RegisterFetchFunc registers a job under a unique name
	RegisterFetchFunc(name string, fetchFunc FetchFunc, config PollerConfig)
}

// FetchFunc is one run of a periodic job.
type FetchFunc func(ctx context.Context) error
