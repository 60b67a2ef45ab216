package poll

import (
	"context"
	"sync"
	"time"

	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"go.uber.org/zap"
)

// poller implements the Poller interface
type poller struct {
	logger     *logger.CanonicalLogger
	cfg        Config
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	mu         sync.Mutex
	fetchFuncs map[string]MetaFunc
}

// NewPoller creates a new Poller instance
func NewPoller(log *logger.CanonicalLogger, cfg Config) Poller {
	if cfg.Interval <= 0 {
		cfg = DefaultConfig()
	}
	return &poller{
		logger:     log.Component("poller"),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		fetchFuncs: make(map[string]MetaFunc),
	}
}

// Start begins running every registered job
func (p *poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, meta := range p.fetchFuncs {
		p.wg.Add(1)
		go p.run(ctx, name, meta)
	}
	return nil
}

// Stop gracefully stops the poller
func (p *poller) Stop() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	return nil
}

func (p *poller) run(ctx context.Context, name string, meta MetaFunc) {
	defer p.wg.Done()

	interval := meta.Interval
	if interval <= 0 {
		interval = p.cfg.Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.logger.Info("started polling", zap.String(logger.FieldJobName, name), zap.Duration("interval", interval))

	if meta.RunOnStart {
		p.performPoll(ctx, name, meta.FetchFunc)
	}

	for {
		select {
		case <-p.stopCh:
			p.logger.Info("stopping job", zap.String(logger.FieldJobName, name))
			return
		case <-ctx.Done():
			p.logger.Info("context done, stopping job", zap.String(logger.FieldJobName, name))
			return
		case <-ticker.C:
			p.performPoll(ctx, name, meta.FetchFunc)
		}
	}
}

// performPoll executes a single run of one job
func (p *poller) performPoll(ctx context.Context, name string, fn FetchFunc) {
	if err := fn(ctx); err != nil {
		p.logger.Error("periodic job failed", zap.String(logger.FieldJobName, name), zap.Error(err))
		return
	}
	p.logger.Debug("periodic job completed", zap.String(logger.FieldJobName, name))
}

// RegisterFetchFunc registers a job with its polling configuration
func (p *poller) RegisterFetchFunc(name string, fetchFunc FetchFunc, config PollerConfig) {
	if name == "" || fetchFunc == nil {
		p.logger.Error("invalid fetch function registration")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.fetchFuncs[name]; exists {
		panic("name already existing")
	}
	p.fetchFuncs[name] = MetaFunc{
		FetchFunc:    fetchFunc,
		PollerConfig: config,
	}
	p.logger.Info("job registered", zap.String(logger.FieldJobName, name), zap.Duration("interval", config.Interval))
}
