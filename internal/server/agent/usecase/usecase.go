package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/live"
	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/repository"
	"github.com/Alwanly/service-fleet-monitor/internal/telemetry"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/retry"
)

// Collector produces one telemetry snapshot per heartbeat.
type Collector interface {
	Hostname() string
	Collect(ctx context.Context) telemetry.Snapshot
}

// CommandHandler processes one delivered command before it is acked.
type CommandHandler func(ctx context.Context, cmd models.Command) error

type UseCase struct {
	client    repository.IControllerClient
	repo      repository.IRepository
	collector Collector
	cfg       *config.AgentConfig
	logger    *logger.CanonicalLogger
	sleep     retry.SleepFunc
	handle    CommandHandler
	drain     chan struct{}
}

type Option func(*UseCase)

// WithSleep replaces the timer used between delivery attempts and heartbeats.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(uc *UseCase) { uc.sleep = sleep }
}

func WithCommandHandler(h CommandHandler) Option {
	return func(uc *UseCase) { uc.handle = h }
}

func NewUseCase(client repository.IControllerClient, repo repository.IRepository, collector Collector, cfg *config.AgentConfig, log *logger.CanonicalLogger, opts ...Option) *UseCase {
	uc := &UseCase{
		client:    client,
		repo:      repo,
		collector: collector,
		cfg:       cfg,
		logger:    log.Component("agent_usecase"),
		sleep:     retry.TimerSleep,
		drain:     make(chan struct{}, 1),
	}
	uc.handle = uc.logCommand
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Register connects the agent under its hostname, retrying with exponential backoff.
func (uc *UseCase) Register(ctx context.Context) error {
	hostname := uc.collector.Hostname()
	attempts := 0

	err := retry.WithExponentialBackoff(ctx, uc.connectBackoff(), func(ctx context.Context) error {
		attempts++
		rec, err := uc.client.Connect(ctx, hostname)
		if err != nil {
			uc.logger.Warn("connect attempt failed",
				logger.Int(logger.FieldAttempt, attempts),
				logger.String("hostname", hostname),
				logger.Err(err))
			return err
		}
		uc.repo.SetAgentID(rec.ID)
		return nil
	})
	uc.repo.RecordRegistration(err, attempts)
	if err != nil {
		return fmt.Errorf("register %s: %w", hostname, err)
	}

	uc.logger.WithAgentID(uc.repo.GetAgentID()).Info("agent connected", logger.Int(logger.FieldAttempt, attempts))
	return nil
}

// Heartbeat collects telemetry and delivers it. Delivery retries up to DeliveryMaxAttempts
// with attempt × DeliveryBaseDelay between tries; exhaustion is logged and returned, never fatal.
// Delivery ignores cancellation of ctx so an attempt in flight is never cut short.
func (uc *UseCase) Heartbeat(ctx context.Context) error {
	snap := uc.collector.Collect(ctx)
	if snap.Degraded() {
		uc.logger.Warn("telemetry degraded", logger.String("reason", snap.Error))
	}
	metrics, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: uc.cfg.DeliveryMaxAttempts,
		Backoff:     retry.Linear(uc.cfg.DeliveryBaseDelay),
		Sleep:       uc.sleep,
	}
	attempts, err := retry.Do(context.WithoutCancel(ctx), policy, func(ctx context.Context, attempt int) error {
		agentID, err := uc.client.Update(ctx, metrics)
		if err != nil {
			uc.logger.Warn("delivery attempt failed",
				logger.Int(logger.FieldAttempt, attempt),
				logger.Int("max_attempts", policy.MaxAttempts),
				logger.Err(err))
			return err
		}
		uc.repo.SetAgentID(agentID)
		return nil
	})
	uc.repo.RecordDelivery(err, attempts)
	if err != nil {
		uc.logger.Error("delivery exhausted", logger.Int(logger.FieldAttempt, attempts), logger.Err(err))
		return err
	}

	uc.logger.Debug("heartbeat delivered", logger.Int(logger.FieldAttempt, attempts))
	return nil
}

// DrainCommands fetches pending commands in batches, handles them in order and acks each one.
func (uc *UseCase) DrainCommands(ctx context.Context) error {
	agentID := uc.repo.GetAgentID()
	if agentID == "" {
		return nil
	}
	log := uc.logger.WithAgentID(agentID)

	for {
		cmds, err := uc.client.FetchCommands(ctx, agentID, uc.cfg.CommandBatch)
		if err != nil {
			log.Warn("fetch commands failed", logger.Err(err))
			return err
		}
		for _, cmd := range cmds {
			if err := uc.handle(ctx, cmd); err != nil {
				log.WithCommandID(cmd.ID).Warn("command handler failed", logger.Err(err))
			}
			if err := uc.client.Ack(ctx, cmd.ID); err != nil {
				log.WithCommandID(cmd.ID).Warn("ack failed", logger.Err(err))
				continue
			}
			uc.repo.RecordCommand(cmd.ID)
		}
		if len(cmds) < uc.cfg.CommandBatch {
			return nil
		}
	}
}

// Run drives heartbeats until ctx is canceled. Cancellation is observed between cycles only.
func (uc *UseCase) Run(ctx context.Context) error {
	uc.logger.Info("starting heartbeat loop", logger.Duration("interval", uc.cfg.HeartbeatInterval))
	for {
		if ctx.Err() != nil {
			uc.logger.Info("heartbeat loop stopped")
			return nil
		}
		_ = uc.Heartbeat(ctx)
		_ = uc.DrainCommands(ctx)
		uc.pause(ctx)
	}
}

// pause waits one heartbeat interval, draining commands whenever a push arrives meanwhile.
func (uc *UseCase) pause(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		_ = uc.sleep(ctx, uc.cfg.HeartbeatInterval)
		close(done)
	}()
	for {
		select {
		case <-done:
			return
		case <-uc.drain:
			_ = uc.DrainCommands(ctx)
		}
	}
}

// Subscribe keeps the live channel open until ctx is canceled, reconnecting with exponential
// backoff. A commands-available event wakes the run loop to drain immediately.
func (uc *UseCase) Subscribe(ctx context.Context) error {
	for ctx.Err() == nil {
		var conn repository.LiveConn
		err := retry.WithExponentialBackoff(ctx, uc.liveBackoff(), func(ctx context.Context) error {
			agentID := uc.repo.GetAgentID()
			if agentID == "" {
				return errors.New("agent id not known yet")
			}
			c, err := uc.client.DialLive(ctx, agentID)
			if err != nil {
				uc.logger.Debug("live dial failed", logger.Err(err))
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		uc.repo.SetLive(true)
		uc.logger.Info("live channel connected")
		err = uc.consume(ctx, conn)
		uc.repo.SetLive(false)
		if ctx.Err() != nil {
			return nil
		}
		uc.logger.Warn("live channel lost", logger.Err(err))
	}
	return nil
}

func (uc *UseCase) consume(ctx context.Context, conn repository.LiveConn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		var ev live.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if ev.Type == live.EventCommandsAvailable {
			uc.Notify()
		}
	}
}

// Serve is the agent lifecycle: register, heartbeat until ctx is canceled, then unregister.
// The live channel runs alongside when enabled. Registration failure is not fatal since
// every heartbeat also registers the agent.
func (uc *UseCase) Serve(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := uc.Register(gCtx); err != nil {
			uc.logger.WithError(err).Error("registration failed, continuing with heartbeats")
		}
		err := uc.Run(gCtx)

		disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.RequestTimeout)
		defer cancel()
		if derr := uc.Disconnect(disconnectCtx); derr != nil {
			uc.logger.WithError(derr).Warn("failed to unregister agent")
		}
		return err
	})

	if uc.cfg.LiveEnabled {
		g.Go(func() error {
			if err := uc.Subscribe(gCtx); err != nil {
				uc.logger.WithError(err).Warn("live channel disabled, falling back to polling")
			}
			return nil
		})
	}

	return g.Wait()
}

// Notify requests a command drain without blocking. Repeated requests coalesce.
func (uc *UseCase) Notify() {
	select {
	case uc.drain <- struct{}{}:
	default:
	}
}

// Disconnect unregisters the agent on shutdown.
func (uc *UseCase) Disconnect(ctx context.Context) error {
	agentID := uc.repo.GetAgentID()
	if agentID == "" {
		return nil
	}
	if err := uc.client.Disconnect(ctx, agentID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return nil
}

func (uc *UseCase) logCommand(_ context.Context, cmd models.Command) error {
	uc.logger.WithCommandID(cmd.ID).Info("command received",
		logger.String(logger.FieldAgentID, cmd.TargetAgentID),
		logger.String("payload", string(cmd.Payload)))
	return nil
}

func (uc *UseCase) connectBackoff() retry.Config {
	return retry.Config{
		MaxRetries:     uc.cfg.ConnectMaxRetries,
		InitialBackoff: uc.cfg.ConnectInitialBackoff,
		MaxBackoff:     uc.cfg.ConnectMaxBackoff,
		Multiplier:     uc.cfg.ConnectBackoffMultiplier,
		Jitter:         true,
		Sleep:          uc.sleep,
	}
}

func (uc *UseCase) liveBackoff() retry.Config {
	cfg := uc.connectBackoff()
	cfg.MaxRetries = retry.Unlimited
	return cfg
}
