// Package dispatch keeps a FIFO of admin-issued commands per agent.
//
// Delivery is at-most-once: FetchPending marks commands Delivered in the same critical
// section that reads them, and nothing ever moves a command back to Queued. A command
// lost between delivery and processing on the agent is not redelivered.
package dispatch

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

const (
	DefaultTTL   = 5 * time.Minute
	DefaultBatch = 10
	// MaxHistory bounds the finished (acked or expired) commands kept per agent.
	MaxHistory = 500
)

// SessionAuthorizer gates enqueue.
type SessionAuthorizer interface {
	Authorize(sessionID string) bool
}

// AgentDirectory answers whether an agent id is registered.
type AgentDirectory interface {
	Exists(id string) bool
}

// Notifier is told when an agent has new Queued commands.
type Notifier interface {
	NotifyCommands(agentID string)
}

type queue struct {
	mu      sync.Mutex
	pending []*models.Command
	history []*models.Command
}

type Dispatcher struct {
	sessions SessionAuthorizer
	agents   AgentDirectory
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
	newID    func() string
	logger   *logger.CanonicalLogger

	mu     sync.RWMutex
	queues map[string]*queue
	index  map[string]*queue
}

type Option func(*Dispatcher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithNotifier registers the push hook called after every enqueue.
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

func New(sessions SessionAuthorizer, agents AgentDirectory, log *logger.CanonicalLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sessions: sessions,
		agents:   agents,
		ttl:      DefaultTTL,
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
		logger:   log.Component("dispatcher"),
		queues:   make(map[string]*queue),
		index:    make(map[string]*queue),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue appends a command to the tail of agentID's queue.
func (d *Dispatcher) Enqueue(sessionID, agentID string, payload json.RawMessage) (models.Command, error) {
	if !d.sessions.Authorize(sessionID) {
		return models.Command{}, fmt.Errorf("%w: admin session required", apperror.ErrAuth)
	}
	if !d.agents.Exists(agentID) {
		return models.Command{}, fmt.Errorf("%w: agent %s", apperror.ErrNotFound, agentID)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return models.Command{}, fmt.Errorf("%w: payload must be valid JSON", apperror.ErrValidation)
	}

	now := d.now()
	cmd := &models.Command{
		ID:            d.newID(),
		TargetAgentID: agentID,
		Payload:       append(json.RawMessage(nil), payload...),
		Status:        models.CommandQueued,
		CreatedAt:     now,
		ExpiresAt:     now.Add(d.ttl),
	}

	q := d.queueFor(agentID)
	// indexed before it is fetchable
	d.mu.Lock()
	d.index[cmd.ID] = q
	d.mu.Unlock()

	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.history = append(q.history, cmd)
	trimmed := q.trimHistory()
	out := *cmd
	q.mu.Unlock()

	if len(trimmed) > 0 {
		d.mu.Lock()
		for _, id := range trimmed {
			delete(d.index, id)
		}
		d.mu.Unlock()
	}

	d.logger.Info("command queued",
		logger.String(logger.FieldAgentID, agentID),
		logger.String(logger.FieldCommandID, cmd.ID),
		logger.Time("expires_at", cmd.ExpiresAt),
	)

	if d.notifier != nil {
		d.notifier.NotifyCommands(agentID)
	}
	return out, nil
}

// FetchPending returns up to maxBatch Queued commands in enqueue order and marks them
// Delivered before the queue lock is released.
func (d *Dispatcher) FetchPending(agentID string, maxBatch int) ([]models.Command, error) {
	if !d.agents.Exists(agentID) {
		return nil, fmt.Errorf("%w: agent %s", apperror.ErrNotFound, agentID)
	}
	if maxBatch <= 0 {
		maxBatch = DefaultBatch
	}

	d.mu.RLock()
	q, ok := d.queues[agentID]
	d.mu.RUnlock()
	if !ok {
		return []models.Command{}, nil
	}

	now := d.now()
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Command, 0, min(maxBatch, len(q.pending)))
	consumed := 0
	for _, cmd := range q.pending {
		if len(out) == maxBatch {
			break
		}
		consumed++
		if now.After(cmd.ExpiresAt) {
			cmd.Status = models.CommandExpired
			continue
		}
		delivered := now
		cmd.Status = models.CommandDelivered
		cmd.DeliveredAt = &delivered
		out = append(out, *cmd)
	}
	q.pending = q.pending[consumed:]
	return out, nil
}

// Ack moves a Delivered command to Acked. Acking twice is a no-op.
func (d *Dispatcher) Ack(commandID string) error {
	q, cmd, ok := d.find(commandID)
	if !ok {
		return fmt.Errorf("%w: command %s", apperror.ErrNotFound, commandID)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	switch cmd.Status {
	case models.CommandAcked:
		return nil
	case models.CommandDelivered:
		acked := d.now()
		cmd.Status = models.CommandAcked
		cmd.AckedAt = &acked
		d.logger.Info("command acked", logger.String(logger.FieldCommandID, commandID), logger.String(logger.FieldAgentID, cmd.TargetAgentID))
		return nil
	default:
		return fmt.Errorf("%w: command %s is %s", apperror.ErrConflict, commandID, cmd.Status)
	}
}

// Get returns a copy of one command.
func (d *Dispatcher) Get(commandID string) (models.Command, error) {
	q, cmd, ok := d.find(commandID)
	if !ok {
		return models.Command{}, fmt.Errorf("%w: command %s", apperror.ErrNotFound, commandID)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return *cmd, nil
}

// History lists every retained command for agentID in enqueue order.
func (d *Dispatcher) History(agentID string) []models.Command {
	d.mu.RLock()
	q, ok := d.queues[agentID]
	d.mu.RUnlock()
	if !ok {
		return []models.Command{}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.Command, len(q.history))
	for i, cmd := range q.history {
		out[i] = *cmd
	}
	return out
}

// SweepExpired expires Queued commands past their deadline and drops them from the live
// queue. It returns the expired command ids.
func (d *Dispatcher) SweepExpired(now time.Time) []string {
	d.mu.RLock()
	snapshot := make([]*queue, 0, len(d.queues))
	for _, q := range d.queues {
		snapshot = append(snapshot, q)
	}
	d.mu.RUnlock()

	var expired []string
	for _, q := range snapshot {
		q.mu.Lock()
		kept := q.pending[:0]
		for _, cmd := range q.pending {
			if now.After(cmd.ExpiresAt) {
				cmd.Status = models.CommandExpired
				expired = append(expired, cmd.ID)
				continue
			}
			kept = append(kept, cmd)
		}
		for i := len(kept); i < len(q.pending); i++ {
			q.pending[i] = nil
		}
		q.pending = kept
		q.mu.Unlock()
	}

	if len(expired) > 0 {
		d.logger.Info("commands expired", logger.Int(logger.FieldSweptCount, len(expired)))
	}
	return expired
}

// PendingCount is the number of Queued commands across all agents.
func (d *Dispatcher) PendingCount() int {
	d.mu.RLock()
	snapshot := make([]*queue, 0, len(d.queues))
	for _, q := range d.queues {
		snapshot = append(snapshot, q)
	}
	d.mu.RUnlock()

	total := 0
	for _, q := range snapshot {
		q.mu.Lock()
		total += len(q.pending)
		q.mu.Unlock()
	}
	return total
}

func (d *Dispatcher) queueFor(agentID string) *queue {
	d.mu.RLock()
	q, ok := d.queues[agentID]
	d.mu.RUnlock()
	if ok {
		return q
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if q, ok := d.queues[agentID]; ok {
		return q
	}
	q = &queue{}
	d.queues[agentID] = q
	return q
}

func (d *Dispatcher) find(commandID string) (*queue, *models.Command, bool) {
	d.mu.RLock()
	q, ok := d.index[commandID]
	d.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, cmd := range q.history {
		if cmd.ID == commandID {
			return q, cmd, true
		}
	}
	return nil, nil, false
}

// trimHistory drops the oldest finished commands beyond MaxHistory. Caller holds q.mu.
func (q *queue) trimHistory() []string {
	excess := len(q.history) - MaxHistory
	if excess <= 0 {
		return nil
	}
	var dropped []string
	kept := make([]*models.Command, 0, len(q.history))
	for _, cmd := range q.history {
		finished := cmd.Status == models.CommandAcked || cmd.Status == models.CommandExpired
		if excess > 0 && finished {
			dropped = append(dropped, cmd.ID)
			excess--
			continue
		}
		kept = append(kept, cmd)
	}
	q.history = kept
	return dropped
}
