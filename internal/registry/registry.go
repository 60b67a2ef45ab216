// Package registry tracks connected agents, their latest telemetry and liveness.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/store"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

// UnknownAgentID is used when an update carries no hostname.
const UnknownAgentID = "unknown"

// StaleMultiplier is how many missed heartbeats turn a Connected agent Stale.
const StaleMultiplier = 3

// TokenLookup resolves a presented secret to its token name.
type TokenLookup interface {
	Lookup(secret string) (string, bool)
}

type entry struct {
	mu    sync.Mutex
	rec   models.AgentRecord
	dirty bool
}

// Registry is keyed by agent id. The table lock only guards membership;
// each record is mutated under its own lock.
type Registry struct {
	tokens TokenLookup
	store  store.AgentStore
	logger *logger.CanonicalLogger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(tokens TokenLookup, st store.AgentStore, log *logger.CanonicalLogger, opts ...Option) *Registry {
	r := &Registry{
		tokens:  tokens,
		store:   st,
		logger:  log.Component("registry"),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect registers (or refreshes) the agent reporting hostname.
func (r *Registry) Connect(secret, hostname string) (models.AgentRecord, error) {
	tokenName, ok := r.tokens.Lookup(secret)
	if !ok {
		return models.AgentRecord{}, fmt.Errorf("%w: invalid token", apperror.ErrAuth)
	}
	id := hostname
	if id == "" {
		id = UnknownAgentID
	}

	rec := r.upsert(id, func(rec *models.AgentRecord) {
		rec.TokenName = tokenName
	})
	r.logger.Info("agent connected", logger.String(logger.FieldAgentID, id), logger.String(logger.FieldTokenName, tokenName))
	return rec, nil
}

// Update stores a telemetry document. The agent id comes from metrics.hostname.
func (r *Registry) Update(secret string, metrics json.RawMessage) (models.AgentRecord, error) {
	tokenName, ok := r.tokens.Lookup(secret)
	if !ok {
		return models.AgentRecord{}, fmt.Errorf("%w: invalid token", apperror.ErrAuth)
	}

	trimmed := bytes.TrimSpace(metrics)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.AgentRecord{}, fmt.Errorf("%w: metrics must be a JSON object", apperror.ErrValidation)
	}
	var head struct {
		Hostname string `json:"hostname"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return models.AgentRecord{}, fmt.Errorf("%w: metrics: %v", apperror.ErrValidation, err)
	}

	id := head.Hostname
	if id == "" {
		id = UnknownAgentID
		r.logger.Warn("update without hostname, recording as unknown", logger.String(logger.FieldTokenName, tokenName))
	}

	doc := make(json.RawMessage, len(trimmed))
	copy(doc, trimmed)
	return r.upsert(id, func(rec *models.AgentRecord) {
		rec.TokenName = tokenName
		rec.LastMetrics = doc
	}), nil
}

// upsert creates the record if needed, applies mutate, marks it Connected and refreshes LastSeen.
func (r *Registry) upsert(id string, mutate func(*models.AgentRecord)) models.AgentRecord {
	e := r.getOrCreate(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	mutate(&e.rec)
	e.rec.Status = models.AgentConnected
	if now := r.now(); now.After(e.rec.LastSeen) {
		e.rec.LastSeen = now
	}
	e.dirty = true
	return e.rec
}

func (r *Registry) getOrCreate(id string) *entry {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e
	}
	e = &entry{rec: models.AgentRecord{ID: id, CreatedAt: r.now()}}
	r.entries[id] = e
	return e
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Disconnect marks the agent Disconnected. The token must be the one the agent registered with.
func (r *Registry) Disconnect(secret, id string) (models.AgentRecord, error) {
	tokenName, ok := r.tokens.Lookup(secret)
	if !ok {
		return models.AgentRecord{}, fmt.Errorf("%w: invalid token", apperror.ErrAuth)
	}
	e, ok := r.lookup(id)
	if !ok {
		return models.AgentRecord{}, fmt.Errorf("%w: agent %s", apperror.ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.TokenName != tokenName {
		return models.AgentRecord{}, fmt.Errorf("%w: token does not own agent %s", apperror.ErrAuth, id)
	}
	e.rec.Status = models.AgentDisconnected
	e.dirty = true
	r.logger.Info("agent disconnected", logger.String(logger.FieldAgentID, id))
	return e.rec, nil
}

// List returns a snapshot of known agent ids.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Get returns a copy of the record.
func (r *Registry) Get(id string) (models.AgentRecord, error) {
	e, ok := r.lookup(id)
	if !ok {
		return models.AgentRecord{}, fmt.Errorf("%w: agent %s", apperror.ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec, nil
}

// Exists reports whether id has ever connected.
func (r *Registry) Exists(id string) bool {
	_, ok := r.lookup(id)
	return ok
}

// Authorize reports whether secret is valid and belongs to the token agent id registered with.
func (r *Registry) Authorize(secret, id string) error {
	tokenName, ok := r.tokens.Lookup(secret)
	if !ok {
		return fmt.Errorf("%w: invalid token", apperror.ErrAuth)
	}
	e, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("%w: agent %s", apperror.ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.TokenName != tokenName {
		return fmt.Errorf("%w: token does not own agent %s", apperror.ErrAuth, id)
	}
	return nil
}

// SweepStale marks Connected agents silent for more than StaleMultiplier heartbeats as Stale.
// It returns the ids that changed.
func (r *Registry) SweepStale(now time.Time, heartbeatInterval time.Duration) []string {
	threshold := StaleMultiplier * heartbeatInterval

	r.mu.RLock()
	snapshot := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		snapshot = append(snapshot, e)
	}
	r.mu.RUnlock()

	var stale []string
	for _, e := range snapshot {
		e.mu.Lock()
		if e.rec.Status == models.AgentConnected && now.Sub(e.rec.LastSeen) > threshold {
			e.rec.Status = models.AgentStale
			e.dirty = true
			stale = append(stale, e.rec.ID)
		}
		e.mu.Unlock()
	}

	if len(stale) > 0 {
		r.logger.Info("agents marked stale", logger.Int(logger.FieldSweptCount, len(stale)), logger.Any("agents", stale))
	}
	return stale
}

// Counts returns the number of agents per status.
func (r *Registry) Counts() map[models.AgentStatus]int {
	r.mu.RLock()
	snapshot := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		snapshot = append(snapshot, e)
	}
	r.mu.RUnlock()

	out := make(map[models.AgentStatus]int)
	for _, e := range snapshot {
		e.mu.Lock()
		out[e.rec.Status]++
		e.mu.Unlock()
	}
	return out
}

// Load seeds the table from the durable store. Existing in-memory records win.
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.store.LoadAgents(ctx)
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if _, ok := r.entries[rec.ID]; ok {
			continue
		}
		r.entries[rec.ID] = &entry{rec: rec}
	}
	r.logger.Info("agents loaded", logger.Int("count", len(records)))
	return nil
}

// Flush writes records changed since the last flush. Failed records stay dirty.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.RLock()
	snapshot := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		snapshot = append(snapshot, e)
	}
	r.mu.RUnlock()

	var (
		dirty   []*entry
		records []models.AgentRecord
	)
	for _, e := range snapshot {
		e.mu.Lock()
		if e.dirty {
			e.dirty = false
			dirty = append(dirty, e)
			records = append(records, e.rec)
		}
		e.mu.Unlock()
	}
	if len(records) == 0 {
		return nil
	}

	if err := r.store.SaveAgents(ctx, records); err != nil {
		for _, e := range dirty {
			e.mu.Lock()
			e.dirty = true
			e.mu.Unlock()
		}
		return fmt.Errorf("flush agents: %w", err)
	}
	r.logger.Debug("agents flushed", logger.Int("count", len(records)))
	return nil
}
