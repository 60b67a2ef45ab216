// Package store defines the durable-state collaborators the control plane reads from and
// flushes to. In-memory components stay the source of truth; stores only load and save.
package store

import (
	"context"
	"sync"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
)

// TokenStore persists the token name -> secret mapping.
type TokenStore interface {
	LoadTokens(ctx context.Context) (map[string]string, error)
	SaveToken(ctx context.Context, name, secret string) error
}

// AgentStore persists agent records. SaveAgents upserts by id.
type AgentStore interface {
	LoadAgents(ctx context.Context) ([]models.AgentRecord, error)
	SaveAgents(ctx context.Context, records []models.AgentRecord) error
}

// CredentialStore provides the admin account.
type CredentialStore interface {
	LoadAdmin(ctx context.Context) (*models.AdminCredential, error)
}

// Memory is a process-local TokenStore and AgentStore.
type Memory struct {
	mu     sync.Mutex
	tokens map[string]string
	agents map[string]models.AgentRecord
	saves  int
}

func NewMemory() *Memory {
	return &Memory{
		tokens: make(map[string]string),
		agents: make(map[string]models.AgentRecord),
	}
}

func (m *Memory) LoadTokens(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.tokens))
	for k, v := range m.tokens {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveToken(_ context.Context, name, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[name] = secret
	return nil
}

func (m *Memory) LoadAgents(_ context.Context) ([]models.AgentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AgentRecord, 0, len(m.agents))
	for _, r := range m.agents {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) SaveAgents(_ context.Context, records []models.AgentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.agents[r.ID] = r
	}
	m.saves++
	return nil
}

// Saves reports how many SaveAgents calls were made.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
