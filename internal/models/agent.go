package models

import (
	"encoding/json"
	"time"
)

type AgentStatus string

const (
	AgentConnected    AgentStatus = "connected"
	AgentStale        AgentStatus = "stale"
	AgentDisconnected AgentStatus = "disconnected"
)

// AgentRecord is the registry's view of one agent.
type AgentRecord struct {
	ID          string          `json:"id" example:"h1"`
	TokenName   string          `json:"token_name" example:"node-1"`
	Status      AgentStatus     `json:"status" example:"connected"`
	LastMetrics json.RawMessage `json:"last_metrics,omitempty" swaggertype:"object"`
	LastSeen    time.Time       `json:"last_seen"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Agent is the persisted row for an AgentRecord.
type Agent struct {
	AgentID   string    `gorm:"primaryKey;column:agent_id"`
	TokenName string    `gorm:"column:token_name;index"`
	Status    string    `gorm:"column:status"`
	Metrics   string    `gorm:"column:metrics"`
	LastSeen  time.Time `gorm:"column:last_seen"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Agent) TableName() string {
	return "agents"
}

// ToRow converts a record into its persisted form.
func (r AgentRecord) ToRow() Agent {
	return Agent{
		AgentID:   r.ID,
		TokenName: r.TokenName,
		Status:    string(r.Status),
		Metrics:   string(r.LastMetrics),
		LastSeen:  r.LastSeen,
		CreatedAt: r.CreatedAt,
	}
}

// ToRecord converts a persisted row back into a record.
func (a Agent) ToRecord() AgentRecord {
	rec := AgentRecord{
		ID:        a.AgentID,
		TokenName: a.TokenName,
		Status:    AgentStatus(a.Status),
		LastSeen:  a.LastSeen,
		CreatedAt: a.CreatedAt,
	}
	if a.Metrics != "" {
		rec.LastMetrics = json.RawMessage(a.Metrics)
	}
	return rec
}
