package models

import (
	"encoding/json"
	"time"
)

type CommandStatus string

const (
	CommandQueued    CommandStatus = "queued"
	CommandDelivered CommandStatus = "delivered"
	CommandAcked     CommandStatus = "acked"
	CommandExpired   CommandStatus = "expired"
)

// Command is an admin-issued instruction for one agent.
type Command struct {
	ID            string          `json:"id" example:"01951f0e-7c1a-7b7e-9d3b-2f1a6c1f0a11"`
	TargetAgentID string          `json:"target_agent_id" example:"h1"`
	Payload       json.RawMessage `json:"payload" swaggertype:"object"`
	Status        CommandStatus   `json:"status" example:"delivered"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty"`
	AckedAt       *time.Time      `json:"acked_at,omitempty"`
}
