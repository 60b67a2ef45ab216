package dto

import (
	"encoding/json"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
)

// ConnectRequest registers an agent under its hostname.
type ConnectRequest struct {
	Token string `json:"token" example:"9f2c4e1a7b3d5f60812a4c6e8b0d2f41"`
	// APIKey is accepted from agents that still send the legacy field name.
	APIKey   string `json:"api_key,omitempty" swaggerignore:"true"`
	Hostname string `json:"hostname" example:"h1"`
}

// Secret returns whichever token field the agent filled in.
func (r ConnectRequest) Secret() string {
	if r.Token != "" {
		return r.Token
	}
	return r.APIKey
}

type ConnectResponse struct {
	Status string             `json:"status" example:"connected"`
	Agent  models.AgentRecord `json:"agent"`
}

// UpdateRequest carries one telemetry document. Metrics must be a JSON object; its
// hostname field names the agent.
type UpdateRequest struct {
	Token   string          `json:"token" example:"9f2c4e1a7b3d5f60812a4c6e8b0d2f41"`
	APIKey  string          `json:"api_key,omitempty" swaggerignore:"true"`
	Metrics json.RawMessage `json:"metrics" swaggertype:"object"`
}

func (r UpdateRequest) Secret() string {
	if r.Token != "" {
		return r.Token
	}
	return r.APIKey
}

type UpdateResponse struct {
	Status  string `json:"status" example:"ok"`
	AgentID string `json:"agentId" example:"h1"`
}

type DisconnectRequest struct {
	AgentID string `json:"agentId" validate:"required,max=255" example:"h1"`
}

type DisconnectResponse struct {
	Status string             `json:"status" example:"disconnected"`
	Agent  models.AgentRecord `json:"agent"`
}

type ListAgentsResponse struct {
	Agents []string `json:"agents" example:"h1,h2"`
}

type EnqueueCommandRequest struct {
	AgentID string          `json:"agentId" validate:"required,max=255" example:"h1"`
	Payload json.RawMessage `json:"payload" validate:"required" swaggertype:"object"`
}

type EnqueueCommandResponse struct {
	Status    string `json:"status" example:"queued"`
	CommandID string `json:"commandId" example:"01951f0e-7c1a-7b7e-9d3b-2f1a6c1f0a11"`
}

type AckCommandRequest struct {
	CommandID string `json:"commandId" validate:"required" example:"01951f0e-7c1a-7b7e-9d3b-2f1a6c1f0a11"`
}

type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

type CommandHistoryResponse struct {
	AgentID  string           `json:"agentId" example:"h1"`
	Commands []models.Command `json:"commands"`
}
