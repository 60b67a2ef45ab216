package repository

import (
	"context"
	"encoding/json"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/dto"
)

// IControllerClient defines the interface for communicating with the control plane
type IControllerClient interface {
	// Connect registers hostname under the agent's token
	Connect(ctx context.Context, hostname string) (*models.AgentRecord, error)
	// Update delivers one telemetry document and returns the id the server recorded
	Update(ctx context.Context, metrics json.RawMessage) (string, error)
	// FetchCommands takes up to max pending commands for agentID
	FetchCommands(ctx context.Context, agentID string, max int) ([]models.Command, error)
	// Ack acknowledges a processed command
	Ack(ctx context.Context, commandID string) error
	// Disconnect marks agentID Disconnected on the server
	Disconnect(ctx context.Context, agentID string) error
	// DialLive opens the push channel for agentID
	DialLive(ctx context.Context, agentID string) (LiveConn, error)
}

// LiveConn is an open push channel.
type LiveConn interface {
	ReadJSON(v any) error
	Close() error
}

// IRepository holds the agent's local view of its own state
type IRepository interface {
	SetAgentID(agentID string)
	GetAgentID() string
	RecordRegistration(err error, attempts int)
	RecordDelivery(err error, attempts int)
	RecordCommand(id string)
	SetLive(connected bool)
	Snapshot() dto.HealthResponse
}
