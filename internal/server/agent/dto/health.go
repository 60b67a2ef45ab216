package dto

import "time"

type RegistrationStatus string

const (
	StatusRegistering        RegistrationStatus = "registering"
	StatusRegistered         RegistrationStatus = "registered"
	StatusRegistrationFailed RegistrationStatus = "registration_failed"
)

// DeliveryResult describes the most recent heartbeat delivery.
type DeliveryResult struct {
	At       time.Time `json:"at"`
	Attempts int       `json:"attempts"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
}

type HealthResponse struct {
	Status               RegistrationStatus `json:"status"`
	AgentID              string             `json:"agent_id,omitempty"`
	Hostname             string             `json:"hostname,omitempty"`
	StartTime            time.Time          `json:"start_time"`
	RegistrationTime     *time.Time         `json:"registration_time,omitempty"`
	Uptime               string             `json:"uptime"`
	RegistrationError    string             `json:"registration_error,omitempty"`
	RegistrationAttempts int                `json:"registration_attempts"`
	LastDelivery         *DeliveryResult    `json:"last_delivery,omitempty"`
	Deliveries           int                `json:"deliveries"`
	FailedDeliveries     int                `json:"failed_deliveries"`
	CommandsProcessed    int                `json:"commands_processed"`
	LastCommandID        string             `json:"last_command_id,omitempty"`
	LiveConnected        bool               `json:"live_connected"`
}
