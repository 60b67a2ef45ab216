package dto

import "time"

type HealthResponse struct {
	Status         string         `json:"status" example:"healthy"`
	Agents         map[string]int `json:"agents"`
	QueuedCommands int            `json:"queued_commands" example:"0"`
	LiveAgents     int            `json:"live_agents" example:"1"`
	Observers      int            `json:"observers" example:"0"`
	Time           time.Time      `json:"time"`
}
