package repository

import (
	"sync"
	"time"

	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/dto"
)

// Repository is the agent's in-memory record of its registration, last delivery and
// processed commands. It backs the local health endpoint.
type Repository struct {
	mutex sync.RWMutex
	state dto.HealthResponse
	now   func() time.Time
}

// NewRepository creates a new repository instance
func NewRepository(hostname string, startTime time.Time) *Repository {
	return &Repository{
		state: dto.HealthResponse{
			Status:    dto.StatusRegistering,
			Hostname:  hostname,
			StartTime: startTime,
		},
		now: time.Now,
	}
}

var _ IRepository = (*Repository)(nil)

func (r *Repository) SetAgentID(agentID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state.AgentID = agentID
}

func (r *Repository) GetAgentID() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.state.AgentID
}

func (r *Repository) RecordRegistration(err error, attempts int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state.RegistrationAttempts = attempts
	if err != nil {
		r.state.Status = dto.StatusRegistrationFailed
		r.state.RegistrationError = err.Error()
		return
	}
	now := r.now()
	r.state.Status = dto.StatusRegistered
	r.state.RegistrationTime = &now
	r.state.RegistrationError = ""
}

func (r *Repository) RecordDelivery(err error, attempts int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	now := r.now()
	r.state.LastDelivery = &dto.DeliveryResult{At: now, Attempts: attempts, OK: err == nil}
	if err != nil {
		r.state.LastDelivery.Error = err.Error()
		r.state.FailedDeliveries++
		return
	}
	r.state.Deliveries++
}

func (r *Repository) RecordCommand(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state.CommandsProcessed++
	r.state.LastCommandID = id
}

func (r *Repository) SetLive(connected bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state.LiveConnected = connected
}

// Snapshot returns a copy of the current state with uptime filled in.
func (r *Repository) Snapshot() dto.HealthResponse {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := r.state
	if r.state.LastDelivery != nil {
		d := *r.state.LastDelivery
		out.LastDelivery = &d
	}
	out.Uptime = r.now().Sub(r.state.StartTime).Round(time.Second).String()
	return out
}
