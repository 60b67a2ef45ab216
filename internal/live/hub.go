// Package live pushes low-latency notifications to connected agents and admin observers.
//
// The channel is a latency optimization only. Nothing is buffered for absent subscribers
// and a full send buffer drops the notification; agents still poll for commands.
package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/pubsub"
)

const (
	EventKeepAlive         = "keepalive"
	EventCommandsAvailable = "commands-available"
	EventAgentUpdate       = "agent.update"

	// ChannelCommands carries an agent id whenever that agent has new queued commands.
	ChannelCommands = "fleet:commands-available"
	// ChannelAgentUpdates carries an encoded agent.update Event.
	ChannelAgentUpdates = "fleet:agent-update"

	DefaultKeepAlive = 5 * time.Second
	writeWait        = 10 * time.Second
	sendBuffer       = 8
	publishTimeout   = time.Second
)

// Event is the JSON frame written to subscribers.
type Event struct {
	Type    string          `json:"type"`
	AgentID string          `json:"agent_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Time    time.Time       `json:"time"`
}

// Conn is the part of a websocket connection the hub needs. Both the fiber websocket
// middleware connection and gorilla's client connection satisfy it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type subscriber struct {
	agentID string
	conn    Conn
	send    chan Event
	done    chan struct{}
	// closed when writeLoop has returned; conn must not be touched after that
	writerDone chan struct{}
	once       sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

type Hub struct {
	bus       pubsub.PubSub
	keepAlive time.Duration
	now       func() time.Time
	logger    *logger.CanonicalLogger

	mu        sync.RWMutex
	agents    map[string]*subscriber
	observers map[*subscriber]struct{}
}

type Option func(*Hub)

// WithKeepAlive overrides DefaultKeepAlive.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// NewHub builds a hub fanning notifications out through bus. Run must be started for
// published notifications to reach local subscribers.
func NewHub(bus pubsub.PubSub, log *logger.CanonicalLogger, opts ...Option) *Hub {
	h := &Hub{
		bus:       bus,
		keepAlive: DefaultKeepAlive,
		now:       time.Now,
		logger:    log.Component("live"),
		agents:    make(map[string]*subscriber),
		observers: make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run relays bus messages to local subscribers until ctx is done, then closes every
// subscriber.
func (h *Hub) Run(ctx context.Context) error {
	msgs, err := h.bus.Subscribe(ctx, ChannelCommands, ChannelAgentUpdates)
	if err != nil {
		return err
	}
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			h.dispatch(m)
		}
	}
}

// NotifyCommands announces that agentID has newly queued commands. It never blocks on a
// slow subscriber.
func (h *Hub) NotifyCommands(agentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.bus.Publish(ctx, ChannelCommands, agentID); err != nil {
		h.logger.WithError(err).Warn("commands notification not published", logger.String(logger.FieldAgentID, agentID))
	}
}

// BroadcastUpdate sends an agent.update event to every observer.
func (h *Hub) BroadcastUpdate(agentID string, metrics json.RawMessage) {
	raw, err := json.Marshal(Event{Type: EventAgentUpdate, AgentID: agentID, Data: metrics, Time: h.now()})
	if err != nil {
		h.logger.WithError(err).Warn("agent update not encoded", logger.String(logger.FieldAgentID, agentID))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.bus.Publish(ctx, ChannelAgentUpdates, string(raw)); err != nil {
		h.logger.WithError(err).Warn("agent update not published", logger.String(logger.FieldAgentID, agentID))
	}
}

// ServeAgent registers conn as agentID's channel, replacing any previous one, and blocks
// until the connection is closed.
func (h *Hub) ServeAgent(agentID string, conn Conn) {
	s := h.newSubscriber(agentID, conn)

	h.mu.Lock()
	prev := h.agents[agentID]
	h.agents[agentID] = s
	h.mu.Unlock()
	if prev != nil {
		prev.close()
		h.logger.Info("live channel replaced", logger.String(logger.FieldAgentID, agentID))
	}

	h.logger.Info("agent live channel opened", logger.String(logger.FieldAgentID, agentID))
	h.serve(s)

	h.mu.Lock()
	if h.agents[agentID] == s {
		delete(h.agents, agentID)
	}
	h.mu.Unlock()
	h.logger.Info("agent live channel closed", logger.String(logger.FieldAgentID, agentID))
}

// ServeObserver registers conn as an admin observer and blocks until it is closed.
func (h *Hub) ServeObserver(conn Conn) {
	s := h.newSubscriber("", conn)

	h.mu.Lock()
	h.observers[s] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("observer connected")
	h.serve(s)

	h.mu.Lock()
	delete(h.observers, s)
	h.mu.Unlock()
	h.logger.Info("observer disconnected")
}

// Counts reports connected agents and observers.
func (h *Hub) Counts() (agents, observers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents), len(h.observers)
}

// Connected reports whether agentID holds an open channel.
func (h *Hub) Connected(agentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.agents[agentID]
	return ok
}

func (h *Hub) newSubscriber(agentID string, conn Conn) *subscriber {
	return &subscriber{
		agentID:    agentID,
		conn:       conn,
		send:       make(chan Event, sendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// serve runs the writer for s and reads until the peer goes away. It returns only after
// the writer has stopped, since the transport may recycle conn once the handler returns.
func (h *Hub) serve(s *subscriber) {
	go h.writeLoop(s)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}
	s.close()
	<-s.writerDone
}

func (h *Hub) writeLoop(s *subscriber) {
	defer close(s.writerDone)
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		var ev Event
		select {
		case <-s.done:
			return
		case ev = <-s.send:
		case <-ticker.C:
			ev = Event{Type: EventKeepAlive, AgentID: s.agentID, Time: h.now()}
		}
		if err := h.write(s, ev); err != nil {
			h.logger.WithError(err).Debug("live write failed", logger.String(logger.FieldAgentID, s.agentID))
			s.close()
			return
		}
	}
}

func (h *Hub) write(s *subscriber, ev Event) error {
	if err := s.conn.SetWriteDeadline(h.now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(ev)
}

func (h *Hub) dispatch(m pubsub.Message) {
	switch m.Channel {
	case ChannelCommands:
		h.mu.RLock()
		s := h.agents[m.Payload]
		h.mu.RUnlock()
		if s != nil {
			offer(s, Event{Type: EventCommandsAvailable, AgentID: m.Payload, Time: h.now()})
		}
	case ChannelAgentUpdates:
		var ev Event
		if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
			h.logger.WithError(err).Warn("malformed agent update on bus")
			return
		}
		h.mu.RLock()
		targets := make([]*subscriber, 0, len(h.observers))
		for s := range h.observers {
			targets = append(targets, s)
		}
		h.mu.RUnlock()
		for _, s := range targets {
			offer(s, ev)
		}
	}
}

// offer hands ev to s without blocking; the event is dropped if s is slow or closed.
func offer(s *subscriber, ev Event) {
	select {
	case <-s.done:
	case s.send <- ev:
	default:
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.agents)+len(h.observers))
	for _, s := range h.agents {
		subs = append(subs, s)
	}
	for s := range h.observers {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.close()
	}
}
