package pubsub

import (
	"context"
	"sync"
)

// memoryPubSub delivers messages inside one process. It backs poll-only deployments and tests.
type memoryPubSub struct {
	mu     sync.Mutex
	subs   map[string][]chan Message
	closed bool
}

func NewMemoryPubSub() PubSub {
	return &memoryPubSub{subs: make(map[string][]chan Message)}
}

// Publish never blocks; a subscriber with a full buffer misses the message.
func (m *memoryPubSub) Publish(_ context.Context, channel string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs[channel] {
		select {
		case ch <- Message{Channel: channel, Payload: message}:
		default:
		}
	}
	return nil
}

func (m *memoryPubSub) Subscribe(_ context.Context, channels ...string) (<-chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Message, 16)
	for _, c := range channels {
		m.subs[c] = append(m.subs[c], ch)
	}
	return ch, nil
}

func (m *memoryPubSub) Unsubscribe(_ context.Context, channels ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range channels {
		delete(m.subs, c)
	}
	return nil
}

func (m *memoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	seen := make(map[chan Message]struct{})
	for _, list := range m.subs {
		for _, ch := range list {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			close(ch)
		}
	}
	m.subs = map[string][]chan Message{}
	return nil
}
