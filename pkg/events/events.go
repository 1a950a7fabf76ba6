package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TopicUsers    = "user_events"
	TopicProducts = "product_events"
	TopicCarts    = "cart_events"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(eventType string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, Event) error { return nil }
func (NopPublisher) Close() error                                         { return nil }

type Published struct {
	Topic string
	Key   string
	Event Event
}

// MemoryPublisher keeps events in memory. Used by tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Published
}

func (m *MemoryPublisher) Publish(_ context.Context, topic, key string, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Published{Topic: topic, Key: key, Event: event})
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

func (m *MemoryPublisher) Events() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Published, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryPublisher) Types() []string {
	evs := m.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Event.Type
	}
	return out
}
