// Package events records domain events and fans them out to in-process
// subscribers. Events are persisted for audit before notifiers run, so a
// crashed subscriber never loses the record.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store persists domain events.
type Store interface {
	Insert(ctx context.Context, topic, entityID string, payload []byte, occurredAt time.Time) error
}

// Notifier receives events after they are stored.
type Notifier func(ctx context.Context, e Event)

// Event is a recorded domain event.
type Event struct {
	Topic      string          `json:"topic"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Bus stores events and notifies subscribers synchronously in publish order.
type Bus struct {
	Store  Store
	Logger zerolog.Logger
	Now    func() time.Time

	mu        sync.RWMutex
	notifiers map[string][]Notifier
}

// Subscribe registers a notifier for a topic. An empty topic subscribes to
// every event.
func (b *Bus) Subscribe(topic string, n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notifiers == nil {
		b.notifiers = make(map[string][]Notifier)
	}
	b.notifiers[topic] = append(b.notifiers[topic], n)
}

// Publish stores the event and invokes matching notifiers. Storage failures
// are logged, not returned: publishing must never fail the business
// operation that triggered it.
func (b *Bus) Publish(ctx context.Context, topic, entityID string, payload any) {
	now := time.Now().UTC()
	if b.Now != nil {
		now = b.Now()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		b.Logger.Error().Err(err).Str("topic", topic).Msg("marshal event payload")
		raw = []byte("{}")
	}
	if b.Store != nil {
		if err := b.Store.Insert(ctx, topic, entityID, raw, now); err != nil {
			b.Logger.Error().Err(err).Str("topic", topic).Str("entity_id", entityID).Msg("store event")
		}
	}
	e := Event{Topic: topic, EntityID: entityID, Payload: raw, OccurredAt: now}

	b.mu.RLock()
	targets := append([]Notifier{}, b.notifiers[topic]...)
	targets = append(targets, b.notifiers[""]...)
	b.mu.RUnlock()

	for _, n := range targets {
		n(ctx, e)
	}
}
