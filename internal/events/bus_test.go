package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows []Event
	err  error
}

func (m *memStore) Insert(_ context.Context, topic, entityID string, payload []byte, occurredAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, Event{Topic: topic, EntityID: entityID, Payload: payload, OccurredAt: occurredAt})
	return nil
}

func TestBusPublishStoresAndNotifies(t *testing.T) {
	store := &memStore{}
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	bus := &Bus{Store: store, Logger: zerolog.Nop(), Now: func() time.Time { return fixed }}

	var got []Event
	bus.Subscribe(TopicInvoiceCreated, func(_ context.Context, e Event) {
		got = append(got, e)
	})

	bus.Publish(context.Background(), TopicInvoiceCreated, "inv-1", map[string]any{"total": "99.5"})

	require.Len(t, store.rows, 1)
	require.Equal(t, TopicInvoiceCreated, store.rows[0].Topic)
	require.Equal(t, "inv-1", store.rows[0].EntityID)
	require.Equal(t, fixed, store.rows[0].OccurredAt)

	require.Len(t, got, 1)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(got[0].Payload, &payload))
	require.Equal(t, "99.5", payload["total"])
}

func TestBusPublishSurvivesStoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	bus := &Bus{Store: store, Logger: zerolog.Nop()}

	notified := false
	bus.Subscribe(TopicInvoiceVoided, func(_ context.Context, _ Event) { notified = true })

	bus.Publish(context.Background(), TopicInvoiceVoided, "inv-2", nil)

	require.True(t, notified, "notifiers still run when storage fails")
}

func TestBusWildcardSubscription(t *testing.T) {
	bus := &Bus{Logger: zerolog.Nop()}

	var topics []string
	bus.Subscribe("", func(_ context.Context, e Event) { topics = append(topics, e.Topic) })

	bus.Publish(context.Background(), TopicCustomerCreated, "c-1", nil)
	bus.Publish(context.Background(), TopicProductUpdated, "p-1", nil)

	require.Equal(t, []string{TopicCustomerCreated, TopicProductUpdated}, topics)
}
