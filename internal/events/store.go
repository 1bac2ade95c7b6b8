package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events to the domain_events table.
type PGStore struct {
	DB *pgxpool.Pool
}

// Insert appends one event row.
func (s *PGStore) Insert(ctx context.Context, topic, entityID string, payload []byte, occurredAt time.Time) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO domain_events (topic, entity_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4)`,
		topic, entityID, payload, occurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert domain event: %w", err)
	}
	return nil
}
