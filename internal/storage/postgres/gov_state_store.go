package postgres

import (
	"context"
	"fmt"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

// GovStateStore implements storage.GovStateStore using PostgreSQL.
type GovStateStore struct {
	pool *Pool
}

// NewGovStateStore creates a new GovStateStore.
func NewGovStateStore(pool *Pool) *GovStateStore {
	return &GovStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GovStateStore = (*GovStateStore)(nil)

// LastSeen returns the watermark for an event type, 0 if never set.
func (s *GovStateStore) LastSeen(ctx context.Context, eventType domain.GovEventType) (int64, error) {
	query := `
		SELECT last_seen_block
		FROM gov_poll_state
		WHERE event_type = $1
	`

	var block int64
	err := s.pool.QueryRow(ctx, query, string(eventType)).Scan(&block)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get gov watermark: %w", err)
	}
	return block, nil
}

// SetLastSeen upserts the watermark for an event type.
func (s *GovStateStore) SetLastSeen(ctx context.Context, eventType domain.GovEventType, block int64) error {
	if eventType == "" || block < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO gov_poll_state (event_type, last_seen_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (event_type) DO UPDATE
		SET last_seen_block = EXCLUDED.last_seen_block, updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, string(eventType), block); err != nil {
		return fmt.Errorf("set gov watermark: %w", err)
	}
	return nil
}
