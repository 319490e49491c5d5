package memory

import (
	"context"
	"sync"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

// GovStateStore is an in-memory implementation of
// storage.GovStateStore.
type GovStateStore struct {
	mu   sync.RWMutex
	seen map[domain.GovEventType]int64
}

// NewGovStateStore creates a new in-memory governance state store.
func NewGovStateStore() *GovStateStore {
	return &GovStateStore{
		seen: make(map[domain.GovEventType]int64),
	}
}

// Verify interface compliance at compile time.
var _ storage.GovStateStore = (*GovStateStore)(nil)

// LastSeen returns the watermark for an event type, 0 if never set.
func (s *GovStateStore) LastSeen(_ context.Context, eventType domain.GovEventType) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[eventType], nil
}

// SetLastSeen upserts the watermark for an event type.
func (s *GovStateStore) SetLastSeen(_ context.Context, eventType domain.GovEventType, block int64) error {
	if eventType == "" || block < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventType] = block
	return nil
}
