// Package memory provides in-memory store implementations, used in
// tests and in single-process deployments without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

// SummaryArchiveStore is an in-memory implementation of
// storage.SummaryArchiveStore.
type SummaryArchiveStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.SnapshotSummary // keyed by target block
}

// NewSummaryArchiveStore creates a new in-memory summary archive.
func NewSummaryArchiveStore() *SummaryArchiveStore {
	return &SummaryArchiveStore{
		data: make(map[int64]*domain.SnapshotSummary),
	}
}

// Verify interface compliance at compile time.
var _ storage.SummaryArchiveStore = (*SummaryArchiveStore)(nil)

// Insert adds a summary. Returns ErrDuplicateKey if the target block
// is already archived.
func (s *SummaryArchiveStore) Insert(_ context.Context, sum *domain.SnapshotSummary) error {
	if sum == nil || sum.TargetBlock <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sum.TargetBlock]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	sumCopy := *sum
	s.data[sum.TargetBlock] = &sumCopy
	return nil
}

// GetByBlock retrieves the summary for a target block. Returns
// ErrNotFound if not archived.
func (s *SummaryArchiveStore) GetByBlock(_ context.Context, block int64) (*domain.SnapshotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, exists := s.data[block]
	if !exists {
		return nil, storage.ErrNotFound
	}

	sumCopy := *sum
	return &sumCopy, nil
}

// GetRange retrieves summaries in [start, end], ordered by target
// block ASC.
func (s *SummaryArchiveStore) GetRange(_ context.Context, start, end int64) ([]*domain.SnapshotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SnapshotSummary
	for block, sum := range s.data {
		if block >= start && block <= end {
			sumCopy := *sum
			result = append(result, &sumCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TargetBlock < result[j].TargetBlock
	})
	return result, nil
}

// GetLatest retrieves the most recently archived summaries, highest
// target block first.
func (s *SummaryArchiveStore) GetLatest(_ context.Context, limit int) ([]*domain.SnapshotSummary, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SnapshotSummary, 0, len(s.data))
	for _, sum := range s.data {
		sumCopy := *sum
		result = append(result, &sumCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TargetBlock > result[j].TargetBlock
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
