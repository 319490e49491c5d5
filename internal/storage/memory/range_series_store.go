package memory

import (
	"context"
	"sort"
	"sync"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

// RangeSeriesStore is an in-memory implementation of
// storage.RangeSeriesStore. Re-inserting a block replaces the row,
// matching the ReplacingMergeTree semantics of the ClickHouse
// implementation.
type RangeSeriesStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.SnapshotSummary
}

// NewRangeSeriesStore creates a new in-memory range series store.
func NewRangeSeriesStore() *RangeSeriesStore {
	return &RangeSeriesStore{
		data: make(map[int64]*domain.SnapshotSummary),
	}
}

// Verify interface compliance at compile time.
var _ storage.RangeSeriesStore = (*RangeSeriesStore)(nil)

// InsertBatch adds a batch of summaries, replacing existing blocks.
func (s *RangeSeriesStore) InsertBatch(_ context.Context, summaries []*domain.SnapshotSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sum := range summaries {
		if sum == nil || sum.TargetBlock <= 0 {
			return storage.ErrInvalidInput
		}
		sumCopy := *sum
		s.data[sum.TargetBlock] = &sumCopy
	}
	return nil
}

// GetRange retrieves summaries in [start, end], ordered by target
// block ASC.
func (s *RangeSeriesStore) GetRange(_ context.Context, start, end int64) ([]*domain.SnapshotSummary, error) {
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
