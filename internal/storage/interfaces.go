// Package storage defines the persistence interfaces for the risk
// monitor. The snapshot core never persists anything itself; these
// stores archive summaries and poller state for the dashboard and the
// scheduled jobs.
package storage

import (
	"context"

	"lending-risk-monitor/internal/domain"
)

// SummaryArchiveStore archives one snapshot summary per target block.
type SummaryArchiveStore interface {
	// Insert adds a summary. Returns ErrDuplicateKey if the target
	// block is already archived.
	Insert(ctx context.Context, s *domain.SnapshotSummary) error

	// GetByBlock retrieves the summary archived for a target block.
	// Returns ErrNotFound if not archived.
	GetByBlock(ctx context.Context, block int64) (*domain.SnapshotSummary, error)

	// GetRange retrieves summaries with target blocks in [start, end]
	// (inclusive), ordered by target block ASC.
	GetRange(ctx context.Context, start, end int64) ([]*domain.SnapshotSummary, error)

	// GetLatest retrieves the most recently archived summaries, highest
	// target block first.
	GetLatest(ctx context.Context, limit int) ([]*domain.SnapshotSummary, error)
}

// RangeSeriesStore persists per-block summary series produced by range
// sweeps. Unlike the archive it is bulk-oriented and tolerates
// re-inserts of the same block.
type RangeSeriesStore interface {
	// InsertBatch adds a batch of summaries.
	InsertBatch(ctx context.Context, summaries []*domain.SnapshotSummary) error

	// GetRange retrieves summaries with target blocks in [start, end]
	// (inclusive), ordered by target block ASC.
	GetRange(ctx context.Context, start, end int64) ([]*domain.SnapshotSummary, error)
}

// GovStateStore persists the governance poller's per-event-type
// watermark: the highest block already notified.
type GovStateStore interface {
	// LastSeen returns the watermark for an event type, 0 if never set.
	LastSeen(ctx context.Context, eventType domain.GovEventType) (int64, error)

	// SetLastSeen upserts the watermark for an event type.
	SetLastSeen(ctx context.Context, eventType domain.GovEventType, block int64) error
}
