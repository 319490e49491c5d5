// Package lookup resolves the most recent known record of an entity at
// or before a target block. History sources expose block-bounded,
// most-recent-first queries, so resolution delegates the filtering to
// the source and takes the first result instead of scanning full
// histories.
package lookup

import (
	"context"
	"errors"
	"fmt"

	"lending-risk-monitor/internal/domain"
)

// Errors returned by point-in-time resolution.
var (
	// ErrNoHistory means the entity has no record at or before the
	// target block. This is a normal outcome (the entity may not have
	// existed yet), not an upstream failure.
	ErrNoHistory = errors.New("no history at or before target block")

	// ErrBlockAfterTarget means the source returned a record newer than
	// the requested upper bound, violating its contract. Callers must
	// record this rather than accept the record.
	ErrBlockAfterTarget = errors.New("source returned record after target block")
)

// VaultHistorySource provides block-bounded history for one collateral
// vault, ordered most-recent-first.
type VaultHistorySource interface {
	VaultHistory(ctx context.Context, vault string, limit int, endBlock int64) ([]*domain.CollateralVaultSnapshot, error)
}

// PoolMetricSource provides block-bounded metric history for one
// lending pool, ordered most-recent-first.
type PoolMetricSource interface {
	PoolMetricHistory(ctx context.Context, pool string, limit int, endBlock int64) ([]*domain.EVaultMetric, error)
}

// StateAt returns the vault state with the greatest block number not
// exceeding target, or ErrNoHistory if none exists.
func StateAt(ctx context.Context, src VaultHistorySource, vault string, target int64) (*domain.CollateralVaultSnapshot, error) {
	rows, err := src.VaultHistory(ctx, vault, 1, target)
	if err != nil {
		return nil, fmt.Errorf("vault %s history: %w", vault, err)
	}
	return mostRecent(rows, target)
}

// MetricAt returns the pool metric with the greatest block number not
// exceeding target, or ErrNoHistory if none exists.
func MetricAt(ctx context.Context, src PoolMetricSource, pool string, target int64) (*domain.EVaultMetric, error) {
	rows, err := src.PoolMetricHistory(ctx, pool, 1, target)
	if err != nil {
		return nil, fmt.Errorf("pool %s metric history: %w", pool, err)
	}
	return mostRecent(rows, target)
}

// blockRecord is any history row that knows its block number.
type blockRecord interface {
	Block() int64
}

// mostRecent validates the first (most recent) row against the target
// bound. The bound is inclusive.
func mostRecent[T blockRecord](rows []T, target int64) (T, error) {
	var zero T
	if len(rows) == 0 {
		return zero, ErrNoHistory
	}
	r := rows[0]
	if r.Block() > target {
		return zero, fmt.Errorf("%w: got block %d, target %d", ErrBlockAfterTarget, r.Block(), target)
	}
	return r, nil
}
