// Package snapshot reconstructs the full vault universe at an
// arbitrary historical block and values it in USD. A snapshot is
// assembled in phases: discover the universe, strike a point-in-time
// price map, then resolve and value each vault's state. Failures along
// the way degrade the result, never abort it.
package snapshot

import (
	"context"

	"lending-risk-monitor/internal/discovery"
	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/evcache"
	"lending-risk-monitor/internal/lookup"
)

// LatestVaultFeed serves the indexer's latest-state view of every
// vault, paginated.
type LatestVaultFeed interface {
	ListLatestVaultSnapshots(ctx context.Context, limit, offset int) ([]*domain.CollateralVaultSnapshot, error)
}

// DataSource is everything a snapshot build reads from the indexer.
// *indexer.Client satisfies it.
type DataSource interface {
	discovery.CreationFeed
	lookup.VaultHistorySource
	lookup.PoolMetricSource
	evcache.LatestMetricsSource
	LatestVaultFeed
}
