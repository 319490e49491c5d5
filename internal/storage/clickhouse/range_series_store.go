package clickhouse

import (
	"context"
	"fmt"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

// RangeSeriesStore implements storage.RangeSeriesStore using
// ClickHouse. The backing table is a ReplacingMergeTree keyed by
// target block, so re-running a sweep replaces rows.
type RangeSeriesStore struct {
	conn *Conn
}

// NewRangeSeriesStore creates a new RangeSeriesStore.
func NewRangeSeriesStore(conn *Conn) *RangeSeriesStore {
	return &RangeSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RangeSeriesStore = (*RangeSeriesStore)(nil)

// InsertBatch adds a batch of summaries.
func (s *RangeSeriesStore) InsertBatch(ctx context.Context, summaries []*domain.SnapshotSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	for _, sum := range summaries {
		if sum == nil || sum.TargetBlock <= 0 {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO summary_series (
			target_block, block_timestamp, total_vaults_discovered, successful_snapshots,
			total_max_release_usd, total_max_repay_usd, total_assets_usd, total_user_collateral_usd,
			pricing_error_count, fetch_error_count, prices_block
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sum := range summaries {
		err = batch.Append(
			uint64(sum.TargetBlock),
			sum.Timestamp,
			uint32(sum.TotalVaultsDiscovered),
			uint32(sum.SuccessfulSnapshots),
			sum.TotalMaxReleaseUSD,
			sum.TotalMaxRepayUSD,
			sum.TotalAssetsUSD,
			sum.TotalUserCollateralUSD,
			uint32(sum.PricingErrorCount),
			uint32(sum.FetchErrorCount),
			uint64(sum.PricesBlock),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetRange retrieves summaries in [start, end], ordered by target
// block ASC. FINAL collapses replaced rows.
func (s *RangeSeriesStore) GetRange(ctx context.Context, start, end int64) ([]*domain.SnapshotSummary, error) {
	query := `
		SELECT
			target_block, block_timestamp, total_vaults_discovered, successful_snapshots,
			total_max_release_usd, total_max_repay_usd, total_assets_usd, total_user_collateral_usd,
			pricing_error_count, fetch_error_count, prices_block
		FROM summary_series FINAL
		WHERE target_block >= ? AND target_block <= ?
		ORDER BY target_block ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("get summary series range: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.SnapshotSummary
	for rows.Next() {
		var (
			sum                              domain.SnapshotSummary
			targetBlock, pricesBlock         uint64
			discovered, successful           uint32
			pricingErrCount, fetchErrCount   uint32
		)

		err := rows.Scan(
			&targetBlock,
			&sum.Timestamp,
			&discovered,
			&successful,
			&sum.TotalMaxReleaseUSD,
			&sum.TotalMaxRepayUSD,
			&sum.TotalAssetsUSD,
			&sum.TotalUserCollateralUSD,
			&pricingErrCount,
			&fetchErrCount,
			&pricesBlock,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary series row: %w", err)
		}

		sum.TargetBlock = int64(targetBlock)
		sum.PricesBlock = int64(pricesBlock)
		sum.TotalVaultsDiscovered = int(discovered)
		sum.SuccessfulSnapshots = int(successful)
		sum.PricingErrorCount = int(pricingErrCount)
		sum.FetchErrorCount = int(fetchErrCount)
		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary series rows: %w", err)
	}

	return summaries, nil
}
