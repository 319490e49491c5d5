package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

// SummaryArchiveStore implements storage.SummaryArchiveStore using
// PostgreSQL.
type SummaryArchiveStore struct {
	pool *Pool
}

// NewSummaryArchiveStore creates a new SummaryArchiveStore.
func NewSummaryArchiveStore(pool *Pool) *SummaryArchiveStore {
	return &SummaryArchiveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryArchiveStore = (*SummaryArchiveStore)(nil)

const summaryColumns = `
	target_block, block_timestamp, total_vaults_discovered, successful_snapshots,
	total_max_release_usd, total_max_repay_usd, total_assets_usd, total_user_collateral_usd,
	pricing_error_count, fetch_error_count, prices_block
`

// Insert adds a summary. Returns ErrDuplicateKey if the target block
// is already archived.
func (s *SummaryArchiveStore) Insert(ctx context.Context, sum *domain.SnapshotSummary) error {
	if sum == nil || sum.TargetBlock <= 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO snapshot_summaries (` + summaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		sum.TargetBlock,
		sum.Timestamp,
		sum.TotalVaultsDiscovered,
		sum.SuccessfulSnapshots,
		sum.TotalMaxReleaseUSD,
		sum.TotalMaxRepayUSD,
		sum.TotalAssetsUSD,
		sum.TotalUserCollateralUSD,
		sum.PricingErrorCount,
		sum.FetchErrorCount,
		sum.PricesBlock,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot summary: %w", err)
	}
	return nil
}

// GetByBlock retrieves the summary archived for a target block.
// Returns ErrNotFound if not archived.
func (s *SummaryArchiveStore) GetByBlock(ctx context.Context, block int64) (*domain.SnapshotSummary, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM snapshot_summaries
		WHERE target_block = $1
	`

	row := s.pool.QueryRow(ctx, query, block)
	sum, err := scanSummary(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get summary by block: %w", err)
	}
	return sum, nil
}

// GetRange retrieves summaries in [start, end], ordered by target
// block ASC.
func (s *SummaryArchiveStore) GetRange(ctx context.Context, start, end int64) ([]*domain.SnapshotSummary, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM snapshot_summaries
		WHERE target_block >= $1 AND target_block <= $2
		ORDER BY target_block ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get summaries by range: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// GetLatest retrieves the most recently archived summaries, highest
// target block first.
func (s *SummaryArchiveStore) GetLatest(ctx context.Context, limit int) ([]*domain.SnapshotSummary, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + summaryColumns + `
		FROM snapshot_summaries
		ORDER BY target_block DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get latest summaries: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// scanSummary scans a single row into a SnapshotSummary.
func scanSummary(row pgx.Row) (*domain.SnapshotSummary, error) {
	var sum domain.SnapshotSummary
	err := row.Scan(
		&sum.TargetBlock,
		&sum.Timestamp,
		&sum.TotalVaultsDiscovered,
		&sum.SuccessfulSnapshots,
		&sum.TotalMaxReleaseUSD,
		&sum.TotalMaxRepayUSD,
		&sum.TotalAssetsUSD,
		&sum.TotalUserCollateralUSD,
		&sum.PricingErrorCount,
		&sum.FetchErrorCount,
		&sum.PricesBlock,
	)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// scanSummaries scans multiple rows into a slice of SnapshotSummary.
func scanSummaries(rows pgx.Rows) ([]*domain.SnapshotSummary, error) {
	var summaries []*domain.SnapshotSummary

	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return summaries, nil
}
