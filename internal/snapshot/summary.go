package snapshot

import (
	"context"
	"fmt"

	"lending-risk-monitor/internal/domain"
)

// Summarize reduces a block snapshot to its aggregate totals.
func Summarize(snap *domain.BlockSnapshot) *domain.SnapshotSummary {
	s := &domain.SnapshotSummary{
		TargetBlock:           snap.TargetBlock,
		Timestamp:             snap.Timestamp,
		TotalVaultsDiscovered: snap.TotalVaults,
		SuccessfulSnapshots:   len(snap.VaultSnapshots),
		PricingErrorCount:     len(snap.PricingErrors),
		FetchErrorCount:       len(snap.FetchErrors),
		PricesBlock:           snap.PricesBlock,
	}

	for _, vs := range snap.VaultSnapshots {
		s.TotalMaxReleaseUSD += vs.USD.MaxRelease
		s.TotalMaxRepayUSD += vs.USD.MaxRepay
		s.TotalAssetsUSD += vs.USD.TotalAssets
		s.TotalUserCollateralUSD += vs.USD.UserCollateral
	}

	return s
}

// Summarize builds the snapshot at the target block and reduces it.
func (o *Orchestrator) Summarize(ctx context.Context, target int64) *domain.SnapshotSummary {
	return Summarize(o.CreateSnapshotAtBlock(ctx, target))
}

// CompareBlocks summarizes two blocks and computes the movement
// between them. Percentage deltas are 0 when the base value is 0.
func (o *Orchestrator) CompareBlocks(ctx context.Context, blockA, blockB int64) *domain.BlockComparison {
	cmp := &domain.BlockComparison{BlockA: blockA, BlockB: blockB}

	if blockA <= 0 || blockB <= 0 {
		cmp.Error = fmt.Sprintf("invalid block pair (%d, %d)", blockA, blockB)
		return cmp
	}

	cmp.SummaryA = o.Summarize(ctx, blockA)
	cmp.SummaryB = o.Summarize(ctx, blockB)
	cmp.Deltas = computeDeltas(cmp.SummaryA, cmp.SummaryB)
	cmp.Success = true
	return cmp
}

// RangeSummary summarizes every step-th block in [start, end]. The end
// block is always included even when the stride overshoots it.
func (o *Orchestrator) RangeSummary(ctx context.Context, start, end, step int64) *domain.RangeSummary {
	rs := &domain.RangeSummary{StartBlock: start, EndBlock: end, Step: step}

	if start <= 0 || end < start {
		rs.Errors = append(rs.Errors, fmt.Sprintf("invalid block range [%d, %d]", start, end))
		return rs
	}
	if step <= 0 {
		rs.Errors = append(rs.Errors, fmt.Sprintf("invalid step %d", step))
		return rs
	}

	for block := start; block <= end; block += step {
		rs.Summaries = append(rs.Summaries, o.Summarize(ctx, block))
	}
	if last := rs.Summaries[len(rs.Summaries)-1]; last.TargetBlock != end {
		rs.Summaries = append(rs.Summaries, o.Summarize(ctx, end))
	}

	return rs
}

// computeDeltas derives movement from summary A to summary B. Credit
// movement tracks max release (the credit-side exposure), debt
// movement tracks max repay.
func computeDeltas(a, b *domain.SnapshotSummary) domain.ComparisonDeltas {
	return domain.ComparisonDeltas{
		VaultCountChange:           b.SuccessfulSnapshots - a.SuccessfulSnapshots,
		TotalAssetsChangeUSD:       b.TotalAssetsUSD - a.TotalAssetsUSD,
		TotalCollateralChangeUSD:   b.TotalUserCollateralUSD - a.TotalUserCollateralUSD,
		TotalCreditChangeUSD:       b.TotalMaxReleaseUSD - a.TotalMaxReleaseUSD,
		TotalDebtChangeUSD:         b.TotalMaxRepayUSD - a.TotalMaxRepayUSD,
		PercentageAssetsChange:     pctChange(a.TotalAssetsUSD, b.TotalAssetsUSD),
		PercentageCollateralChange: pctChange(a.TotalUserCollateralUSD, b.TotalUserCollateralUSD),
		PercentageCreditChange:     pctChange(a.TotalMaxReleaseUSD, b.TotalMaxReleaseUSD),
		PercentageDebtChange:       pctChange(a.TotalMaxRepayUSD, b.TotalMaxRepayUSD),
	}
}

// pctChange is the percentage movement from base to next, 0 when the
// base is 0.
func pctChange(base, next float64) float64 {
	if base == 0 {
		return 0
	}
	return (next - base) / base * 100
}
