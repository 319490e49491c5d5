package report

import (
	"fmt"
	"strings"
	"time"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/risk"
)

// RenderSnapshotMarkdown renders a block snapshot as Markdown.
func RenderSnapshotMarkdown(snap *domain.BlockSnapshot, summary *domain.SnapshotSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Block Snapshot %d\n\n", snap.TargetBlock))
	if snap.Timestamp != 0 {
		sb.WriteString(fmt.Sprintf("Block time: %s\n\n", time.Unix(snap.Timestamp, 0).UTC().Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("Prices struck at block %d\n\n", snap.PricesBlock))

	sb.WriteString("## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Vaults Discovered | %d |\n", summary.TotalVaultsDiscovered))
	sb.WriteString(fmt.Sprintf("| Vaults Valued | %d |\n", summary.SuccessfulSnapshots))
	sb.WriteString(fmt.Sprintf("| Total Assets | %s |\n", FormatUSD(summary.TotalAssetsUSD)))
	sb.WriteString(fmt.Sprintf("| User Collateral | %s |\n", FormatUSD(summary.TotalUserCollateralUSD)))
	sb.WriteString(fmt.Sprintf("| Max Release (credit) | %s |\n", FormatUSD(summary.TotalMaxReleaseUSD)))
	sb.WriteString(fmt.Sprintf("| Max Repay (debt) | %s |\n", FormatUSD(summary.TotalMaxRepayUSD)))
	sb.WriteString("\n")

	sb.WriteString("## Vaults\n\n")
	if len(snap.VaultSnapshots) > 0 {
		sb.WriteString("| Vault | Credit | Debt | Assets | Collateral | Release | Repay | Block |\n")
		sb.WriteString("|-------|--------|------|--------|------------|---------|-------|-------|\n")
		for _, vs := range snap.VaultSnapshots {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %d |\n",
				ShortAddress(vs.VaultAddress),
				ShortAddress(vs.CreditVault),
				ShortAddress(vs.DebtVault),
				FormatUSD(vs.USD.TotalAssets),
				FormatUSD(vs.USD.UserCollateral),
				FormatUSD(vs.USD.MaxRelease),
				FormatUSD(vs.USD.MaxRepay),
				vs.SnapshotBlock))
		}
	} else {
		sb.WriteString("No vaults valued.\n")
	}
	sb.WriteString("\n")

	if len(snap.PricingErrors) > 0 {
		b := ClassifyWarnings(snap.PricingErrors)
		sb.WriteString("## Pricing Warnings\n\n")
		sb.WriteString(fmt.Sprintf("Missing price: %d | Zero price: %d | Derivation: %d | Other: %d\n\n",
			b.MissingPrice, b.ZeroPrice, b.Derivation, b.Other))
	}

	if len(snap.FetchErrors) > 0 {
		sb.WriteString("## Fetch Errors\n\n")
		for _, e := range snap.FetchErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderComparisonMarkdown renders a two-block comparison as Markdown.
func RenderComparisonMarkdown(cmp *domain.BlockComparison) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Block Comparison %d → %d\n\n", cmp.BlockA, cmp.BlockB))
	if !cmp.Success {
		sb.WriteString(fmt.Sprintf("Comparison failed: %s\n", cmp.Error))
		return sb.String()
	}

	d := cmp.Deltas
	sb.WriteString("| Metric | Change | Percent |\n")
	sb.WriteString("|--------|--------|--------|\n")
	sb.WriteString(fmt.Sprintf("| Vault Count | %+d | |\n", d.VaultCountChange))
	sb.WriteString(fmt.Sprintf("| Total Assets | %s | %s |\n", FormatUSD(d.TotalAssetsChangeUSD), FormatPercent(d.PercentageAssetsChange)))
	sb.WriteString(fmt.Sprintf("| User Collateral | %s | %s |\n", FormatUSD(d.TotalCollateralChangeUSD), FormatPercent(d.PercentageCollateralChange)))
	sb.WriteString(fmt.Sprintf("| Credit Exposure | %s | %s |\n", FormatUSD(d.TotalCreditChangeUSD), FormatPercent(d.PercentageCreditChange)))
	sb.WriteString(fmt.Sprintf("| Debt Exposure | %s | %s |\n", FormatUSD(d.TotalDebtChangeUSD), FormatPercent(d.PercentageDebtChange)))
	sb.WriteString("\n")

	return sb.String()
}

// RenderSummariesCSV renders per-block summaries as CSV.
func RenderSummariesCSV(summaries []*domain.SnapshotSummary) string {
	var sb strings.Builder

	sb.WriteString("target_block,timestamp,total_vaults_discovered,successful_snapshots,")
	sb.WriteString("total_max_release_usd,total_max_repay_usd,total_assets_usd,total_user_collateral_usd,")
	sb.WriteString("pricing_error_count,fetch_error_count,prices_block\n")

	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%d,%d,%d\n",
			s.TargetBlock,
			s.Timestamp,
			s.TotalVaultsDiscovered,
			s.SuccessfulSnapshots,
			s.TotalMaxReleaseUSD,
			s.TotalMaxRepayUSD,
			s.TotalAssetsUSD,
			s.TotalUserCollateralUSD,
			s.PricingErrorCount,
			s.FetchErrorCount,
			s.PricesBlock,
		))
	}

	return sb.String()
}

// RenderHealthCSV renders position-health points as CSV.
func RenderHealthCSV(points []risk.Point) string {
	var sb strings.Builder

	sb.WriteString("vault_address,collateral_usd,debt_usd,liq_ltv,health_factor,ltv,block_number\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.4f,%.6f,%.6f,%d\n",
			p.VaultAddress, p.CollateralUSD, p.DebtUSD, p.LiqLTV, p.HealthFactor, p.LTV, p.BlockNumber))
	}

	return sb.String()
}
