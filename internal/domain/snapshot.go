package domain

// USDValues holds the four point-in-time USD valuations computed for
// one vault state. Every value is derived at call time from
// (raw amount / 10^decimals) * price.
type USDValues struct {
	MaxRelease     float64
	MaxRepay       float64
	TotalAssets    float64
	UserCollateral float64
}

// EnhancedSnapshot wraps one vault state record with the point-in-time
// prices used to value it and the resulting USD values. Built fresh on
// every valuation call; never cached across target blocks.
type EnhancedSnapshot struct {
	VaultAddress     string
	Snapshot         *CollateralVaultSnapshot
	USD              USDValues
	CreditVault      string
	DebtVault        string
	CreditPrice      float64
	DebtPrice        float64
	SnapshotBlock    int64
	HasPricingErrors bool
}

// BlockSnapshot is one consistent point-in-time reconstruction of the
// whole vault universe at a target block. Constructed once per call,
// immutable after construction, never persisted by the core.
type BlockSnapshot struct {
	TargetBlock    int64
	Timestamp      int64 // block timestamp of the first valued vault, 0 if none
	VaultSnapshots []*EnhancedSnapshot
	TotalVaults    int // vaults discovered, valued or not
	PricingErrors  []string
	FetchErrors    []string

	// PricesBlock is the block the price map was actually struck at.
	// It can trail TargetBlock when pools last reported earlier. Zero
	// means no prices could be resolved.
	PricesBlock int64
}

// SnapshotSummary is the aggregate reduction of a BlockSnapshot.
type SnapshotSummary struct {
	TargetBlock             int64   `json:"target_block"`
	Timestamp               int64   `json:"timestamp"`
	TotalVaultsDiscovered   int     `json:"total_vaults_discovered"`
	SuccessfulSnapshots     int     `json:"successful_snapshots"`
	TotalMaxReleaseUSD      float64 `json:"total_max_release_usd"`
	TotalMaxRepayUSD        float64 `json:"total_max_repay_usd"`
	TotalAssetsUSD          float64 `json:"total_assets_usd"`
	TotalUserCollateralUSD  float64 `json:"total_user_collateral_usd"`
	PricingErrorCount       int     `json:"pricing_error_count"`
	FetchErrorCount         int     `json:"fetch_error_count"`
	PricesBlock             int64   `json:"prices_block"`
}

// ComparisonDeltas holds absolute and percentage movements between two
// snapshot summaries. Percentages are defined as 0 when the base value
// is 0.
type ComparisonDeltas struct {
	VaultCountChange           int     `json:"vault_count_change"`
	TotalAssetsChangeUSD       float64 `json:"total_assets_change_usd"`
	TotalCollateralChangeUSD   float64 `json:"total_collateral_change_usd"`
	TotalCreditChangeUSD       float64 `json:"total_credit_change_usd"`
	TotalDebtChangeUSD         float64 `json:"total_debt_change_usd"`
	PercentageAssetsChange     float64 `json:"percentage_assets_change"`
	PercentageCollateralChange float64 `json:"percentage_collateral_change"`
	PercentageCreditChange     float64 `json:"percentage_credit_change"`
	PercentageDebtChange       float64 `json:"percentage_debt_change"`
}

// BlockComparison is the result of comparing two block snapshots.
type BlockComparison struct {
	BlockA   int64            `json:"block_a"`
	BlockB   int64            `json:"block_b"`
	SummaryA *SnapshotSummary `json:"summary_a"`
	SummaryB *SnapshotSummary `json:"summary_b"`
	Deltas   ComparisonDeltas `json:"deltas"`
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
}

// RangeSummary holds per-block summaries across a block range.
type RangeSummary struct {
	StartBlock int64              `json:"start_block"`
	EndBlock   int64              `json:"end_block"`
	Step       int64              `json:"step"`
	Summaries  []*SnapshotSummary `json:"summaries"`
	Errors     []string           `json:"errors,omitempty"`
}

// VaultSetResult reports which vaults existed at a target block.
type VaultSetResult struct {
	TargetBlock    int64    `json:"target_block"`
	VaultAddresses []string `json:"vault_addresses"`
	TotalVaults    int      `json:"total_vaults"`
	Errors         []string `json:"errors,omitempty"`
	Success        bool     `json:"success"`
}

// PriceProbeResult reports the resolved price map at a target block.
type PriceProbeResult struct {
	TargetBlock int64              `json:"target_block"`
	ActualBlock int64              `json:"actual_block"`
	Prices      map[string]float64 `json:"prices"`
	TotalVaults int                `json:"total_vaults"`
	Errors      []string           `json:"errors,omitempty"`
	Success     bool               `json:"success"`
}
