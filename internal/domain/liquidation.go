package domain

// ExternalLiquidation is a liquidation executed on the underlying
// lending market rather than through the protocol itself.
type ExternalLiquidation struct {
	VaultAddress     string
	Liquidator       string
	Violator         string
	Collateral       string
	RepayAssets      string
	RepayAssetsUsd   string
	YieldBalance     string
	CollateralAmount string
	DebtAmount       string
	BlockNumber      int64
	BlockTimestamp   int64
	TxnHash          string
}

// InternalLiquidation is a liquidation settled inside the protocol.
type InternalLiquidation struct {
	CollateralVault string
	CreditVault     string
	DebtVault       string
	Liquidator      string
	CreditReserved  string
	Debt            string
	LiqLTV          string
	BlockNumber     int64
	BlockTimestamp  int64
	TxnHash         string
}
