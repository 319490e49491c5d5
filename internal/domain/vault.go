// Package domain defines the core data model for the risk monitor.
// All records fetched from the indexer API are immutable once parsed;
// derived records (EnhancedSnapshot, BlockSnapshot) are computed fresh
// on every call.
package domain

import "strings"

// CollateralVaultSnapshot is one vault's recorded on-chain state at one
// block. Raw amount fields are fixed-point integer strings (18-decimal
// scale); USD fields stored by the indexer are only trustworthy for
// latest views, never for point-in-time reconstruction.
type CollateralVaultSnapshot struct {
	ChainID      string
	VaultAddress string // address-like, compared case-insensitively
	CreditVault  string // pool supplying the collateral-side asset
	DebtVault    string // pool supplying the borrowed-side asset

	// Raw fixed-point amounts (integer strings, 1e18 scale).
	MaxRelease                     string
	MaxRepay                       string
	TotalAssetsDepositedOrReserved string
	UserOwnedCollateral            string

	// Liquidation threshold ratio, fixed-point 1e4 scale.
	LiqLTV string

	CanLiquidate           bool
	IsExternallyLiquidated bool

	BlockNumber    int64
	BlockTimestamp int64
	LogIndex       int64 // intra-block ordering
}

// Block returns the snapshot's block number.
func (s *CollateralVaultSnapshot) Block() int64 { return s.BlockNumber }

// VaultCreation records the creation of a collateral vault.
// The creation feed is append-only from the protocol's perspective;
// consumers treat each fetch as a static input.
type VaultCreation struct {
	VaultAddress string
	Creator      string
	Factory      string
	Asset        string
	TargetVault  string
	BlockNumber  int64
	TxnHash      string
}

// NormalizeAddress lowercases an address-like identifier so that map
// lookups and comparisons are case-insensitive.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
