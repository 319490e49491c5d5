package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-monitor/internal/domain"
)

// DefaultAmountDecimals is the implicit fixed-point scale of raw vault
// amount fields. The indexer reports these fields 18-decimal regardless
// of the underlying token's own decimals; the scale stays configurable
// so a deployment can validate that assumption against real data.
const DefaultAmountDecimals = 18

// Valuer converts raw vault amounts into USD using point-in-time
// prices.
type Valuer struct {
	decimals int32
}

// NewValuer creates a Valuer with the given raw-amount scale.
func NewValuer(decimals int32) Valuer {
	if decimals <= 0 {
		decimals = DefaultAmountDecimals
	}
	return Valuer{decimals: decimals}
}

// Value computes the four USD values for one vault state record.
// Release, total assets, and user collateral are denominated in the
// credit-side asset; repay is denominated in the debt-side asset.
// A zero input price still produces a (zero) result plus a warning
// naming the side. Malformed raw fields yield all-zero values plus an
// error; the method never panics past its boundary, so one bad vault
// cannot crash a multi-vault snapshot.
func (v Valuer) Value(snap *domain.CollateralVaultSnapshot, creditPrice, debtPrice float64) (domain.USDValues, []string) {
	var errs []string

	release, err := v.tokens(snap.MaxRelease)
	if err != nil {
		return domain.USDValues{}, []string{fmt.Sprintf("vault %s: bad maxRelease: %v", snap.VaultAddress, err)}
	}
	repay, err := v.tokens(snap.MaxRepay)
	if err != nil {
		return domain.USDValues{}, []string{fmt.Sprintf("vault %s: bad maxRepay: %v", snap.VaultAddress, err)}
	}
	totalAssets, err := v.tokens(snap.TotalAssetsDepositedOrReserved)
	if err != nil {
		return domain.USDValues{}, []string{fmt.Sprintf("vault %s: bad totalAssetsDepositedOrReserved: %v", snap.VaultAddress, err)}
	}
	userCollateral, err := v.tokens(snap.UserOwnedCollateral)
	if err != nil {
		return domain.USDValues{}, []string{fmt.Sprintf("vault %s: bad userOwnedCollateral: %v", snap.VaultAddress, err)}
	}

	usd := domain.USDValues{
		MaxRelease:     release * creditPrice,
		MaxRepay:       repay * debtPrice,
		TotalAssets:    totalAssets * creditPrice,
		UserCollateral: userCollateral * creditPrice,
	}

	if creditPrice == 0.0 {
		errs = append(errs, fmt.Sprintf("credit vault price is zero for snapshot %s", snap.VaultAddress))
	}
	if debtPrice == 0.0 {
		errs = append(errs, fmt.Sprintf("debt vault price is zero for snapshot %s", snap.VaultAddress))
	}

	return usd, errs
}

// tokens converts a raw fixed-point amount string to a token amount.
// "0" and "" are treated as zero.
func (v Valuer) tokens(raw string) (float64, error) {
	if raw == "" || raw == "0" {
		return 0.0, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0.0, err
	}
	f, _ := d.Shift(-v.decimals).Float64()
	return f, nil
}

// LiqLTVDecimal converts the 1e4-scaled liquidation threshold to a
// plain ratio. Unparsable values collapse to 0.
func LiqLTVDecimal(raw string) float64 {
	if raw == "" || raw == "0" {
		return 0.0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0.0
	}
	f, _ := d.Shift(-4).Float64()
	return f
}
