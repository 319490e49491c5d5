// Package pricing derives token prices from pool metrics and converts
// raw fixed-point vault amounts into USD values.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-monitor/internal/domain"
)

// PriceMap maps a lowercase-normalized pool address to its USD price
// per unit. A missing key means "no price available"; consumers must
// treat that as price 0.0 plus a recorded warning, never as a default
// to propagate silently.
type PriceMap map[string]float64

// Lookup returns the price for an address and a warning when the
// address is missing or carries a zero price.
func (m PriceMap) Lookup(addr, role string) (float64, string) {
	price, ok := m[domain.NormalizeAddress(addr)]
	if !ok {
		return 0.0, fmt.Sprintf("no price available for %s %s", role, addr)
	}
	if price == 0.0 {
		return 0.0, fmt.Sprintf("%s %s has zero price", role, addr)
	}
	return price, ""
}

// DerivePrice computes a USD price per unit from a pool's reported
// total assets and total assets in USD. Both inputs share the same raw
// fixed-point base, so the division cancels the scale. Failures are
// soft: the price is 0.0 and the error describes the bad input.
func DerivePrice(assetsRaw, assetsUsdRaw string) (float64, error) {
	if assetsRaw == "" || assetsRaw == "0" {
		return 0.0, fmt.Errorf("total assets is zero")
	}
	if assetsUsdRaw == "" || assetsUsdRaw == "0" {
		return 0.0, fmt.Errorf("total assets USD is zero")
	}

	assets, err := decimal.NewFromString(assetsRaw)
	if err != nil {
		return 0.0, fmt.Errorf("unparsable total assets %q: %w", assetsRaw, err)
	}
	assetsUsd, err := decimal.NewFromString(assetsUsdRaw)
	if err != nil {
		return 0.0, fmt.Errorf("unparsable total assets USD %q: %w", assetsUsdRaw, err)
	}

	if assets.Sign() <= 0 {
		return 0.0, fmt.Errorf("non-positive total assets %q", assetsRaw)
	}
	if assetsUsd.Sign() <= 0 {
		return 0.0, fmt.Errorf("non-positive total assets USD %q", assetsUsdRaw)
	}

	price, _ := assetsUsd.Div(assets).Float64()
	return price, nil
}

// BuildPriceMap derives prices for a batch of pool metrics. Individual
// failures are recorded and skipped; a single bad record never aborts
// the batch. Keys are lowercase-normalized addresses.
func BuildPriceMap(metrics []*domain.EVaultMetric) (PriceMap, []string) {
	prices := make(PriceMap, len(metrics))
	var errs []string

	for _, m := range metrics {
		if m == nil || m.VaultAddress == "" {
			errs = append(errs, "pool metric missing vault address")
			continue
		}

		price, err := DerivePrice(m.TotalAssets, m.TotalAssetsUsd)
		prices[domain.NormalizeAddress(m.VaultAddress)] = price
		if err != nil {
			errs = append(errs, fmt.Sprintf("price derivation failed for pool %s: %v", m.VaultAddress, err))
		}
	}

	return prices, errs
}
