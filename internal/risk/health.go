// Package risk derives position-health analytics from valued vault
// snapshots.
package risk

import (
	"sort"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/pricing"
)

// HealthFactorCap bounds reported health factors. Positions healthier
// than the cap are all equally uninteresting for risk monitoring.
const HealthFactorCap = 2.0

// Thresholds classifying a position by health factor.
const (
	LiquidatableThreshold = 1.0
	AtRiskThreshold       = 1.1
)

// HealthFactor computes collateral*liqLTV/debt, capped at
// HealthFactorCap. A position with no debt is maximally healthy.
func HealthFactor(collateralUSD, debtUSD, liqLTV float64) float64 {
	if debtUSD <= 0 {
		return HealthFactorCap
	}
	hf := collateralUSD * liqLTV / debtUSD
	if hf > HealthFactorCap {
		return HealthFactorCap
	}
	return hf
}

// LTV is the debt-to-collateral ratio, 0 when there is no collateral.
func LTV(collateralUSD, debtUSD float64) float64 {
	if collateralUSD <= 0 {
		return 0
	}
	return debtUSD / collateralUSD
}

// Point is one vault's position health, derived from a valued
// snapshot.
type Point struct {
	VaultAddress  string  `json:"vault_address"`
	CollateralUSD float64 `json:"collateral_usd"`
	DebtUSD       float64 `json:"debt_usd"`
	LiqLTV        float64 `json:"liq_ltv"`
	HealthFactor  float64 `json:"health_factor"`
	LTV           float64 `json:"ltv"`
	BlockNumber   int64   `json:"block_number"`
}

// Points derives position health for every vault carrying positive
// debt. Debt-free vaults are excluded: their health factor is a
// constant and only clutters risk charts.
func Points(snaps []*domain.EnhancedSnapshot) []Point {
	points := make([]Point, 0, len(snaps))
	for _, vs := range snaps {
		if vs == nil || vs.Snapshot == nil {
			continue
		}
		debt := vs.USD.MaxRepay
		if debt <= 0 {
			continue
		}

		collateral := vs.USD.UserCollateral
		liqLTV := pricing.LiqLTVDecimal(vs.Snapshot.LiqLTV)
		points = append(points, Point{
			VaultAddress:  vs.VaultAddress,
			CollateralUSD: collateral,
			DebtUSD:       debt,
			LiqLTV:        liqLTV,
			HealthFactor:  HealthFactor(collateral, debt, liqLTV),
			LTV:           LTV(collateral, debt),
			BlockNumber:   vs.SnapshotBlock,
		})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].HealthFactor < points[j].HealthFactor
	})
	return points
}

// Stats aggregates position health across a snapshot.
type Stats struct {
	Positions     int     `json:"positions"`
	Liquidatable  int     `json:"liquidatable"`
	AtRisk        int     `json:"at_risk"`
	MinHealth     float64 `json:"min_health"`
	MaxHealth     float64 `json:"max_health"`
	AvgHealth     float64 `json:"avg_health"`
	TotalDebtUSD  float64 `json:"total_debt_usd"`
	DebtAtRiskUSD float64 `json:"debt_at_risk_usd"`
}

// Summarize reduces health points to aggregate risk stats. At-risk
// counts include liquidatable positions.
func Summarize(points []Point) Stats {
	var s Stats
	s.Positions = len(points)
	if s.Positions == 0 {
		return s
	}

	s.MinHealth = points[0].HealthFactor
	s.MaxHealth = points[0].HealthFactor

	var sum float64
	for _, p := range points {
		sum += p.HealthFactor
		if p.HealthFactor < s.MinHealth {
			s.MinHealth = p.HealthFactor
		}
		if p.HealthFactor > s.MaxHealth {
			s.MaxHealth = p.HealthFactor
		}
		s.TotalDebtUSD += p.DebtUSD
		if p.HealthFactor < LiquidatableThreshold {
			s.Liquidatable++
		}
		if p.HealthFactor < AtRiskThreshold {
			s.AtRisk++
			s.DebtAtRiskUSD += p.DebtUSD
		}
	}
	s.AvgHealth = sum / float64(s.Positions)
	return s
}
