package snapshot

import (
	"context"
	"errors"
	"fmt"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/lookup"
	"lending-risk-monitor/internal/pricing"
)

// priceResolution is the outcome of striking a price map at a block.
type priceResolution struct {
	prices pricing.PriceMap
	// actualBlock is the greatest block any pool metric resolved at.
	// It trails the target when pools last reported earlier.
	actualBlock int64
	errors      []string
}

// poolSet enumerates the pools to price. The pool set only ever grows,
// so the latest metrics view is a valid enumeration for any historical
// target; the per-pool values are then re-resolved at the target block.
func (o *Orchestrator) poolSet(ctx context.Context) ([]string, []string) {
	var metrics []*domain.EVaultMetric
	var errs []string

	if o.cache != nil {
		cached, stale, cacheErrs := o.cache.Latest(ctx)
		metrics = cached
		errs = append(errs, cacheErrs...)
		if stale {
			o.log.Warn().Msg("pool enumeration served from stale cache")
		}
	} else {
		fetched, err := o.src.ListLatestPoolMetrics(ctx)
		if err != nil {
			return nil, []string{fmt.Sprintf("list pools: %v", err)}
		}
		metrics = fetched
	}

	seen := make(map[string]struct{}, len(metrics))
	pools := make([]string, 0, len(metrics))
	for _, m := range metrics {
		addr := domain.NormalizeAddress(m.VaultAddress)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		pools = append(pools, addr)
	}
	return pools, errs
}

// resolvePrices strikes the price map at the target block: the metric
// row at or before the target is resolved for each known pool, and the
// resolved batch is handed to pricing.BuildPriceMap. Pools with no
// history by the target are skipped; derivation failures record a zero
// price so missing data stays visible downstream.
func (o *Orchestrator) resolvePrices(ctx context.Context, target int64) priceResolution {
	res := priceResolution{prices: pricing.PriceMap{}}

	pools, errs := o.poolSet(ctx)
	res.errors = append(res.errors, errs...)

	resolved := make([]*domain.EVaultMetric, 0, len(pools))
	for _, pool := range pools {
		metric, err := lookup.MetricAt(ctx, o.src, pool, target)
		if err != nil {
			if errors.Is(err, lookup.ErrNoHistory) {
				// Pool didn't exist yet at the target.
				continue
			}
			res.errors = append(res.errors, fmt.Sprintf("resolve pool %s at block %d: %v", pool, target, err))
			continue
		}
		resolved = append(resolved, metric)
		if metric.BlockNumber > res.actualBlock {
			res.actualBlock = metric.BlockNumber
		}
	}

	prices, deriveErrs := pricing.BuildPriceMap(resolved)
	res.prices = prices
	res.errors = append(res.errors, deriveErrs...)

	return res
}
