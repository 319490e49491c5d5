package snapshot

import (
	"context"
	"fmt"
	"sort"

	"lending-risk-monitor/internal/discovery"
	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/pricing"
)

// LatestView is the current state of every vault, valued with the
// freshest available pool prices. The indexer's own stored USD fields
// are ignored; values are always recomputed from raw amounts.
type LatestView struct {
	Vaults        []*domain.EnhancedSnapshot `json:"-"`
	PricesBlock   int64                      `json:"prices_block"`
	Stale         bool                       `json:"stale"`
	PricingErrors []string                   `json:"pricing_errors,omitempty"`
	FetchErrors   []string                   `json:"fetch_errors,omitempty"`
}

// LatestView values the latest snapshot row of every vault using the
// TTL-cached latest pool metrics. With no cache configured it reads
// the metrics directly and Stale is always false.
func (o *Orchestrator) LatestView(ctx context.Context) *LatestView {
	view := &LatestView{}

	var metrics []*domain.EVaultMetric
	if o.cache != nil {
		var errs []string
		metrics, view.Stale, errs = o.cache.Latest(ctx)
		view.PricingErrors = append(view.PricingErrors, errs...)
	} else {
		var err error
		metrics, err = o.src.ListLatestPoolMetrics(ctx)
		if err != nil {
			view.PricingErrors = append(view.PricingErrors, fmt.Sprintf("latest pool metrics: %v", err))
		}
	}

	prices, priceErrs := pricing.BuildPriceMap(metrics)
	view.PricingErrors = append(view.PricingErrors, priceErrs...)
	for _, m := range metrics {
		if m != nil && m.BlockNumber > view.PricesBlock {
			view.PricesBlock = m.BlockNumber
		}
	}

	pageSize := o.pageSize
	if pageSize <= 0 {
		pageSize = discovery.DefaultPageSize
	}
	maxPages := o.maxPages
	if maxPages <= 0 {
		maxPages = discovery.DefaultMaxPages
	}

	for page := 0; page < maxPages; page++ {
		rows, err := o.src.ListLatestVaultSnapshots(ctx, pageSize, page*pageSize)
		if err != nil {
			view.FetchErrors = append(view.FetchErrors, fmt.Sprintf("latest vault snapshots page %d: %v", page, err))
			break
		}
		for _, state := range rows {
			if state == nil || state.VaultAddress == "" {
				continue
			}
			enhanced, warns := o.valueState(domain.NormalizeAddress(state.VaultAddress), state, prices)
			view.Vaults = append(view.Vaults, enhanced)
			view.PricingErrors = append(view.PricingErrors, warns...)
		}
		if len(rows) < pageSize {
			break
		}
	}

	sort.Slice(view.Vaults, func(i, j int) bool {
		return view.Vaults[i].VaultAddress < view.Vaults[j].VaultAddress
	})

	o.log.Debug().
		Int("vaults", len(view.Vaults)).
		Int64("prices_block", view.PricesBlock).
		Bool("stale", view.Stale).
		Msg("latest view built")

	return view
}
