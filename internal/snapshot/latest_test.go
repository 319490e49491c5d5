package snapshot

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/evcache"
)

func TestLatestView_ValuesWithLatestPrices(t *testing.T) {
	src := withLatestVaults(testSource())
	orch := newTestOrchestrator(src)

	view := orch.LatestView(context.Background())

	if len(view.Vaults) != 1 {
		t.Fatalf("vaults = %d, want 1", len(view.Vaults))
	}
	if view.PricesBlock != 95 {
		t.Errorf("PricesBlock = %d, want 95", view.PricesBlock)
	}
	if view.Stale {
		t.Error("no cache configured, Stale must be false")
	}

	// credit price 3.5, debt price 2.0
	vault := view.Vaults[0]
	if !almostEqual(vault.USD.TotalAssets, 14.0) {
		t.Errorf("TotalAssets = %v, want 14", vault.USD.TotalAssets)
	}
	if !almostEqual(vault.USD.MaxRepay, 2.0) {
		t.Errorf("MaxRepay = %v, want 2", vault.USD.MaxRepay)
	}
	if vault.HasPricingErrors {
		t.Errorf("unexpected pricing errors: %v", view.PricingErrors)
	}
}

func TestLatestView_UsesCacheWhenConfigured(t *testing.T) {
	src := withLatestVaults(testSource())
	cache := evcache.New(src, zerolog.Nop())
	orch := New(Options{Source: src, Cache: cache, Logger: zerolog.Nop()})

	ctx := context.Background()
	orch.LatestView(ctx)
	orch.LatestView(ctx)

	src.mu.Lock()
	calls := src.latestCalls
	src.mu.Unlock()
	if calls != 1 {
		t.Errorf("latest metrics calls = %d, want 1 (second view served from cache)", calls)
	}
}

func TestLatestView_MissingPoolPriceIsWarned(t *testing.T) {
	src := withLatestVaults(testSource())
	src.latest = src.latest[:1] // drop the debt pool metric
	orch := newTestOrchestrator(src)

	view := orch.LatestView(context.Background())

	if len(view.Vaults) != 1 {
		t.Fatalf("vaults = %d, want 1", len(view.Vaults))
	}
	vault := view.Vaults[0]
	if !vault.HasPricingErrors {
		t.Error("expected pricing errors for the missing debt pool")
	}
	if vault.DebtPrice != 0 {
		t.Errorf("DebtPrice = %v, want 0", vault.DebtPrice)
	}
	if len(view.PricingErrors) == 0 {
		t.Error("missing price must surface in PricingErrors")
	}
}
