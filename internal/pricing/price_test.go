package pricing

import (
	"math"
	"testing"

	"lending-risk-monitor/internal/domain"
)

func TestDerivePrice_Valid(t *testing.T) {
	// 2000 USD over 1000 units → 2.0 per unit
	price, err := DerivePrice("1000000000000000000000", "2000000000000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(price-2.0) > 1e-9 {
		t.Errorf("expected price 2.0, got %f", price)
	}
}

func TestDerivePrice_ExactRatio(t *testing.T) {
	price, err := DerivePrice("3", "21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(price-7.0) > 1e-12 {
		t.Errorf("expected price 7.0, got %f", price)
	}
}

func TestDerivePrice_ZeroAssets(t *testing.T) {
	price, err := DerivePrice("0", "2000")
	if err == nil {
		t.Fatal("expected error for zero assets")
	}
	if price != 0.0 {
		t.Errorf("expected price 0.0, got %f", price)
	}
}

func TestDerivePrice_ZeroUsd(t *testing.T) {
	price, err := DerivePrice("2000", "0")
	if err == nil {
		t.Fatal("expected error for zero USD")
	}
	if price != 0.0 {
		t.Errorf("expected price 0.0, got %f", price)
	}
}

func TestDerivePrice_EmptyInputs(t *testing.T) {
	if _, err := DerivePrice("", "100"); err == nil {
		t.Error("expected error for empty assets")
	}
	if _, err := DerivePrice("100", ""); err == nil {
		t.Error("expected error for empty USD")
	}
}

func TestDerivePrice_Unparsable(t *testing.T) {
	price, err := DerivePrice("not-a-number", "100")
	if err == nil {
		t.Fatal("expected error for unparsable assets")
	}
	if price != 0.0 {
		t.Errorf("expected price 0.0, got %f", price)
	}
}

func TestDerivePrice_Negative(t *testing.T) {
	if _, err := DerivePrice("-5", "100"); err == nil {
		t.Error("expected error for negative assets")
	}
	if _, err := DerivePrice("5", "-100"); err == nil {
		t.Error("expected error for negative USD")
	}
}

func TestBuildPriceMap_SkipsBadRecordsAndContinues(t *testing.T) {
	metrics := []*domain.EVaultMetric{
		{VaultAddress: "0xAAA", TotalAssets: "100", TotalAssetsUsd: "250"},
		{VaultAddress: "", TotalAssets: "100", TotalAssetsUsd: "200"},
		{VaultAddress: "0xBBB", TotalAssets: "0", TotalAssetsUsd: "200"},
		{VaultAddress: "0xCCC", TotalAssets: "50", TotalAssetsUsd: "100"},
	}

	prices, errs := BuildPriceMap(metrics)

	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}

	// Good record, lowercase key
	if math.Abs(prices["0xaaa"]-2.5) > 1e-9 {
		t.Errorf("expected 0xaaa price 2.5, got %f", prices["0xaaa"])
	}
	// Failed derivation stores 0.0 under the key, not a missing entry
	if p, ok := prices["0xbbb"]; !ok || p != 0.0 {
		t.Errorf("expected 0xbbb present with price 0.0, got %v (present=%v)", p, ok)
	}
	if math.Abs(prices["0xccc"]-2.0) > 1e-9 {
		t.Errorf("expected 0xccc price 2.0, got %f", prices["0xccc"])
	}
	// Missing-address record is skipped entirely
	if len(prices) != 3 {
		t.Errorf("expected 3 entries, got %d", len(prices))
	}
}

func TestPriceMap_Lookup(t *testing.T) {
	prices := PriceMap{"0xaaa": 1.5, "0xbbb": 0.0}

	price, warn := prices.Lookup("0xAAA", "credit vault")
	if price != 1.5 || warn != "" {
		t.Errorf("expected (1.5, no warning), got (%f, %q)", price, warn)
	}

	price, warn = prices.Lookup("0xBBB", "credit vault")
	if price != 0.0 || warn == "" {
		t.Errorf("expected zero-price warning, got (%f, %q)", price, warn)
	}

	price, warn = prices.Lookup("0xZZZ", "debt vault")
	if price != 0.0 || warn == "" {
		t.Errorf("expected missing-price warning, got (%f, %q)", price, warn)
	}
}
