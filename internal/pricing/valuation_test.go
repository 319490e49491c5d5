package pricing

import (
	"math"
	"strings"
	"testing"

	"lending-risk-monitor/internal/domain"
)

func testSnapshot() *domain.CollateralVaultSnapshot {
	return &domain.CollateralVaultSnapshot{
		VaultAddress:                   "0xVault",
		MaxRelease:                     "2000000000000000000", // 2 tokens
		MaxRepay:                       "1000000000000000000", // 1 token
		TotalAssetsDepositedOrReserved: "4000000000000000000", // 4 tokens
		UserOwnedCollateral:            "3000000000000000000", // 3 tokens
	}
}

func TestValue_ScalingRoundTrip(t *testing.T) {
	v := NewValuer(DefaultAmountDecimals)

	usd, errs := v.Value(testSnapshot(), 3.5, 2.0)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if math.Abs(usd.MaxRelease-7.0) > 1e-9 {
		t.Errorf("expected release 7.0, got %f", usd.MaxRelease)
	}
	if math.Abs(usd.MaxRepay-2.0) > 1e-9 {
		t.Errorf("expected repay 2.0, got %f", usd.MaxRepay)
	}
	if math.Abs(usd.TotalAssets-14.0) > 1e-9 {
		t.Errorf("expected total assets 14.0, got %f", usd.TotalAssets)
	}
	if math.Abs(usd.UserCollateral-10.5) > 1e-9 {
		t.Errorf("expected user collateral 10.5, got %f", usd.UserCollateral)
	}
}

func TestValue_ZeroDebtPriceIsWarningNotFailure(t *testing.T) {
	v := NewValuer(DefaultAmountDecimals)

	usd, errs := v.Value(testSnapshot(), 3.5, 0.0)

	if usd.MaxRepay != 0.0 {
		t.Errorf("expected repay 0.0 with zero debt price, got %f", usd.MaxRepay)
	}
	// Credit-side values are unaffected
	if math.Abs(usd.MaxRelease-7.0) > 1e-9 {
		t.Errorf("expected release 7.0, got %f", usd.MaxRelease)
	}
	if math.Abs(usd.TotalAssets-14.0) > 1e-9 {
		t.Errorf("expected total assets 14.0, got %f", usd.TotalAssets)
	}

	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 warning, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "debt") {
		t.Errorf("expected warning mentioning the debt side, got %q", errs[0])
	}
}

func TestValue_BothPricesZero(t *testing.T) {
	v := NewValuer(DefaultAmountDecimals)

	usd, errs := v.Value(testSnapshot(), 0.0, 0.0)

	if usd != (domain.USDValues{}) {
		t.Errorf("expected all-zero values, got %+v", usd)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 warnings, got %d: %v", len(errs), errs)
	}
}

func TestValue_MalformedFieldReturnsZeroSet(t *testing.T) {
	v := NewValuer(DefaultAmountDecimals)

	snap := testSnapshot()
	snap.MaxRepay = "garbage"

	usd, errs := v.Value(snap, 3.5, 2.0)

	if usd != (domain.USDValues{}) {
		t.Errorf("expected all-zero values for malformed record, got %+v", usd)
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "maxRepay") {
		t.Errorf("expected one error naming maxRepay, got %v", errs)
	}
}

func TestValue_ZeroStringAmountsAreZero(t *testing.T) {
	v := NewValuer(DefaultAmountDecimals)

	snap := &domain.CollateralVaultSnapshot{VaultAddress: "0xV", MaxRelease: "0", MaxRepay: "", TotalAssetsDepositedOrReserved: "0", UserOwnedCollateral: "0"}
	usd, errs := v.Value(snap, 1.0, 1.0)
	if usd != (domain.USDValues{}) {
		t.Errorf("expected zero values, got %+v", usd)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestLiqLTVDecimal(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"8500", 0.85},
		{"10000", 1.0},
		{"0", 0.0},
		{"", 0.0},
		{"junk", 0.0},
	}
	for _, tc := range cases {
		got := LiqLTVDecimal(tc.raw)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("LiqLTVDecimal(%q) = %f, want %f", tc.raw, got, tc.want)
		}
	}
}
