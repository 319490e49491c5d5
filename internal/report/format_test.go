package report

import (
	"strings"
	"testing"

	"lending-risk-monitor/internal/domain"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{-999.994, "-$999.99"},
		{100, "$100.00"},
	}
	for _, tt := range tests {
		if got := FormatUSD(tt.in); got != tt.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(12.345); got != "+12.35%" {
		t.Errorf("got %q", got)
	}
	if got := FormatPercent(-3.2); got != "-3.20%" {
		t.Errorf("got %q", got)
	}
}

func TestShortAddress(t *testing.T) {
	if got := ShortAddress("0x1234567890abcdef1234567890abcdef12345678"); got != "0x1234...5678" {
		t.Errorf("got %q", got)
	}
	if got := ShortAddress("0xshort"); got != "0xshort" {
		t.Errorf("short addresses pass through, got %q", got)
	}
}

func TestClassifyWarnings(t *testing.T) {
	b := ClassifyWarnings([]string{
		"vault 0xa: no price available for credit vault 0xc",
		"vault 0xa: debt vault 0xd has zero price",
		"price derivation failed for pool 0xp: total assets is zero",
		"something unexpected",
	})

	if b.MissingPrice != 1 || b.ZeroPrice != 1 || b.Derivation != 1 || b.Other != 1 {
		t.Errorf("unexpected breakdown %+v", b)
	}
}

func TestRenderSnapshotMarkdown(t *testing.T) {
	snap := &domain.BlockSnapshot{
		TargetBlock: 100,
		PricesBlock: 95,
		TotalVaults: 1,
		VaultSnapshots: []*domain.EnhancedSnapshot{
			{
				VaultAddress:  "0x1234567890abcdef1234567890abcdef12345678",
				CreditVault:   "0xcredit",
				DebtVault:     "0xdebt",
				USD:           domain.USDValues{TotalAssets: 14, UserCollateral: 3.5, MaxRelease: 7, MaxRepay: 2},
				SnapshotBlock: 80,
			},
		},
	}

	out := RenderSnapshotMarkdown(snap, &domain.SnapshotSummary{
		TargetBlock:           100,
		TotalVaultsDiscovered: 1,
		SuccessfulSnapshots:   1,
		TotalAssetsUSD:        14,
	})

	for _, want := range []string{"# Block Snapshot 100", "0x1234...5678", "$14.00", "Prices struck at block 95"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummariesCSV(t *testing.T) {
	out := RenderSummariesCSV([]*domain.SnapshotSummary{
		{TargetBlock: 100, TotalAssetsUSD: 14, PricesBlock: 95},
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "target_block,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "100,") {
		t.Errorf("unexpected row %q", lines[1])
	}
}
