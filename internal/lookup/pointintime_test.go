package lookup

import (
	"context"
	"errors"
	"testing"

	"lending-risk-monitor/internal/domain"
)

// fakeHistory serves a fixed block-descending history, honoring the
// endBlock filter the way the real indexer does.
type fakeHistory struct {
	blocks []int64 // descending
	err    error
	// violate makes the source ignore the endBlock filter, simulating
	// an upstream contract violation.
	violate bool
}

func (f *fakeHistory) VaultHistory(_ context.Context, vault string, limit int, endBlock int64) ([]*domain.CollateralVaultSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.CollateralVaultSnapshot
	for _, b := range f.blocks {
		if !f.violate && b > endBlock {
			continue
		}
		out = append(out, &domain.CollateralVaultSnapshot{VaultAddress: vault, BlockNumber: b})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeHistory) PoolMetricHistory(_ context.Context, pool string, limit int, endBlock int64) ([]*domain.EVaultMetric, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.EVaultMetric
	for _, b := range f.blocks {
		if !f.violate && b > endBlock {
			continue
		}
		out = append(out, &domain.EVaultMetric{VaultAddress: pool, BlockNumber: b})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestStateAt_BetweenRecords(t *testing.T) {
	src := &fakeHistory{blocks: []int64{300, 200, 100}}

	snap, err := StateAt(context.Background(), src, "0xv", 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.BlockNumber != 200 {
		t.Errorf("expected block 200, got %d", snap.BlockNumber)
	}
}

func TestStateAt_InclusiveUpperBound(t *testing.T) {
	src := &fakeHistory{blocks: []int64{300, 200, 100}}

	snap, err := StateAt(context.Background(), src, "0xv", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.BlockNumber != 300 {
		t.Errorf("expected block 300 (inclusive bound), got %d", snap.BlockNumber)
	}
}

func TestStateAt_BeforeFirstRecord(t *testing.T) {
	src := &fakeHistory{blocks: []int64{300, 200, 100}}

	_, err := StateAt(context.Background(), src, "0xv", 50)
	if !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}
}

func TestStateAt_SourceContractViolation(t *testing.T) {
	src := &fakeHistory{blocks: []int64{400}, violate: true}

	_, err := StateAt(context.Background(), src, "0xv", 250)
	if !errors.Is(err, ErrBlockAfterTarget) {
		t.Errorf("expected ErrBlockAfterTarget, got %v", err)
	}
}

func TestStateAt_SourceError(t *testing.T) {
	src := &fakeHistory{err: errors.New("upstream down")}

	_, err := StateAt(context.Background(), src, "0xv", 250)
	if err == nil || errors.Is(err, ErrNoHistory) {
		t.Errorf("expected wrapped upstream error, got %v", err)
	}
}

func TestMetricAt_BetweenRecords(t *testing.T) {
	src := &fakeHistory{blocks: []int64{300, 200, 100}}

	m, err := MetricAt(context.Background(), src, "0xp", 299)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.BlockNumber != 200 {
		t.Errorf("expected block 200, got %d", m.BlockNumber)
	}
}

func TestMetricAt_Empty(t *testing.T) {
	src := &fakeHistory{}

	_, err := MetricAt(context.Background(), src, "0xp", 100)
	if !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}
}
