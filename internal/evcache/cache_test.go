package evcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/domain"
)

type fakeSource struct {
	metrics []*domain.EVaultMetric
	err     error
	calls   int
}

func (f *fakeSource) ListLatestPoolMetrics(_ context.Context) ([]*domain.EVaultMetric, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.metrics, nil
}

func poolMetric(addr, assets, usd string) *domain.EVaultMetric {
	return &domain.EVaultMetric{VaultAddress: addr, TotalAssets: assets, TotalAssetsUsd: usd}
}

func TestLatest_CachesWithinTTL(t *testing.T) {
	src := &fakeSource{metrics: []*domain.EVaultMetric{poolMetric("0xA", "100", "200")}}
	clock := time.Unix(1000, 0)
	c := New(src, zerolog.Nop(), WithTTL(time.Minute), WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	if _, _, errs := c.Latest(ctx); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	c.Latest(ctx)
	c.Latest(ctx)

	if src.calls != 1 {
		t.Errorf("expected 1 upstream fetch within TTL, got %d", src.calls)
	}
}

func TestLatest_RefreshesAfterTTL(t *testing.T) {
	src := &fakeSource{metrics: []*domain.EVaultMetric{poolMetric("0xA", "100", "200")}}
	clock := time.Unix(1000, 0)
	c := New(src, zerolog.Nop(), WithTTL(time.Minute), WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	c.Latest(ctx)

	clock = clock.Add(2 * time.Minute)
	c.Latest(ctx)

	if src.calls != 2 {
		t.Errorf("expected refresh after TTL expiry, got %d fetches", src.calls)
	}
}

func TestLatest_ServesStaleOnRefreshFailure(t *testing.T) {
	src := &fakeSource{metrics: []*domain.EVaultMetric{poolMetric("0xA", "100", "200")}}
	clock := time.Unix(1000, 0)
	c := New(src, zerolog.Nop(), WithTTL(time.Minute), WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	c.Latest(ctx)

	clock = clock.Add(2 * time.Minute)
	src.err = errors.New("indexer down")

	metrics, stale, errs := c.Latest(ctx)
	if !stale {
		t.Error("expected stale flag when refresh fails with prior data")
	}
	if len(metrics) != 1 {
		t.Errorf("expected previous data served, got %d metrics", len(metrics))
	}
	if len(errs) != 1 {
		t.Errorf("expected refresh error recorded, got %v", errs)
	}
}

func TestLatest_NoDataAndFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("indexer down")}
	c := New(src, zerolog.Nop())

	metrics, stale, errs := c.Latest(context.Background())
	if metrics != nil || stale {
		t.Errorf("expected no data and not stale, got %v stale=%v", metrics, stale)
	}
	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %v", errs)
	}
}

func TestInvalidate_ForcesRefresh(t *testing.T) {
	src := &fakeSource{metrics: []*domain.EVaultMetric{poolMetric("0xA", "100", "200")}}
	clock := time.Unix(1000, 0)
	c := New(src, zerolog.Nop(), WithTTL(time.Hour), WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	c.Latest(ctx)
	c.Invalidate()
	c.Latest(ctx)

	if src.calls != 2 {
		t.Errorf("expected refetch after Invalidate, got %d fetches", src.calls)
	}
}

func TestPrice_LookupAndWarnings(t *testing.T) {
	src := &fakeSource{metrics: []*domain.EVaultMetric{
		poolMetric("0xA", "100", "250"),
		poolMetric("0xB", "0", "250"), // derives to zero price
	}}
	c := New(src, zerolog.Nop())
	ctx := context.Background()

	price, warn := c.Price(ctx, "0xA")
	if price != 2.5 || warn != "" {
		t.Errorf("expected (2.5, no warning), got (%f, %q)", price, warn)
	}

	price, warn = c.Price(ctx, "0xB")
	if price != 0.0 || warn == "" {
		t.Errorf("expected zero price warning, got (%f, %q)", price, warn)
	}

	price, warn = c.Price(ctx, "0xMISSING")
	if price != 0.0 || warn == "" {
		t.Errorf("expected missing pool warning, got (%f, %q)", price, warn)
	}
}
