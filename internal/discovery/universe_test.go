package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/domain"
)

type fakeFeed struct {
	creations []*domain.VaultCreation
	err       error
	calls     int
	// endless makes the feed serve full pages forever, simulating a
	// misbehaving upstream.
	endless bool
}

func (f *fakeFeed) ListVaultCreations(_ context.Context, limit, offset int) ([]*domain.VaultCreation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.endless {
		page := make([]*domain.VaultCreation, limit)
		for i := range page {
			page[i] = &domain.VaultCreation{VaultAddress: "0xloop", BlockNumber: 1}
		}
		return page, nil
	}
	if offset >= len(f.creations) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.creations) {
		end = len(f.creations)
	}
	return f.creations[offset:end], nil
}

func TestDiscover_FiltersByCreationBlock(t *testing.T) {
	feed := &fakeFeed{creations: []*domain.VaultCreation{
		{VaultAddress: "0xA", BlockNumber: 10},
		{VaultAddress: "0xB", BlockNumber: 20},
		{VaultAddress: "0xC", BlockNumber: 30},
	}}
	d := NewDiscoverer(feed, 100, 10, zerolog.Nop())

	result := d.Discover(context.Background(), 25)

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	want := map[string]struct{}{"0xa": {}, "0xb": {}}
	if len(result.Addresses) != len(want) {
		t.Fatalf("expected %d vaults, got %d", len(want), len(result.Addresses))
	}
	for addr := range want {
		if _, ok := result.Addresses[addr]; !ok {
			t.Errorf("expected vault %s in universe", addr)
		}
	}
}

func TestDiscover_UnorderedFeedDoesNotStopEarly(t *testing.T) {
	// A too-new record in the middle of the feed must not end the walk.
	feed := &fakeFeed{creations: []*domain.VaultCreation{
		{VaultAddress: "0xA", BlockNumber: 10},
		{VaultAddress: "0xNEW", BlockNumber: 999},
		{VaultAddress: "0xB", BlockNumber: 20},
	}}
	d := NewDiscoverer(feed, 2, 10, zerolog.Nop())

	result := d.Discover(context.Background(), 25)

	if _, ok := result.Addresses["0xb"]; !ok {
		t.Error("expected 0xb despite a newer record appearing before it")
	}
	if _, ok := result.Addresses["0xnew"]; ok {
		t.Error("0xnew created after target must be excluded")
	}
}

func TestDiscover_ShortPageStops(t *testing.T) {
	feed := &fakeFeed{creations: []*domain.VaultCreation{
		{VaultAddress: "0xA", BlockNumber: 10},
	}}
	d := NewDiscoverer(feed, 100, 10, zerolog.Nop())

	result := d.Discover(context.Background(), 100)

	if feed.calls != 1 {
		t.Errorf("expected a single fetch for a short page, got %d", feed.calls)
	}
	if result.CapHit {
		t.Error("short page must not report cap hit")
	}
}

func TestDiscover_PageCapIsWarningNotCrash(t *testing.T) {
	feed := &fakeFeed{endless: true}
	d := NewDiscoverer(feed, 10, 3, zerolog.Nop())

	result := d.Discover(context.Background(), 100)

	if !result.CapHit {
		t.Fatal("expected cap hit against an endless feed")
	}
	if feed.calls != 3 {
		t.Errorf("expected exactly 3 pages fetched, got %d", feed.calls)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 cap warning, got %v", result.Errors)
	}
	if _, ok := result.Addresses["0xloop"]; !ok {
		t.Error("records gathered before the cap must be kept")
	}
}

func TestDiscover_FetchErrorKeepsPartialResult(t *testing.T) {
	feed := &fakeFeed{err: errors.New("boom")}
	d := NewDiscoverer(feed, 100, 10, zerolog.Nop())

	result := d.Discover(context.Background(), 100)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if len(result.Addresses) != 0 {
		t.Errorf("expected empty universe, got %d", len(result.Addresses))
	}
}
