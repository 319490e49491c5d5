package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/discovery"
	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/evcache"
	"lending-risk-monitor/internal/lookup"
	"lending-risk-monitor/internal/observability"
	"lending-risk-monitor/internal/pricing"
)

// DefaultConcurrency bounds the per-vault fan-out while valuing a
// snapshot.
const DefaultConcurrency = 8

// Orchestrator builds point-in-time block snapshots. It never panics
// or returns an error past its boundary: fetch and pricing failures
// degrade the snapshot and are reported as flat error lists on the
// result.
type Orchestrator struct {
	src         DataSource
	cache       *evcache.Cache
	valuer      pricing.Valuer
	pageSize    int
	maxPages    int
	concurrency int
	log         zerolog.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	// Source is required.
	Source DataSource

	// Cache, when set, serves pool enumeration from the TTL cache
	// instead of hitting the indexer on every snapshot.
	Cache *evcache.Cache

	// AmountDecimals overrides the raw amount scale. Zero means the
	// default 18-decimal scale.
	AmountDecimals int32

	// PageSize and MaxPages bound universe discovery pagination. Zero
	// means the discovery defaults.
	PageSize int
	MaxPages int

	// Concurrency bounds the per-vault fan-out. Zero means
	// DefaultConcurrency.
	Concurrency int

	Logger zerolog.Logger
}

// New creates a snapshot Orchestrator.
func New(opts Options) *Orchestrator {
	decimals := opts.AmountDecimals
	if decimals == 0 {
		decimals = pricing.DefaultAmountDecimals
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		src:         opts.Source,
		cache:       opts.Cache,
		valuer:      pricing.NewValuer(decimals),
		pageSize:    opts.PageSize,
		maxPages:    opts.MaxPages,
		concurrency: concurrency,
		log:         opts.Logger,
	}
}

// CreateSnapshotAtBlock reconstructs and values the whole vault
// universe at the target block.
//
// Phases:
//  1. Discover every vault created at or before the target.
//  2. Strike the price map at the target.
//  3. Resolve each vault's state at the target and value it.
//
// An empty universe or an empty price map short-circuits the later
// phases; the result still reports what was discovered and why the
// build stopped. A panic anywhere in the build is converted into a
// terminal snapshot carrying the failure, so callers outside an HTTP
// recovery middleware get the same no-panic contract.
func (o *Orchestrator) CreateSnapshotAtBlock(ctx context.Context, target int64) (snap *domain.BlockSnapshot) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Int64("target_block", target).Interface("panic", r).Msg("snapshot build panicked")
			observability.RecordSnapshotBuilt("panic", time.Since(started).Seconds())
			snap = &domain.BlockSnapshot{
				TargetBlock: target,
				FetchErrors: []string{fmt.Sprintf("internal error building snapshot at block %d: %v", target, r)},
			}
		}
	}()
	return o.buildSnapshot(ctx, target, started)
}

func (o *Orchestrator) buildSnapshot(ctx context.Context, target int64, started time.Time) *domain.BlockSnapshot {
	snap := &domain.BlockSnapshot{TargetBlock: target}

	// Phase 1: universe discovery.
	universe := discovery.NewDiscoverer(o.src, o.pageSize, o.maxPages, o.log).Discover(ctx, target)
	snap.TotalVaults = len(universe.Addresses)
	snap.FetchErrors = append(snap.FetchErrors, universe.Errors...)
	observability.DefaultMetrics.UniverseSize.Set(float64(snap.TotalVaults))

	o.log.Debug().
		Int64("target_block", target).
		Int("vaults", snap.TotalVaults).
		Msg("universe discovered")

	if snap.TotalVaults == 0 {
		observability.RecordSnapshotBuilt("empty_universe", time.Since(started).Seconds())
		return snap
	}

	// Phase 2: price map.
	res := o.resolvePrices(ctx, target)
	snap.PricingErrors = append(snap.PricingErrors, res.errors...)
	snap.PricesBlock = res.actualBlock

	if len(res.prices) == 0 {
		snap.PricingErrors = append(snap.PricingErrors,
			fmt.Sprintf("no prices resolved at block %d, skipping valuation", target))
		observability.RecordSnapshotBuilt("no_prices", time.Since(started).Seconds())
		return snap
	}
	if snap.PricesBlock > 0 {
		observability.DefaultMetrics.PriceBlockLag.Set(float64(target - snap.PricesBlock))
	}

	// Phase 3: per-vault resolution and valuation.
	addrs := make([]string, 0, len(universe.Addresses))
	for addr := range universe.Addresses {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.concurrency)
	)

	for _, addr := range addrs {
		wg.Add(1)
		sem <- struct{}{}
		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					snap.FetchErrors = append(snap.FetchErrors,
						fmt.Sprintf("vault %s at block %d: internal error: %v", addr, target, r))
					mu.Unlock()
				}
			}()

			enhanced, fetchErr, priceWarns := o.valueVault(ctx, addr, target, res.prices)

			mu.Lock()
			defer mu.Unlock()
			if fetchErr != "" {
				snap.FetchErrors = append(snap.FetchErrors, fetchErr)
			}
			snap.PricingErrors = append(snap.PricingErrors, priceWarns...)
			if enhanced != nil {
				snap.VaultSnapshots = append(snap.VaultSnapshots, enhanced)
			}
		}(addr)
	}
	wg.Wait()

	sort.Slice(snap.VaultSnapshots, func(i, j int) bool {
		return snap.VaultSnapshots[i].VaultAddress < snap.VaultSnapshots[j].VaultAddress
	})

	for _, vs := range snap.VaultSnapshots {
		if vs.Snapshot.BlockTimestamp != 0 {
			snap.Timestamp = vs.Snapshot.BlockTimestamp
			break
		}
	}

	observability.DefaultMetrics.VaultsValued.Add(float64(len(snap.VaultSnapshots)))
	observability.DefaultMetrics.VaultFetchErrors.Add(float64(len(snap.FetchErrors)))
	observability.DefaultMetrics.PricingErrors.Add(float64(len(snap.PricingErrors)))
	observability.RecordSnapshotBuilt("ok", time.Since(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulSnapshot.SetToCurrentTime()

	o.log.Info().
		Int64("target_block", target).
		Int64("prices_block", snap.PricesBlock).
		Int("vaults", snap.TotalVaults).
		Int("valued", len(snap.VaultSnapshots)).
		Int("pricing_errors", len(snap.PricingErrors)).
		Int("fetch_errors", len(snap.FetchErrors)).
		Msg("block snapshot built")

	return snap
}

// valueVault resolves one vault's state at the target block and values
// it against the price map. A vault with no state by the target is a
// normal miss (nil, no error); upstream failures come back as a fetch
// error string.
func (o *Orchestrator) valueVault(ctx context.Context, addr string, target int64, prices pricing.PriceMap) (*domain.EnhancedSnapshot, string, []string) {
	state, err := lookup.StateAt(ctx, o.src, addr, target)
	if err != nil {
		if errors.Is(err, lookup.ErrNoHistory) {
			return nil, "", nil
		}
		return nil, fmt.Sprintf("vault %s at block %d: %v", addr, target, err), nil
	}

	enhanced, warns := o.valueState(addr, state, prices)
	return enhanced, "", warns
}

// valueState prices one already-resolved vault state.
func (o *Orchestrator) valueState(addr string, state *domain.CollateralVaultSnapshot, prices pricing.PriceMap) (*domain.EnhancedSnapshot, []string) {
	var warns []string

	creditPrice, warn := prices.Lookup(state.CreditVault, "credit vault")
	if warn != "" {
		warns = append(warns, fmt.Sprintf("vault %s: %s", addr, warn))
	}
	debtPrice, warn := prices.Lookup(state.DebtVault, "debt vault")
	if warn != "" {
		warns = append(warns, fmt.Sprintf("vault %s: %s", addr, warn))
	}

	usd, valueWarns := o.valuer.Value(state, creditPrice, debtPrice)
	for _, w := range valueWarns {
		warns = append(warns, fmt.Sprintf("vault %s: %s", addr, w))
	}

	return &domain.EnhancedSnapshot{
		VaultAddress:     addr,
		Snapshot:         state,
		USD:              usd,
		CreditVault:      domain.NormalizeAddress(state.CreditVault),
		DebtVault:        domain.NormalizeAddress(state.DebtVault),
		CreditPrice:      creditPrice,
		DebtPrice:        debtPrice,
		SnapshotBlock:    state.BlockNumber,
		HasPricingErrors: len(warns) > 0,
	}, warns
}

// VaultAddressesAt reports which vaults existed at the target block.
func (o *Orchestrator) VaultAddressesAt(ctx context.Context, target int64) *domain.VaultSetResult {
	universe := discovery.NewDiscoverer(o.src, o.pageSize, o.maxPages, o.log).Discover(ctx, target)

	addrs := make([]string, 0, len(universe.Addresses))
	for addr := range universe.Addresses {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	return &domain.VaultSetResult{
		TargetBlock:    target,
		VaultAddresses: addrs,
		TotalVaults:    len(addrs),
		Errors:         universe.Errors,
		Success:        len(universe.Errors) == 0,
	}
}

// PricesAt reports the resolved price map at the target block.
func (o *Orchestrator) PricesAt(ctx context.Context, target int64) *domain.PriceProbeResult {
	res := o.resolvePrices(ctx, target)
	return &domain.PriceProbeResult{
		TargetBlock: target,
		ActualBlock: res.actualBlock,
		Prices:      res.prices,
		TotalVaults: len(res.prices),
		Errors:      res.errors,
		Success:     len(res.errors) == 0,
	}
}
