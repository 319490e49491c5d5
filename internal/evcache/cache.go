// Package evcache caches the latest lending-pool metrics behind a TTL.
// The cache is an explicit object constructed at startup and injected
// where latest-pool enumeration is needed; historical reconstruction
// never reads it for anything other than the set of pools that exist.
package evcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/observability"
	"lending-risk-monitor/internal/pricing"
)

// DefaultTTL bounds how long a latest-metrics fetch is reused.
const DefaultTTL = 5 * time.Minute

// LatestMetricsSource fetches the latest metric row for every pool.
type LatestMetricsSource interface {
	ListLatestPoolMetrics(ctx context.Context) ([]*domain.EVaultMetric, error)
}

// Cache is a TTL cache over the latest pool metrics.
type Cache struct {
	src LatestMetricsSource
	ttl time.Duration
	now func() time.Time
	log zerolog.Logger

	mu        sync.Mutex
	metrics   []*domain.EVaultMetric
	byAddress map[string]*domain.EVaultMetric
	prices    pricing.PriceMap
	fetchedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over the given source.
func New(src LatestMetricsSource, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		src: src,
		ttl: DefaultTTL,
		now: time.Now,
		log: log.With().Str("component", "evcache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns the cached latest pool metrics, refreshing when the
// TTL has lapsed. stale reports that a refresh failed and the previous
// (expired) data was served instead; callers can then distinguish
// fresh, stale, and absent data.
func (c *Cache) Latest(ctx context.Context) (metrics []*domain.EVaultMetric, stale bool, errs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		observability.DefaultMetrics.CacheHits.Inc()
		return c.metrics, false, nil
	}
	observability.DefaultMetrics.CacheMisses.Inc()

	fresh, err := c.src.ListLatestPoolMetrics(ctx)
	if err != nil {
		msg := fmt.Sprintf("failed to refresh latest pool metrics: %v", err)
		c.log.Error().Err(err).Msg("latest pool metrics refresh failed")
		if c.metrics != nil {
			observability.DefaultMetrics.CacheStaleServes.Inc()
			return c.metrics, true, []string{msg}
		}
		return nil, false, []string{msg}
	}
	if len(fresh) == 0 {
		errs = append(errs, "no pool metrics returned from indexer")
	}

	prices, priceErrs := pricing.BuildPriceMap(fresh)
	errs = append(errs, priceErrs...)

	byAddress := make(map[string]*domain.EVaultMetric, len(fresh))
	for _, m := range fresh {
		if m.VaultAddress != "" {
			byAddress[domain.NormalizeAddress(m.VaultAddress)] = m
		}
	}

	c.metrics = fresh
	c.byAddress = byAddress
	c.prices = prices
	c.fetchedAt = c.now()

	c.log.Debug().Int("pools", len(fresh)).Msg("latest pool metrics cached")
	return c.metrics, false, errs
}

// Price returns the cached latest price for one pool, with a warning
// when the pool is unknown or has a zero price.
func (c *Cache) Price(ctx context.Context, addr string) (float64, string) {
	c.Latest(ctx)

	c.mu.Lock()
	prices := c.prices
	c.mu.Unlock()

	if prices == nil {
		return 0.0, fmt.Sprintf("no pool data available for %s", addr)
	}
	return prices.Lookup(addr, "pool")
}

// Metric returns the cached latest metric for one pool address.
func (c *Cache) Metric(ctx context.Context, addr string) (*domain.EVaultMetric, bool) {
	c.Latest(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byAddress[domain.NormalizeAddress(addr)]
	return m, ok
}

// Invalidate drops the cached data, forcing the next read to refresh.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = nil
	c.byAddress = nil
	c.prices = nil
	c.fetchedAt = time.Time{}
	c.log.Debug().Msg("pool metric cache invalidated")
}
