// Package discovery walks the vault-creation feed to determine which
// collateral vaults existed at or before a target block.
package discovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/domain"
)

// Default pagination bounds. MaxPages caps the walk against a
// misbehaving upstream; hitting it is a warning, not a crash.
const (
	DefaultPageSize = 100
	DefaultMaxPages = 100
)

// CreationFeed provides paginated access to vault creation records.
type CreationFeed interface {
	ListVaultCreations(ctx context.Context, limit, offset int) ([]*domain.VaultCreation, error)
}

// UniverseResult is the outcome of one discovery walk.
type UniverseResult struct {
	TargetBlock int64
	// Addresses holds lowercase-normalized vault addresses created at
	// or before the target block.
	Addresses map[string]struct{}
	Errors    []string
	// CapHit reports that pagination stopped at the page cap rather
	// than at a short page, so the universe may be incomplete.
	CapHit bool
}

// Discoverer collects the vault universe for a target block.
type Discoverer struct {
	feed     CreationFeed
	pageSize int
	maxPages int
	log      zerolog.Logger
}

// NewDiscoverer creates a Discoverer. Non-positive bounds fall back to
// the defaults.
func NewDiscoverer(feed CreationFeed, pageSize, maxPages int, log zerolog.Logger) *Discoverer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Discoverer{
		feed:     feed,
		pageSize: pageSize,
		maxPages: maxPages,
		log:      log.With().Str("component", "discovery").Logger(),
	}
}

// Discover walks the creation feed and returns every vault created at
// or before targetBlock. The feed carries no ordering guarantee, so a
// too-new record never stops the walk early; only a short page or the
// page cap does. Upstream failures end the walk with what was gathered
// so far plus a recorded error.
func (d *Discoverer) Discover(ctx context.Context, targetBlock int64) *UniverseResult {
	result := &UniverseResult{
		TargetBlock: targetBlock,
		Addresses:   make(map[string]struct{}),
	}

	offset := 0
	for page := 0; ; page++ {
		if page >= d.maxPages {
			msg := fmt.Sprintf("page cap reached while discovering vaults (pages: %d, offset: %d)", d.maxPages, offset)
			d.log.Warn().Int64("target_block", targetBlock).Int("offset", offset).Msg("vault discovery hit page cap")
			result.Errors = append(result.Errors, msg)
			result.CapHit = true
			break
		}

		creations, err := d.feed.ListVaultCreations(ctx, d.pageSize, offset)
		if err != nil {
			msg := fmt.Sprintf("failed to fetch vault creations (offset %d): %v", offset, err)
			d.log.Error().Err(err).Int("offset", offset).Msg("vault discovery fetch failed")
			result.Errors = append(result.Errors, msg)
			break
		}
		if len(creations) == 0 {
			break
		}

		for _, c := range creations {
			if c.BlockNumber <= targetBlock {
				result.Addresses[domain.NormalizeAddress(c.VaultAddress)] = struct{}{}
			}
		}

		// Short page means end of feed.
		if len(creations) < d.pageSize {
			break
		}
		offset += d.pageSize
	}

	d.log.Debug().
		Int64("target_block", targetBlock).
		Int("vaults", len(result.Addresses)).
		Int("errors", len(result.Errors)).
		Msg("vault universe discovered")

	return result
}
