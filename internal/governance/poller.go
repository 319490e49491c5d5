// Package governance watches the indexer's governance event feeds and
// notifies on new parameter changes. The poller is resumable: the last
// notified block per event type is persisted through a StateStore, so
// a restart never re-announces old events.
package governance

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/observability"
)

// DefaultFetchLimit bounds how many events one poll pulls per type.
const DefaultFetchLimit = 50

// EventSource fetches governance events of one type, most recent
// first.
type EventSource interface {
	GovSetEvents(ctx context.Context, eventType domain.GovEventType, limit, offset int) ([]*domain.GovEvent, error)
}

// StateStore persists the last notified block per event type.
type StateStore interface {
	LastSeen(ctx context.Context, eventType domain.GovEventType) (int64, error)
	SetLastSeen(ctx context.Context, eventType domain.GovEventType, block int64) error
}

// Notifier delivers governance event notifications.
type Notifier interface {
	NotifyGovEvent(ctx context.Context, event *domain.GovEvent) error
}

// Poller polls every governance feed and notifies on events newer
// than the persisted watermark.
type Poller struct {
	src        EventSource
	store      StateStore
	notifier   Notifier
	eventTypes []domain.GovEventType
	fetchLimit int
	log        zerolog.Logger
}

// PollerOptions for creating a Poller.
type PollerOptions struct {
	Source   EventSource
	Store    StateStore
	Notifier Notifier

	// EventTypes defaults to every known governance event type.
	EventTypes []domain.GovEventType

	// FetchLimit defaults to DefaultFetchLimit.
	FetchLimit int

	Logger zerolog.Logger
}

// NewPoller creates a governance poller.
func NewPoller(opts PollerOptions) *Poller {
	types := opts.EventTypes
	if len(types) == 0 {
		types = domain.AllGovEventTypes
	}
	limit := opts.FetchLimit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	return &Poller{
		src:        opts.Source,
		store:      opts.Store,
		notifier:   opts.Notifier,
		eventTypes: types,
		fetchLimit: limit,
		log:        opts.Logger,
	}
}

// PollResult reports one poll cycle.
type PollResult struct {
	EventsSeen     int
	EventsNotified int
	Errors         []string
}

// Poll runs one cycle over every watched event type. Per-type failures
// are recorded and do not stop the cycle.
func (p *Poller) Poll(ctx context.Context) *PollResult {
	result := &PollResult{}

	for _, et := range p.eventTypes {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("poll cancelled: %v", err))
			return result
		}

		seen, notified, err := p.pollType(ctx, et)
		result.EventsSeen += seen
		result.EventsNotified += notified
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", et, err))
			p.log.Error().Err(err).Str("event_type", string(et)).Msg("governance poll failed")
		}
	}

	if len(result.Errors) == 0 {
		observability.DefaultMetrics.LastSuccessfulGovPoll.SetToCurrentTime()
	}

	p.log.Info().
		Int("seen", result.EventsSeen).
		Int("notified", result.EventsNotified).
		Int("errors", len(result.Errors)).
		Msg("governance poll cycle complete")

	return result
}

// pollType processes one event type: fetch, filter past the
// watermark, notify oldest-first, then advance the watermark.
func (p *Poller) pollType(ctx context.Context, et domain.GovEventType) (seen, notified int, err error) {
	events, err := p.src.GovSetEvents(ctx, et, p.fetchLimit, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch events: %w", err)
	}
	seen = len(events)
	if seen == 0 {
		return 0, 0, nil
	}

	watermark, err := p.store.LastSeen(ctx, et)
	if err != nil {
		return seen, 0, fmt.Errorf("load watermark: %w", err)
	}

	fresh := events[:0:0]
	for _, ev := range events {
		if ev.BlockNumber > watermark {
			fresh = append(fresh, ev)
		}
	}
	if len(fresh) == 0 {
		return seen, 0, nil
	}

	// Notify in chain order.
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].BlockNumber < fresh[j].BlockNumber })

	highest := watermark
	for _, ev := range fresh {
		if nerr := p.notifier.NotifyGovEvent(ctx, ev); nerr != nil {
			// Stop at the first delivery failure so the unnotified tail
			// is retried next cycle.
			observability.DefaultMetrics.GovDeliveryFailures.Inc()
			if serr := p.store.SetLastSeen(ctx, et, highest); serr != nil {
				return seen, notified, fmt.Errorf("notify: %v (and persist watermark: %w)", nerr, serr)
			}
			return seen, notified, fmt.Errorf("notify block %d: %w", ev.BlockNumber, nerr)
		}
		notified++
		highest = ev.BlockNumber
		observability.DefaultMetrics.GovEventsNotified.WithLabelValues(string(et)).Inc()
	}

	if err := p.store.SetLastSeen(ctx, et, highest); err != nil {
		return seen, notified, fmt.Errorf("persist watermark: %w", err)
	}
	return seen, notified, nil
}
