// Package indexer is the typed HTTP client for the protocol indexer
// API. All numeric fields arrive as strings on the wire; the client
// parses block numbers and timestamps at this boundary and hands typed
// records to the rest of the system.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client is an HTTP client for the indexer REST API.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates an indexer API client. apiKey may be empty when
// the indexer does not require authentication.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET with retries and exponential backoff, decoding
// the JSON body into result. Client errors (4xx other than 429) are
// not retried.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	endpoint := metricEndpoint(path)
	started := time.Now()
	defer func() {
		observability.DefaultMetrics.IndexerRequestLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.DefaultMetrics.IndexerRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			observability.DefaultMetrics.IndexerRequests.WithLabelValues(endpoint, "transport_error").Inc()
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}
		observability.DefaultMetrics.IndexerRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors won't succeed on retry
			var apiErr apiError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
				return fmt.Errorf("indexer error (status %d): %s", resp.StatusCode, apiErr.Error)
			}
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// metricEndpoint collapses address path segments so the per-endpoint
// metric labels stay bounded.
func metricEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "0x") || len(p) >= 32 {
			parts[i] = "{address}"
		}
	}
	return strings.Join(parts, "/")
}

func pageQuery(limit, offset int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return q
}

// ListVaultCreations retrieves a page of the vault-creation feed.
func (c *Client) ListVaultCreations(ctx context.Context, limit, offset int) ([]*domain.VaultCreation, error) {
	var resp vaultCreationsResponse
	if err := c.get(ctx, "/api/collateralVaults", pageQuery(limit, offset), &resp); err != nil {
		return nil, err
	}

	creations := make([]*domain.VaultCreation, 0, len(resp.Vaults))
	for _, w := range resp.Vaults {
		cr, err := w.toDomain()
		if err != nil {
			return nil, err
		}
		creations = append(creations, cr)
	}
	return creations, nil
}

// ListLatestVaultSnapshots retrieves each vault's most recent recorded
// snapshot.
func (c *Client) ListLatestVaultSnapshots(ctx context.Context, limit, offset int) ([]*domain.CollateralVaultSnapshot, error) {
	var resp snapshotsResponse
	if err := c.get(ctx, "/api/collateralVaults/latest-snapshots", pageQuery(limit, offset), &resp); err != nil {
		return nil, err
	}

	snaps := make([]*domain.CollateralVaultSnapshot, 0, len(resp.LatestSnapshots))
	for _, w := range resp.LatestSnapshots {
		s, err := w.toDomain()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

// VaultHistory retrieves a vault's snapshot history, most recent first.
// A positive endBlock bounds results to blocks at or before it.
func (c *Client) VaultHistory(ctx context.Context, vault string, limit int, endBlock int64) ([]*domain.CollateralVaultSnapshot, error) {
	q := pageQuery(limit, 0)
	if endBlock > 0 {
		q.Set("endBlock", strconv.FormatInt(endBlock, 10))
	}

	var resp vaultHistoryResponse
	path := "/api/collateralVaults/" + url.PathEscape(vault) + "/history"
	if err := c.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	snaps := make([]*domain.CollateralVaultSnapshot, 0, len(resp.Snapshots))
	for _, w := range resp.Snapshots {
		s, err := w.toDomain()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

// ListLatestPoolMetrics retrieves the most recent metrics for every
// lending pool.
func (c *Client) ListLatestPoolMetrics(ctx context.Context) ([]*domain.EVaultMetric, error) {
	var resp evaultMetricsResponse
	if err := c.get(ctx, "/api/evaults/latest", nil, &resp); err != nil {
		return nil, err
	}

	wires := resp.LatestMetrics
	if len(wires) == 0 {
		wires = resp.Metrics
	}
	metrics := make([]*domain.EVaultMetric, 0, len(wires))
	for _, w := range wires {
		m, err := w.toDomain()
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// PoolMetricHistory retrieves a pool's metric history, most recent
// first. A positive endBlock bounds results to blocks at or before it.
func (c *Client) PoolMetricHistory(ctx context.Context, pool string, limit int, endBlock int64) ([]*domain.EVaultMetric, error) {
	q := pageQuery(limit, 0)
	if endBlock > 0 {
		q.Set("endBlock", strconv.FormatInt(endBlock, 10))
	}

	var resp evaultMetricsResponse
	path := "/api/evault/" + url.PathEscape(pool) + "/metrics"
	if err := c.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	wires := resp.Metrics
	if len(wires) == 0 {
		wires = resp.LatestMetrics
	}
	metrics := make([]*domain.EVaultMetric, 0, len(wires))
	for _, w := range wires {
		m, err := w.toDomain()
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// ExternalLiquidations retrieves liquidations executed on the
// underlying lending market.
func (c *Client) ExternalLiquidations(ctx context.Context, limit, offset int) ([]*domain.ExternalLiquidation, error) {
	var resp externalLiquidationsResponse
	if err := c.get(ctx, "/api/collateralVaults/external-liquidations", pageQuery(limit, offset), &resp); err != nil {
		return nil, err
	}

	liqs := make([]*domain.ExternalLiquidation, 0, len(resp.ExternalLiquidations))
	for _, w := range resp.ExternalLiquidations {
		liqs = append(liqs, w.toDomain())
	}
	return liqs, nil
}

// InternalLiquidations retrieves liquidations settled inside the
// protocol.
func (c *Client) InternalLiquidations(ctx context.Context, limit, offset int) ([]*domain.InternalLiquidation, error) {
	var resp internalLiquidationsResponse
	if err := c.get(ctx, "/api/collateralVaults/internal-liquidations", pageQuery(limit, offset), &resp); err != nil {
		return nil, err
	}

	liqs := make([]*domain.InternalLiquidation, 0, len(resp.InternalLiquidations))
	for _, w := range resp.InternalLiquidations {
		liqs = append(liqs, w.toDomain())
	}
	return liqs, nil
}

// GovSetEvents retrieves governance parameter-change events of one
// type, most recent first.
func (c *Client) GovSetEvents(ctx context.Context, eventType domain.GovEventType, limit, offset int) ([]*domain.GovEvent, error) {
	var resp govEventsResponse
	path := "/api/" + string(eventType)
	if err := c.get(ctx, path, pageQuery(limit, offset), &resp); err != nil {
		return nil, err
	}

	events := make([]*domain.GovEvent, 0, len(resp.Events))
	for _, w := range resp.Events {
		ev, err := w.toDomain(eventType)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Health retrieves the indexer's health status.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.get(ctx, "/api/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
