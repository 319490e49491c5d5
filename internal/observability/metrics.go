// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Snapshot metrics
	SnapshotsBuilt   *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram
	VaultsValued     prometheus.Counter
	VaultFetchErrors prometheus.Counter
	PricingErrors    prometheus.Counter
	UniverseSize     prometheus.Gauge
	PriceBlockLag    prometheus.Gauge

	// Indexer client metrics
	IndexerRequests       *prometheus.CounterVec
	IndexerRequestLatency *prometheus.HistogramVec
	IndexerRetries        prometheus.Counter

	// Cache metrics
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	CacheStaleServes prometheus.Counter

	// Governance metrics
	GovPollsTotal       *prometheus.CounterVec
	GovEventsNotified   *prometheus.CounterVec
	GovDeliveryFailures prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSnapshot prometheus.Gauge
	LastSuccessfulGovPoll  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lending_risk_monitor"
	}

	return &Metrics{
		// Snapshot metrics
		SnapshotsBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "builds_total",
			Help:      "Total number of block snapshots built by outcome",
		}, []string{"outcome"}),
		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "build_duration_seconds",
			Help:      "Snapshot build duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		VaultsValued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "vaults_valued_total",
			Help:      "Total number of vaults valued across all snapshots",
		}),
		VaultFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "vault_fetch_errors_total",
			Help:      "Total number of per-vault history fetch errors",
		}),
		PricingErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "pricing_errors_total",
			Help:      "Total number of price resolution errors",
		}),
		UniverseSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "universe_size",
			Help:      "Number of vault addresses in the most recent universe",
		}),
		PriceBlockLag: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "price_block_lag",
			Help:      "Blocks between the snapshot target and the freshest resolved price",
		}),

		// Indexer client metrics
		IndexerRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "requests_total",
			Help:      "Total number of indexer API requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		IndexerRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "request_latency_seconds",
			Help:      "Indexer API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		IndexerRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "retries_total",
			Help:      "Total number of retried indexer requests",
		}),

		// Cache metrics
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of fresh pool-metric cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of pool-metric cache refreshes",
		}),
		CacheStaleServes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stale_serves_total",
			Help:      "Total number of stale pool-metric responses served after refresh failure",
		}),

		// Governance metrics
		GovPollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "polls_total",
			Help:      "Total number of governance polls by status",
		}, []string{"status"}),
		GovEventsNotified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "events_notified_total",
			Help:      "Total number of governance events delivered by type",
		}, []string{"event_type"}),
		GovDeliveryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "delivery_failures_total",
			Help:      "Total number of failed notification deliveries",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of the last successful snapshot build",
		}),
		LastSuccessfulGovPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_gov_poll_timestamp",
			Help:      "Unix timestamp of the last successful governance poll",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSnapshotBuilt records a completed snapshot build.
func RecordSnapshotBuilt(outcome string, seconds float64) {
	DefaultMetrics.SnapshotsBuilt.WithLabelValues(outcome).Inc()
	DefaultMetrics.SnapshotDuration.Observe(seconds)
}

// RecordGovPoll records the outcome of a governance poll cycle.
func RecordGovPoll(status string) {
	DefaultMetrics.GovPollsTotal.WithLabelValues(status).Inc()
}
