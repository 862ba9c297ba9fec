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
	// Analysis metrics
	AnalysesTotal      *prometheus.CounterVec
	AnalysisDuration   prometheus.Histogram
	SignalDegradations *prometheus.CounterVec
	ReportsPersisted   prometheus.Counter
	ReportPersistErrs  prometheus.Counter

	// Ingestion metrics
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	FetchErrors    *prometheus.CounterVec
	WalletsFetched prometheus.Counter

	// Transport metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_risk_engine"
	}

	return &Metrics{
		// Analysis metrics
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of completed analyses by verdict",
		}, []string{"verdict"}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "End-to-end analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SignalDegradations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "signal_degradations_total",
			Help:      "Total number of signals excluded for insufficient data, by kind",
		}, []string{"kind"}),
		ReportsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "reports_persisted_total",
			Help:      "Total number of risk reports written to storage",
		}),
		ReportPersistErrs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "report_persist_errors_total",
			Help:      "Total number of failed risk report writes",
		}),

		// Ingestion metrics
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cache_hits_total",
			Help:      "Total number of read-through cache hits by cache",
		}, []string{"cache"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cache_misses_total",
			Help:      "Total number of read-through cache misses by cache",
		}, []string{"cache"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_errors_total",
			Help:      "Total number of upstream fetch errors by source",
		}, []string{"source"}),
		WalletsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "wallets_fetched_total",
			Help:      "Total number of wallet histories fetched",
		}),

		// Transport metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
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
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAnalysis records a completed analysis run.
func RecordAnalysis(verdict string, durationSeconds float64) {
	DefaultMetrics.AnalysesTotal.WithLabelValues(verdict).Inc()
	DefaultMetrics.AnalysisDuration.Observe(durationSeconds)
}

// RecordDegradation records a signal excluded for insufficient data.
func RecordDegradation(kind string) {
	DefaultMetrics.SignalDegradations.WithLabelValues(kind).Inc()
}

// RecordCacheLookup records a read-through cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		DefaultMetrics.CacheHits.WithLabelValues(cache).Inc()
	} else {
		DefaultMetrics.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordFetchError records an upstream fetch error.
func RecordFetchError(source string) {
	DefaultMetrics.FetchErrors.WithLabelValues(source).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
