package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the spend pipeline.
type Metrics struct {
	// Ingestion metrics
	IngestRuns         *prometheus.CounterVec
	IngestRowsUpserted prometheus.Counter
	IngestRowsRejected prometheus.Counter
	IngestDuration     prometheus.Histogram

	// Query metrics
	QueryRequests *prometheus.CounterVec
	QueryLatency  *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec

	// Intent metrics
	IntentQuestions *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		IngestRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_runs_total",
				Help:      "Total ingest runs by outcome",
			},
			[]string{"status"},
		),
		IngestRowsUpserted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_rows_upserted_total",
				Help:      "Total rows upserted into the spend store",
			},
		),
		IngestRowsRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_rows_rejected_total",
				Help:      "Total CSV rows rejected by row-level validation",
			},
		),
		IngestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Duration of a full ingest run",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		QueryRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_requests_total",
				Help:      "KPI query requests by query shape and outcome",
			},
			[]string{"query", "status"},
		),
		QueryLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_latency_seconds",
				Help:      "KPI query latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query"},
		),
		CacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by query shape and hit/miss",
			},
			[]string{"query", "hit"},
		),
		IntentQuestions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intent_questions_total",
				Help:      "Natural-language questions by mapped intent",
			},
			[]string{"kind"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by rate limiting",
			},
			[]string{"endpoint"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordIngestRun records the outcome of one ingest run.
func (m *Metrics) RecordIngestRun(status string, upserted, rejected int, d time.Duration) {
	m.IngestRuns.WithLabelValues(status).Inc()
	m.IngestRowsUpserted.Add(float64(upserted))
	m.IngestRowsRejected.Add(float64(rejected))
	m.IngestDuration.Observe(d.Seconds())
}

// RecordQuery records a KPI query execution.
func (m *Metrics) RecordQuery(query, status string, d time.Duration) {
	m.QueryRequests.WithLabelValues(query, status).Inc()
	m.QueryLatency.WithLabelValues(query).Observe(d.Seconds())
}

// RecordCacheLookup records a result cache hit or miss.
func (m *Metrics) RecordCacheLookup(query string, hit bool) {
	h := "false"
	if hit {
		h = "true"
	}
	m.CacheLookups.WithLabelValues(query, h).Inc()
}

// RecordIntent records a mapped (or unmapped) question.
func (m *Metrics) RecordIntent(kind string) {
	m.IntentQuestions.WithLabelValues(kind).Inc()
}

// RecordRateLimitHit records a rate limit rejection.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}
