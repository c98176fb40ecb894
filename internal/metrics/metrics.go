package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Delivery metrics
	Deliveries       *prometheus.CounterVec
	DeliveryWriteErr *prometheus.CounterVec
	BatchLatency     *prometheus.HistogramVec
	BatchSize        prometheus.Histogram

	// Targeting metrics
	TargetingMatches *prometheus.CounterVec
	TargetingMisses  *prometheus.CounterVec

	// Aggregation metrics
	AggregationErrors *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Deliveries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Total number of delivery records created",
			},
			[]string{"status", "campaign_id"},
		),
		DeliveryWriteErr: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_write_errors_total",
				Help:      "Total number of failed delivery writes",
			},
			[]string{"campaign_id"},
		),
		BatchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_batch_seconds",
				Help:      "Delivery batch duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"outcome"},
		),
		BatchSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_batch_size",
				Help:      "Number of matched customers per delivery batch",
				Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
			},
		),
		TargetingMatches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "targeting_matches_total",
				Help:      "Total number of customers matched by radius targeting",
			},
			[]string{"location_id"},
		),
		TargetingMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "targeting_misses_total",
				Help:      "Total number of customers excluded by radius targeting",
			},
			[]string{"location_id", "reason"},
		),
		AggregationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_errors_total",
				Help:      "Total number of failed statistics aggregations",
			},
			[]string{"query"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limited requests",
			},
			[]string{"endpoint"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDelivery records a created delivery record.
func (m *Metrics) RecordDelivery(status, campaignID string) {
	m.Deliveries.WithLabelValues(status, campaignID).Inc()
}

// RecordDeliveryWriteError records a failed delivery write.
func (m *Metrics) RecordDeliveryWriteError(campaignID string) {
	m.DeliveryWriteErr.WithLabelValues(campaignID).Inc()
}

// RecordBatch records a completed delivery batch.
func (m *Metrics) RecordBatch(outcome string, size int, elapsed time.Duration) {
	m.BatchLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
	m.BatchSize.Observe(float64(size))
}

// RecordTargetingMatch records a customer matched by targeting.
func (m *Metrics) RecordTargetingMatch(locationID string) {
	m.TargetingMatches.WithLabelValues(locationID).Inc()
}

// RecordTargetingMiss records a customer excluded by targeting.
func (m *Metrics) RecordTargetingMiss(locationID, reason string) {
	m.TargetingMisses.WithLabelValues(locationID, reason).Inc()
}

// RecordAggregationError records a failed statistics query.
func (m *Metrics) RecordAggregationError(query string) {
	m.AggregationErrors.WithLabelValues(query).Inc()
}

// RecordRateLimitHit records a rate limited request.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}
