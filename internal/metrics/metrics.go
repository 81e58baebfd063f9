// ABOUTME: Prometheus collectors for recommendation traffic and embedding latency.
// ABOUTME: Uses a private registry so tests and multiple servers never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for RecommendRequests.
const (
	OutcomeOK         = "ok"
	OutcomeBadRequest = "bad_request"
	OutcomeProvider   = "provider_error"
	OutcomeInternal   = "internal_error"
)

// Latency buckets in seconds, from local hashing up to slow remote providers.
var latencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RecommendRequests *prometheus.CounterVec
	EmbedDuration     *prometheus.HistogramVec
	RankDuration      prometheus.Histogram
	CatalogItems      prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecommendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookrec_recommend_requests_total",
				Help: "Total number of recommendation requests by outcome",
			},
			[]string{"outcome"},
		),
		EmbedDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookrec_embed_duration_seconds",
				Help:    "Latency of embedding provider calls in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"provider"},
		),
		RankDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bookrec_rank_duration_seconds",
				Help:    "Latency of scoring and sorting the catalog in seconds",
				Buckets: latencyBuckets,
			},
		),
		CatalogItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bookrec_catalog_items",
				Help: "Number of items in the loaded index",
			},
		),
	}
}

// ObserveRequest counts one recommendation request.
func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.RecommendRequests.WithLabelValues(outcome).Inc()
}

// ObserveEmbed records the latency of one provider call.
func (m *Metrics) ObserveEmbed(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.EmbedDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveRank records the latency of one ranking pass.
func (m *Metrics) ObserveRank(d time.Duration) {
	if m == nil {
		return
	}
	m.RankDuration.Observe(d.Seconds())
}

// SetCatalogItems sets the loaded catalog size.
func (m *Metrics) SetCatalogItems(n int) {
	if m == nil {
		return
	}
	m.CatalogItems.Set(float64(n))
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
