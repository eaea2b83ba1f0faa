// Package metrics provides Prometheus metrics for MPEdge
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for provider attempts
const (
	OutcomeSuccess = "success"
)

// Metrics holds all Prometheus metrics for MPEdge
type Metrics struct {
	registry *prometheus.Registry

	AskTotal                *prometheus.CounterVec
	AskDuration             prometheus.Histogram
	ProviderAttemptsTotal   *prometheus.CounterVec
	ProviderAttemptDuration *prometheus.HistogramVec
	CorpusParagraphs        prometheus.Gauge
	CorpusChapters          prometheus.Gauge
}

// New creates all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AskTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpedge_ask_total",
				Help: "Total number of ask requests by result code",
			},
			[]string{"status"},
		),
		AskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mpedge_ask_duration_seconds",
				Help:    "Duration of ask requests in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ProviderAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpedge_provider_attempts_total",
				Help: "Total number of provider attempts by outcome",
			},
			[]string{"provider", "model", "outcome"},
		),
		ProviderAttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mpedge_provider_attempt_duration_seconds",
				Help:    "Duration of provider attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		CorpusParagraphs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mpedge_corpus_paragraphs",
				Help: "Number of paragraphs in the loaded corpus",
			},
		),
		CorpusChapters: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mpedge_corpus_chapters",
				Help: "Number of chapters in the loaded corpus",
			},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAsk records one finished ask request
func (m *Metrics) RecordAsk(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.AskTotal.WithLabelValues(status).Inc()
	m.AskDuration.Observe(d.Seconds())
}

// RecordProviderAttempt records one provider attempt; outcome is
// OutcomeSuccess or a failure kind
func (m *Metrics) RecordProviderAttempt(provider, model, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderAttemptsTotal.WithLabelValues(provider, model, outcome).Inc()
	m.ProviderAttemptDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// SetCorpusSize updates the corpus gauges
func (m *Metrics) SetCorpusSize(chapters, paragraphs int) {
	if m == nil {
		return
	}
	m.CorpusChapters.Set(float64(chapters))
	m.CorpusParagraphs.Set(float64(paragraphs))
}
