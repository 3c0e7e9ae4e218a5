// Package monitoring exposes Prometheus metrics and health endpoints.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scrape_site"

// Metrics holds the application's Prometheus collectors. It satisfies the
// pipeline's MetricsRecorder interface.
type Metrics struct {
	pagesProcessed   *prometheus.CounterVec
	fetchRequests    *prometheus.CounterVec
	fetchEscalations *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
	discoveryRuns    *prometheus.CounterVec
	fieldsAccepted   prometheus.Counter
	selectorScore    prometheus.Histogram
	pageDuration     *prometheus.HistogramVec
	activeJobs       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all collectors on a fresh registry so
// repeated construction in tests does not panic on duplicate registration.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		pagesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_processed_total",
				Help:      "Pages that finished processing, by classified type and outcome",
			},
			[]string{"page_type", "status"},
		),
		fetchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_requests_total",
				Help:      "Fetch attempts by method (http or headless) and result",
			},
			[]string{"method", "result"},
		),
		fetchEscalations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_escalations_total",
				Help:      "Escalations from light fetch to headless rendering, by reason",
			},
			[]string{"reason"},
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Model calls by provider, purpose (discovery or enrichment) and result",
			},
			[]string{"provider", "purpose", "result"},
		),
		discoveryRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discovery_runs_total",
				Help:      "Selector discovery runs by result",
			},
			[]string{"result"},
		),
		fieldsAccepted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discovery_fields_accepted_total",
				Help:      "Candidate selectors that scored above the acceptance threshold",
			},
		),
		selectorScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "selector_score",
				Help:      "Aggregate empirical score of proposed selectors",
				Buckets:   []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4},
			},
		),
		pageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "page_processing_duration_seconds",
				Help:      "Wall time to fully process one page",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"page_type"},
		),
		activeJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_jobs",
				Help:      "Crawl jobs currently running",
			},
		),
	}
}

// RecordPage counts one finished page.
func (m *Metrics) RecordPage(pageType, status string) {
	m.pagesProcessed.WithLabelValues(pageType, status).Inc()
}

// RecordEscalation counts one light-to-headless escalation.
func (m *Metrics) RecordEscalation(reason string) {
	m.fetchEscalations.WithLabelValues(reason).Inc()
}

// RecordFetch counts one fetch attempt.
func (m *Metrics) RecordFetch(method, result string) {
	m.fetchRequests.WithLabelValues(method, result).Inc()
}

// RecordLLMRequest counts one model call.
func (m *Metrics) RecordLLMRequest(provider, purpose, result string) {
	m.llmRequests.WithLabelValues(provider, purpose, result).Inc()
}

// RecordDiscoveryRun counts one discovery run by outcome.
func (m *Metrics) RecordDiscoveryRun(result string) {
	m.discoveryRuns.WithLabelValues(result).Inc()
}

// RecordSelectorScore observes one candidate's aggregate score and counts
// it when accepted into the profile.
func (m *Metrics) RecordSelectorScore(score float64, accepted bool) {
	m.selectorScore.Observe(score)
	if accepted {
		m.fieldsAccepted.Inc()
	}
}

// ObservePageDuration records how long one page took end to end.
func (m *Metrics) ObservePageDuration(pageType string, d time.Duration) {
	m.pageDuration.WithLabelValues(pageType).Observe(d.Seconds())
}

// CrawlStarted increments the active-job gauge.
func (m *Metrics) CrawlStarted() { m.activeJobs.Inc() }

// CrawlFinished decrements the active-job gauge.
func (m *Metrics) CrawlFinished() { m.activeJobs.Dec() }

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
