package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "codemate"

// Provider call statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	// WebhookEvents counts inbound events by platform and terminal state.
	WebhookEvents *prometheus.CounterVec

	// AnalyzerRuns counts analyzer invocations by outcome (ok, degraded,
	// failed). A run that found nothing is still "ok".
	AnalyzerRuns *prometheus.CounterVec

	// AnalyzerDuration measures analyzer wall time.
	AnalyzerDuration *prometheus.HistogramVec

	// ProviderCalls counts code-host API operations by status.
	ProviderCalls *prometheus.CounterVec

	// ReviewScore records the score of each completed run.
	ReviewScore prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// It panics if they are already registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "webhook_events_total",
				Help:      "Inbound webhook events by platform and terminal state",
			},
			[]string{"platform", "state"},
		),
		AnalyzerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analyzer_runs_total",
				Help:      "Analyzer invocations by analyzer and outcome",
			},
			[]string{"analyzer", "outcome"},
		),
		AnalyzerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "analyzer_duration_seconds",
				Help:      "Analyzer wall time in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"analyzer"},
		),
		ProviderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "provider_calls_total",
				Help:      "Code-host API operations by platform, operation and status",
			},
			[]string{"platform", "op", "status"},
		),
		ReviewScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "review_score",
				Help:      "Score of completed review runs",
				Buckets:   []float64{0, 25, 50, 60, 70, 80, 90, 95, 100},
			},
		),
	}
}

// ObserveEvent records a webhook event reaching a terminal state.
func (m *Metrics) ObserveEvent(platform, state string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(platform, state).Inc()
}

// ObserveAnalyzer records one analyzer invocation.
func (m *Metrics) ObserveAnalyzer(name, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AnalyzerRuns.WithLabelValues(name, outcome).Inc()
	m.AnalyzerDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveProviderCall records one code-host API operation.
func (m *Metrics) ObserveProviderCall(platform, op string, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.ProviderCalls.WithLabelValues(platform, op, status).Inc()
}

// ObserveScore records a run's score.
func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.ReviewScore.Observe(float64(score))
}

// Handler serves the metrics gathered from g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
