package observability

import (
	"time"

	"github.com/echolabs/echo-support-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	intentsTotal    *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echo_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		intentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_intents_total",
				Help: "Total support exchanges by extracted intent.",
			},
			[]string{"intent"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_requests_total",
				Help: "Total support requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrIntent increments the per-intent exchange counter.
func (m *Metrics) IncrIntent(intent string) {
	m.intentsTotal.WithLabelValues(intent).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetSupportSnapshot returns an aggregate of support metrics for the
// GET /api/metrics/support endpoint. The intent distribution is what
// the dashboard's ring chart renders.
func (m *Metrics) GetSupportSnapshot() *domain.SupportMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")

	avgTokens := float64(0)
	errorRate := float64(0)
	if totalRequests > 0 {
		avgTokens = (promptTokens + completionTokens) / totalRequests
		errorRate = errorCount / totalRequests
	}

	return &domain.SupportMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		AvgTokensPerRequest: avgTokens,
		IntentCounts:        gatherCounterValues(m.Registry, "echo_intents_total", "intent"),
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// gatherCounterValues collects every label value of a counter family from
// the registry. Needed for the intent distribution, whose label set is
// open-ended (the extractor passes through whatever the model emitted).
func gatherCounterValues(reg *prometheus.Registry, family, label string) map[string]float64 {
	out := make(map[string]float64)
	mfs, err := reg.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		if mf.GetName() != family {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && metric.GetCounter() != nil {
					out[lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	return out
}
