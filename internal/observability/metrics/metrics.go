package metrics

import "github.com/prometheus/client_golang/prometheus"

// Request outcomes reported by the chatbot engine.
const (
	OutcomeAnswered     = "answered"
	OutcomeNotFound     = "not_found"
	OutcomeUnrecognized = "unrecognized"
	OutcomeFailed       = "failed"
)

// ChatbotMetrics exposes counters/histograms for the order chatbot.
type ChatbotMetrics struct {
	requestsTotal *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec
}

func NewChatbotMetrics(reg prometheus.Registerer) *ChatbotMetrics {
	m := &ChatbotMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderdesk",
			Subsystem: "chatbot",
			Name:      "requests_total",
			Help:      "Total chatbot messages handled",
		}, []string{"intent", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orderdesk",
			Subsystem: "chatbot",
			Name:      "latency_seconds",
			Help:      "Time spent answering a chatbot message",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderdesk",
			Subsystem: "chatbot",
			Name:      "store_errors_total",
			Help:      "Failed order store reads",
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.latency, m.storeErrors)
	return m
}

func (m *ChatbotMetrics) ObserveRequest(intent, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(intent, outcome).Inc()
	m.latency.WithLabelValues(intent).Observe(seconds)
}

func (m *ChatbotMetrics) ObserveStoreError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}
