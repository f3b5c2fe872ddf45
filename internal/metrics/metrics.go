package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes Prometheus counters/histograms for assistant runs.
type AssistantMetrics struct {
	interactionsTotal *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	redactionsTotal   *prometheus.CounterVec
	guardTotal        *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		interactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socgate",
			Subsystem: "assistant",
			Name:      "interactions_total",
			Help:      "Total assistant runs by terminal state and policy label",
		}, []string{"state", "label"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "socgate",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of hosted model calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		}, []string{"operation", "outcome"}),
		redactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socgate",
			Subsystem: "redaction",
			Name:      "matches_total",
			Help:      "Total redacted matches by pattern category",
		}, []string{"category"}),
		guardTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socgate",
			Subsystem: "response_guard",
			Name:      "decisions_total",
			Help:      "Response guard decisions on generated answers",
		}, []string{"decision"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.interactionsTotal, m.upstreamLatency, m.redactionsTotal, m.guardTotal)
	return m
}

func (m *AssistantMetrics) ObserveInteraction(state, label string) {
	if m == nil {
		return
	}
	if label == "" {
		label = "none"
	}
	m.interactionsTotal.WithLabelValues(state, label).Inc()
}

func (m *AssistantMetrics) ObserveUpstream(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamLatency.WithLabelValues(operation, outcome).Observe(seconds)
}

func (m *AssistantMetrics) ObserveRedactions(counts map[string]int) {
	if m == nil {
		return
	}
	for category, n := range counts {
		if n > 0 {
			m.redactionsTotal.WithLabelValues(category).Add(float64(n))
		}
	}
}

func (m *AssistantMetrics) ObserveGuard(decision string) {
	if m == nil || decision == "" {
		return
	}
	m.guardTotal.WithLabelValues(decision).Inc()
}
