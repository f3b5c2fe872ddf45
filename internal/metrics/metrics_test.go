package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAssistantMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAssistantMetrics(reg)

	m.ObserveInteraction("DONE", "ALLOW")
	m.ObserveInteraction("BLOCKED", "REFUSE")
	m.ObserveInteraction("FAILED", "")
	m.ObserveUpstream("classify", 0.4, nil)
	m.ObserveUpstream("respond", 2.5, errors.New("boom"))
	m.ObserveRedactions(map[string]int{"email": 2, "ssn": 0, "aws_access_key": 1})
	m.ObserveGuard("warn")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactionsTotal.WithLabelValues("DONE", "ALLOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactionsTotal.WithLabelValues("FAILED", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.redactionsTotal.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redactionsTotal.WithLabelValues("aws_access_key")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardTotal.WithLabelValues("warn")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.upstreamLatency))
}

func TestAssistantMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	t.Cleanup(func() { prometheus.DefaultRegisterer = prev })

	m := NewAssistantMetrics(nil)
	m.ObserveGuard("allow")
	assert.Equal(t, 1, testutil.CollectAndCount(m.guardTotal))
}

func TestAssistantMetricsNilSafe(t *testing.T) {
	var m *AssistantMetrics
	m.ObserveInteraction("DONE", "ALLOW")
	m.ObserveUpstream("classify", 0.1, nil)
	m.ObserveRedactions(map[string]int{"email": 1})
	m.ObserveGuard("warn")
}
