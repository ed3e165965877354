package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the apply pipeline and the daemon.
type Metrics struct {
	registry      *prometheus.Registry
	AgentRuns     *prometheus.CounterVec
	AgentDuration *prometheus.HistogramVec
	AgentCost     prometheus.Counter
	ContextFiles  *prometheus.HistogramVec
	ContextBytes  prometheus.Histogram
	Applies       *prometheus.CounterVec
	ActiveSession *prometheus.GaugeVec
	TransportErrs *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry with pipeline collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visualedit_agent_runs_total",
		Help: "Agent invocations by outcome",
	}, []string{"outcome"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "visualedit_agent_duration_seconds",
		Help:    "Agent invocation wall time in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"outcome"})

	cost := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visualedit_agent_cost_usd_total",
		Help: "Agent cost in USD as reported by the agent",
	})

	ctxFiles := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "visualedit_context_files",
		Help:    "Files per assembled context",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	}, []string{"kind"})

	ctxBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "visualedit_context_embedded_bytes",
		Help:    "File content bytes embedded into agent prompts",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})

	applies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visualedit_toolbar_applies_total",
		Help: "Toolbar apply attempts by result",
	}, []string{"result"})

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "visualedit_transport_active_sessions",
		Help: "Active streaming sessions by transport",
	}, []string{"transport"})

	trErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visualedit_transport_errors_total",
		Help: "Transport-level errors (handler/streaming) by transport and reason",
	}, []string{"transport", "reason"})

	reg.MustRegister(runs, durs, cost, ctxFiles, ctxBytes, applies, active, trErrors)

	return &Metrics{
		registry:      reg,
		AgentRuns:     runs,
		AgentDuration: durs,
		AgentCost:     cost,
		ContextFiles:  ctxFiles,
		ContextBytes:  ctxBytes,
		Applies:       applies,
		ActiveSession: active,
		TransportErrs: trErrors,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAgentRun records one agent invocation.
func (m *Metrics) RecordAgentRun(outcome string, duration time.Duration, costUSD *float64) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.AgentRuns.WithLabelValues(outcome).Inc()
	m.AgentDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if costUSD != nil && *costUSD > 0 {
		m.AgentCost.Add(*costUSD)
	}
}

// RecordContext records the size of an assembled context.
func (m *Metrics) RecordContext(direct, relevant, embeddedBytes int) {
	if m == nil {
		return
	}
	m.ContextFiles.WithLabelValues("direct").Observe(float64(direct))
	m.ContextFiles.WithLabelValues("relevant").Observe(float64(relevant))
	m.ContextBytes.Observe(float64(embeddedBytes))
}

// RecordApply counts a toolbar apply attempt.
func (m *Metrics) RecordApply(result string) {
	if m == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.Applies.WithLabelValues(result).Inc()
}

// IncActiveSessions increments the active session gauge.
func (m *Metrics) IncActiveSessions(transport string) {
	if m == nil {
		return
	}
	m.ActiveSession.WithLabelValues(transport).Inc()
}

// DecActiveSessions decrements the active session gauge.
func (m *Metrics) DecActiveSessions(transport string) {
	if m == nil {
		return
	}
	m.ActiveSession.WithLabelValues(transport).Dec()
}

// RecordTransportError records a transport-level error.
func (m *Metrics) RecordTransportError(transport, reason string) {
	if m == nil {
		return
	}
	if transport == "" {
		transport = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.TransportErrs.WithLabelValues(transport, reason).Inc()
}
