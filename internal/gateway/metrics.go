package gateway

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Gateway's Prometheus instruments: a small struct
// of pre-registered collectors rather than package-level globals.
type Metrics struct {
	ToolInvocations *prometheus.CounterVec
	ToolLatency     *prometheus.HistogramVec
	QueryDuration   prometheus.Histogram
	ConfirmsTotal   *prometheus.CounterVec
}

// NewMetrics builds and registers the Gateway's metric collectors
// against the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_tool_invocations_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		ToolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_tool_invocation_seconds",
			Help:    "Tool invocation latency by tool name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_query_duration_seconds",
			Help:    "Total /query request duration.",
			Buckets: prometheus.DefBuckets,
		}),
		ConfirmsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_confirms_total",
			Help: "Confirm requests by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.ToolInvocations, m.ToolLatency, m.QueryDuration, m.ConfirmsTotal} {
		_ = prometheus.Register(c)
	}
	return m
}
