package mcp

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xkilldash9x/linkmcp/internal/tools"
)

// Metrics holds the server's collectors on a private registry so several
// servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	needsHuman   *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	waiting      prometheus.Gauge
	rpcRequests  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	wsClients    prometheus.Gauge
}

// NewMetrics registers every collector under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool and outcome status.",
		}, []string{"tool", "status"}),
		needsHuman: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "needs_human_total",
			Help:      "Calls that stopped for an operator, by reason.",
		}, []string{"reason"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Wall time of tool calls, pacing included.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160, 600},
		}, []string{"tool"}),
		waiting: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tool_calls_waiting",
			Help:      "Calls queued behind the one holding the browser.",
		}),
		rpcRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method.",
		}, []string{"method"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Open websocket connections.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeCall(tool string, out tools.Outcome, d time.Duration) {
	m.toolCalls.WithLabelValues(tool, string(out.Status)).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
	if out.IsNeedsHuman() {
		m.needsHuman.WithLabelValues(string(out.Reason)).Inc()
	}
}
