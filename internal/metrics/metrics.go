// Package metrics exposes Prometheus metrics for service API round trips
// and MCP tool calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements client.Observer and records tool outcomes.
type Recorder struct {
	// RequestTotal counts service API requests by method and status code.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of service API requests.
	RequestDuration *prometheus.HistogramVec
	// ToolCallsTotal counts MCP tool calls by tool and outcome.
	ToolCallsTotal *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		RequestTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iothub_requests_total",
				Help: "Total number of service API requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iothub_request_duration_seconds",
				Help:    "Service API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ToolCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iothub_mcp_tool_calls_total",
				Help: "Total number of MCP tool calls",
			},
			[]string{"tool", "outcome"},
		),
	}
}

// ObserveRequest records one round trip. Status 0 is reported as "error".
func (r *Recorder) ObserveRequest(method string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	r.RequestTotal.WithLabelValues(method, code).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveTool records one tool call.
func (r *Recorder) ObserveTool(tool string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
