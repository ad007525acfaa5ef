// Package metrics exposes Prometheus metrics for the query endpoints.
//
// Usage:
//
//	start := time.Now()
//	records, err := run()
//	metrics.RecordQuery("entity_timeline", time.Since(start), err)
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts query operations by operation name and outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_er_queries_total",
			Help: "Total number of query operations",
		},
		[]string{"operation", "outcome"},
	)

	// QueryDuration tracks end-to-end latency of query operations, introspection included.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_er_query_duration_seconds",
			Help:    "Duration of query operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// QuerySources tracks how many activity tables contributed to a union query.
	QuerySources = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_er_query_sources",
			Help:    "Number of activity tables present for union queries",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"operation"},
	)

	// PoolAcquireErrorsTotal counts failures to initialize or borrow from the timeline pool.
	PoolAcquireErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_er_timeline_pool_errors_total",
			Help: "Total number of timeline pool initialization or acquire failures",
		},
	)

	// HTTPRequestsTotal counts HTTP requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_er_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// MCPToolCallsTotal counts MCP tool invocations by tool and outcome.
	MCPToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_er_mcp_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "outcome"},
	)
)

// RecordQuery records the outcome and duration of one query operation.
func RecordQuery(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	QueriesTotal.WithLabelValues(operation, outcome).Inc()
	QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSources records how many tables a union query drew from.
func RecordSources(operation string, n int) {
	QuerySources.WithLabelValues(operation).Observe(float64(n))
}

// RecordPoolError records a timeline pool failure.
func RecordPoolError() {
	PoolAcquireErrorsTotal.Inc()
}

// RecordHTTPRequest records a served HTTP request. route should be the
// registered pattern, not the raw path, to keep cardinality bounded.
func RecordHTTPRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordToolCall records one MCP tool call. outcome is "success",
// "tool_error" (error result returned to the client) or "error".
func RecordToolCall(tool, outcome string) {
	MCPToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}
