// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Operation metrics
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	SendAttempts       prometheus.Counter
	ExpiredCheckpoints prometheus.Counter

	// Confirmation metrics
	ConfirmationLatency prometheus.Histogram
	ConfirmationsTotal  *prometheus.CounterVec

	// Publish metrics
	PublishCalls   *prometheus.CounterVec
	PublishLatency prometheus.Histogram

	// Solana client metrics
	RPCCallLatency  *prometheus.HistogramVec
	WSSubscriptions prometheus.Gauge
	WSReconnects    prometheus.Counter

	// HTTP API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solanahub"
	}

	return &Metrics{
		// Operation metrics
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokenops",
			Name:      "operations_total",
			Help:      "Total number of token operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tokenops",
			Name:      "operation_duration_seconds",
			Help:      "End-to-end duration of token operations in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"operation"}),
		SendAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokenops",
			Name:      "send_attempts_total",
			Help:      "Total number of transaction send attempts including retries",
		}),
		ExpiredCheckpoints: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokenops",
			Name:      "expired_checkpoints_total",
			Help:      "Total number of submissions aborted on an expired blockhash checkpoint",
		}),

		// Confirmation metrics
		ConfirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "confirmation",
			Name:      "latency_seconds",
			Help:      "Time from send to finalized commitment in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		ConfirmationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confirmation",
			Name:      "results_total",
			Help:      "Total number of confirmation verdicts by result",
		}, []string{"result"}),

		// Publish metrics
		PublishCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "calls_total",
			Help:      "Total number of asset publish calls by status",
		}, []string{"status"}),
		PublishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "latency_seconds",
			Help:      "Asset publish latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Solana client metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_subscriptions",
			Help:      "Number of active signature subscriptions",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),

		// HTTP API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records one finished token operation.
func RecordOperation(operation, outcome string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordSendAttempt increments the send attempt counter.
func RecordSendAttempt() {
	DefaultMetrics.SendAttempts.Inc()
}

// RecordExpiredCheckpoint increments the expired checkpoint counter.
func RecordExpiredCheckpoint() {
	DefaultMetrics.ExpiredCheckpoints.Inc()
}

// RecordConfirmation records a confirmation verdict and its latency.
func RecordConfirmation(result string, seconds float64) {
	DefaultMetrics.ConfirmationsTotal.WithLabelValues(result).Inc()
	DefaultMetrics.ConfirmationLatency.Observe(seconds)
}

// RecordPublish records one asset publish call.
func RecordPublish(status string, seconds float64) {
	DefaultMetrics.PublishCalls.WithLabelValues(status).Inc()
	DefaultMetrics.PublishLatency.Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordDBQuery records a database query duration and its error, if any.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
