package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Tree store operation latency (seconds)
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tree_store_op_duration_seconds",
			Help:    "Tree store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)

	WorkflowOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_outcome_total",
			Help: "Total number of workflow runs by outcome",
		},
		[]string{"workflow", "result"}, // result: success, compensated, compensation_failed
	)

	WalletMovements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_movement_total",
			Help: "Total number of wallet movements",
		},
		[]string{"type"}, // type: credit, debit, refund
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveStoreOp starts timing a store operation; call the returned func when
// it completes.
func ObserveStoreOp(operation string) func() {
	start := time.Now()
	return func() {
		StoreOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func IncrementWorkflowOutcome(workflow, result string) {
	WorkflowOutcomes.WithLabelValues(workflow, result).Inc()
}

func IncrementWalletMovement(kind string) {
	WalletMovements.WithLabelValues(kind).Inc()
}
