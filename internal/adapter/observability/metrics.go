// Package observability provides logging, metrics, and tracing.
//
// It integrates with OpenTelemetry for system monitoring.
// The package provides comprehensive observability features
// including metrics collection, distributed tracing, and logging.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route, method, and status label.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration records request durations by route and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// SalesCompletedTotal counts completed sales by branch and payment method.
	SalesCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_completed_total",
			Help: "Total number of completed sales",
		},
		[]string{"branch_id", "payment_method"},
	)
	// SaleTotalAmount records the distribution of sale totals.
	SaleTotalAmount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sale_total_amount",
			Help:    "Distribution of sale total amounts",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"branch_id"},
	)

	// InventoryMovementsTotal counts ledger movements by branch and type.
	InventoryMovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_movements_total",
			Help: "Total number of inventory ledger movements",
		},
		[]string{"branch_id", "movement_type"},
	)

	// BatchLifecycleTotal counts batch create/edit/void transitions.
	BatchLifecycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_lifecycle_total",
			Help: "Total number of batch lifecycle transitions",
		},
		[]string{"branch_id", "transition"},
	)

	// IdempotencyReplaysTotal counts requests served from the idempotency
	// cache instead of re-executing the mutation.
	IdempotencyReplaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_replays_total",
			Help: "Total number of requests served as idempotent replays",
		},
		[]string{"endpoint"},
	)

	// ArchiveRunsTotal counts archival sweeps by branch and outcome status.
	ArchiveRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_runs_total",
			Help: "Total number of archival engine runs",
		},
		[]string{"branch_id", "run_type", "status"},
	)
	// ArchiveRowsMoved tracks how many rows an archival run moved, by table.
	ArchiveRowsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_rows_moved_total",
			Help: "Total number of rows moved by the archival engine",
		},
		[]string{"branch_id", "table"},
	)

	// NotificationsCreatedTotal counts alert-rule-triggered notifications.
	NotificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications created from alert rules",
		},
		[]string{"branch_id", "event_type"},
	)

	// OfflineQueueDepth is a gauge of pending operations in the client-side
	// offline queue, reported by the syncing client.
	OfflineQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_queue_depth",
			Help: "Number of pending operations in the offline queue",
		},
		[]string{"status"},
	)

	// EventPublishFailuresTotal counts failed domain event publishes
	// (non-fatal: the owning transaction already committed).
	EventPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_failures_total",
			Help: "Total number of domain event publish failures",
		},
		[]string{"topic"},
	)

	// CircuitBreakerState reports each named circuit breaker's current
	// state (0=closed, 1=half-open, 2=open, matching gobreaker.State order).
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of a named circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// InitMetrics registers all Prometheus metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(SalesCompletedTotal)
	prometheus.MustRegister(SaleTotalAmount)
	prometheus.MustRegister(InventoryMovementsTotal)
	prometheus.MustRegister(BatchLifecycleTotal)
	prometheus.MustRegister(IdempotencyReplaysTotal)
	prometheus.MustRegister(ArchiveRunsTotal)
	prometheus.MustRegister(ArchiveRowsMoved)
	prometheus.MustRegister(NotificationsCreatedTotal)
	prometheus.MustRegister(OfflineQueueDepth)
	prometheus.MustRegister(EventPublishFailuresTotal)
	prometheus.MustRegister(CircuitBreakerState)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// RecordSaleCompleted records a completed sale's payment method and total.
func RecordSaleCompleted(branchID, paymentMethod string, total float64) {
	SalesCompletedTotal.WithLabelValues(branchID, paymentMethod).Inc()
	SaleTotalAmount.WithLabelValues(branchID).Observe(total)
}

// RecordInventoryMovement records one ledger movement.
func RecordInventoryMovement(branchID, movementType string) {
	InventoryMovementsTotal.WithLabelValues(branchID, movementType).Inc()
}

// RecordBatchTransition records a batch lifecycle transition (create/edit/void).
func RecordBatchTransition(branchID, transition string) {
	BatchLifecycleTotal.WithLabelValues(branchID, transition).Inc()
}

// RecordIdempotencyReplay records a request served from the idempotency cache.
func RecordIdempotencyReplay(endpoint string) {
	IdempotencyReplaysTotal.WithLabelValues(endpoint).Inc()
}

// RecordArchiveRun records an archival engine run's outcome.
func RecordArchiveRun(branchID, runType, status string) {
	ArchiveRunsTotal.WithLabelValues(branchID, runType, status).Inc()
}

// RecordArchiveRowsMoved adds to the rows-moved counter for one table.
func RecordArchiveRowsMoved(branchID, table string, count int64) {
	if count <= 0 {
		return
	}
	ArchiveRowsMoved.WithLabelValues(branchID, table).Add(float64(count))
}

// RecordNotificationCreated records a notification fired by an alert rule.
func RecordNotificationCreated(branchID, eventType string) {
	NotificationsCreatedTotal.WithLabelValues(branchID, eventType).Inc()
}

// SetOfflineQueueDepth reports the current offline-queue size for one status.
func SetOfflineQueueDepth(status string, depth int) {
	OfflineQueueDepth.WithLabelValues(status).Set(float64(depth))
}

// RecordEventPublishFailure records a failed domain event publish.
func RecordEventPublishFailure(topic string) {
	EventPublishFailuresTotal.WithLabelValues(topic).Inc()
}

// RecordCircuitBreakerState reports a circuit breaker's state transition.
func RecordCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
