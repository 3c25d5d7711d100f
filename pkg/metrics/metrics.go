// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keyring.
//
// go-keyring is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for keyring operations.
// It exposes operation counters, latency histograms, error counters, per-context
// key gauges, and process resource gauges for monitoring keyring daemon health.
//
// The keyring library itself never records metrics; instrumentation happens at
// the service layer where operations are invoked, keeping the core usable in
// processes that do not run a metrics endpoint.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all keyring metrics
	Namespace = "keyring"

	// Label names
	LabelOperation  = "operation"
	LabelContext    = "context"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelProtocol   = "protocol"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpBestKey     = "best_key"
	OpList        = "list"
	OpReload      = "reload"
	OpPurge       = "purge"
	OpHealthCheck = "health_check"
)

var (
	// OperationsTotal tracks the total number of keyring operations by type,
	// context, and status. Use RecordOperation to increment this counter with
	// the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of keyring operations by type, context, and status",
		},
		[]string{LabelOperation, LabelContext, LabelStatus},
	)

	// OperationDuration tracks the duration of keyring operations in seconds.
	// Buckets are optimized for file-backed operations that may spin on the
	// advisory lock for several seconds in the worst case.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of keyring operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation, LabelContext},
	)

	// ErrorsTotal tracks the total number of errors by operation, context, and
	// error type. Error types should be specific (e.g., "lock_failed",
	// "invalid_context", "not_found").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, context, and error type",
		},
		[]string{LabelOperation, LabelContext, LabelErrorType},
	)

	// ActiveConnections tracks the number of active connections by protocol.
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of active connections by protocol",
		},
		[]string{LabelProtocol},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// Goroutines tracks the current number of goroutines in the keyring daemon.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	// Updated periodically by the resource collector.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// MemorySysBytes tracks the total bytes of memory obtained from the OS.
	// Updated periodically by the resource collector.
	MemorySysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_sys_bytes",
			Help:      "Total bytes of memory obtained from the OS",
		},
	)

	// GCPauseTotalSeconds tracks the cumulative time spent in GC stop-the-world pauses.
	// Updated periodically by the resource collector.
	GCPauseTotalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "gc_pause_total_seconds",
			Help:      "Cumulative time spent in GC stop-the-world pauses",
		},
	)

	// KeysTotal tracks the number of unexpired keys loaded per keyring context.
	KeysTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "keys_total",
			Help:      "Number of unexpired keys loaded per keyring context",
		},
		[]string{LabelContext},
	)

	// KeysMintedTotal tracks the total number of keys minted per context.
	KeysMintedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keys_minted_total",
			Help:      "Total number of keys minted per keyring context",
		},
		[]string{LabelContext},
	)

	// KeysPurgedTotal tracks the total number of expired keys removed from
	// disk per context.
	KeysPurgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keys_purged_total",
			Help:      "Total number of expired keys purged per keyring context",
		},
		[]string{LabelContext},
	)

	// ServerUptime tracks the daemon uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records a keyring operation with its duration and status.
// This is the primary function for tracking operational metrics.
//
// Parameters:
//   - operation: The operation name (use Op* constants)
//   - context: The keyring context (e.g., "org_freedesktop_general")
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
//
// Example:
//
//	start := time.Now()
//	id, err := ring.BestKeyID()
//	duration := time.Since(start).Seconds()
//	if err != nil {
//	    RecordOperation(OpBestKey, ring.Context(), StatusError, duration)
//	} else {
//	    RecordOperation(OpBestKey, ring.Context(), StatusSuccess, duration)
//	}
func RecordOperation(operation, context, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, context, status).Inc()
	OperationDuration.WithLabelValues(operation, context).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
//
// Parameters:
//   - operation: The operation during which the error occurred (use Op* constants)
//   - context: The keyring context being served
//   - errorType: A specific error type identifier (e.g., "lock_failed", "not_found")
//
// Example:
//
//	if errors.Is(err, keyring.ErrLockFailed) {
//	    RecordError(OpBestKey, ring.Context(), "lock_failed")
//	}
func RecordError(operation, context, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, context, errorType).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration and status.
//
// Parameters:
//   - method: The HTTP method (GET, POST, etc.)
//   - statusCode: The HTTP status code as a string
//   - duration: The request duration in seconds
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// IncrementActiveConnections increments the active connection count for a protocol.
func IncrementActiveConnections(protocol string) {
	if !enabled.Load() {
		return
	}
	ActiveConnections.WithLabelValues(protocol).Inc()
}

// DecrementActiveConnections decrements the active connection count for a protocol.
func DecrementActiveConnections(protocol string) {
	if !enabled.Load() {
		return
	}
	ActiveConnections.WithLabelValues(protocol).Dec()
}

// SetKeysTotal sets the number of loaded keys for a context.
func SetKeysTotal(context string, count float64) {
	if !enabled.Load() {
		return
	}
	KeysTotal.WithLabelValues(context).Set(count)
}

// RecordKeyMinted increments the minted key count for a context.
func RecordKeyMinted(context string) {
	if !enabled.Load() {
		return
	}
	KeysMintedTotal.WithLabelValues(context).Inc()
}

// RecordKeysPurged adds the number of keys removed by a purge for a context.
func RecordKeysPurged(context string, count float64) {
	if !enabled.Load() || count <= 0 {
		return
	}
	KeysPurgedTotal.WithLabelValues(context).Add(count)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
