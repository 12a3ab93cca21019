// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for sealing, unsealing
// and key-server traffic.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all go-seal metrics
	Namespace = "seal"

	// Label names
	LabelOperation  = "operation"
	LabelVariant    = "variant"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelServer     = "server"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpEncrypt  = "encrypt"
	OpDecrypt  = "decrypt"
	OpFetchKey = "fetch_key"
	OpExtract  = "extract"
)

var (
	// OperationsTotal counts encrypt/decrypt/extract calls by variant and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of seal operations by type, DEM variant, and status",
		},
		[]string{LabelOperation, LabelVariant, LabelStatus},
	)

	// OperationDuration tracks operation latency. Pairings dominate, so the
	// buckets start at one millisecond.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of seal operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelOperation, LabelVariant},
	)

	// ErrorsTotal counts failures by taxonomy class, e.g. "insufficient_shares".
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// KeyFetchTotal counts partial-key fetches per key server.
	KeyFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "keyserver",
			Name:      "fetch_total",
			Help:      "Total number of partial key fetches by key server and status",
		},
		[]string{LabelServer, LabelStatus},
	)

	// KeyFetchDuration tracks per-server fetch latency.
	KeyFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "keyserver",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of partial key fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelServer},
	)

	// KeysIssuedTotal counts user secret keys issued by this key server.
	KeysIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "keyserver",
			Name:      "keys_issued_total",
			Help:      "Total number of user secret keys issued",
		},
	)

	// PolicyDenialsTotal counts fetch requests rejected by the policy checker.
	PolicyDenialsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "keyserver",
			Name:      "policy_denials_total",
			Help:      "Total number of key requests denied by policy",
		},
	)

	// ActiveConnections tracks in-flight HTTP requests.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "active_connections",
			Help:      "Number of in-flight HTTP requests",
		},
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

	// Goroutines tracks the current number of goroutines.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records a seal operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	_, _, err := seal.Encrypt(plaintext, params)
//	status := metrics.StatusSuccess
//	if err != nil {
//	    status = metrics.StatusError
//	}
//	metrics.RecordOperation(metrics.OpEncrypt, "aes-256-gcm", status, time.Since(start).Seconds())
func RecordOperation(operation, variant, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, variant, status).Inc()
	OperationDuration.WithLabelValues(operation, variant).Observe(duration)
}

// RecordError records a failure classified by error type.
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordKeyFetch records one partial-key fetch against a key server.
func RecordKeyFetch(server, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	KeyFetchTotal.WithLabelValues(server, status).Inc()
	KeyFetchDuration.WithLabelValues(server).Observe(duration)
}

// RecordKeysIssued adds n issued keys.
func RecordKeysIssued(n int) {
	if !enabled.Load() {
		return
	}
	KeysIssuedTotal.Add(float64(n))
}

// RecordPolicyDenial counts a denied key request.
func RecordPolicyDenial() {
	if !enabled.Load() {
		return
	}
	PolicyDenialsTotal.Inc()
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
