// Package metrics provides Prometheus metrics for socialgraph operations.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector provides Prometheus metrics collection for socialgraph operations
type MetricsCollector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	storageCount      *prometheus.GaugeVec
	registry          *prometheus.Registry
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	operationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialgraph_operations_total",
			Help: "Total number of graph operations by type and status",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "socialgraph_operation_duration_seconds",
			Help:    "Duration of graph operations by type",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"operation"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialgraph_errors_total",
			Help: "Total number of errors by operation and error kind",
		},
		[]string{"operation", "error_kind"},
	)

	storageCount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "socialgraph_storage_count",
			Help: "Current count of stored items by type",
		},
		[]string{"type"},
	)

	registry.MustRegister(operationsTotal)
	registry.MustRegister(operationDuration)
	registry.MustRegister(errorsTotal)
	registry.MustRegister(storageCount)

	return &MetricsCollector{
		operationsTotal:   operationsTotal,
		operationDuration: operationDuration,
		errorsTotal:       errorsTotal,
		storageCount:      storageCount,
		registry:          registry,
	}
}

// RecordOperation records the completion of an operation
func (m *MetricsCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(durationMs) / 1000.0)
}

// RecordError records an error occurrence
func (m *MetricsCollector) RecordError(ctx context.Context, operation string, errorKind string) {
	m.errorsTotal.WithLabelValues(operation, errorKind).Inc()
}

// SetStorageCount sets the current count for a storage type
func (m *MetricsCollector) SetStorageCount(ctx context.Context, storageType string, count int64) {
	m.storageCount.WithLabelValues(storageType).Set(float64(count))
}

// Registry returns the Prometheus registry for HTTP exposure
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}
