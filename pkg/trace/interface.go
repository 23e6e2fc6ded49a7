// Package trace exports operation-level trace records for offline analysis.
package trace

import (
	"context"
	"time"
)

// Exporter defines the interface for exporting operation traces.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export writes a trace record to the configured destination.
	Export(ctx context.Context, record *TraceRecord) error

	// Close flushes any buffered records and releases resources.
	// Should be called during graceful shutdown.
	Close() error
}

// TraceRecord represents one completed operation ready for export.
// It carries identifiers and timings only, never user payloads.
type TraceRecord struct {
	// Timestamp is the operation start time
	Timestamp time.Time `json:"timestamp"`

	// OperationID uniquely identifies this operation (for correlation)
	OperationID string `json:"operationId"`

	// Operation is the operation type: "create_user", "connect", "degree", ...
	Operation string `json:"operation"`

	// DurationMs is the total operation duration in milliseconds
	DurationMs int64 `json:"durationMs"`

	// Status is "success" or "error"
	Status string `json:"status"`

	// ErrorKind classifies the error (if Status == "error")
	// Values: not_found, conflict, invalid_argument, database, unknown
	ErrorKind string `json:"errorKind,omitempty"`
}
