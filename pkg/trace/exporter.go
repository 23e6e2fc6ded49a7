package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileExporter exports traces to a JSON Lines file.
type FileExporter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileExporter creates a file-based trace exporter.
// The file is opened immediately and appended to on each Export.
func NewFileExporter(filePath string) (*FileExporter, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	return &FileExporter{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Export writes a trace record as a JSON Lines entry.
func (fe *FileExporter) Export(ctx context.Context, record *TraceRecord) error {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	if fe.closed {
		return fmt.Errorf("exporter closed")
	}

	if err := fe.encoder.Encode(record); err != nil {
		return fmt.Errorf("encode trace record: %w", err)
	}

	return nil
}

// Close flushes and closes the trace file.
func (fe *FileExporter) Close() error {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	if fe.closed {
		return nil
	}

	fe.closed = true

	if err := fe.file.Sync(); err != nil {
		fe.file.Close()
		return fmt.Errorf("sync trace file: %w", err)
	}
	return fe.file.Close()
}
