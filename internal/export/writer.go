package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/tdigest/internal/digest"
)

// formatVersion is stored in the key/value metadata of every Parquet file.
const formatVersion = "1"

// SnapshotWriter writes named snapshots to a Parquet file.
type SnapshotWriter struct {
	mu       sync.Mutex
	file     *os.File
	writer   *parquet.GenericWriter[SnapshotRow]
	rowCount int64
	closed   bool
}

// NewSnapshotWriter creates a new snapshot Parquet writer.
func NewSnapshotWriter(path string, opts Options) (*SnapshotWriter, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
		parquet.KeyValueMetadata("tdigest.format_version", formatVersion),
	}
	if opts.PageBufferSize > 0 {
		writerOpts = append(writerOpts, parquet.PageBufferSize(opts.PageBufferSize))
	}

	writer := parquet.NewGenericWriter[SnapshotRow](f, writerOpts...)

	return &SnapshotWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write writes one series' snapshot.
func (w *SnapshotWriter) Write(series string, s digest.Snapshot) error {
	return w.WriteEntries([]Entry{{Series: series, Snapshot: s}})
}

// WriteEntries writes named snapshots, one row each.
func (w *SnapshotWriter) WriteEntries(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	rows := make([]SnapshotRow, len(entries))
	for i := range entries {
		rows[i] = SnapshotToRow(entries[i].Series, &entries[i].Snapshot)
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes and closes the writer.
func (w *SnapshotWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *SnapshotWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")
