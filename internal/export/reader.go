package export

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// SnapshotReader reads named snapshots from a Parquet file.
type SnapshotReader struct {
	file   *os.File
	reader *parquet.GenericReader[SnapshotRow]
}

// NewSnapshotReader creates a new snapshot Parquet reader.
func NewSnapshotReader(path string) (*SnapshotReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &SnapshotReader{
		file:   f,
		reader: parquet.NewGenericReader[SnapshotRow](f),
	}, nil
}

// ReadAll reads every entry in the file.
func (r *SnapshotReader) ReadAll() ([]Entry, error) {
	numRows := r.reader.NumRows()
	rows := make([]SnapshotRow, numRows)

	n, err := r.reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	entries := make([]Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = RowToEntry(&rows[i])
	}

	return entries, nil
}

// NumRows returns the total number of rows in the file.
func (r *SnapshotReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *SnapshotReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
