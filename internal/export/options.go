// Package export writes digest snapshots to files and reads them back.
//
// Two formats are supported: Parquet, which stores one row per series and
// can hold many digests in one file, and the snapshot's own protobuf
// encoding, which stores exactly one digest per file.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/tdigest/internal/errors"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// PageBufferSize is the page buffer size in bytes. Zero keeps the
	// library default.
	PageBufferSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression: CompressionZstd,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd", "":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// Format is a snapshot file format.
type Format int

const (
	FormatParquet Format = iota
	FormatPB
)

// ParseFormat parses a format name: parquet or pb.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "parquet":
		return FormatParquet, nil
	case "pb":
		return FormatPB, nil
	default:
		return 0, fmt.Errorf("format %q: %w", s, errors.ErrUnsupportedFormat)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatPB {
		return ".pb"
	}
	return ".parquet"
}

func (f Format) String() string {
	return strings.TrimPrefix(f.Ext(), ".")
}
