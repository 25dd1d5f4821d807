// Package config provides configuration defaults for the tdigest module.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command line flags.
package config

// =============================================================================
// Digest Defaults
// =============================================================================

const (
	// DefaultCompression is the compression parameter δ.
	// Larger values keep more centroids: better accuracy, more memory.
	// Override via config: digest.compression
	DefaultCompression = 100.0

	// DefaultBufferFactor sizes the unmerged point buffer as a multiple of δ.
	// A full buffer triggers a compression pass.
	// Override via config: digest.buffer_factor
	DefaultBufferFactor = 5.0

	// DefaultBufferPadding is added to the computed buffer size so tiny
	// compressions still buffer a few points.
	DefaultBufferPadding = 10

	// MaxBufferSize caps the computed buffer size for very large δ.
	MaxBufferSize = 1 << 20

	// DefaultScale is the scale function name.
	// Values: k2 (asin, tail-accurate), k0 (linear, uniform)
	// Override via config: digest.scale
	DefaultScale = "k2"
)

// =============================================================================
// Parallel Evaluation Defaults
// =============================================================================

const (
	// DefaultWorkers is the worker pool size. Zero means GOMAXPROCS.
	// Override via config: parallel.workers
	DefaultWorkers = 0

	// DefaultMinParallelBatch is the smallest batch split across workers.
	// Smaller batches run on the calling goroutine even when
	// multithreading is requested.
	// Override via config: parallel.min_batch
	DefaultMinParallelBatch = 1024

	// DefaultQueueSize is the pool's task queue capacity.
	// Override via config: parallel.queue_size
	DefaultQueueSize = 256
)

// =============================================================================
// Export Defaults
// =============================================================================

const (
	// DefaultExportFormat is the snapshot file format: pb or parquet.
	// Override via config: export.format
	DefaultExportFormat = "parquet"

	// DefaultExportCompression is the Parquet codec.
	// Override via config: export.compression
	DefaultExportCompression = "zstd"

	// DefaultExportConcurrency bounds parallel snapshot writes.
	// Override via config: export.concurrency
	DefaultExportConcurrency = 4
)

// =============================================================================
// Aggregation Defaults
// =============================================================================

const (
	// DefaultBucketSizeSec is the time bucket of streaming aggregates.
	// Override via config: aggregate.bucket_size
	DefaultBucketSizeSec = 300

	// DefaultAggregateBackend is the percentile estimator: tdigest or ddsketch.
	// Override via config: aggregate.backend
	DefaultAggregateBackend = "tdigest"

	// DefaultDDSketchAccuracy is the relative accuracy of the ddsketch backend.
	// Override via config: aggregate.ddsketch_accuracy
	DefaultDDSketchAccuracy = 0.01
)

// =============================================================================
// Metrics Defaults
// =============================================================================

const (
	// DefaultMetricsNamespace prefixes every exported metric.
	// Override via config: metrics.namespace
	DefaultMetricsNamespace = "tdigest"
)
