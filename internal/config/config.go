// Package config loads the YAML configuration of the tdigest tools.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/tdigest/config"
)

// Config represents the complete configuration.
type Config struct {
	// Digest configures every digest the tools create.
	Digest DigestConfig `yaml:"digest"`

	// Parallel configures multithreaded batch queries.
	Parallel ParallelConfig `yaml:"parallel"`

	// Aggregate configures per-series bucketed aggregation.
	Aggregate AggregateConfig `yaml:"aggregate"`

	// Export configures snapshot files.
	Export ExportConfig `yaml:"export"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// DigestConfig configures the t-digest.
type DigestConfig struct {
	// Compression is δ. Larger values keep more centroids.
	Compression float64 `yaml:"compression"`

	// Scale is the scale function: k2 or k0.
	Scale string `yaml:"scale"`

	// BufferFactor sizes the point buffer as a multiple of Compression.
	BufferFactor float64 `yaml:"buffer_factor"`
}

// ParallelConfig configures the worker pool used by batch queries.
type ParallelConfig struct {
	// Workers is the pool size. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// MinBatch is the smallest batch split across workers.
	MinBatch int `yaml:"min_batch"`

	// QueueSize is the pool's task queue capacity.
	QueueSize int `yaml:"queue_size"`
}

// AggregateConfig configures streaming aggregates.
type AggregateConfig struct {
	// BucketSize is the width of one aggregation bucket.
	// Format: "1m", "5m", "1h"
	BucketSize time.Duration `yaml:"bucket_size"`

	// Backend is the percentile estimator: tdigest or ddsketch.
	Backend string `yaml:"backend"`

	// DDSketchAccuracy is the relative accuracy of the ddsketch backend.
	DDSketchAccuracy float64 `yaml:"ddsketch_accuracy"`
}

// ExportConfig configures snapshot export.
type ExportConfig struct {
	// Dir is the output directory for exported snapshots.
	Dir string `yaml:"dir"`

	// Format is the file format: pb or parquet.
	Format string `yaml:"format"`

	// Compression is the Parquet codec: snappy, zstd, lz4, gzip, none.
	Compression string `yaml:"compression"`

	// Concurrency bounds parallel snapshot writes.
	Concurrency int `yaml:"concurrency"`

	// Retention is how long exported snapshots are kept. Zero keeps them
	// forever.
	// Format: "24h", "168h"
	Retention time.Duration `yaml:"retention"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Enabled attaches the collector to new digests.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches from text to JSON output.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file. Missing keys keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Digest: DigestConfig{
			Compression:  defaults.DefaultCompression,
			Scale:        defaults.DefaultScale,
			BufferFactor: defaults.DefaultBufferFactor,
		},
		Parallel: ParallelConfig{
			Workers:   defaults.DefaultWorkers,
			MinBatch:  defaults.DefaultMinParallelBatch,
			QueueSize: defaults.DefaultQueueSize,
		},
		Aggregate: AggregateConfig{
			BucketSize:       defaults.DefaultBucketSizeSec * time.Second,
			Backend:          defaults.DefaultAggregateBackend,
			DDSketchAccuracy: defaults.DefaultDDSketchAccuracy,
		},
		Export: ExportConfig{
			Dir:         ".",
			Format:      defaults.DefaultExportFormat,
			Compression: defaults.DefaultExportCompression,
			Concurrency: defaults.DefaultExportConcurrency,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: defaults.DefaultMetricsNamespace,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
