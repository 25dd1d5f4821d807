package config

import (
	"errors"
	"fmt"
	"math"

	derrors "github.com/xtxerr/tdigest/internal/errors"
	"github.com/xtxerr/tdigest/internal/logging"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	// Digest
	if err := c.Digest.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("digest: %w", err))
	}

	// Parallel
	if err := c.Parallel.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("parallel: %w", err))
	}

	// Aggregate
	if err := c.Aggregate.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("aggregate: %w", err))
	}

	// Export
	if err := c.Export.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, fmt.Errorf("metrics: %w", derrors.NewMissingField("namespace")))
	}

	// Logging
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", derrors.NewValidation("level", err.Error())))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the digest configuration.
func (c *DigestConfig) Validate() error {
	v := derrors.NewValidationErrors()

	if !(c.Compression > 0) || math.IsInf(c.Compression, 1) {
		v.AddField("compression", "must be a positive finite number")
	}

	switch c.Scale {
	case "", "k2", "k0":
	default:
		v.AddField("scale", fmt.Sprintf("%q is not one of: k2, k0", c.Scale))
	}

	if !(c.BufferFactor > 0) || math.IsInf(c.BufferFactor, 1) {
		v.AddField("buffer_factor", "must be a positive finite number")
	}

	return v.Err()
}

// Validate checks the parallel configuration.
func (c *ParallelConfig) Validate() error {
	v := derrors.NewValidationErrors()

	if c.Workers < 0 {
		v.AddField("workers", "must be non-negative")
	}

	if c.MinBatch <= 0 {
		v.AddField("min_batch", "must be positive")
	}

	if c.QueueSize < 0 {
		v.AddField("queue_size", "must be non-negative")
	}

	return v.Err()
}

// Validate checks the aggregate configuration.
func (c *AggregateConfig) Validate() error {
	v := derrors.NewValidationErrors()

	if c.BucketSize <= 0 {
		v.AddField("bucket_size", "must be positive")
	}

	switch c.Backend {
	case "tdigest", "":
	case "ddsketch":
		if c.DDSketchAccuracy <= 0 || c.DDSketchAccuracy >= 1 {
			v.AddField("ddsketch_accuracy", "must be between 0 and 1")
		}
	default:
		v.Add(fmt.Errorf("backend %q: %w", c.Backend, derrors.ErrUnsupportedBackend))
	}

	return v.Err()
}

// Validate checks the export configuration.
func (c *ExportConfig) Validate() error {
	v := derrors.NewValidationErrors()

	if c.Dir == "" {
		v.AddMissing("dir")
	}

	switch c.Format {
	case "pb", "parquet":
	default:
		v.Add(fmt.Errorf("format %q: %w", c.Format, derrors.ErrUnsupportedFormat))
	}

	validCodecs := map[string]bool{
		"snappy": true,
		"zstd":   true,
		"lz4":    true,
		"gzip":   true,
		"none":   true,
		"":       true, // Empty defaults to zstd
	}
	if !validCodecs[c.Compression] {
		v.AddField("compression", "must be one of: snappy, zstd, lz4, gzip, none")
	}

	if c.Concurrency <= 0 {
		v.AddField("concurrency", "must be positive")
	}

	if c.Retention < 0 {
		v.AddField("retention", "must be non-negative")
	}

	return v.Err()
}
