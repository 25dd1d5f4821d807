package config

import (
	"log/slog"

	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/logging"
	"github.com/xtxerr/tdigest/internal/workerpool"
)

// DigestOptions translates the digest and parallel sections into digest
// options. Callers add WithPool and WithObserver themselves.
func (c *Config) DigestOptions() ([]digest.Option, error) {
	scale, err := digest.ScaleByName(c.Digest.Scale)
	if err != nil {
		return nil, err
	}

	return []digest.Option{
		digest.WithScale(scale),
		digest.WithBufferSize(c.BufferSize()),
		digest.WithMinParallelBatch(c.Parallel.MinBatch),
	}, nil
}

// BufferSize returns the number of points buffered between compressions.
func (c *Config) BufferSize() int {
	return digest.BufferSize(c.Digest.BufferFactor, c.Digest.Compression)
}

// NewDigest creates an empty digest configured by c. Extra options are
// applied after the configured ones.
func (c *Config) NewDigest(extra ...digest.Option) (*digest.Digest, error) {
	opts, err := c.DigestOptions()
	if err != nil {
		return nil, err
	}
	return digest.New(c.Digest.Compression, append(opts, extra...)...)
}

// NewPool starts a worker pool sized by the parallel section.
func (c *Config) NewPool() *workerpool.Pool {
	return workerpool.New(c.Parallel.Workers, c.Parallel.QueueSize)
}

// LogLevel returns the configured level, falling back to Info.
func (c *Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}
