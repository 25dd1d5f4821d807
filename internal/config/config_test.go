package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	derrors "github.com/xtxerr/tdigest/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Digest.Compression != 100 {
		t.Errorf("expected compression=100, got %v", cfg.Digest.Compression)
	}

	if cfg.Digest.Scale != "k2" {
		t.Errorf("expected k2 scale, got %q", cfg.Digest.Scale)
	}

	if cfg.Parallel.MinBatch <= 0 {
		t.Error("expected positive min_batch")
	}

	if cfg.Aggregate.BucketSize != 5*time.Minute {
		t.Errorf("expected 5m buckets, got %v", cfg.Aggregate.BucketSize)
	}

	if cfg.Export.Format != "parquet" {
		t.Errorf("expected parquet export, got %q", cfg.Export.Format)
	}

	if cfg.BufferSize() != 510 {
		t.Errorf("expected buffer size 510, got %d", cfg.BufferSize())
	}

	cfg.Digest.Compression = 1e300
	if n := cfg.BufferSize(); n <= 0 || n > 1<<21 {
		t.Errorf("expected clamped buffer size for huge compression, got %d", n)
	}
}

func TestConfigValidate(t *testing.T) {
	// Valid config
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero compression", func(c *Config) { c.Digest.Compression = 0 }, derrors.ErrInvalidConfig},
		{"unknown scale", func(c *Config) { c.Digest.Scale = "k9" }, derrors.ErrInvalidConfig},
		{"negative buffer factor", func(c *Config) { c.Digest.BufferFactor = -1 }, derrors.ErrInvalidConfig},
		{"negative workers", func(c *Config) { c.Parallel.Workers = -2 }, derrors.ErrInvalidConfig},
		{"zero min batch", func(c *Config) { c.Parallel.MinBatch = 0 }, derrors.ErrInvalidConfig},
		{"zero bucket", func(c *Config) { c.Aggregate.BucketSize = 0 }, derrors.ErrInvalidConfig},
		{"unknown backend", func(c *Config) { c.Aggregate.Backend = "hdr" }, derrors.ErrUnsupportedBackend},
		{"bad accuracy", func(c *Config) {
			c.Aggregate.Backend = "ddsketch"
			c.Aggregate.DDSketchAccuracy = 1.5
		}, derrors.ErrInvalidConfig},
		{"missing export dir", func(c *Config) { c.Export.Dir = "" }, derrors.ErrMissingField},
		{"unknown format", func(c *Config) { c.Export.Format = "csv" }, derrors.ErrUnsupportedFormat},
		{"unknown codec", func(c *Config) { c.Export.Compression = "brotli" }, derrors.ErrInvalidConfig},
		{"zero concurrency", func(c *Config) { c.Export.Concurrency = 0 }, derrors.ErrInvalidConfig},
		{"metrics without namespace", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Namespace = ""
		}, derrors.ErrMissingField},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, derrors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigValidate_CollectsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Digest.Compression = -1
	cfg.Parallel.MinBatch = -1
	cfg.Export.Format = "csv"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	for _, want := range []string{"digest:", "parallel:", "export:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
digest:
  compression: 200
  scale: k0
parallel:
  workers: 4
  min_batch: 64
aggregate:
  bucket_size: 1m
  backend: ddsketch
  ddsketch_accuracy: 0.02
export:
  dir: /tmp/snapshots
  format: pb
logging:
  level: debug
  json: true
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Digest.Compression != 200 {
		t.Errorf("expected compression=200, got %v", cfg.Digest.Compression)
	}
	if cfg.Digest.Scale != "k0" {
		t.Errorf("expected k0 scale, got %q", cfg.Digest.Scale)
	}
	if cfg.Parallel.Workers != 4 || cfg.Parallel.MinBatch != 64 {
		t.Errorf("unexpected parallel section: %+v", cfg.Parallel)
	}
	if cfg.Aggregate.BucketSize != time.Minute || cfg.Aggregate.Backend != "ddsketch" {
		t.Errorf("unexpected aggregate section: %+v", cfg.Aggregate)
	}
	if cfg.Export.Dir != "/tmp/snapshots" || cfg.Export.Format != "pb" {
		t.Errorf("unexpected export section: %+v", cfg.Export)
	}
	if cfg.LogLevel() != slog.LevelDebug || !cfg.Logging.JSON {
		t.Errorf("unexpected logging section: %+v", cfg.Logging)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Digest.BufferFactor != 5 {
		t.Errorf("expected default buffer_factor, got %v", cfg.Digest.BufferFactor)
	}
	if cfg.Export.Concurrency != 4 {
		t.Errorf("expected default concurrency, got %d", cfg.Export.Concurrency)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	if _, err := Parse([]byte("digest: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}

	_, err := Parse([]byte("digest:\n  compression: -5\n"))
	if !errors.Is(err, derrors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewDigest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Digest.Compression = 50
	cfg.Digest.Scale = "k0"

	d, err := cfg.NewDigest()
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	if d.Compression() != 50 {
		t.Errorf("expected compression=50, got %v", d.Compression())
	}
	if d.Scale().Name() != "k0" {
		t.Errorf("expected k0 scale, got %s", d.Scale().Name())
	}

	cfg.Digest.Scale = "bogus"
	if _, err := cfg.NewDigest(); !errors.Is(err, derrors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallel.Workers = 3

	p := cfg.NewPool()
	defer p.Close()

	if p.Size() != 3 {
		t.Errorf("expected 3 workers, got %d", p.Size())
	}
}
