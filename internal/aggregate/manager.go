package aggregate

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	defaults "github.com/xtxerr/tdigest/config"
	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/errors"
	"github.com/xtxerr/tdigest/internal/export"
	"github.com/xtxerr/tdigest/internal/logging"
)

var log = logging.Component("aggregate")

// Options configures the aggregates a Manager creates.
type Options struct {
	// BucketSize is the width of one bucket.
	BucketSize time.Duration

	// Backend is the percentile estimator.
	Backend Backend

	// Compression and DigestOptions configure the tdigest backend.
	Compression   float64
	DigestOptions []digest.Option

	// Accuracy is the relative accuracy of the ddsketch backend.
	Accuracy float64
}

// DefaultOptions returns options with the package defaults.
func DefaultOptions() Options {
	return Options{
		BucketSize:  defaults.DefaultBucketSizeSec * time.Second,
		Backend:     BackendTDigest,
		Compression: defaults.DefaultCompression,
		Accuracy:    defaults.DefaultDDSketchAccuracy,
	}
}

func (o *Options) setDefaults() {
	if o.BucketSize <= 0 {
		o.BucketSize = defaults.DefaultBucketSizeSec * time.Second
	}
	if o.Backend == "" {
		o.Backend = BackendTDigest
	}
	if o.Compression == 0 {
		o.Compression = defaults.DefaultCompression
	}
	if o.Accuracy == 0 {
		o.Accuracy = defaults.DefaultDDSketchAccuracy
	}
}

// Manager manages streaming aggregates for multiple series.
// It handles bucket transitions and flushing completed aggregates.
type Manager struct {
	mu sync.RWMutex

	opts Options

	// Active aggregates by series
	aggregates map[string]*StreamingAggregate

	// Completed aggregates waiting to be flushed
	completed []Result

	// Statistics
	stats ManagerStats
}

// ManagerStats holds statistics for the manager.
type ManagerStats struct {
	ActiveAggregates int64
	CompletedPending int64
	SamplesProcessed int64
	SamplesRejected  int64
	BucketsCompleted int64
	FlushesPerformed int64
	SnapshotsWritten int64
}

// NewManager creates a new aggregate manager.
func NewManager(opts Options) (*Manager, error) {
	opts.setDefaults()

	if _, err := ParseBackend(string(opts.Backend)); err != nil {
		return nil, err
	}
	if opts.BucketSize < time.Millisecond {
		return nil, errors.NewValidation("bucket_size", "must be at least 1ms")
	}

	return &Manager{
		opts:       opts,
		aggregates: make(map[string]*StreamingAggregate),
		completed:  make([]Result, 0, 1000),
	}, nil
}

// Process adds a sample to the appropriate aggregate.
// If the sample belongs to a new bucket, the old bucket is completed.
// Samples older than the series' current bucket are folded into it.
func (m *Manager) Process(sample Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.process(sample)
}

// ProcessBatch processes multiple samples under one lock. Rejected samples
// do not stop the batch; their errors are joined.
func (m *Manager) ProcessBatch(samples []Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := range samples {
		if err := m.process(samples[i]); err != nil {
			errs = append(errs, fmt.Errorf("sample %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) process(sample Sample) error {
	if err := ValidateSeries(sample.Series); err != nil {
		m.stats.SamplesRejected++
		return err
	}

	bucketStart, bucketEnd := m.calculateBucket(sample.TimestampMs)

	agg, exists := m.aggregates[sample.Series]

	if !exists {
		var err error
		agg, err = New(sample.Series, bucketStart, bucketEnd, m.opts)
		if err != nil {
			return err
		}
		m.aggregates[sample.Series] = agg
	} else if bucketStart > agg.BucketStart() {
		// New bucket - complete the old one and start over
		if !agg.IsEmpty() {
			m.completed = append(m.completed, agg.Result())
			m.stats.BucketsCompleted++
		}
		if err := agg.Reset(bucketStart, bucketEnd); err != nil {
			return err
		}
	}

	if err := agg.AddSample(sample); err != nil {
		m.stats.SamplesRejected++
		return errors.Wrapf(err, "series %q", sample.Series)
	}
	m.stats.SamplesProcessed++
	return nil
}

// FlushCompleted returns and clears all completed aggregates.
func (m *Manager) FlushCompleted() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.completed) == 0 {
		return nil
	}

	result := m.completed
	m.completed = make([]Result, 0, 1000)
	m.stats.FlushesPerformed++

	return result
}

// FlushAll completes all active aggregates and returns them ordered by
// series. This is typically called during shutdown.
func (m *Manager) FlushAll() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, series := range m.sortedSeries() {
		agg := m.aggregates[series]
		if !agg.IsEmpty() {
			m.completed = append(m.completed, agg.Result())
			m.stats.BucketsCompleted++
		}
	}

	m.aggregates = make(map[string]*StreamingAggregate)

	result := m.completed
	m.completed = make([]Result, 0, 1000)
	m.stats.FlushesPerformed++

	return result
}

// FlushOlderThan completes aggregates with bucket start older than the given timestamp.
func (m *Manager) FlushOlderThan(cutoffMs int64) []Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	var flushed []Result

	for _, series := range m.sortedSeries() {
		agg := m.aggregates[series]
		if agg.BucketStart() < cutoffMs && !agg.IsEmpty() {
			flushed = append(flushed, agg.Result())
			m.stats.BucketsCompleted++
			delete(m.aggregates, series)
		}
	}

	return flushed
}

// Quantile answers a quantile query against a series' current bucket.
func (m *Manager) Quantile(series string, q float64) (float64, error) {
	m.mu.RLock()
	agg, ok := m.aggregates[series]
	m.mu.RUnlock()

	if !ok {
		return 0, errors.Wrapf(errors.ErrEmptyDigest, "series %q", series)
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()
	return agg.estimator.Quantile(q)
}

// ExportAll writes the current digest of every active series to dir, one
// file per series, at most limit files at a time. It returns the written
// paths in series order. Only the tdigest backend can be exported.
func (m *Manager) ExportAll(ctx context.Context, dir string, format export.Format, opts export.Options, limit int) ([]string, error) {
	if m.opts.Backend != BackendTDigest {
		return nil, errors.Wrapf(errors.ErrUnsupportedBackend, "export %s aggregates", m.opts.Backend)
	}
	if limit <= 0 {
		limit = defaults.DefaultExportConcurrency
	}

	// Copy the snapshots under the lock; write without it.
	m.mu.RLock()
	series := m.sortedSeries()
	entries := make([]export.Entry, 0, len(series))
	for _, s := range series {
		snap, err := m.aggregates[s].Snapshot()
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		entries = append(entries, export.Entry{Series: s, Snapshot: snap})
	}
	m.mu.RUnlock()

	// Series differing only in case would share a file on case-insensitive
	// file systems.
	paths := make([]string, len(entries))
	owners := make(map[string]string, len(entries))
	for i, e := range entries {
		paths[i] = filepath.Join(dir, export.FileName(e.Series)+format.Ext())

		key := strings.ToLower(paths[i])
		if prev, ok := owners[key]; ok {
			return nil, errors.Wrapf(errors.ErrInvalidInput,
				"series %q and %q map to the same file %s", prev, e.Series, paths[i])
		}
		owners[key] = e.Series
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range entries {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := export.WriteFile(paths[i], entries[i:i+1], opts); err != nil {
				return err
			}
			logging.WithContext(logging.ContextWithSeries(gctx, entries[i].Series)).
				Debug("snapshot exported", "path", paths[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export snapshots: %w", err)
	}

	m.mu.Lock()
	m.stats.SnapshotsWritten += int64(len(paths))
	m.mu.Unlock()

	log.Info("snapshots exported", "dir", dir, "series", len(paths), "format", format.String())
	return paths, nil
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.ActiveAggregates = int64(len(m.aggregates))
	stats.CompletedPending = int64(len(m.completed))
	return stats
}

// ActiveCount returns the number of active aggregates.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aggregates)
}

// CompletedCount returns the number of completed aggregates pending flush.
func (m *Manager) CompletedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.completed)
}

// calculateBucket calculates the bucket start and end for a timestamp.
func (m *Manager) calculateBucket(timestampMs int64) (start, end int64) {
	bucketMs := m.opts.BucketSize.Milliseconds()
	start = (timestampMs / bucketMs) * bucketMs
	if timestampMs < 0 && timestampMs%bucketMs != 0 {
		start -= bucketMs
	}
	end = start + bucketMs
	return
}

// Series returns the names of the active series in order.
func (m *Manager) Series() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedSeries()
}

// sortedSeries returns the active series names in order. Callers hold mu.
func (m *Manager) sortedSeries() []string {
	series := make([]string, 0, len(m.aggregates))
	for s := range m.aggregates {
		series = append(series, s)
	}
	slices.Sort(series)
	return series
}
