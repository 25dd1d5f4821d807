// Package aggregate maintains per-series percentile aggregates over fixed
// time buckets.
package aggregate

import (
	"math"
	"sync"

	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/errors"
)

// StreamingAggregate maintains running statistics for a single time bucket.
type StreamingAggregate struct {
	mu sync.Mutex

	series string
	opts   *Options

	// Time bucket
	bucketStart int64 // Unix milliseconds
	bucketEnd   int64 // Unix milliseconds

	// Running statistics
	count   int64
	weight  float64
	sum     float64
	min     float64
	max     float64
	firstTs int64
	lastTs  int64

	estimator Estimator
}

// New creates a new StreamingAggregate for the given bucket.
func New(series string, bucketStart, bucketEnd int64, opts Options) (*StreamingAggregate, error) {
	opts.setDefaults()

	agg := &StreamingAggregate{
		series:      series,
		opts:        &opts,
		bucketStart: bucketStart,
		bucketEnd:   bucketEnd,
		min:         math.Inf(1),
		max:         math.Inf(-1),
	}

	est, err := newEstimator(agg.opts)
	if err != nil {
		return nil, err
	}
	agg.estimator = est

	return agg, nil
}

// Add adds a weighted value to the aggregate.
func (a *StreamingAggregate) Add(value, weight float64, timestampMs int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.estimator.Add(value, weight); err != nil {
		return err
	}

	a.count++
	a.weight += weight
	a.sum += value * weight

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	if a.firstTs == 0 || timestampMs < a.firstTs {
		a.firstTs = timestampMs
	}
	if timestampMs > a.lastTs {
		a.lastTs = timestampMs
	}

	return nil
}

// AddSample adds a sample to the aggregate.
func (a *StreamingAggregate) AddSample(s Sample) error {
	return a.Add(s.Value, s.weight(), s.TimestampMs)
}

// Count returns the number of samples added.
func (a *StreamingAggregate) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// IsEmpty returns true if no samples have been added.
func (a *StreamingAggregate) IsEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count == 0
}

// Result returns the aggregation result.
func (a *StreamingAggregate) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := Result{
		Series:      a.series,
		BucketStart: a.bucketStart,
		BucketEnd:   a.bucketEnd,
		Count:       a.count,
		Weight:      a.weight,
		Sum:         a.sum,
		FirstTs:     a.firstTs,
		LastTs:      a.lastTs,
	}

	if a.count == 0 {
		return result
	}

	result.Avg = a.sum / a.weight
	result.Min = a.min
	result.Max = a.max

	p50, _ := a.estimator.Quantile(0.50)
	p90, _ := a.estimator.Quantile(0.90)
	p95, _ := a.estimator.Quantile(0.95)
	p99, _ := a.estimator.Quantile(0.99)
	result.SetPercentiles(p50, p90, p95, p99)

	if d, ok := a.estimator.(*digestEstimator); ok {
		snap := d.digest.Snapshot()
		result.Snapshot = &snap
	}

	return result
}

// Snapshot returns the bucket's digest state. It fails for the ddsketch
// backend.
func (a *StreamingAggregate) Snapshot() (digest.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d, ok := a.estimator.(*digestEstimator)
	if !ok {
		return digest.Snapshot{}, errors.Wrapf(errors.ErrUnsupportedBackend, "snapshot of %s aggregate", a.opts.Backend)
	}
	return d.digest.Snapshot(), nil
}

// Reset resets the aggregate for a new bucket.
func (a *StreamingAggregate) Reset(bucketStart, bucketEnd int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bucketStart = bucketStart
	a.bucketEnd = bucketEnd
	a.count = 0
	a.weight = 0
	a.sum = 0
	a.min = math.Inf(1)
	a.max = math.Inf(-1)
	a.firstTs = 0
	a.lastTs = 0

	if d, ok := a.estimator.(*digestEstimator); ok {
		d.digest.Reset()
		return nil
	}

	// DDSketch has no Clear method; start a new one.
	est, err := newEstimator(a.opts)
	if err != nil {
		return err
	}
	a.estimator = est
	return nil
}

// Merge combines another aggregate into this one.
// Both aggregates must be for the same time bucket and backend.
func (a *StreamingAggregate) Merge(other *StreamingAggregate) error {
	if other == nil || other == a || other.IsEmpty() {
		return nil
	}

	a.mu.Lock()
	other.mu.Lock()
	defer a.mu.Unlock()
	defer other.mu.Unlock()

	if err := a.estimator.Merge(other.estimator); err != nil {
		return err
	}

	a.count += other.count
	a.weight += other.weight
	a.sum += other.sum

	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}

	if a.firstTs == 0 || (other.firstTs != 0 && other.firstTs < a.firstTs) {
		a.firstTs = other.firstTs
	}
	if other.lastTs > a.lastTs {
		a.lastTs = other.lastTs
	}

	return nil
}

// BucketStart returns the bucket start timestamp.
func (a *StreamingAggregate) BucketStart() int64 {
	return a.bucketStart
}

// BucketEnd returns the bucket end timestamp.
func (a *StreamingAggregate) BucketEnd() int64 {
	return a.bucketEnd
}
