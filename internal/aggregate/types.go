package aggregate

import (
	"time"

	"github.com/xtxerr/tdigest/internal/digest"
)

// Sample is one weighted observation of a series.
type Sample struct {
	Series      string
	TimestampMs int64
	Value       float64

	// Weight defaults to 1 when zero.
	Weight float64
}

// weight returns the effective weight.
func (s *Sample) weight() float64 {
	if s.Weight == 0 {
		return 1
	}
	return s.Weight
}

// Result represents aggregated statistics for a time bucket.
type Result struct {
	Series string

	// Time bucket
	BucketStart int64 // Unix timestamp in milliseconds (bucket start)
	BucketEnd   int64 // Unix timestamp in milliseconds (bucket end)

	// Basic statistics (always present)
	Count  int64   // Number of samples in this bucket
	Weight float64 // Sum of sample weights
	Sum    float64 // Weighted sum of values
	Min    float64
	Max    float64
	Avg    float64 // Sum / Weight

	// Percentiles (nil when the bucket is empty)
	P50 *float64
	P90 *float64
	P95 *float64
	P99 *float64

	// Timestamps of actual samples
	FirstTs int64
	LastTs  int64

	// Snapshot is the bucket's digest; nil for the ddsketch backend.
	Snapshot *digest.Snapshot
}

// BucketStartTime returns the bucket start as a time.Time.
func (r *Result) BucketStartTime() time.Time {
	return time.UnixMilli(r.BucketStart)
}

// Duration returns the bucket duration.
func (r *Result) Duration() time.Duration {
	return time.Duration(r.BucketEnd-r.BucketStart) * time.Millisecond
}

// IsEmpty returns true if no samples were aggregated.
func (r *Result) IsEmpty() bool {
	return r.Count == 0
}

// HasPercentiles returns true if percentile data is available.
func (r *Result) HasPercentiles() bool {
	return r.P50 != nil
}

// SetPercentiles sets all percentile values.
func (r *Result) SetPercentiles(p50, p90, p95, p99 float64) {
	r.P50 = &p50
	r.P90 = &p90
	r.P95 = &p95
	r.P99 = &p99
}
