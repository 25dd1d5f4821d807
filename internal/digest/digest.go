package digest

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/xtxerr/tdigest/config"
	"github.com/xtxerr/tdigest/internal/errors"
	"github.com/xtxerr/tdigest/internal/logging"
	"github.com/xtxerr/tdigest/internal/workerpool"
)

var log = logging.Component("digest")

// Observer receives digest activity. Implementations must be safe for
// concurrent use because batch queries report from the calling goroutine
// while other readers may be running.
type Observer interface {
	ObserveAppend(points int, weight float64)
	ObserveCompression(centroids int, elapsed time.Duration)
	ObserveQueryBatch(size int, parallel bool, elapsed time.Duration)
}

// Digest is a merging t-digest. The zero value is not usable; call New.
type Digest struct {
	mu sync.RWMutex

	compression float64
	scale       Scale
	bufferSize  int

	store    centroidStore
	min, max float64
	stats    runningStats

	pool     *workerpool.Pool
	minBatch int
	observer Observer

	compressions int64
}

// Option configures a Digest.
type Option func(*Digest)

// WithScale sets the scale function. Defaults to K2.
func WithScale(s Scale) Option {
	return func(d *Digest) {
		if s != nil {
			d.scale = s
		}
	}
}

// WithBufferSize sets how many points are buffered before a compression
// pass. Values <= 0 keep the default of DefaultBufferFactor·δ plus padding.
func WithBufferSize(n int) Option {
	return func(d *Digest) {
		if n > 0 {
			d.bufferSize = n
		}
	}
}

// WithPool sets the worker pool used by multithreaded batch queries.
// Without it a shared pool sized to GOMAXPROCS is used.
func WithPool(p *workerpool.Pool) Option {
	return func(d *Digest) {
		d.pool = p
	}
}

// WithMinParallelBatch sets the smallest batch that is split across workers.
func WithMinParallelBatch(n int) Option {
	return func(d *Digest) {
		if n > 0 {
			d.minBatch = n
		}
	}
}

// WithObserver attaches an activity observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(d *Digest) {
		d.observer = o
	}
}

// New creates an empty digest with compression δ.
func New(compression float64, opts ...Option) (*Digest, error) {
	if !(compression > 0) || math.IsInf(compression, 1) {
		return nil, fmt.Errorf("compression %v: %w", compression, errors.ErrInvalidCompression)
	}

	d := &Digest{
		compression: compression,
		scale:       K2{},
		bufferSize:  BufferSize(config.DefaultBufferFactor, compression),
		min:         math.Inf(1),
		max:         math.Inf(-1),
		minBatch:    config.DefaultMinParallelBatch,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// BufferSize returns ceil(factor·δ) plus padding. The product is clamped
// to [0, MaxBufferSize] in float space before conversion to int.
func BufferSize(factor, compression float64) int {
	n := math.Ceil(factor * compression)
	switch {
	case !(n < config.MaxBufferSize):
		n = config.MaxBufferSize
	case !(n > 0):
		n = 0
	}
	return int(n) + config.DefaultBufferPadding
}

// Compression returns δ.
func (d *Digest) Compression() float64 {
	return d.compression
}

// Scale returns the scale function in use.
func (d *Digest) Scale() Scale {
	return d.scale
}

// TotalWeight returns the sum of all appended weights.
func (d *Digest) TotalWeight() float64 {
	return d.store.totalWeight()
}

// Count returns the number of centroids.
func (d *Digest) Count() int {
	return d.store.count()
}

// Centroids returns a copy of the centroids in ascending mean order.
func (d *Digest) Centroids() []Centroid {
	return append([]Centroid(nil), d.store.ordered()...)
}

// Min returns the smallest observed value, or NaN when empty.
func (d *Digest) Min() float64 {
	if d.store.totalWeight() == 0 {
		return math.NaN()
	}
	return d.min
}

// Max returns the largest observed value, or NaN when empty.
func (d *Digest) Max() float64 {
	if d.store.totalWeight() == 0 {
		return math.NaN()
	}
	return d.max
}

// Mean returns the exact weighted mean of all observations.
func (d *Digest) Mean() float64 {
	if d.stats.weight == 0 {
		return math.NaN()
	}
	return d.stats.mean
}

// Variance returns the exact weighted population variance of all observations.
func (d *Digest) Variance() float64 {
	return d.stats.variance()
}

// Compressions returns how many compression passes have run.
func (d *Digest) Compressions() int64 {
	return d.compressions
}

// =============================================================================
// Ingestion
// =============================================================================

// Add appends one observation.
func (d *Digest) Add(value, weight float64) error {
	return d.Append([]float64{value}, weight)
}

// Append appends values that all carry the same weight.
// On error the digest is left unchanged.
func (d *Digest) Append(values []float64, weight float64) error {
	if !validWeight(weight) {
		return fmt.Errorf("weight %v: %w", weight, errors.ErrInvalidWeight)
	}
	for i, v := range values {
		if !validValue(v) {
			return errors.NewInvalidValue(i, v)
		}
	}
	if err := d.checkTotal(weight * float64(len(values))); err != nil {
		return err
	}

	d.ingest(len(values), func(i int) (float64, float64) { return values[i], weight })
	return nil
}

// AppendWeighted appends values[i] with weights[i].
// On error the digest is left unchanged.
func (d *Digest) AppendWeighted(values, weights []float64) error {
	if len(values) != len(weights) {
		return errors.NewDimensionMismatch("weights", len(weights), len(values))
	}
	batch := 0.0
	for i := range values {
		if !validValue(values[i]) {
			return errors.NewInvalidValue(i, values[i])
		}
		if !validWeight(weights[i]) {
			return errors.NewInvalidWeight(i, weights[i])
		}
		batch += weights[i]
	}
	if err := d.checkTotal(batch); err != nil {
		return err
	}

	d.ingest(len(values), func(i int) (float64, float64) { return values[i], weights[i] })
	return nil
}

// checkTotal rejects a batch whose weight would push the total to +Inf.
func (d *Digest) checkTotal(batch float64) error {
	if total := d.store.totalWeight() + batch; math.IsInf(total, 0) {
		return fmt.Errorf("total weight %v + %v overflows: %w", d.store.totalWeight(), batch, errors.ErrInvalidWeight)
	}
	return nil
}

// ingest buffers n validated points and compresses whenever the buffer
// fills, and once more at the end.
func (d *Digest) ingest(n int, point func(i int) (float64, float64)) {
	if n == 0 {
		return
	}

	total := 0.0
	for i := 0; i < n; i++ {
		v, w := point(i)

		d.store.insert(Centroid{Mean: v, Weight: w})
		d.stats.add(v, w)
		if v < d.min {
			d.min = v
		}
		if v > d.max {
			d.max = v
		}
		total += w

		if len(d.store.pending) >= d.bufferSize {
			d.compress()
		}
	}
	d.compress()

	if d.observer != nil {
		d.observer.ObserveAppend(n, total)
	}
}

// Absorb folds other digests into d, as if their observations had been
// appended to d. Weight, extrema and running statistics are preserved.
// The others are not modified; d may appear among them.
func (d *Digest) Absorb(others ...*Digest) error {
	type part struct {
		centroids []Centroid
		min, max  float64
		stats     runningStats
	}

	// Copy first so absorbing d into itself reads a stable view.
	parts := make([]part, 0, len(others))
	batch := 0.0
	for _, o := range others {
		if o == nil || o.store.totalWeight() == 0 {
			continue
		}
		batch += o.store.totalWeight()
		parts = append(parts, part{
			centroids: o.Centroids(),
			min:       o.min,
			max:       o.max,
			stats:     o.stats,
		})
	}
	if err := d.checkTotal(batch); err != nil {
		return err
	}

	for _, p := range parts {
		for _, c := range p.centroids {
			d.store.insert(c)
			if len(d.store.pending) >= d.bufferSize {
				d.compress()
			}
		}
		d.min = math.Min(d.min, p.min)
		d.max = math.Max(d.max, p.max)
		d.stats.merge(p.stats)
	}
	d.compress()
	return nil
}

// Merge returns a new digest holding the observations of d and other.
// Neither input is modified. The result inherits d's configuration.
func (d *Digest) Merge(other *Digest) (*Digest, error) {
	out := d.Clone()
	if err := out.Absorb(other); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns an independent copy with the same configuration.
func (d *Digest) Clone() *Digest {
	return &Digest{
		compression:  d.compression,
		scale:        d.scale,
		bufferSize:   d.bufferSize,
		store:        d.store.clone(),
		min:          d.min,
		max:          d.max,
		stats:        d.stats,
		pool:         d.pool,
		minBatch:     d.minBatch,
		observer:     d.observer,
		compressions: d.compressions,
	}
}

// Reset discards every observation, keeping the configuration.
func (d *Digest) Reset() {
	d.store.replace(d.store.centroids[:0])
	d.min = math.Inf(1)
	d.max = math.Inf(-1)
	d.stats = runningStats{}
}

// =============================================================================
// Scoped locking
// =============================================================================

// WithRead runs fn while holding the digest's read lock. Any number of
// WithRead calls may run together; they exclude WithWrite.
func (d *Digest) WithRead(fn func(*Digest) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(d)
}

// WithWrite runs fn while holding the digest's write lock.
func (d *Digest) WithWrite(fn func(*Digest) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d)
}

func validValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 1)
}
