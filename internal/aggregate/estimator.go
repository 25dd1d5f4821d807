package aggregate

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/errors"
)

// Backend selects the percentile estimator of an aggregate.
type Backend string

const (
	BackendTDigest  Backend = "tdigest"
	BackendDDSketch Backend = "ddsketch"
)

// ParseBackend parses a backend name. Empty means tdigest.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendTDigest, "":
		return BackendTDigest, nil
	case BackendDDSketch:
		return BackendDDSketch, nil
	default:
		return "", fmt.Errorf("backend %q: %w", s, errors.ErrUnsupportedBackend)
	}
}

// Estimator answers quantile queries over a bucket's values.
type Estimator interface {
	Add(value, weight float64) error
	Quantile(q float64) (float64, error)
	Merge(other Estimator) error
}

// newEstimator returns an empty estimator for the backend.
func newEstimator(opts *Options) (Estimator, error) {
	switch opts.Backend {
	case BackendDDSketch:
		sketch, err := ddsketch.NewDefaultDDSketch(opts.Accuracy)
		if err != nil {
			return nil, errors.Wrap(errors.NewValidation("ddsketch_accuracy", err.Error()), "create sketch")
		}
		return &sketchEstimator{sketch: sketch}, nil
	default:
		d, err := digest.New(opts.Compression, opts.DigestOptions...)
		if err != nil {
			return nil, err
		}
		return &digestEstimator{digest: d}, nil
	}
}

// digestEstimator is the t-digest backend.
type digestEstimator struct {
	digest *digest.Digest
}

func (e *digestEstimator) Add(value, weight float64) error {
	return e.digest.Add(value, weight)
}

func (e *digestEstimator) Quantile(q float64) (float64, error) {
	return e.digest.Quantile(q)
}

func (e *digestEstimator) Merge(other Estimator) error {
	o, ok := other.(*digestEstimator)
	if !ok {
		return fmt.Errorf("merge %T into tdigest: %w", other, errors.ErrUnsupportedBackend)
	}
	return e.digest.Absorb(o.digest)
}

// sketchEstimator is the DDSketch backend. Its error is relative to the
// value rather than to the rank.
type sketchEstimator struct {
	sketch *ddsketch.DDSketch
}

func (e *sketchEstimator) Add(value, weight float64) error {
	return e.sketch.AddWithCount(value, weight)
}

func (e *sketchEstimator) Quantile(q float64) (float64, error) {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, fmt.Errorf("q = %v: %w", q, errors.ErrInvalidQuantile)
	}
	if e.sketch.IsEmpty() {
		return 0, errors.ErrEmptyDigest
	}
	return e.sketch.GetValueAtQuantile(q)
}

func (e *sketchEstimator) Merge(other Estimator) error {
	o, ok := other.(*sketchEstimator)
	if !ok {
		return fmt.Errorf("merge %T into ddsketch: %w", other, errors.ErrUnsupportedBackend)
	}
	return e.sketch.MergeWith(o.sketch)
}
