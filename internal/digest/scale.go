package digest

import (
	"fmt"
	"math"

	"github.com/xtxerr/tdigest/internal/errors"
)

// Scale maps a cumulative weight fraction q ∈ [0,1] to a size index k.
// Adjacent centroids may differ by at most one unit of k, so a centroid
// starting at q₀ may extend up to Q(K(q₀)+1).
//
// Implementations must be pure, strictly increasing and symmetric around
// q = 0.5.
type Scale interface {
	// Name identifies the scale in configuration and snapshots.
	Name() string

	// K returns the size index for fraction q at compression delta.
	K(q, delta float64) float64

	// Q is the inverse of K, clamped to [0, 1].
	Q(k, delta float64) float64
}

// K2 is the arcsine scale k(q) = δ/(2π)·asin(2q−1). Resolution is finest at
// the tails, where a centroid near q=0 or q=1 holds O(1/δ²) of the weight,
// and coarsest at the median.
type K2 struct{}

func (K2) Name() string { return "k2" }

func (K2) K(q, delta float64) float64 {
	q = clamp01(q)
	return delta / (2 * math.Pi) * math.Asin(2*q-1)
}

func (K2) Q(k, delta float64) float64 {
	// k ranges over [-δ/4, δ/4]; sin folds back past the ends.
	limit := delta / 4
	if k >= limit {
		return 1
	}
	if k <= -limit {
		return 0
	}
	return (math.Sin(2*math.Pi*k/delta) + 1) / 2
}

// K0 is the linear scale k(q) = δ/2·q: every centroid may hold the same
// share of the weight.
type K0 struct{}

func (K0) Name() string { return "k0" }

func (K0) K(q, delta float64) float64 {
	return delta / 2 * clamp01(q)
}

func (K0) Q(k, delta float64) float64 {
	return clamp01(2 * k / delta)
}

// ScaleByName resolves a configured scale name. The empty name selects K2.
func ScaleByName(name string) (Scale, error) {
	switch name {
	case "k2", "":
		return K2{}, nil
	case "k0":
		return K0{}, nil
	default:
		return nil, fmt.Errorf("scale %q: %w", name, errors.ErrInvalidConfig)
	}
}

// limitAt returns the cumulative fraction a centroid starting at q may reach.
func limitAt(s Scale, q, delta float64) float64 {
	return s.Q(s.K(q, delta)+1, delta)
}

func clamp01(q float64) float64 {
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}
