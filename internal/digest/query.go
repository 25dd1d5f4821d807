package digest

import (
	"fmt"
	"math"
	"sort"

	"github.com/xtxerr/tdigest/internal/errors"
)

// The estimated CDF is piecewise linear through a sequence of knots
// (x, cumulative weight):
//
//	(min, 0)
//	per centroid c with cumulative weight w before it:
//	    weight 1:  (c.Mean, w) then (c.Mean, w+1)   a step, the exact point mass
//	    otherwise: (c.Mean, w + c.Weight/2)         the cluster midpoint
//	(max, n)
//
// Every centroid therefore owns a low and a high knot, which coincide for
// clusters. Both queries walk the same knots, so Quantile inverts CDF.

type knot struct {
	x, w float64
}

// lowKnot is the first knot of centroid i.
func (d *Digest) lowKnot(i int) knot {
	c := d.store.centroids[i]
	before := d.store.cumulative[i]
	if c.singleton() {
		return knot{c.Mean, before}
	}
	return knot{c.Mean, before + c.Weight/2}
}

// highKnot is the last knot of centroid i.
func (d *Digest) highKnot(i int) knot {
	c := d.store.centroids[i]
	before := d.store.cumulative[i]
	if c.singleton() {
		return knot{c.Mean, before + c.Weight}
	}
	return knot{c.Mean, before + c.Weight/2}
}

// CDF returns the estimated fraction of weight at or below x.
func (d *Digest) CDF(x float64) (float64, error) {
	if d.store.total == 0 {
		return 0, errors.ErrEmptyDigest
	}
	return d.cdf(x)
}

// Quantile returns the smallest x whose estimated CDF reaches q.
func (d *Digest) Quantile(q float64) (float64, error) {
	if d.store.total == 0 {
		return 0, errors.ErrEmptyDigest
	}
	return d.quantile(q)
}

// cdf assumes a non-empty digest.
func (d *Digest) cdf(x float64) (float64, error) {
	if math.IsNaN(x) {
		return 0, fmt.Errorf("x: %w", errors.ErrInvalidValue)
	}

	n := d.store.total
	if x < d.min {
		return 0, nil
	}
	if x >= d.max {
		return 1, nil
	}

	cs := d.store.centroids
	m := len(cs)

	// First centroid strictly above x.
	i := sort.Search(m, func(j int) bool { return cs[j].Mean > x })

	left := knot{d.min, 0}
	if i > 0 {
		left = d.highKnot(i - 1)
	}
	right := knot{d.max, n}
	if i < m {
		right = d.lowKnot(i)
	}

	if x == left.x || right.x == left.x {
		return clamp01(left.w / n), nil
	}

	w := left.w + (x-left.x)/(right.x-left.x)*(right.w-left.w)
	return clamp01(w / n), nil
}

// quantile assumes a non-empty digest.
func (d *Digest) quantile(q float64) (float64, error) {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, fmt.Errorf("q = %v: %w", q, errors.ErrInvalidQuantile)
	}

	if q == 0 {
		return d.min, nil
	}
	if q == 1 {
		return d.max, nil
	}

	n := d.store.total
	t := q * n
	m := len(d.store.centroids)

	// First centroid whose high knot reaches t. High knots are
	// non-decreasing in cumulative weight, so the search is valid.
	i := sort.Search(m, func(j int) bool { return d.highKnot(j).w >= t })

	var a, b knot
	switch {
	case i == m:
		a, b = d.highKnot(m-1), knot{d.max, n}
	case d.lowKnot(i).w >= t:
		b = d.lowKnot(i)
		if i == 0 {
			a = knot{d.min, 0}
		} else {
			a = d.highKnot(i - 1)
		}
	default:
		// t falls on the step of a unit-weight centroid.
		return d.store.centroids[i].Mean, nil
	}

	// a.w < t <= b.w, hence b.w > a.w.
	x := a.x + (t-a.w)/(b.w-a.w)*(b.x-a.x)
	return math.Max(d.min, math.Min(d.max, x)), nil
}
