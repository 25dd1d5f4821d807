package digest

import (
	"cmp"
	"slices"
	"time"
)

// compress folds the buffered points into the centroid list.
//
// Existing centroids and buffered points are sorted together, stably by
// mean, then swept left to right. Each item joins the open centroid while
// the open centroid's right edge stays within the limit the scale function
// allows from its left edge; otherwise the open centroid is closed and the
// item opens the next one. Items with the same mean as the open centroid
// always join, so no two adjacent centroids share a mean.
func (d *Digest) compress() {
	s := &d.store
	if len(s.pending) == 0 {
		return
	}
	start := time.Now()

	items := make([]Centroid, 0, len(s.centroids)+len(s.pending))
	items = append(items, s.centroids...)
	items = append(items, s.pending...)

	// Stable: existing centroids stay ahead of buffered points with the
	// same mean, and buffered points keep their arrival order.
	slices.SortStableFunc(items, func(a, b Centroid) int {
		return cmp.Compare(a.Mean, b.Mean)
	})

	s.replace(d.sweep(items, s.totalWeight()))
	d.compressions++

	log.Debug("compressed",
		"centroids", s.count(),
		"weight", s.total,
		"elapsed", time.Since(start))

	if d.observer != nil {
		d.observer.ObserveCompression(s.count(), time.Since(start))
	}
}

// sweep merges sorted items in place and returns the compressed prefix.
func (d *Digest) sweep(items []Centroid, total float64) []Centroid {
	out := items[:0]

	open := items[0]
	lo := open.Mean
	closed := 0.0
	limit := total * limitAt(d.scale, 0, d.compression)

	for _, it := range items[1:] {
		proposed := open.Weight + it.Weight

		if it.Mean == open.Mean || closed+proposed <= limit {
			open.Mean += (it.Mean - open.Mean) * it.Weight / proposed
			open.Weight = proposed

			// Rounding must not push the mean outside the merged range,
			// or neighbouring means could cross.
			if open.Mean < lo {
				open.Mean = lo
			} else if open.Mean > it.Mean {
				open.Mean = it.Mean
			}
			continue
		}

		out = append(out, open)
		closed += open.Weight
		limit = total * limitAt(d.scale, closed/total, d.compression)

		open = it
		lo = it.Mean
	}

	return append(out, open)
}
