package digest

import "math"

// runningStats keeps the exact weighted mean and variance of every
// observation using the weighted form of Welford's algorithm.
type runningStats struct {
	weight float64
	mean   float64
	m2     float64
}

func (s *runningStats) add(x, w float64) {
	s.weight += w
	delta := x - s.mean
	s.mean += delta * (w / s.weight)
	s.m2 += w * delta * (x - s.mean)
}

// merge combines two partial aggregates (Chan et al.).
func (s *runningStats) merge(o runningStats) {
	if o.weight == 0 {
		return
	}
	if s.weight == 0 {
		*s = o
		return
	}

	n := s.weight + o.weight
	delta := o.mean - s.mean
	s.mean += delta * (o.weight / n)
	s.m2 += o.m2 + delta*delta*s.weight*o.weight/n
	s.weight = n
}

// variance is the population variance, NaN when empty.
func (s *runningStats) variance() float64 {
	if s.weight == 0 {
		return math.NaN()
	}
	return s.m2 / s.weight
}
