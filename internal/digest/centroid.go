package digest

// Centroid summarizes a cluster of observations by their weighted mean.
type Centroid struct {
	Mean   float64
	Weight float64
}

// singleton reports whether c stands for exactly one unit-weight observation.
// Queries treat such centroids as point masses instead of spread clusters.
func (c Centroid) singleton() bool {
	return c.Weight == 1
}

// centroidStore holds the compressed centroids and the points buffered for
// the next compression pass.
//
// At rest (after every public Digest call) pending is empty and centroids
// is sorted by mean with strictly positive weights.
type centroidStore struct {
	centroids []Centroid

	// cumulative[i] is the weight of centroids[:i]; len(centroids)+1 entries.
	cumulative []float64
	total      float64

	pending       []Centroid
	pendingWeight float64
}

// insert appends points in arrival order, without sorting.
func (s *centroidStore) insert(points ...Centroid) {
	for _, p := range points {
		s.pending = append(s.pending, p)
		s.pendingWeight += p.Weight
	}
}

// ordered returns the compressed centroids. The slice is borrowed: callers
// must not modify it.
func (s *centroidStore) ordered() []Centroid {
	return s.centroids
}

func (s *centroidStore) totalWeight() float64 {
	return s.total + s.pendingWeight
}

func (s *centroidStore) count() int {
	return len(s.centroids)
}

// replace installs a compressed centroid list and clears the buffer.
func (s *centroidStore) replace(cs []Centroid) {
	s.centroids = cs

	if cap(s.cumulative) < len(cs)+1 {
		s.cumulative = make([]float64, len(cs)+1)
	}
	s.cumulative = s.cumulative[:len(cs)+1]

	sum := 0.0
	s.cumulative[0] = 0
	for i, c := range cs {
		sum += c.Weight
		s.cumulative[i+1] = sum
	}
	s.total = sum

	s.pending = s.pending[:0]
	s.pendingWeight = 0
}

// clone returns a deep copy. Only valid at rest.
func (s *centroidStore) clone() centroidStore {
	var out centroidStore
	out.replace(append([]Centroid(nil), s.centroids...))
	return out
}
