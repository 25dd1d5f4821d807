// Package digest implements a merging t-digest: a streaming, memory-bounded
// summary of a weighted distribution that answers approximate CDF and
// quantile queries.
//
// Observations are buffered and periodically folded into an ordered list of
// centroids. A scale function bounds how much weight a centroid may hold at
// each position of the distribution, keeping centroids small near the tails
// and large near the median. The number of centroids stays O(δ), where δ is
// the compression chosen at construction.
//
// # Concurrency
//
// A Digest assumes single-writer / multi-reader discipline enforced by the
// caller: Append, Absorb and other mutating calls must not overlap with any
// other call, while CDF, Quantile and the batch variants may run
// concurrently with each other. Callers that cannot guarantee this can wrap
// calls in WithRead and WithWrite, which take the digest's read/write lock.
//
// # Ordering
//
// Within a compression pass centroids are sorted stably by mean. Existing
// centroids precede buffered points, and buffered points keep their arrival
// order, so equal means are always folded in the same order.
package digest
