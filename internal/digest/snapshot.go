package digest

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/xtxerr/tdigest/internal/errors"
)

// Snapshot is an exportable copy of a digest's state. Restoring it with
// FromSnapshot yields a digest that answers every query identically.
type Snapshot struct {
	Compression float64
	Scale       string
	TotalWeight float64

	// Min and Max are +Inf and -Inf for an empty digest.
	Min float64
	Max float64

	// Mean and SumSquares are the running statistics; SumSquares is the
	// weighted sum of squared deviations from the mean.
	Mean       float64
	SumSquares float64

	Centroids []Centroid
}

// Snapshot exports the digest state. The centroids are copied.
func (d *Digest) Snapshot() Snapshot {
	return Snapshot{
		Compression: d.compression,
		Scale:       d.scale.Name(),
		TotalWeight: d.store.total,
		Min:         d.min,
		Max:         d.max,
		Mean:        d.stats.mean,
		SumSquares:  d.stats.m2,
		Centroids:   d.Centroids(),
	}
}

// FromSnapshot rebuilds a digest. Options configure runtime behaviour
// (pool, observer, buffer size); a WithScale option overrides the
// snapshot's scale.
func FromSnapshot(s Snapshot, opts ...Option) (*Digest, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	scale, err := ScaleByName(s.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidSnapshot, err)
	}

	d, err := New(s.Compression, append([]Option{WithScale(scale)}, opts...)...)
	if err != nil {
		return nil, err
	}

	d.store.replace(append([]Centroid(nil), s.Centroids...))
	if len(s.Centroids) > 0 {
		d.min = s.Min
		d.max = s.Max
		d.stats = runningStats{weight: d.store.total, mean: s.Mean, m2: s.SumSquares}
	}
	return d, nil
}

// Validate checks the structural invariants of a snapshot.
func (s *Snapshot) Validate() error {
	if !(s.Compression > 0) || math.IsInf(s.Compression, 1) {
		return fmt.Errorf("%w: compression %v", errors.ErrInvalidSnapshot, s.Compression)
	}

	sum := 0.0
	for i, c := range s.Centroids {
		if !validValue(c.Mean) {
			return fmt.Errorf("%w: centroid %d mean %v", errors.ErrInvalidSnapshot, i, c.Mean)
		}
		if !validWeight(c.Weight) {
			return fmt.Errorf("%w: centroid %d weight %v", errors.ErrInvalidSnapshot, i, c.Weight)
		}
		if i > 0 && c.Mean <= s.Centroids[i-1].Mean {
			return fmt.Errorf("%w: centroid %d out of order", errors.ErrInvalidSnapshot, i)
		}
		sum += c.Weight
	}
	if math.IsInf(sum, 0) || math.IsInf(s.TotalWeight, 0) {
		return fmt.Errorf("%w: total weight overflows", errors.ErrInvalidSnapshot)
	}

	if math.Abs(sum-s.TotalWeight) > 1e-9*math.Max(1, math.Abs(sum)) {
		return fmt.Errorf("%w: total weight %v, centroids sum to %v", errors.ErrInvalidSnapshot, s.TotalWeight, sum)
	}

	if len(s.Centroids) == 0 {
		return nil
	}
	first, last := s.Centroids[0].Mean, s.Centroids[len(s.Centroids)-1].Mean
	if !validValue(s.Min) || !validValue(s.Max) || s.Min > first || s.Max < last {
		return fmt.Errorf("%w: range [%v, %v] does not cover centroids [%v, %v]",
			errors.ErrInvalidSnapshot, s.Min, s.Max, first, last)
	}
	return nil
}

// =============================================================================
// Binary encoding
// =============================================================================

// Snapshots are encoded in protobuf wire format so that other tooling can
// decode them with this message definition:
//
//	message Centroid { double mean = 1; double weight = 2; }
//	message Snapshot {
//	  double compression = 1;
//	  double total_weight = 2;
//	  double min = 3;
//	  double max = 4;
//	  repeated Centroid centroids = 5;
//	  double mean = 6;
//	  double sum_squares = 7;
//	  string scale = 8;
//	}
const (
	fieldCompression protowire.Number = 1
	fieldTotalWeight protowire.Number = 2
	fieldMin         protowire.Number = 3
	fieldMax         protowire.Number = 4
	fieldCentroid    protowire.Number = 5
	fieldMean        protowire.Number = 6
	fieldSumSquares  protowire.Number = 7
	fieldScale       protowire.Number = 8

	fieldCentroidMean   protowire.Number = 1
	fieldCentroidWeight protowire.Number = 2
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 64+len(s.Centroids)*20)

	b = appendDouble(b, fieldCompression, s.Compression)
	b = appendDouble(b, fieldTotalWeight, s.TotalWeight)
	b = appendDouble(b, fieldMin, s.Min)
	b = appendDouble(b, fieldMax, s.Max)

	var m []byte
	for _, c := range s.Centroids {
		m = appendDouble(m[:0], fieldCentroidMean, c.Mean)
		m = appendDouble(m, fieldCentroidWeight, c.Weight)
		b = protowire.AppendTag(b, fieldCentroid, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}

	b = appendDouble(b, fieldMean, s.Mean)
	b = appendDouble(b, fieldSumSquares, s.SumSquares)
	if s.Scale != "" {
		b = protowire.AppendTag(b, fieldScale, protowire.BytesType)
		b = protowire.AppendString(b, s.Scale)
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Unknown fields
// are skipped. The result is not validated; FromSnapshot does that.
func (s *Snapshot) UnmarshalBinary(b []byte) error {
	*s = Snapshot{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errors.ErrInvalidSnapshot, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.Fixed64Type && num != fieldCentroid && num != fieldScale:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			if n >= 0 {
				s.setDouble(num, math.Float64frombits(v))
			}
		case num == fieldCentroid && typ == protowire.BytesType:
			var msg []byte
			msg, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				c, err := decodeCentroid(msg)
				if err != nil {
					return err
				}
				s.Centroids = append(s.Centroids, c)
			}
		case num == fieldScale && typ == protowire.BytesType:
			s.Scale, n = protowire.ConsumeString(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", errors.ErrInvalidSnapshot, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func (s *Snapshot) setDouble(num protowire.Number, v float64) {
	switch num {
	case fieldCompression:
		s.Compression = v
	case fieldTotalWeight:
		s.TotalWeight = v
	case fieldMin:
		s.Min = v
	case fieldMax:
		s.Max = v
	case fieldMean:
		s.Mean = v
	case fieldSumSquares:
		s.SumSquares = v
	}
}

func decodeCentroid(b []byte) (Centroid, error) {
	var c Centroid
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return c, fmt.Errorf("%w: centroid: %v", errors.ErrInvalidSnapshot, protowire.ParseError(n))
		}
		b = b[n:]

		if typ == protowire.Fixed64Type && (num == fieldCentroidMean || num == fieldCentroidWeight) {
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			if n >= 0 {
				if num == fieldCentroidMean {
					c.Mean = math.Float64frombits(v)
				} else {
					c.Weight = math.Float64frombits(v)
				}
			}
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return c, fmt.Errorf("%w: centroid field %d: %v", errors.ErrInvalidSnapshot, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return c, nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}
