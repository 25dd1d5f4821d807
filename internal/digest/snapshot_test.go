package digest

import (
	"errors"
	"math"
	"slices"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	derrors "github.com/xtxerr/tdigest/internal/errors"
	testutil "github.com/xtxerr/tdigest/internal/testing"
)

func sampleDigest(t *testing.T) *Digest {
	t.Helper()
	d := newDigest(t, 80, WithScale(K0{}))
	if err := d.Append(testutil.NormalSamples(50, 25_000), 1.5); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return d
}

func assertSameAnswers(t *testing.T, want, got *Digest) {
	t.Helper()

	xs := testutil.UniformSamples(51, 500, -4, 4)
	wantCDF, err := want.CDFs(xs, false)
	if err != nil {
		t.Fatalf("CDFs: %v", err)
	}
	gotCDF, err := got.CDFs(xs, false)
	if err != nil {
		t.Fatalf("CDFs restored: %v", err)
	}
	if !slices.Equal(wantCDF, gotCDF) {
		t.Error("restored digest answers CDF differently")
	}

	qs := testutil.UniformSamples(52, 500, 0, 1)
	wantQ, _ := want.Quantiles(qs, false)
	gotQ, _ := got.Quantiles(qs, false)
	if !slices.Equal(wantQ, gotQ) {
		t.Error("restored digest answers Quantile differently")
	}

	if want.Mean() != got.Mean() || want.Variance() != got.Variance() {
		t.Errorf("stats differ: mean %v/%v variance %v/%v", want.Mean(), got.Mean(), want.Variance(), got.Variance())
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	d := sampleDigest(t)

	s := d.Snapshot()
	if s.Scale != "k0" || s.Compression != 80 {
		t.Errorf("unexpected snapshot header: scale=%s compression=%v", s.Scale, s.Compression)
	}

	r, err := FromSnapshot(s)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if r.Scale().Name() != "k0" {
		t.Errorf("expected k0 scale, got %s", r.Scale().Name())
	}
	if !slices.Equal(r.Centroids(), d.Centroids()) {
		t.Error("centroids differ after restore")
	}
	assertSameAnswers(t, d, r)
}

func TestSnapshot_IsACopy(t *testing.T) {
	d := sampleDigest(t)
	s := d.Snapshot()
	s.Centroids[0].Weight = 1e9

	if d.Centroids()[0].Weight == 1e9 {
		t.Error("snapshot aliases digest centroids")
	}
}

func TestSnapshot_BinaryRoundTrip(t *testing.T) {
	d := sampleDigest(t)

	b, err := d.Snapshot().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var s Snapshot
	if err := s.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	r, err := FromSnapshot(s)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	if !slices.Equal(r.Centroids(), d.Centroids()) {
		t.Error("centroids differ after binary round trip")
	}
	if r.Min() != d.Min() || r.Max() != d.Max() {
		t.Errorf("range differs: [%v, %v] vs [%v, %v]", r.Min(), r.Max(), d.Min(), d.Max())
	}
	assertSameAnswers(t, d, r)
}

func TestSnapshot_Empty(t *testing.T) {
	d := newDigest(t, 100)

	b, err := d.Snapshot().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var s Snapshot
	if err := s.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}

	r, err := FromSnapshot(s)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if r.TotalWeight() != 0 {
		t.Errorf("expected empty digest, got weight %v", r.TotalWeight())
	}
	if _, err := r.CDF(0); !errors.Is(err, derrors.ErrEmptyDigest) {
		t.Errorf("expected ErrEmptyDigest, got %v", err)
	}

	// The restored digest keeps accepting data.
	if err := r.Add(4, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r.Min() != 4 || r.Max() != 4 {
		t.Errorf("expected range [4, 4], got [%v, %v]", r.Min(), r.Max())
	}
}

func TestSnapshot_RestoredDigestKeepsGrowing(t *testing.T) {
	d := sampleDigest(t)
	r, err := FromSnapshot(d.Snapshot())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	more := testutil.NormalSamples(53, 10_000)
	if err := d.Append(more, 1.5); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := r.Append(more, 1.5); err != nil {
		t.Fatalf("Append restored: %v", err)
	}

	if !slices.Equal(r.Centroids(), d.Centroids()) {
		t.Error("restored digest diverged after further appends")
	}
}

func TestSnapshot_Validate(t *testing.T) {
	valid := func() Snapshot {
		return Snapshot{
			Compression: 100,
			Scale:       "k2",
			TotalWeight: 6,
			Min:         0,
			Max:         10,
			Centroids:   []Centroid{{1, 1}, {5, 3}, {9, 2}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"zero compression", func(s *Snapshot) { s.Compression = 0 }},
		{"nan compression", func(s *Snapshot) { s.Compression = math.NaN() }},
		{"unsorted", func(s *Snapshot) { s.Centroids[1].Mean = 0.5 }},
		{"duplicate mean", func(s *Snapshot) { s.Centroids[1].Mean = 1 }},
		{"zero weight", func(s *Snapshot) { s.Centroids[2].Weight = 0; s.TotalWeight = 4 }},
		{"nan mean", func(s *Snapshot) { s.Centroids[0].Mean = math.NaN() }},
		{"weight mismatch", func(s *Snapshot) { s.TotalWeight = 7 }},
		{"min above first", func(s *Snapshot) { s.Min = 2 }},
		{"max below last", func(s *Snapshot) { s.Max = 8 }},
		{"infinite max", func(s *Snapshot) { s.Max = math.Inf(1) }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)

			if err := s.Validate(); !errors.Is(err, derrors.ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
			if _, err := FromSnapshot(s); !errors.Is(err, derrors.ErrInvalidSnapshot) {
				t.Errorf("FromSnapshot: expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestSnapshot_UnknownScale(t *testing.T) {
	s := Snapshot{Compression: 100, Scale: "k7"}
	if _, err := FromSnapshot(s); !errors.Is(err, derrors.ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot, got %v", err)
	}
}

func TestSnapshot_SkipsUnknownFields(t *testing.T) {
	d := sampleDigest(t)
	b, err := d.Snapshot().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	// Fields a newer writer might add.
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 12345)
	b = protowire.AppendTag(b, 100, protowire.BytesType)
	b = protowire.AppendString(b, "annotations")

	var s Snapshot
	if err := s.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	r, err := FromSnapshot(s)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if !slices.Equal(r.Centroids(), d.Centroids()) {
		t.Error("centroids differ")
	}
}

func TestSnapshot_Truncated(t *testing.T) {
	d := sampleDigest(t)
	b, err := d.Snapshot().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	for _, cut := range []int{1, 5, len(b) / 2, len(b) - 3} {
		var s Snapshot
		err := s.UnmarshalBinary(b[:cut])
		if err == nil {
			err = s.Validate()
		}
		if !errors.Is(err, derrors.ErrInvalidSnapshot) {
			t.Errorf("cut=%d: expected ErrInvalidSnapshot, got %v", cut, err)
		}
	}
}
