package digest

import (
	"errors"
	"math"
	"testing"

	derrors "github.com/xtxerr/tdigest/internal/errors"
)

func TestScale_Monotonic(t *testing.T) {
	for _, s := range []Scale{K2{}, K0{}} {
		t.Run(s.Name(), func(t *testing.T) {
			for _, delta := range []float64{10, 100, 1000} {
				prev := math.Inf(-1)
				for i := 0; i <= 1000; i++ {
					q := float64(i) / 1000
					k := s.K(q, delta)
					if k <= prev {
						t.Fatalf("delta=%v: k(%v)=%v not above k(prev)=%v", delta, q, k, prev)
					}
					prev = k
				}
			}
		})
	}
}

func TestScale_Symmetric(t *testing.T) {
	for _, s := range []Scale{K2{}, K0{}} {
		t.Run(s.Name(), func(t *testing.T) {
			delta := 100.0
			mid := s.K(0.5, delta)
			for _, x := range []float64{0.01, 0.1, 0.25, 0.4, 0.5} {
				upper := s.K(0.5+x, delta) - mid
				lower := mid - s.K(0.5-x, delta)
				if math.Abs(upper-lower) > 1e-9 {
					t.Errorf("x=%v: upper span %v, lower span %v", x, upper, lower)
				}
			}
		})
	}
}

func TestScale_Inverse(t *testing.T) {
	for _, s := range []Scale{K2{}, K0{}} {
		t.Run(s.Name(), func(t *testing.T) {
			for _, q := range []float64{0, 0.001, 0.1, 0.5, 0.77, 0.999, 1} {
				got := s.Q(s.K(q, 100), 100)
				if math.Abs(got-q) > 1e-9 {
					t.Errorf("Q(K(%v)) = %v", q, got)
				}
			}
		})
	}
}

func TestScale_InverseClamps(t *testing.T) {
	s := K2{}
	if got := s.Q(s.K(0.999, 100)+5, 100); got != 1 {
		t.Errorf("expected Q past the top to clamp to 1, got %v", got)
	}
	if got := s.Q(-1000, 100); got != 0 {
		t.Errorf("expected Q past the bottom to clamp to 0, got %v", got)
	}
}

func TestScale_TailsFinerThanMedian(t *testing.T) {
	s := K2{}
	tail := limitAt(s, 0, 100) - 0
	median := limitAt(s, 0.5, 100) - 0.5
	if tail >= median {
		t.Errorf("expected tail span %v below median span %v", tail, median)
	}
}

func TestScaleByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "k2", false},
		{"k2", "k2", false},
		{"k0", "k0", false},
		{"k9", "", true},
	}

	for _, tt := range tests {
		s, err := ScaleByName(tt.name)
		if tt.wantErr {
			if !errors.Is(err, derrors.ErrInvalidConfig) {
				t.Errorf("%q: expected ErrInvalidConfig, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.name, err)
		}
		if s.Name() != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.name, tt.want, s.Name())
		}
	}
}
