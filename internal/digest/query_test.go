package digest

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	derrors "github.com/xtxerr/tdigest/internal/errors"
	testutil "github.com/xtxerr/tdigest/internal/testing"
)

func TestQuery_EmptyDigest(t *testing.T) {
	d := newDigest(t, 100)

	if _, err := d.CDF(0); !errors.Is(err, derrors.ErrEmptyDigest) {
		t.Errorf("CDF: expected ErrEmptyDigest, got %v", err)
	}
	if _, err := d.Quantile(0.5); !errors.Is(err, derrors.ErrEmptyDigest) {
		t.Errorf("Quantile: expected ErrEmptyDigest, got %v", err)
	}
}

func TestQuery_SingleValue(t *testing.T) {
	d := newDigest(t, 100)
	if err := d.Add(3.5, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	tests := []struct {
		x    float64
		want float64
	}{
		{3.4, 0},
		{3.5, 1},
		{3.6, 1},
	}
	for _, tt := range tests {
		got, err := d.CDF(tt.x)
		if err != nil {
			t.Fatalf("CDF(%v): %v", tt.x, err)
		}
		if got != tt.want {
			t.Errorf("CDF(%v): expected %v, got %v", tt.x, tt.want, got)
		}
	}

	for _, q := range []float64{0, 0.25, 0.5, 1} {
		got, err := d.Quantile(q)
		if err != nil {
			t.Fatalf("Quantile(%v): %v", q, err)
		}
		if got != 3.5 {
			t.Errorf("Quantile(%v): expected 3.5, got %v", q, got)
		}
	}
}

func TestQuery_SingletonsAreExact(t *testing.T) {
	d := newDigest(t, 100)
	values := make([]float64, 10)
	for i := range values {
		values[i] = float64(i + 1)
	}
	if err := d.Append(values, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if d.Count() != 10 {
		t.Fatalf("expected 10 centroids, got %d", d.Count())
	}

	for k := 1; k <= 10; k++ {
		got, err := d.CDF(float64(k))
		if err != nil {
			t.Fatalf("CDF(%d): %v", k, err)
		}
		if math.Abs(got-float64(k)/10) > 1e-12 {
			t.Errorf("CDF(%d): expected %v, got %v", k, float64(k)/10, got)
		}

		// Between two points the CDF stays on the lower step.
		between, _ := d.CDF(float64(k) + 0.5)
		if k < 10 && math.Abs(between-float64(k)/10) > 1e-12 {
			t.Errorf("CDF(%v): expected %v, got %v", float64(k)+0.5, float64(k)/10, between)
		}
	}

	tests := []struct {
		q    float64
		want float64
	}{
		{0.05, 1},
		{0.1, 1},
		{0.15, 2},
		{0.5, 5},
		{0.55, 6},
		{0.9, 9},
		{0.95, 10},
	}
	for _, tt := range tests {
		got, err := d.Quantile(tt.q)
		if err != nil {
			t.Fatalf("Quantile(%v): %v", tt.q, err)
		}
		if got != tt.want {
			t.Errorf("Quantile(%v): expected %v, got %v", tt.q, tt.want, got)
		}
	}
}

func TestQuery_FourSingletons(t *testing.T) {
	d := newDigest(t, 100)
	if err := d.Append([]float64{4, 2, 3, 1}, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got, _ := d.CDF(2); got != 0.5 {
		t.Errorf("CDF(2): expected 0.5, got %v", got)
	}
	if got, _ := d.CDF(1.5); got != 0.25 {
		t.Errorf("CDF(1.5): expected 0.25, got %v", got)
	}
	if got, _ := d.Quantile(0.5); got != 2 {
		t.Errorf("Quantile(0.5): expected 2, got %v", got)
	}
	if got, _ := d.Quantile(0.6); got != 3 {
		t.Errorf("Quantile(0.6): expected 3, got %v", got)
	}
}

func TestQuery_AllEqual(t *testing.T) {
	d := newDigest(t, 100)
	values := make([]float64, 500)
	for i := range values {
		values[i] = -2
	}
	if err := d.Append(values, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, q := range []float64{0, 0.1, 0.5, 0.9, 1} {
		if got, _ := d.Quantile(q); got != -2 {
			t.Errorf("Quantile(%v): expected -2, got %v", q, got)
		}
	}
	if got, _ := d.CDF(-2.001); got != 0 {
		t.Errorf("CDF below: expected 0, got %v", got)
	}
	if got, _ := d.CDF(-2); got != 1 {
		t.Errorf("CDF at value: expected 1, got %v", got)
	}
}

func TestQuery_Bounds(t *testing.T) {
	d := newDigest(t, 100)
	values := testutil.NormalSamples(5, 20_000)
	if err := d.Append(values, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got, _ := d.CDF(math.Inf(-1)); got != 0 {
		t.Errorf("CDF(-Inf): expected 0, got %v", got)
	}
	if got, _ := d.CDF(math.Inf(1)); got != 1 {
		t.Errorf("CDF(+Inf): expected 1, got %v", got)
	}
	if got, _ := d.CDF(d.Min() - 1e-9); got != 0 {
		t.Errorf("CDF below min: expected 0, got %v", got)
	}
	if got, _ := d.CDF(d.Max()); got != 1 {
		t.Errorf("CDF(max): expected 1, got %v", got)
	}

	if got, _ := d.Quantile(0); got != d.Min() {
		t.Errorf("Quantile(0): expected min %v, got %v", d.Min(), got)
	}
	if got, _ := d.Quantile(1); got != d.Max() {
		t.Errorf("Quantile(1): expected max %v, got %v", d.Max(), got)
	}
}

func TestQuery_InvalidArguments(t *testing.T) {
	d := newDigest(t, 100)
	if err := d.Append([]float64{1, 2, 3}, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, q := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		if _, err := d.Quantile(q); !errors.Is(err, derrors.ErrInvalidQuantile) {
			t.Errorf("Quantile(%v): expected ErrInvalidQuantile, got %v", q, err)
		}
	}
	if _, err := d.CDF(math.NaN()); !errors.Is(err, derrors.ErrInvalidValue) {
		t.Errorf("CDF(NaN): expected ErrInvalidValue, got %v", err)
	}
}

func TestQuery_Monotonic(t *testing.T) {
	d := newDigest(t, 50)
	if err := d.Append(testutil.NormalSamples(11, 100_000), 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	xs := make([]float64, 0, 2001)
	for i := 0; i <= 2000; i++ {
		xs = append(xs, -5+float64(i)*0.005)
	}
	cdfs, err := d.CDFs(xs, false)
	if err != nil {
		t.Fatalf("CDFs: %v", err)
	}
	if err := testutil.AssertNonDecreasing(cdfs, "cdf"); err != nil {
		t.Error(err)
	}

	qs := make([]float64, 0, 1001)
	for i := 0; i <= 1000; i++ {
		qs = append(qs, float64(i)/1000)
	}
	quantiles, err := d.Quantiles(qs, false)
	if err != nil {
		t.Fatalf("Quantiles: %v", err)
	}
	if err := testutil.AssertNonDecreasing(quantiles, "quantile"); err != nil {
		t.Error(err)
	}
	for i, x := range quantiles {
		if x < d.Min() || x > d.Max() {
			t.Fatalf("Quantile(%v) = %v outside [%v, %v]", qs[i], x, d.Min(), d.Max())
		}
	}
}

func TestQuery_QuantileInvertsCDF(t *testing.T) {
	d := newDigest(t, 100)
	if err := d.Append(testutil.NormalSamples(12, 100_000), 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for i := 5; i <= 95; i++ {
		q := float64(i) / 100
		x, err := d.Quantile(q)
		if err != nil {
			t.Fatalf("Quantile(%v): %v", q, err)
		}
		got, err := d.CDF(x)
		if err != nil {
			t.Fatalf("CDF(%v): %v", x, err)
		}
		if err := testutil.AssertClose(got, q, 1e-9, "CDF(Quantile(q))"); err != nil {
			t.Error(err)
		}
	}
}

func TestQuery_NormalAccuracy(t *testing.T) {
	d := newDigest(t, 100)

	const n = 1_000_000
	const batch = 50_000
	for done := 0; done < n; done += batch {
		if err := d.Append(testutil.NormalSamples(int64(1000+done), batch), 1); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	tests := []struct {
		q   float64
		tol float64
	}{
		{0.5, 0.01},
		{0.9, 0.02},
		{0.99, 0.05},
		{0.01, 0.05},
		{0.999, 0.1},
	}
	for _, tt := range tests {
		got, err := d.Quantile(tt.q)
		if err != nil {
			t.Fatalf("Quantile(%v): %v", tt.q, err)
		}
		want := distuv.UnitNormal.Quantile(tt.q)
		if err := testutil.AssertClose(got, want, tt.tol, "quantile"); err != nil {
			t.Errorf("q=%v: %v", tt.q, err)
		}
	}

	for _, x := range []float64{-2, -1, 0, 1, 2} {
		got, err := d.CDF(x)
		if err != nil {
			t.Fatalf("CDF(%v): %v", x, err)
		}
		if err := testutil.AssertClose(got, distuv.UnitNormal.CDF(x), 0.005, "cdf"); err != nil {
			t.Errorf("x=%v: %v", x, err)
		}
	}
}

func TestQuery_UniformTails(t *testing.T) {
	d := newDigest(t, 200, WithScale(K0{}))
	if err := d.Append(testutil.UniformSamples(21, 200_000, 0, 1), 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, q := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		got, err := d.Quantile(q)
		if err != nil {
			t.Fatalf("Quantile(%v): %v", q, err)
		}
		if err := testutil.AssertClose(got, q, 0.01, "uniform quantile"); err != nil {
			t.Error(err)
		}
	}
}
