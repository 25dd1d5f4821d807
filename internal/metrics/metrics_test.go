package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xtxerr/tdigest/internal/digest"
	samples "github.com/xtxerr/tdigest/internal/testing"
	"github.com/xtxerr/tdigest/internal/workerpool"
)

func TestCollector_ObservesDigest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "tdigest")

	pool := workerpool.New(2, 0)
	defer pool.Close()

	d, err := digest.New(100,
		digest.WithObserver(c),
		digest.WithPool(pool),
		digest.WithMinParallelBatch(10),
		digest.WithBufferSize(100))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Append(samples.NormalSamples(1, 1000), 2); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got := testutil.ToFloat64(c.appendedPoints); got != 1000 {
		t.Errorf("expected 1000 appended points, got %v", got)
	}
	if got := testutil.ToFloat64(c.appendedWeight); got != 2000 {
		t.Errorf("expected weight 2000, got %v", got)
	}
	if got := testutil.ToFloat64(c.compressions); got != float64(d.Compressions()) {
		t.Errorf("expected %d compressions, got %v", d.Compressions(), got)
	}
	if got := testutil.ToFloat64(c.centroids); got != float64(d.Count()) {
		t.Errorf("expected centroid gauge %d, got %v", d.Count(), got)
	}

	if _, err := d.Quantiles([]float64{0.5}, true); err != nil {
		t.Fatalf("Quantiles: %v", err)
	}
	if _, err := d.CDFs(make([]float64, 50), true); err != nil {
		t.Fatalf("CDFs: %v", err)
	}

	if got := testutil.ToFloat64(c.queryBatches.WithLabelValues("sequential")); got != 1 {
		t.Errorf("expected 1 sequential batch, got %v", got)
	}
	if got := testutil.ToFloat64(c.queryBatches.WithLabelValues("parallel")); got != 1 {
		t.Errorf("expected 1 parallel batch, got %v", got)
	}
}

func TestCollector_WatchPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "tdigest")

	pool := workerpool.New(3, 0)
	defer pool.Close()
	c.WatchPool(pool)

	if err := pool.Run(func() error { return nil }, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expected := `
# HELP tdigest_pool_completed_tasks_total Number of tasks finished
# TYPE tdigest_pool_completed_tasks_total counter
tdigest_pool_completed_tasks_total 2
# HELP tdigest_pool_workers Number of worker goroutines
# TYPE tdigest_pool_workers gauge
tdigest_pool_workers 3
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"tdigest_pool_completed_tasks_total", "tdigest_pool_workers")
	if err != nil {
		t.Error(err)
	}
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// Two collectors on separate registries must not collide.
	a := New(prometheus.NewRegistry(), "a")
	b := New(prometheus.NewRegistry(), "a")

	a.ObserveAppend(5, 5)
	if got := testutil.ToFloat64(b.appendedPoints); got != 0 {
		t.Errorf("expected independent collectors, got %v", got)
	}
}
