// Package metrics exports digest activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/workerpool"
)

var _ digest.Observer = (*Collector)(nil)

// Collector implements digest.Observer. One collector may observe any
// number of digests.
type Collector struct {
	reg       prometheus.Registerer
	namespace string

	appendedPoints  prometheus.Counter
	appendedWeight  prometheus.Counter
	compressions    prometheus.Counter
	compressionTime prometheus.Histogram
	centroids       prometheus.Gauge
	queryBatches    *prometheus.CounterVec
	queryBatchSize  prometheus.Histogram
	queryTime       *prometheus.HistogramVec
}

// New registers the digest metrics on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)

	return &Collector{
		reg:       reg,
		namespace: namespace,

		appendedPoints: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appended_points_total",
			Help:      "Number of observations appended to digests",
		}),
		appendedWeight: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appended_weight_total",
			Help:      "Total weight appended to digests",
		}),
		compressions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compressions_total",
			Help:      "Number of compression passes",
		}),
		compressionTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_duration_seconds",
			Help:      "Duration of a compression pass",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		centroids: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "centroids",
			Help:      "Centroid count after the most recent compression pass",
		}),
		queryBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_batches_total",
			Help:      "Number of batch CDF and quantile queries",
		}, []string{"mode"}),
		queryBatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_batch_size",
			Help:      "Number of arguments per batch query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		queryTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_batch_duration_seconds",
			Help:      "Duration of a batch query",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"mode"}),
	}
}

// ObserveAppend implements digest.Observer.
func (c *Collector) ObserveAppend(points int, weight float64) {
	c.appendedPoints.Add(float64(points))
	c.appendedWeight.Add(weight)
}

// ObserveCompression implements digest.Observer.
func (c *Collector) ObserveCompression(centroids int, elapsed time.Duration) {
	c.compressions.Inc()
	c.compressionTime.Observe(elapsed.Seconds())
	c.centroids.Set(float64(centroids))
}

// ObserveQueryBatch implements digest.Observer.
func (c *Collector) ObserveQueryBatch(size int, parallel bool, elapsed time.Duration) {
	mode := "sequential"
	if parallel {
		mode = "parallel"
	}
	c.queryBatches.WithLabelValues(mode).Inc()
	c.queryBatchSize.Observe(float64(size))
	c.queryTime.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// WatchPool exports the counters of a worker pool, read at scrape time.
func (c *Collector) WatchPool(p *workerpool.Pool) {
	f := promauto.With(c.reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "pool_workers",
		Help:      "Number of worker goroutines",
	}, func() float64 { return float64(p.Stats().Workers) })

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "pool_active_tasks",
		Help:      "Number of tasks currently running",
	}, func() float64 { return float64(p.Stats().Active) })

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      "pool_completed_tasks_total",
		Help:      "Number of tasks finished",
	}, func() float64 { return float64(p.Stats().Completed) })

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      "pool_failed_tasks_total",
		Help:      "Number of tasks that returned an error or panicked",
	}, func() float64 { return float64(p.Stats().Failed) })
}
