package digest

import (
	"fmt"
	"sync"
	"time"

	"github.com/xtxerr/tdigest/config"
	"github.com/xtxerr/tdigest/internal/errors"
	"github.com/xtxerr/tdigest/internal/workerpool"
)

var (
	sharedPoolOnce sync.Once
	sharedPool     *workerpool.Pool
)

// defaultPool is created on first use and lives for the process.
func defaultPool() *workerpool.Pool {
	sharedPoolOnce.Do(func() {
		sharedPool = workerpool.New(config.DefaultWorkers, config.DefaultQueueSize)
	})
	return sharedPool
}

// CDFs evaluates CDF for every x; out[i] corresponds to xs[i].
//
// With multithreaded set, xs is split into contiguous chunks evaluated on
// the worker pool. The digest must not be mutated while the call runs.
func (d *Digest) CDFs(xs []float64, multithreaded bool) ([]float64, error) {
	return d.evaluate(xs, multithreaded, d.cdf)
}

// Quantiles evaluates Quantile for every q; out[i] corresponds to qs[i].
func (d *Digest) Quantiles(qs []float64, multithreaded bool) ([]float64, error) {
	return d.evaluate(qs, multithreaded, d.quantile)
}

func (d *Digest) evaluate(in []float64, multithreaded bool, fn func(float64) (float64, error)) ([]float64, error) {
	if d.store.total == 0 {
		return nil, errors.ErrEmptyDigest
	}
	start := time.Now()
	out := make([]float64, len(in))

	pool := d.pool
	parallel := multithreaded && len(in) >= d.minBatch
	if parallel && pool == nil {
		pool = defaultPool()
	}
	if parallel && pool.Size() < 2 {
		parallel = false
	}

	var err error
	if parallel {
		err = pool.Run(chunkTasks(in, out, pool.Size(), fn)...)
	} else {
		err = evalRange(in, out, 0, fn)
	}
	if err != nil {
		return nil, err
	}

	if d.observer != nil {
		d.observer.ObserveQueryBatch(len(in), parallel, time.Since(start))
	}
	return out, nil
}

// chunkTasks splits in into at most parts contiguous ranges. Each task
// writes only its own range of out.
func chunkTasks(in, out []float64, parts int, fn func(float64) (float64, error)) []workerpool.Task {
	size := (len(in) + parts - 1) / parts
	tasks := make([]workerpool.Task, 0, parts)

	for lo := 0; lo < len(in); lo += size {
		lo := lo
		hi := min(lo+size, len(in))
		tasks = append(tasks, func() error {
			return evalRange(in[lo:hi], out[lo:hi], lo, fn)
		})
	}
	return tasks
}

func evalRange(in, out []float64, offset int, fn func(float64) (float64, error)) error {
	for i, v := range in {
		r, err := fn(v)
		if err != nil {
			return fmt.Errorf("element %d: %w", offset+i, err)
		}
		out[i] = r
	}
	return nil
}
