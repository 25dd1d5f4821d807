// Package workerpool runs batches of closures on a fixed set of goroutines.
//
// Workers are started once and live until Close, so a batch submission
// costs a channel send per task instead of a goroutine spawn. Run blocks
// until every task of its batch has finished and returns the failures of
// the batch joined into one error.
package workerpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/xtxerr/tdigest/config"
	"github.com/xtxerr/tdigest/internal/errors"
	"github.com/xtxerr/tdigest/internal/logging"
)

var log = logging.Component("workerpool")

// Task is one unit of work. A non-nil error fails the batch it belongs to.
type Task func() error

type job struct {
	fn   Task
	done func(error)
}

// Pool is a fixed-size worker pool. It is safe for concurrent use.
type Pool struct {
	mu     sync.RWMutex
	closed bool

	jobs    chan job
	wg      sync.WaitGroup
	workers int

	// Metrics
	active    atomic.Int32
	completed atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time view of pool counters.
type Stats struct {
	Workers   int
	Active    int
	Completed int64
	Failed    int64
}

// New starts a pool with the given number of workers.
// workers <= 0 means GOMAXPROCS; queueSize <= 0 uses the default.
func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = config.DefaultQueueSize
	}

	p := &Pool{
		jobs:    make(chan job, queueSize),
		workers: workers,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	log.Debug("pool started", "workers", workers, "queue_size", queueSize)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.workers
}

// Run executes tasks on the pool and waits for all of them.
// The returned error joins every task failure, in task order.
func (p *Pool) Run(tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return errors.ErrPoolClosed
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	wg.Add(len(tasks))

	for i, fn := range tasks {
		i := i
		p.jobs <- job{
			fn: fn,
			done: func(err error) {
				errs[i] = err
				wg.Done()
			},
		}
	}
	p.mu.RUnlock()

	wg.Wait()
	return errors.Join(errs...)
}

// Close stops accepting batches, lets queued tasks finish and waits for
// the workers to exit. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	log.Debug("pool stopped", "completed", p.completed.Load(), "failed", p.failed.Load())
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Active:    int(p.active.Load()),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for j := range p.jobs {
		err := p.execute(j.fn)
		if err != nil {
			p.failed.Add(1)
		}
		p.completed.Add(1)
		j.done(err)
	}
}

// execute runs fn, converting a panic into an error.
func (p *Pool) execute(fn Task) (err error) {
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)

		if r := recover(); r != nil {
			log.Error("panic in task", "panic", r)
			err = fmt.Errorf("task panicked: %v: %w", r, errors.ErrInternal)
		}
	}()

	return fn()
}
