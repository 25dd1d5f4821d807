// Package testing provides test utilities for the digest packages: safe
// error collection from goroutines and reproducible sample generators.
package testing

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// GoroutineTest collects errors from goroutines.
//
// Using t.Fatal or t.FailNow in a goroutine only exits that goroutine, not
// the test. Goroutines started with Go return errors instead, and Wait
// reports them from the test goroutine.
//
// Example usage:
//
//	func TestConcurrentQueries(t *testing.T) {
//	    gt := testutil.NewGoroutineTest(t)
//	    defer gt.Wait()
//
//	    gt.Go(func() error {
//	        _, err := d.CDFs(xs, true)
//	        return err
//	    })
//	}
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
}

// NewGoroutineTest creates a new GoroutineTest helper.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	return &GoroutineTest{
		t:      t,
		errors: make(chan error, 100),
	}
}

// Go runs fn in a goroutine and records its error.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			select {
			case gt.errors <- err:
			default:
				gt.t.Logf("Error channel full, dropping error: %v", err)
			}
		}
	}()
}

// Wait waits for all goroutines and fails the test if any returned an error.
//
//	gt := testutil.NewGoroutineTest(t)
//	defer gt.Wait()
func (gt *GoroutineTest) Wait() {
	gt.wg.Wait()
	close(gt.errors)

	var errs []error
	for err := range gt.errors {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		gt.t.Errorf("Goroutine test failed with %d error(s):", len(errs))
		for i, err := range errs {
			gt.t.Errorf("  [%d] %v", i+1, err)
		}
		gt.t.FailNow()
	}
}

// RunWithTimeout runs fn and returns an error if it does not finish in time.
func RunWithTimeout(timeout time.Duration, fn func()) error {
	done := make(chan struct{})

	go func() {
		fn()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout after %v", timeout)
	}
}

// =============================================================================
// Sample Generators
// =============================================================================

// NormalSamples returns n standard-normal values from a seeded source.
func NormalSamples(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

// UniformSamples returns n values uniform on [lo, hi).
func UniformSamples(seed int64, n int, lo, hi float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + rng.Float64()*(hi-lo)
	}
	return out
}

// Permutation returns a seeded permutation of [0, n).
func Permutation(seed int64, n int) []int {
	return rand.New(rand.NewSource(seed)).Perm(n)
}

// Sorted returns a sorted copy of xs.
func Sorted(xs []float64) []float64 {
	out := slices.Clone(xs)
	slices.Sort(out)
	return out
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// AssertClose returns an error if |got-want| > tol.
func AssertClose(got, want, tol float64, msg string) error {
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		return fmt.Errorf("%s: got %v, want %v ± %v", msg, got, want, tol)
	}
	return nil
}

// AssertNonDecreasing returns an error at the first i with xs[i] < xs[i-1].
func AssertNonDecreasing(xs []float64, msg string) error {
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			return fmt.Errorf("%s: element %d (%v) < element %d (%v)", msg, i, xs[i], i-1, xs[i-1])
		}
	}
	return nil
}
