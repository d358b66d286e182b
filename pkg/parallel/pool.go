// Package parallel provides a fixed-size worker pool with a simple
// parallel-for dispatch primitive. Tasks are pure functions of their index;
// the pool never shares mutable state between workers.
package parallel

import (
	"runtime"
	"sync/atomic"
)

type job struct {
	fn   func(i int)
	next *atomic.Int64
	n    int
	done chan struct{}
}

// Pool is a fixed-size worker pool. Workers are persistent goroutines that
// pull jobs from a channel; each job is an index range walked with an atomic
// counter so that no two workers ever see the same index.
type Pool struct {
	size  int
	jobs  chan job
	slots chan chan struct{}
}

// New creates a pool with the given number of workers. A size below one
// defaults to GOMAXPROCS.
func New(size int) *Pool {
	if size < 1 {
		size = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		size:  size,
		jobs:  make(chan job, size*2),
		slots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.slots <- make(chan struct{}, 1)
	}
	for w := 0; w < size; w++ {
		go func() {
			for j := range p.jobs {
				for {
					i := int(j.next.Add(1)) - 1
					if i >= j.n {
						break
					}
					j.fn(i)
				}
				j.done <- struct{}{}
			}
		}()
	}
	return p
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	if p == nil {
		return 1
	}
	return p.size
}

// Do invokes fn(i) for every i in [0, n), spreading the calls across the
// pool's workers and blocking until all of them complete. A nil pool, a
// single-worker pool, or n <= 1 runs sequentially on the calling goroutine.
func (p *Pool) Do(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if p == nil || p.size <= 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	workers := p.size
	if workers > n {
		workers = n
	}

	var next atomic.Int64
	done := <-p.slots
	j := job{fn: fn, next: &next, n: n, done: done}
	for w := 0; w < workers; w++ {
		p.jobs <- j
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	p.slots <- done
}
