// Package parallel runs independent jobs on a bounded set of goroutines.
package parallel

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

type (
	// WorkerFunc queues a job. It may block until a worker is free.
	WorkerFunc func(func() error)
	// WaitFunc blocks until every queued job has run. When done is set no
	// further jobs may be queued. It reports the first job error, if any.
	WaitFunc   func(done bool) error
	CancelFunc func()
)

type Pool struct {
	wg     sync.WaitGroup
	Do     WorkerFunc
	Wait   WaitFunc
	Cancel CancelFunc

	failed   atomic.Uint64
	errOnce  sync.Once
	firstErr error
}

func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		Cancel: func() {},
	}
	pool.Do = func(f func() error) {
		pool.run(f)
	}
	pool.Wait = func(bool) error {
		return pool.Err()
	}

	if numWorkers > 1 {
		workChan := make(chan func() error, numWorkers)

		for range numWorkers {
			pool.wg.Go(func() {
				for f := range workChan {
					pool.run(f)
				}
			})
		}

		pool.Do = func(f func() error) {
			workChan <- f
		}

		pool.Wait = func(done bool) error {
			if done {
				pool.Cancel()
			}
			pool.wg.Wait()
			return pool.Err()
		}
		pool.Cancel = sync.OnceFunc(func() { close(workChan) })
	}

	return pool
}

func (p *Pool) run(f func() error) {
	if err := f(); err != nil {
		p.errOnce.Do(func() { p.firstErr = err })
		p.failed.Add(1)
	}
}

// Failed is the number of jobs that returned an error so far.
func (p *Pool) Failed() uint64 {
	return p.failed.Load()
}

// Err summarises failed jobs by wrapping the first error.
func (p *Pool) Err() error {
	n := p.failed.Load()
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%d jobs failed, first: %w", n, p.firstErr)
}
