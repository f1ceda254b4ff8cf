package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolRunsEveryJob(t *testing.T) {
	for _, workers := range []int{1, 4} {
		pool := Start(workers)
		var ran atomic.Int64
		for range 100 {
			pool.Do(func() error {
				ran.Add(1)
				return nil
			})
		}
		if err := pool.Wait(true); err != nil {
			t.Fatalf("workers=%d: Wait: %v", workers, err)
		}
		if ran.Load() != 100 {
			t.Errorf("workers=%d: ran %d jobs", workers, ran.Load())
		}
	}
}

func TestPoolReportsFailures(t *testing.T) {
	errBoom := errors.New("boom")
	for _, workers := range []int{1, 3} {
		pool := Start(workers)
		for i := range 10 {
			pool.Do(func() error {
				if i%5 == 0 {
					return errBoom
				}
				return nil
			})
		}
		err := pool.Wait(true)
		if !errors.Is(err, errBoom) {
			t.Errorf("workers=%d: Wait = %v, want boom", workers, err)
		}
		if pool.Failed() != 2 {
			t.Errorf("workers=%d: Failed = %d", workers, pool.Failed())
		}
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	pool := Start(2)
	pool.Cancel()
	pool.Cancel()
	if err := pool.Wait(true); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
