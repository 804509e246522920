package executor

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Pool is a work-stealing executor: spawned Runnables are handed to a
// bounded goroutine pool (github.com/sourcegraph/conc/pool) so task bodies
// can run in parallel across workers, the second of the two concrete
// executors spec.md §6 calls for.
type Pool struct {
	p       *pool.Pool
	mu      sync.Mutex
	closing bool
}

// NewPool starts a Pool executor with at most workers goroutines in
// flight at once. workers<=0 means unbounded.
func NewPool(workers int) *Pool {
	p := pool.New()
	if workers > 0 {
		p = p.WithMaxGoroutines(workers)
	}
	return &Pool{p: p}
}

// Spawn implements Executor.
func (e *Pool) Spawn(ctx context.Context, r Runnable) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := NewHandle(cancel)

	e.mu.Lock()
	closing := e.closing
	e.mu.Unlock()
	if closing {
		h.finish(nil, ErrExecutorClosed)
		return h
	}

	// Subprocess bodies always get a dedicated goroutine outside the pool's
	// accounting so a blocking command can never starve other workers or
	// stall the event loop waiting for a pool slot.
	if r.Kind == KindSubprocess {
		go func() {
			var err error
			defer func() {
				recoverToError(&err)
				h.finish(nil, err)
			}()
			err = runSubprocess(ctx, r.Command)
		}()
		return h
	}

	e.p.Go(func() {
		var err error
		var value any
		func() {
			defer recoverToError(&err)
			value, err = runRunnable(ctx, r)
		}()
		h.finish(value, err)
	})
	return h
}

// SleepUntil implements Executor.
func (e *Pool) SleepUntil(ctx context.Context, t time.Time) error {
	return SleepUntil(ctx, t)
}

// Close implements Executor: it stops accepting new work and waits for
// every body already running on the pool to return (cooperatively — it
// never kills a goroutine). Subprocess bodies run on their own goroutines
// outside the pool and are not waited for.
func (e *Pool) Close() {
	e.mu.Lock()
	e.closing = true
	e.mu.Unlock()
	e.p.Wait()
}
