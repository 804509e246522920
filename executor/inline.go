package executor

import (
	"context"
	"sync"
	"time"
)

// Inline is a single-goroutine executor: every spawned Runnable is queued
// and drained by one worker goroutine, in submission order. It never runs
// two bodies in parallel — useful for tests and for hosts that want
// deterministic, low-overhead scheduling at the cost of concurrency.
type Inline struct {
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	closed chan struct{}
}

// NewInline starts an Inline executor with a backlog of the given depth.
func NewInline(backlog int) *Inline {
	if backlog <= 0 {
		backlog = 64
	}
	e := &Inline{
		queue:  make(chan func(), backlog),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *Inline) loop() {
	defer close(e.done)
	for {
		select {
		case fn, ok := <-e.queue:
			if !ok {
				return
			}
			fn()
		case <-e.closed:
			// Drain anything already queued before exiting.
			for {
				select {
				case fn := <-e.queue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Spawn implements Executor.
func (e *Inline) Spawn(ctx context.Context, r Runnable) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := NewHandle(cancel)

	task := func() {
		var err error
		var value any
		func() {
			defer recoverToError(&err)
			value, err = runRunnable(ctx, r)
		}()
		h.finish(value, err)
	}

	select {
	case <-e.closed:
		h.finish(nil, ErrExecutorClosed)
		return h
	default:
	}

	select {
	case e.queue <- task:
	case <-e.closed:
		h.finish(nil, ErrExecutorClosed)
	}
	return h
}

// SleepUntil implements Executor.
func (e *Inline) SleepUntil(ctx context.Context, t time.Time) error {
	return SleepUntil(ctx, t)
}

// Close implements Executor.
func (e *Inline) Close() {
	e.once.Do(func() { close(e.closed) })
	<-e.done
}
