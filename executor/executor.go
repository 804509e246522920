// Package executor defines the asynchronous execution capability task
// bodies run on, and two concrete implementations: a single-threaded
// inline executor and a work-stealing pool executor.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrExecutorClosed is returned (via the Handle's completion error) when a
// Runnable is spawned after Close has been called.
var ErrExecutorClosed = errors.New("executor: closed")

// RunnableKind tags which of the three task body categories a Runnable is.
type RunnableKind int

const (
	// KindClosure is a spawn-and-forget closure returning an opaque value.
	KindClosure RunnableKind = iota
	// KindFuture is an asynchronous unit producing nil or an error.
	KindFuture
	// KindSubprocess is a shell command invoked via the host OS shell.
	KindSubprocess
)

// Runnable is the tagged union of task body categories from the façade's
// body factory contract. Exactly one of the Closure/Future/Command fields
// is populated, matching Kind.
type Runnable struct {
	Kind    RunnableKind
	Closure func(context.Context) any
	Future  func(context.Context) error
	Command string
}

// Closure builds a spawn-and-forget Runnable.
func Closure(fn func(context.Context) any) Runnable {
	return Runnable{Kind: KindClosure, Closure: fn}
}

// Future builds an asynchronous-unit Runnable.
func Future(fn func(context.Context) error) Runnable {
	return Runnable{Kind: KindFuture, Future: fn}
}

// Subprocess builds a Runnable that runs command through the host shell.
func Subprocess(command string) Runnable {
	return Runnable{Kind: KindSubprocess, Command: command}
}

// Handle is the instance handle returned by Spawn. It is the weak
// capability the Event Loop uses to observe completion and request
// cooperative cancellation; it never references the Registry back.
type Handle struct {
	ID     uuid.UUID
	done   chan struct{}
	err    error
	value  any
	cancel context.CancelFunc
}

// NewHandle allocates a Handle wired to cancel via cancel.
func NewHandle(cancel context.CancelFunc) *Handle {
	return &Handle{ID: uuid.New(), done: make(chan struct{}), cancel: cancel}
}

// Done reports completion (normal, cancelled, or failed).
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the completion error, if any. Only valid after Done() closes.
func (h *Handle) Err() error { return h.err }

// Value returns the opaque value produced by a closure Runnable. Only
// valid after Done() closes.
func (h *Handle) Value() any { return h.value }

// Cancel requests cooperative cancellation; the body observes it at its
// next suspension point. Safe to call multiple times.
func (h *Handle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Handle) finish(value any, err error) {
	h.value = value
	h.err = err
	close(h.done)
}

// Executor is the pluggable asynchronous capability task bodies run on.
type Executor interface {
	// Spawn runs r independently of the caller and returns its handle.
	Spawn(ctx context.Context, r Runnable) *Handle
	// SleepUntil suspends the caller until t, or until ctx is cancelled.
	SleepUntil(ctx context.Context, t time.Time) error
	// Close stops accepting new work and waits for spawned work to
	// return; it neither cancels nor force-terminates bodies.
	Close()
}

// SleepUntil is the shared implementation behind both concrete executors'
// SleepUntil methods: it returns once t has passed or ctx is cancelled.
func SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runRunnable(ctx context.Context, r Runnable) (any, error) {
	switch r.Kind {
	case KindClosure:
		return r.Closure(ctx), nil
	case KindFuture:
		return nil, r.Future(ctx)
	case KindSubprocess:
		return nil, runSubprocess(ctx, r.Command)
	default:
		return nil, nil
	}
}

// recoverToError converts a panic inside a task body into InstanceFailed,
// so a fault in user code can never propagate into the Event Loop.
func recoverToError(errp *error) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			*errp = &PanicError{Cause: err}
		} else {
			*errp = &PanicError{Cause: nil, Value: r}
		}
	}
}

// PanicError wraps a recovered panic from inside a task body.
type PanicError struct {
	Cause error
	Value any
}

func (e *PanicError) Error() string {
	if e.Cause != nil {
		return "task body panicked: " + e.Cause.Error()
	}
	return "task body panicked"
}

func (e *PanicError) Unwrap() error { return e.Cause }
