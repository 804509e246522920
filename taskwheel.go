// Package taskwheel is the public Façade (spec §4.7): a programmable
// delayed-and-recurring task manager built on a hierarchical timing wheel
// and a 7-field cron evaluator (see the cron package). It owns the wheel
// goroutine and the event-loop goroutine and exposes a small,
// non-blocking (Stop excepted) surface for adding, updating, removing and
// cancelling tasks.
package taskwheel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/taskwheel/taskwheel/executor"
	"github.com/taskwheel/taskwheel/internal/bus"
	"github.com/taskwheel/taskwheel/internal/engine"
	"github.com/taskwheel/taskwheel/internal/registry"
	"github.com/taskwheel/taskwheel/internal/wheel"
)

const defaultBusCapacity = 256

// Config configures a Scheduler. All fields are optional; the zero Config
// is a usable single-threaded scheduler with no outcome observation.
type Config struct {
	// Executor overrides how task bodies run. If nil, Workers selects
	// between the two concrete executors spec §6 names.
	Executor executor.Executor
	// Workers, when Executor is nil and Workers>0, selects the
	// work-stealing pool executor sized to Workers goroutines. Workers<=0
	// selects the single-goroutine inline executor.
	Workers int
	// BusCapacity sizes the Event Bus (spec §4.5). Defaults to 256.
	BusCapacity int
	// Events, if non-nil, receives an Outcome for every finished or
	// skipped firing (spec §6.5). Sends are non-blocking; a full channel
	// drops the outcome and logs a warning.
	Events chan<- Outcome
	// Logger is the base logger; each component attaches its own
	// component field (spec §9).
	Logger zerolog.Logger
}

// Scheduler is the running façade: two long-lived goroutines (the wheel
// thread and the event loop) plus the Event Bus connecting them to
// external callers (spec §5).
type Scheduler struct {
	bus      *bus.Bus
	reg      *registry.Registry
	wheel    *wheel.Wheel
	exec     executor.Executor
	validate *validator.Validate
	cancel   context.CancelFunc
	done     chan struct{}
	stopped  atomic.Bool
	stopOnce sync.Once
}

// New builds and starts a Scheduler: the wheel thread and the event loop
// are both running before New returns.
func New(cfg Config) (*Scheduler, error) {
	if cfg.BusCapacity <= 0 {
		cfg.BusCapacity = defaultBusCapacity
	}

	exec := cfg.Executor
	if exec == nil {
		if cfg.Workers > 0 {
			exec = executor.NewPool(cfg.Workers)
		} else {
			exec = executor.NewInline(cfg.BusCapacity)
		}
	}

	w := wheel.New()
	reg := registry.New()
	b := bus.New(cfg.BusCapacity)
	loop := engine.New(b, w, reg, exec, cfg.Events, cfg.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		bus:      b,
		reg:      reg,
		wheel:    w,
		exec:     exec,
		validate: validator.New(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go engine.RunWheel(ctx, w, b, cfg.Logger)
	go func() {
		loop.Run()
		close(s.done)
	}()

	return s, nil
}

// AddTask enqueues AddTask for t. A duplicate id replaces the existing
// task's schedule (spec §6's Façade table).
func (s *Scheduler) AddTask(t Task) error {
	return s.send(bus.AddTask, t)
}

// UpdateTask enqueues UpdateTask for t.
func (s *Scheduler) UpdateTask(t Task) error {
	return s.send(bus.UpdateTask, t)
}

func (s *Scheduler) send(kind bus.Kind, t Task) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if t.ID == 0 {
		return ErrInvalidTaskID
	}
	if t.Frequency.Expr == nil {
		return ErrInvalidTaskID
	}
	if err := s.validate.Struct(t); err != nil {
		return ErrInvalidTaskID
	}
	if err := s.bus.TrySend(bus.Event{Kind: kind, Task: t}); err != nil {
		return ErrQueueFull
	}
	return nil
}

// RemoveTask enqueues RemoveTask for id.
func (s *Scheduler) RemoveTask(id uint64) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if err := s.bus.TrySend(bus.Event{Kind: bus.RemoveTask, TaskID: id}); err != nil {
		return ErrQueueFull
	}
	return nil
}

// CancelInstance enqueues CancelInstance for (id, instanceID).
func (s *Scheduler) CancelInstance(id, instanceID uint64) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if err := s.bus.TrySend(bus.Event{Kind: bus.CancelInstance, TaskID: id, InstanceID: instanceID}); err != nil {
		return ErrQueueFull
	}
	return nil
}

// Stop cancels every live instance, stops the wheel thread, and blocks
// until the event loop has drained (spec §4.7, §5). It is idempotent:
// calling it again after the first call simply waits for the same drain.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.bus.Send(bus.Event{Kind: bus.Stop})
		s.cancel()
		<-s.done
		s.exec.Close()
	})
	return nil
}
