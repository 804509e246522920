// Package engine is the Event Loop (spec §4.6, worker L): the sole
// consumer of the Event Bus and the sole mutator of the Task Registry. It
// dispatches firings to the executor, enforces parallelism caps and
// deadlines, and reinserts tasks at their next firing slot.
package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwheel/taskwheel/executor"
	"github.com/taskwheel/taskwheel/internal/bus"
	"github.com/taskwheel/taskwheel/internal/registry"
	"github.com/taskwheel/taskwheel/internal/task"
	"github.com/taskwheel/taskwheel/internal/wheel"
)

// Loop is the event-loop task: single-threaded, cooperative, yielding at
// every bus receive (spec §5).
type Loop struct {
	bus    *bus.Bus
	wheel  *wheel.Wheel
	reg    *registry.Registry
	exec   executor.Executor
	events chan<- task.Outcome
	log    zerolog.Logger

	now func() time.Time // overridable for tests
}

// New builds a Loop. events may be nil if the caller does not want an
// outcome feed (spec §6.5).
func New(b *bus.Bus, w *wheel.Wheel, r *registry.Registry, ex executor.Executor, events chan<- task.Outcome, logger zerolog.Logger) *Loop {
	return &Loop{
		bus:    b,
		wheel:  w,
		reg:    r,
		exec:   ex,
		events: events,
		log:    logger.With().Str("component", "engine").Logger(),
		now:    time.Now,
	}
}

// Run drains the bus until a Stop event is processed, then returns.
func (l *Loop) Run() {
	for ev := range l.bus.Recv() {
		if l.handle(ev) {
			return
		}
	}
}

// handle processes one event; it returns true when the loop should stop.
func (l *Loop) handle(ev bus.Event) bool {
	switch ev.Kind {
	case bus.AddTask, bus.UpdateTask:
		l.upsert(ev.Task)
	case bus.RemoveTask:
		l.removeTask(ev.TaskID)
	case bus.CancelInstance:
		l.cancelInstance(ev.TaskID, ev.InstanceID)
	case bus.FireTask:
		l.fireTask(ev.TaskID)
	case bus.InstanceFinished:
		l.instanceFinished(ev.Outcome)
	case bus.Stop:
		l.stopAll()
		return true
	}
	return false
}

func (l *Loop) upsert(t task.Task) {
	l.wheel.Remove(t.ID)
	entry := l.reg.Put(t)
	l.scheduleNext(t.ID, entry.Task, l.now())
}

func (l *Loop) removeTask(id uint64) {
	l.wheel.Remove(id)
	entry, ok := l.reg.Remove(id)
	if !ok {
		return
	}
	for _, inst := range entry.Instances {
		inst.Cancel()
	}
}

func (l *Loop) cancelInstance(id, instanceID uint64) {
	if inst, ok := l.reg.Instance(id, instanceID); ok {
		inst.Cancel()
	}
}

// scheduleNext computes t's next firing instant from at and inserts it
// into the wheel, in whole-tick units relative to the wheel's own
// monotonic counter (spec §4.2: schedules are quantized to whole seconds).
func (l *Loop) scheduleNext(id uint64, t task.Task, at time.Time) {
	next := t.Frequency.Expr.NextAfter(at)
	delta := int64(math.Ceil(next.Sub(at).Seconds()))
	if delta < 0 {
		delta = 0
	}
	target := l.wheel.CurrentTick() + uint64(delta)
	coord := l.wheel.Insert(id, target)
	l.reg.SetCoord(id, coord)
}

// fireTask implements spec §4.6's FireTask handler.
func (l *Loop) fireTask(id uint64) {
	entry, ok := l.reg.Get(id)
	if !ok {
		return // removed concurrently with its own firing
	}
	l.reg.ClearCoord(id)

	cap := entry.Task.ParallelismCap
	if cap <= 0 {
		cap = 1
	}
	if l.reg.LiveCount(id) >= cap {
		l.log.Debug().Uint64("task", id).Msg("firing skipped: parallelism cap reached")
		l.emit(task.Outcome{TaskID: id, Kind: task.OutcomeSkipped, At: l.now()})
	} else {
		l.dispatch(id, entry.Task)
	}

	l.afterFiring(id, entry.Task)
}

func (l *Loop) dispatch(id uint64, t task.Task) {
	now := l.now()
	ctx, cancel := context.WithCancel(context.Background())

	var deadline int64
	if t.MaxRunningTime > 0 {
		deadline = now.Add(t.MaxRunningTime).Unix()
	}

	inst, err := l.reg.OpenInstance(id, now.Unix(), deadline, cancel)
	if err != nil {
		cancel()
		return
	}

	runnable := t.Body()
	handle := l.exec.Spawn(ctx, runnable)

	deadlineHit := make(chan struct{})
	var deadlineTimer *time.Timer
	if t.MaxRunningTime > 0 {
		deadlineTimer = time.AfterFunc(t.MaxRunningTime, func() {
			close(deadlineHit)
			handle.Cancel()
		})
	}

	go func() {
		<-handle.Done()
		if deadlineTimer != nil {
			deadlineTimer.Stop()
		}
		outcome := task.Outcome{TaskID: id, InstanceID: inst.ID, At: time.Now()}
		select {
		case <-deadlineHit:
			outcome.Kind = task.OutcomeDeadline
			outcome.Reason = handle.Err()
		default:
			switch {
			case handle.Err() == nil:
				outcome.Kind = task.OutcomeCompleted
			case errors.Is(handle.Err(), context.Canceled):
				outcome.Kind = task.OutcomeCancelled
			default:
				outcome.Kind = task.OutcomeFailed
				outcome.Reason = handle.Err()
			}
		}
		l.bus.Send(bus.Event{Kind: bus.InstanceFinished, TaskID: id, InstanceID: inst.ID, Outcome: outcome})
	}()
}

// afterFiring implements the reinsertion/exhaustion half of spec §4.6's
// FireTask handler: Repeated tasks are always rescheduled (including on a
// skip, so a busy task keeps trying every matching tick rather than
// silently falling out of the wheel — see DESIGN.md); Once/CountDown
// decrement and self-remove when exhausted.
func (l *Loop) afterFiring(id uint64, t task.Task) {
	switch t.Frequency.Kind {
	case task.Repeated:
		l.scheduleNext(id, t, l.now())
	case task.Once:
		l.reg.Remove(id)
	case task.CountDown:
		if remaining := l.reg.DecrementRemaining(id); remaining > 0 {
			l.scheduleNext(id, t, l.now())
		} else {
			l.reg.Remove(id)
		}
	}
}

func (l *Loop) instanceFinished(outcome task.Outcome) {
	l.reg.CloseInstance(outcome.TaskID, outcome.InstanceID)
	l.emit(outcome)
}

func (l *Loop) emit(outcome task.Outcome) {
	if l.events == nil {
		return
	}
	select {
	case l.events <- outcome:
	default:
		l.log.Warn().Uint64("task", outcome.TaskID).Msg("outcome channel full, dropping event")
	}
}

func (l *Loop) stopAll() {
	for _, id := range l.reg.AllIDs() {
		for _, inst := range l.reg.LiveInstances(id) {
			inst.Cancel()
		}
	}
}
