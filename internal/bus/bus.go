// Package bus is the Event Bus (spec §4.5): a bounded FIFO channel of
// control and dispatch events flowing from the wheel goroutine and
// external callers to the single-consumer event loop.
package bus

import (
	"errors"

	"github.com/taskwheel/taskwheel/internal/task"
)

// ErrFull is returned by TrySend, the non-blocking send, when the bus is
// saturated.
var ErrFull = errors.New("bus: queue full")

// Kind tags the seven event variants spec §4.5 names.
type Kind int

const (
	AddTask Kind = iota
	UpdateTask
	RemoveTask
	CancelInstance
	FireTask
	InstanceFinished
	Stop
)

func (k Kind) String() string {
	switch k {
	case AddTask:
		return "AddTask"
	case UpdateTask:
		return "UpdateTask"
	case RemoveTask:
		return "RemoveTask"
	case CancelInstance:
		return "CancelInstance"
	case FireTask:
		return "FireTask"
	case InstanceFinished:
		return "InstanceFinished"
	case Stop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// Event is the single envelope type flowing through the bus; only the
// fields relevant to Kind are populated.
type Event struct {
	Kind       Kind
	Task       task.Task // AddTask, UpdateTask
	TaskID     uint64    // RemoveTask, CancelInstance, FireTask, InstanceFinished
	InstanceID uint64    // CancelInstance, InstanceFinished
	Outcome    task.Outcome
}

// Bus is a bounded FIFO of Events. The wheel goroutine only ever sends
// FireTask; InstanceFinished comes from the event loop's per-instance
// completion goroutines; everything else arrives from the Façade. There is
// exactly one consumer: the event loop.
type Bus struct {
	ch chan Event
}

// New builds a Bus with the given capacity (spec §4.5: large enough that
// a tick's due-set fan-out never blocks the wheel — callers should size it
// to at least twice the expected max fan-out per tick).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bus{ch: make(chan Event, capacity)}
}

// TrySend enqueues ev without blocking. Returns ErrFull if the bus has no
// room, matching the Façade's Err(QueueFull) contract (spec §4.7).
func (b *Bus) TrySend(ev Event) error {
	select {
	case b.ch <- ev:
		return nil
	default:
		return ErrFull
	}
}

// Send enqueues ev, blocking until there is room. The wheel goroutine uses
// this for FireTask so a tick's due set is delayed, never dropped, under
// back-pressure (spec §4.5).
func (b *Bus) Send(ev Event) {
	b.ch <- ev
}

// Recv exposes the receive side for the event loop's consumer goroutine.
func (b *Bus) Recv() <-chan Event {
	return b.ch
}
