// Package registry is the Task Registry (spec §4.4): the authoritative
// mapping from task id to its immutable definition and mutable runtime
// state. Every mutation happens on the event-loop goroutine; the wheel
// goroutine never touches the Registry, only internal/wheel's slot array.
package registry

import (
	"errors"
	"sync"

	"github.com/taskwheel/taskwheel/internal/task"
	"github.com/taskwheel/taskwheel/internal/wheel"
)

// ErrNotFound is returned when an operation names an id absent from the
// registry.
var ErrNotFound = errors.New("registry: task not found")

// Instance is one in-flight execution of a task body (spec §3).
type Instance struct {
	ID        uint64
	Cancel    func()
	StartedAt int64 // unix seconds
	Deadline  int64 // unix seconds, 0 = unbounded
}

// Entry is the Registry's record for one task: its immutable definition
// plus the mutable runtime state spec §3 describes.
type Entry struct {
	Task       task.Task
	Remaining  int // -1 = unbounded (Repeated)
	Instances  map[uint64]*Instance
	NextID     uint64 // next instance id to assign, monotonic within the task
	Coord      wheel.Coordinates
	HasCoord   bool
}

// Registry holds every live task's Entry behind a single mutex.
type Registry struct {
	mu      sync.Mutex
	entries map[uint64]*Entry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[uint64]*Entry)}
}

// Put installs (or replaces) the entry for t.ID, with the given remaining
// repeat count copied from the task's Frequency. Replacing an existing id
// (spec §4.4's "remove then reinsert" rule for AddTask/UpdateTask on a
// duplicate id) carries its still-live instances forward instead of
// orphaning them — only the schedule and repeat budget reset.
func (r *Registry) Put(t task.Task) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := -1
	switch t.Frequency.Kind {
	case task.Once:
		remaining = 1
	case task.CountDown:
		remaining = t.Frequency.Count
	}

	e := &Entry{
		Task:      t,
		Remaining: remaining,
		Instances: make(map[uint64]*Instance),
	}
	if old, ok := r.entries[t.ID]; ok {
		e.Instances = old.Instances
		e.NextID = old.NextID
	}
	r.entries[t.ID] = e
	return e
}

// Get returns the entry for id.
func (r *Registry) Get(id uint64) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Remove deletes id's entry and returns it (so the caller can cancel any
// live instances it held). Reports whether id was present.
func (r *Registry) Remove(id uint64) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return e, ok
}

// SetCoord records where in the wheel id currently lives.
func (r *Registry) SetCoord(id uint64, c wheel.Coordinates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Coord = c
		e.HasCoord = true
	}
}

// ClearCoord marks id as having no wheel slot (e.g. while its body is
// being dispatched, between firing and reinsertion).
func (r *Registry) ClearCoord(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.HasCoord = false
	}
}

// LiveCount reports how many instances of id are currently running.
func (r *Registry) LiveCount(id uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return 0
	}
	return len(e.Instances)
}

// OpenInstance records a new in-flight instance for id, assigning it the
// next monotonic instance id for that task. Returns ErrNotFound if id was
// concurrently removed.
func (r *Registry) OpenInstance(id uint64, startedAt int64, deadline int64, cancel func()) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.NextID++
	inst := &Instance{ID: e.NextID, Cancel: cancel, StartedAt: startedAt, Deadline: deadline}
	e.Instances[inst.ID] = inst
	return inst, nil
}

// CloseInstance removes instanceID from id's live set. Reports whether it
// was present.
func (r *Registry) CloseInstance(id, instanceID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	if _, ok := e.Instances[instanceID]; !ok {
		return false
	}
	delete(e.Instances, instanceID)
	return true
}

// Instance looks up a single live instance, for CancelInstance.
func (r *Registry) Instance(id, instanceID uint64) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	inst, ok := e.Instances[instanceID]
	return inst, ok
}

// LiveInstances returns every instance of id, for Stop to cancel them
// all.
func (r *Registry) LiveInstances(id uint64) []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	out := make([]*Instance, 0, len(e.Instances))
	for _, inst := range e.Instances {
		out = append(out, inst)
	}
	return out
}

// AllIDs snapshots every task id currently registered, for Stop.
func (r *Registry) AllIDs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// DecrementRemaining decrements id's remaining-repeats counter (CountDown
// only) and reports the value after decrementing. Repeated tasks (-1)
// are left untouched and always report a negative number.
func (r *Registry) DecrementRemaining(id uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Remaining < 0 {
		return -1
	}
	e.Remaining--
	return e.Remaining
}
