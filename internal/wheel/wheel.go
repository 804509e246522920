// Package wheel implements the hierarchical timing wheel: a fixed-size
// circular cascade of slots that advances on a fixed tick and yields the
// set of task ids due at the current tick in O(1) amortized time.
package wheel

import "sync"

// Level identifies one stage of the seconds→minutes→hours→days cascade.
type Level int

const (
	Seconds Level = iota
	Minutes
	Hours
	Days
	numLevels
)

var levelSizes = [numLevels]int{60, 60, 24, 30}
var levelUnit = [numLevels]int{1, 60, 3600, 86400}

// Coordinates locates a task id within the wheel: which level and which
// slot index inside that level.
type Coordinates struct {
	Level Level
	Index int
}

// Wheel is a hierarchical timing wheel addressed by an abstract tick
// counter rather than wall-clock time; the caller (internal/engine) is
// responsible for calling Tick once per real second.
type Wheel struct {
	mu      sync.Mutex
	hands   [numLevels]int
	slots   [numLevels][]map[uint64]struct{}
	target  map[uint64]uint64 // task id -> absolute tick at which it is due
	coord   map[uint64]Coordinates
	current uint64
}

// New builds an empty wheel with the default cascade (60/60/24/30).
func New() *Wheel {
	w := &Wheel{
		target: make(map[uint64]uint64),
		coord:  make(map[uint64]Coordinates),
	}
	for lvl := 0; lvl < int(numLevels); lvl++ {
		w.slots[lvl] = make([]map[uint64]struct{}, levelSizes[lvl])
		for i := range w.slots[lvl] {
			w.slots[lvl][i] = make(map[uint64]struct{})
		}
	}
	return w
}

// CurrentTick returns the wheel's abstract tick counter.
func (w *Wheel) CurrentTick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Horizon is the largest delta (in ticks) the top wheel can address
// without clamping (30 days of 1-second ticks).
func Horizon() int64 {
	return int64(levelUnit[Days]) * int64(levelSizes[Days])
}

// Insert places id so it becomes due at absolute tick targetTick. If id is
// already present it is moved (the invariant that a task id occupies at
// most one slot is preserved).
func (w *Wheel) Insert(id uint64, targetTick uint64) Coordinates {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeLocked(id)
	return w.placeLocked(id, targetTick)
}

// Remove evicts id from whatever slot it occupies. Reports whether id was
// present.
func (w *Wheel) Remove(id uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removeLocked(id)
}

// Lookup returns id's current slot coordinates, if scheduled.
func (w *Wheel) Lookup(id uint64) (Coordinates, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.coord[id]
	return c, ok
}

func (w *Wheel) removeLocked(id uint64) bool {
	c, ok := w.coord[id]
	if !ok {
		return false
	}
	delete(w.slots[c.Level][c.Index], id)
	delete(w.coord, id)
	delete(w.target, id)
	return true
}

func (w *Wheel) placeLocked(id uint64, targetTick uint64) Coordinates {
	delta := int64(targetTick) - int64(w.current)
	if delta < 0 {
		delta = 0
	}

	level, idx := 0, w.hands[Seconds]
	switch {
	case delta >= Horizon():
		level = int(Days)
		idx = (w.hands[Days] + levelSizes[Days] - 1) % levelSizes[Days]
	default:
		matched := false
		for lvl := int(numLevels) - 1; lvl >= 1; lvl-- {
			if delta >= int64(levelUnit[lvl]) {
				level = lvl
				offset := int(delta / int64(levelUnit[lvl]))
				if offset >= levelSizes[lvl] {
					offset = levelSizes[lvl] - 1
				}
				idx = (w.hands[lvl] + offset) % levelSizes[lvl]
				matched = true
				break
			}
		}
		if !matched {
			offset := int(delta)
			if offset >= levelSizes[Seconds] {
				offset = levelSizes[Seconds] - 1
			}
			idx = (w.hands[Seconds] + offset) % levelSizes[Seconds]
		}
	}

	w.slots[level][idx][id] = struct{}{}
	w.target[id] = targetTick
	c := Coordinates{Level: Level(level), Index: idx}
	w.coord[id] = c
	return c
}

// Tick advances the wheel by one tick, cascading any higher-level slots
// whose hand just arrived, and returns the due set for the new tick —
// the set of task ids now in the seconds wheel's current slot, in stable
// ascending task-id order (spec.md §5: dispatch order follows stable
// task-id order).
func (w *Wheel) Tick() []uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.current++
	w.hands[Seconds] = (w.hands[Seconds] + 1) % levelSizes[Seconds]
	if w.hands[Seconds] == 0 {
		w.advanceAndCascade(int(Minutes))
	}

	slot := w.slots[Seconds][w.hands[Seconds]]
	due := make([]uint64, 0, len(slot))
	for id := range slot {
		due = append(due, id)
	}
	sortUint64(due)

	w.slots[Seconds][w.hands[Seconds]] = make(map[uint64]struct{})
	for _, id := range due {
		delete(w.coord, id)
		delete(w.target, id)
	}
	return due
}

// advanceAndCascade advances level's hand by one and re-places every entry
// in its new slot at the level and slot its remaining delay now maps to
// (a finer level, a later slot of the same level, or the clamped top slot
// if its target is still beyond the horizon). It recurses into the next
// coarser level when this one wraps.
func (w *Wheel) advanceAndCascade(level int) {
	if level >= int(numLevels) {
		return
	}
	w.hands[level] = (w.hands[level] + 1) % levelSizes[level]
	w.cascadeLocked(level)
	if w.hands[level] == 0 {
		w.advanceAndCascade(level + 1)
	}
}

func (w *Wheel) cascadeLocked(level int) {
	slot := w.slots[level][w.hands[level]]
	if len(slot) == 0 {
		return
	}
	ids := make([]uint64, 0, len(slot))
	for id := range slot {
		ids = append(ids, id)
	}
	w.slots[level][w.hands[level]] = make(map[uint64]struct{})
	for _, id := range ids {
		target := w.target[id]
		delete(w.coord, id)
		w.placeLocked(id, target)
	}
}

func sortUint64(vs []uint64) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1] > vs[j]; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}
