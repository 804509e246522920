package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_OccupiesExactlyOneSlot(t *testing.T) {
	w := New()
	w.Insert(1, 10)
	_, ok := w.Lookup(1)
	require.True(t, ok)

	// Re-inserting moves it, never duplicates.
	w.Insert(1, 20)
	c, ok := w.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, Seconds, c.Level)
}

func TestTick_FiresAtExactOffset(t *testing.T) {
	w := New()
	w.Insert(42, 7)

	var due []uint64
	for i := 0; i < 7; i++ {
		due = w.Tick()
		if i < 6 {
			assert.Empty(t, due, "tick %d should not fire yet", i+1)
		}
	}
	assert.Equal(t, []uint64{42}, due)

	_, ok := w.Lookup(42)
	assert.False(t, ok, "fired task id leaves the wheel")
}

func TestTick_DueSetIsStableAscendingOrder(t *testing.T) {
	w := New()
	w.Insert(9, 5)
	w.Insert(3, 5)
	w.Insert(7, 5)

	var due []uint64
	for i := 0; i < 5; i++ {
		due = w.Tick()
	}
	assert.Equal(t, []uint64{3, 7, 9}, due)
}

func TestCascade_MinuteToSecond(t *testing.T) {
	w := New()
	// 125s ahead: lands in the minutes wheel initially (offset 2).
	w.Insert(1, 125)
	c, ok := w.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, Minutes, c.Level)

	var due []uint64
	for i := 0; i < 125; i++ {
		due = w.Tick()
	}
	assert.Equal(t, []uint64{1}, due, "cascaded task must fire at its exact original offset")
}

func TestCascade_HourToMinuteToSecond(t *testing.T) {
	w := New()
	delta := uint64(2*3600 + 30*60 + 5) // 2h30m5s ahead
	w.Insert(1, delta)
	c, ok := w.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, Hours, c.Level)

	var due []uint64
	for i := uint64(0); i < delta; i++ {
		due = w.Tick()
	}
	assert.Equal(t, []uint64{1}, due)
}

func TestInsert_BeyondHorizonClampsAtTopWheel(t *testing.T) {
	w := New()
	delta := uint64(Horizon() + 1000)
	w.Insert(1, delta)

	c, ok := w.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, Days, c.Level)
	// Clamped to the far slot: one behind the current days hand.
	assert.Equal(t, (w.hands[Days]+levelSizes[Days]-1)%levelSizes[Days], c.Index)
}

func TestRemove_LeavesWheelUnchanged(t *testing.T) {
	w := New()
	w.Insert(1, 10)
	before := w.CurrentTick()

	removed := w.Remove(1)
	assert.True(t, removed)
	_, ok := w.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, before, w.CurrentTick())

	assert.False(t, w.Remove(1), "removing twice reports absence")
}
