package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwheel/taskwheel/cron"
	"github.com/taskwheel/taskwheel/internal/task"
)

func mustExpr(t *testing.T, s string) *cron.Expr {
	t.Helper()
	e, err := cron.Parse(s)
	require.NoError(t, err)
	return e
}

func TestPut_SeedsRemainingFromFrequency(t *testing.T) {
	r := New()

	once := r.Put(task.Task{ID: 1, Frequency: task.NewOnce(mustExpr(t, "@daily"))})
	assert.Equal(t, 1, once.Remaining)

	cd := r.Put(task.Task{ID: 2, Frequency: task.NewCountDown(3, mustExpr(t, "@daily"))})
	assert.Equal(t, 3, cd.Remaining)

	rep := r.Put(task.Task{ID: 3, Frequency: task.NewRepeated(mustExpr(t, "@daily"))})
	assert.Equal(t, -1, rep.Remaining)
}

func TestOpenInstance_AssignsMonotonicIDs(t *testing.T) {
	r := New()
	r.Put(task.Task{ID: 1, Frequency: task.NewRepeated(mustExpr(t, "@daily"))})

	i1, err := r.OpenInstance(1, 0, 0, func() {})
	require.NoError(t, err)
	i2, err := r.OpenInstance(1, 0, 0, func() {})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), i1.ID)
	assert.Equal(t, uint64(2), i2.ID)
	assert.Equal(t, 2, r.LiveCount(1))
}

func TestOpenInstance_NotFoundAfterRemove(t *testing.T) {
	r := New()
	r.Put(task.Task{ID: 1, Frequency: task.NewRepeated(mustExpr(t, "@daily"))})
	r.Remove(1)

	_, err := r.OpenInstance(1, 0, 0, func() {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseInstance_RemovesFromLiveSet(t *testing.T) {
	r := New()
	r.Put(task.Task{ID: 1, Frequency: task.NewRepeated(mustExpr(t, "@daily"))})
	inst, _ := r.OpenInstance(1, 0, 0, func() {})

	assert.True(t, r.CloseInstance(1, inst.ID))
	assert.Equal(t, 0, r.LiveCount(1))
	assert.False(t, r.CloseInstance(1, inst.ID), "closing twice reports absence")
}

func TestDecrementRemaining_RepeatedNeverDecrements(t *testing.T) {
	r := New()
	r.Put(task.Task{ID: 1, Frequency: task.NewRepeated(mustExpr(t, "@daily"))})
	assert.Equal(t, -1, r.DecrementRemaining(1))
	assert.Equal(t, -1, r.DecrementRemaining(1))
}

func TestDecrementRemaining_CountDownReachesZero(t *testing.T) {
	r := New()
	r.Put(task.Task{ID: 1, Frequency: task.NewCountDown(2, mustExpr(t, "@daily"))})
	assert.Equal(t, 1, r.DecrementRemaining(1))
	assert.Equal(t, 0, r.DecrementRemaining(1))
}

func TestRemove_ReturnsEntryForCleanup(t *testing.T) {
	r := New()
	r.Put(task.Task{ID: 1, Frequency: task.NewRepeated(mustExpr(t, "@daily"))})
	r.OpenInstance(1, 0, 0, func() {})

	e, ok := r.Remove(1)
	require.True(t, ok)
	assert.Len(t, e.Instances, 1)

	_, ok = r.Get(1)
	assert.False(t, ok)

	_, ok = r.Remove(1)
	assert.False(t, ok)
}
