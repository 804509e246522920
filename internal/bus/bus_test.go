package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrySend_ReportsFullWithoutBlocking(t *testing.T) {
	b := New(1)
	require.NoError(t, b.TrySend(Event{Kind: RemoveTask, TaskID: 1}))
	assert.ErrorIs(t, b.TrySend(Event{Kind: RemoveTask, TaskID: 2}), ErrFull)
}

func TestRecv_PreservesFIFOOrder(t *testing.T) {
	b := New(4)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, b.TrySend(Event{Kind: FireTask, TaskID: i}))
	}
	for i := uint64(1); i <= 3; i++ {
		ev := <-b.Recv()
		assert.Equal(t, i, ev.TaskID)
	}
}

func TestSend_BlocksThenDelivers(t *testing.T) {
	b := New(1)
	require.NoError(t, b.TrySend(Event{Kind: FireTask, TaskID: 1}))

	done := make(chan struct{})
	go func() {
		b.Send(Event{Kind: FireTask, TaskID: 2})
		close(done)
	}()

	ev := <-b.Recv()
	assert.Equal(t, uint64(1), ev.TaskID)

	<-done
	ev = <-b.Recv()
	assert.Equal(t, uint64(2), ev.TaskID)
}
