package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline_RunsClosureAndReturnsValue(t *testing.T) {
	e := NewInline(4)
	defer e.Close()

	h := e.Spawn(context.Background(), Closure(func(ctx context.Context) any { return 42 }))
	<-h.Done()
	require.NoError(t, h.Err())
	assert.Equal(t, 42, h.Value())
}

func TestInline_FutureFailure(t *testing.T) {
	e := NewInline(4)
	defer e.Close()

	wantErr := errors.New("boom")
	h := e.Spawn(context.Background(), Future(func(ctx context.Context) error { return wantErr }))
	<-h.Done()
	assert.ErrorIs(t, h.Err(), wantErr)
}

func TestInline_RunsOneAtATime(t *testing.T) {
	e := NewInline(4)
	defer e.Close()

	var running, maxConcurrent int
	lock := make(chan struct{}, 1)
	lock <- struct{}{}

	bump := func(delta int) {
		<-lock
		running += delta
		if running > maxConcurrent {
			maxConcurrent = running
		}
		lock <- struct{}{}
	}

	var handles []*Handle
	for i := 0; i < 5; i++ {
		h := e.Spawn(context.Background(), Future(func(ctx context.Context) error {
			bump(1)
			time.Sleep(5 * time.Millisecond)
			bump(-1)
			return nil
		}))
		handles = append(handles, h)
	}
	for _, h := range handles {
		<-h.Done()
	}
	assert.Equal(t, 1, maxConcurrent)
}

func TestInline_PanicBecomesInstanceFailed(t *testing.T) {
	e := NewInline(4)
	defer e.Close()

	h := e.Spawn(context.Background(), Future(func(ctx context.Context) error {
		panic("kaboom")
	}))
	<-h.Done()
	require.Error(t, h.Err())
	var pe *PanicError
	assert.ErrorAs(t, h.Err(), &pe)
}

func TestInline_CancelIsCooperative(t *testing.T) {
	e := NewInline(4)
	defer e.Close()

	observed := make(chan bool, 1)
	h := e.Spawn(context.Background(), Future(func(ctx context.Context) error {
		<-ctx.Done()
		observed <- true
		return ctx.Err()
	}))
	h.Cancel()
	<-h.Done()
	select {
	case v := <-observed:
		assert.True(t, v)
	default:
		t.Fatal("body never observed cancellation")
	}
}

func TestPool_RunsInParallel(t *testing.T) {
	e := NewPool(4)
	defer e.Close()

	start := make(chan struct{})
	var handles []*Handle
	for i := 0; i < 4; i++ {
		h := e.Spawn(context.Background(), Future(func(ctx context.Context) error {
			<-start
			return nil
		}))
		handles = append(handles, h)
	}
	close(start)
	for _, h := range handles {
		<-h.Done()
		require.NoError(t, h.Err())
	}
}

func TestSleepUntil_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepUntil(ctx, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepUntil_PastInstantReturnsImmediately(t *testing.T) {
	err := SleepUntil(context.Background(), time.Now().Add(-time.Second))
	assert.NoError(t, err)
}
