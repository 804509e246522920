package taskwheel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwheel/taskwheel/cron"
	"github.com/taskwheel/taskwheel/executor"
)

func everySecond(t *testing.T) *cron.Expr {
	t.Helper()
	e, err := cron.Parse("* * * * * * *")
	require.NoError(t, err)
	return e
}

func TestScheduler_RepeatedFiresRepeatedly(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	defer s.Stop()

	fires := make(chan struct{}, 16)
	require.NoError(t, s.AddTask(Task{
		ID:        1,
		Frequency: Repeated(everySecond(t)),
		Body: func() executor.Runnable {
			return executor.Future(func(ctx context.Context) error {
				fires <- struct{}{}
				return nil
			})
		},
	}))

	for i := 0; i < 3; i++ {
		select {
		case <-fires:
		case <-time.After(3 * time.Second):
			t.Fatalf("firing %d never arrived", i+1)
		}
	}
}

func TestScheduler_RemoveTaskStopsFutureFirings(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	defer s.Stop()

	fires := make(chan struct{}, 16)
	require.NoError(t, s.AddTask(Task{
		ID:        1,
		Frequency: Repeated(everySecond(t)),
		Body: func() executor.Runnable {
			return executor.Future(func(ctx context.Context) error {
				fires <- struct{}{}
				return nil
			})
		},
	}))

	select {
	case <-fires:
	case <-time.After(3 * time.Second):
		t.Fatal("first firing never arrived")
	}

	require.NoError(t, s.RemoveTask(1))

	// Drain anything already in flight, then require silence.
	time.Sleep(200 * time.Millisecond)
	for {
		select {
		case <-fires:
			continue
		default:
		}
		break
	}

	select {
	case <-fires:
		t.Fatal("task fired again after removal")
	case <-time.After(2 * time.Second):
	}
}

func TestScheduler_CountDownFiresExactlyN(t *testing.T) {
	events := make(chan Outcome, 16)
	s, err := New(Config{Events: events})
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.AddTask(Task{
		ID:        1,
		Frequency: CountDown(2, everySecond(t)),
		Body: func() executor.Runnable {
			return executor.Future(func(ctx context.Context) error { return nil })
		},
	}))

	seen := 0
	deadline := time.After(4 * time.Second)
	for seen < 2 {
		select {
		case o := <-events:
			if o.Kind == OutcomeCompleted {
				seen++
			}
		case <-deadline:
			t.Fatalf("only saw %d completions before timeout", seen)
		}
	}

	select {
	case o := <-events:
		t.Fatalf("unexpected outcome after exhaustion: %+v", o)
	case <-time.After(2 * time.Second):
	}
}

func TestScheduler_AddTask_RejectsZeroID(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	defer s.Stop()

	err = s.AddTask(Task{
		ID:        0,
		Frequency: Repeated(everySecond(t)),
		Body: func() executor.Runnable {
			return executor.Future(func(ctx context.Context) error { return nil })
		},
	})
	assert.ErrorIs(t, err, ErrInvalidTaskID)
}

func TestScheduler_OperationsAfterStopAreRejected(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	err = s.AddTask(Task{
		ID:        1,
		Frequency: Repeated(everySecond(t)),
		Body: func() executor.Runnable {
			return executor.Future(func(ctx context.Context) error { return nil })
		},
	})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestScheduler_StopCancelsLiveInstances(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)

	cancelled := make(chan struct{})
	require.NoError(t, s.AddTask(Task{
		ID:        1,
		Frequency: Repeated(everySecond(t)),
		Body: func() executor.Runnable {
			return executor.Future(func(ctx context.Context) error {
				<-ctx.Done()
				close(cancelled)
				return ctx.Err()
			})
		},
	}))

	time.Sleep(1500 * time.Millisecond) // let at least one firing start
	require.NoError(t, s.Stop())

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("live instance was never cancelled by Stop")
	}
}
