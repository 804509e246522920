package taskwheel

import (
	"github.com/taskwheel/taskwheel/cron"
	itask "github.com/taskwheel/taskwheel/internal/task"
)

// Task is the immutable definition a caller hands to AddTask/UpdateTask
// (spec §3). Its data model lives in internal/task so the internal
// registry/engine packages can share it without importing this package.
type Task = itask.Task

// Frequency is the tagged union of firing cardinalities: Once, CountDown,
// Repeated (spec §3).
type Frequency = itask.Frequency

// BodyFactory yields a fresh executor.Runnable on every firing (spec §6).
type BodyFactory = itask.BodyFactory

// Outcome is emitted once per finished (or skipped) firing on the
// optional Config.Events channel (spec §6.5).
type Outcome = itask.Outcome

// OutcomeKind enumerates how a firing ended.
type OutcomeKind = itask.OutcomeKind

const (
	OutcomeCompleted = itask.OutcomeCompleted
	OutcomeCancelled = itask.OutcomeCancelled
	OutcomeDeadline  = itask.OutcomeDeadline
	OutcomeFailed    = itask.OutcomeFailed
	OutcomeSkipped   = itask.OutcomeSkipped
)

// ErrInstanceDeadline and InstanceFailedError realize the remaining two
// members of spec §7's error taxonomy; they surface through Outcome.Err,
// not as direct Façade return values.
var ErrInstanceDeadline = itask.ErrInstanceDeadline

type InstanceFailedError = itask.InstanceFailedError

// Once builds a Frequency that fires exactly once, at the next match
// after insertion, then self-removes.
func Once(expr *cron.Expr) Frequency { return itask.NewOnce(expr) }

// CountDown builds a Frequency that fires at most n times, then
// self-removes.
func CountDown(n int, expr *cron.Expr) Frequency { return itask.NewCountDown(n, expr) }

// Repeated builds a Frequency that fires indefinitely.
func Repeated(expr *cron.Expr) Frequency { return itask.NewRepeated(expr) }
