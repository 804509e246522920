package taskwheel

import "errors"

// Sentinel errors surfaced synchronously from the Façade (spec §7). Body
// failures and deadlines are not here — they arrive as Outcome values on
// the optional Events channel (see Outcome.Err for mapping those back to
// errors).
var (
	// ErrInvalidTaskID is returned when a Task's ID is zero (reserved) or
	// otherwise rejected by policy.
	ErrInvalidTaskID = errors.New("taskwheel: invalid task id")
	// ErrQueueFull is returned when the Event Bus is saturated.
	ErrQueueFull = errors.New("taskwheel: queue full")
	// ErrStopped is returned for any operation submitted after Stop has
	// been initiated.
	ErrStopped = errors.New("taskwheel: stopped")
)
