package cotask

import "errors"

// Sentinel errors surfaced by the scheduler and future machinery. They
// are wrapped with additional context via %w and are meant to be matched
// with errors.Is.
var (
	// ErrNotATask is raised when a scheduler primitive (Yield, PYield,
	// Sleep, ...) is called from outside any task.
	ErrNotATask = errors.New("must be called from within a task")

	// ErrNotSuspended is raised when Resume is called on a task that is
	// not currently suspended.
	ErrNotSuspended = errors.New("tried to resume a task that is not suspended")

	// ErrAlreadyCancelled is raised when PYield is called again inside a
	// task whose cancellation has already been observed once and not
	// cleared via UnsetCancelled.
	ErrAlreadyCancelled = errors.New("pyield called inside an already-cancelled task")

	// ErrCancelledSelf is raised when Cancel is called on the task that
	// is currently running or resuming a child.
	ErrCancelledSelf = errors.New("a task may not cancel itself")

	// ErrTaskDead is returned by Cancel when the target task has already
	// finished.
	ErrTaskDead = errors.New("task is dead")

	// ErrCancelled is the error value a cancelled suspension point
	// reports or raises.
	ErrCancelled = errors.New("cancelled")

	// ErrFutureAlreadyDone is raised when Complete or Error is called on
	// a future that has already been completed.
	ErrFutureAlreadyDone = errors.New("future is already done")

	// ErrWrongScheduler guards against a task resuming with the global
	// running slot pointing somewhere else; it should never fire unless
	// something bypassed Resume.
	ErrWrongScheduler = errors.New("task was resumed incorrectly from outside the scheduler")
)
