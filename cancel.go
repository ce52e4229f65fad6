package cotask

import (
	"fmt"
	"log/slog"
)

// CancelResult records the outcome of cancelling one task in a
// cancellation subtree.
type CancelResult struct {
	Task *Task
	Ok   bool
	Err  error
}

// Cancel requests cancellation of t.
//
// If t is Running or Normal, Cancel panics: a task may not cancel itself
// synchronously; it should intercept its own cancellation by calling
// UnsetCancelled from inside a pyield instead. If t is already Dead,
// Cancel returns (false, ErrTaskDead, nil). Otherwise t's cancellation
// flag is set and it is resumed once so its next pyield observes it;
// unless orphan is true, every live child in its weak registry is
// cancelled recursively, and their results are returned flattened,
// parent-first, depth-first.
func Cancel(t *Task, orphan bool) (ok bool, err error, children []CancelResult) {
	if t == nil {
		panic(fmt.Errorf("%w: cancel called with a nil task", ErrNotATask))
	}

	switch t.Status() {
	case StatusRunning, StatusNormal:
		panic(fmt.Errorf("%w; call UnsetCancelled instead", ErrCancelledSelf))
	case StatusDead:
		return false, ErrTaskDead, nil
	}

	slog.Default().Debug("task cancelled", "task", t.Name(), "orphan", orphan)
	t.setCancelled(true)
	Resume(t)

	if !orphan {
		for _, c := range t.childrenSnapshot() {
			cok, cerr, grandchildren := Cancel(c, false)
			children = append(children, CancelResult{Task: c, Ok: cok, Err: cerr})
			children = append(children, grandchildren...)
		}
	}
	return true, nil, children
}

// UnsetCancelled clears the calling task's cancellation flag. It must be
// called from within a task.
func UnsetCancelled() {
	mustRunning("unset_cancelled").UnsetCancelled()
}

// IsCancelled reports whether the calling task has been cancelled and
// not yet cleared. It returns false when called outside any task.
func IsCancelled() bool {
	t := Running()
	if t == nil {
		return false
	}
	return t.IsCancelled()
}
