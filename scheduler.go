package cotask

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// runningSlot is the process-wide "currently running task" register (C3
// in the design notes): at most one task is ever Running at a time, and
// every Resume call swaps this slot for its duration. Guarding it with a
// mutex keeps plain reads/writes race-free; actual mutual exclusion of
// task execution falls out of the channel handshake in Resume itself,
// not from holding this lock across it — see DESIGN.md.
var runningSlot = struct {
	mu  sync.Mutex
	cur *Task
}{}

// Running returns the task currently being driven, or nil if called from
// outside any task (the host's top-level code).
func Running() *Task {
	runningSlot.mu.Lock()
	defer runningSlot.mu.Unlock()
	return runningSlot.cur
}

// InMain reports whether the caller is outside of any task.
func InMain() bool {
	return Running() == nil
}

func swapRunning(t *Task) *Task {
	runningSlot.mu.Lock()
	defer runningSlot.mu.Unlock()
	prev := runningSlot.cur
	runningSlot.cur = t
	return prev
}

func restoreRunning(prev *Task) {
	runningSlot.mu.Lock()
	defer runningSlot.mu.Unlock()
	runningSlot.cur = prev
}

func mustRunning(op string) *Task {
	t := Running()
	if t == nil {
		panic(fmt.Errorf("%w: %s called outside a task", ErrNotATask, op))
	}
	return t
}

// Resume resumes a suspended task with args, driving it until it next
// suspends or finishes, and returns whatever it yielded or completed
// with. It panics if t is not currently suspended.
func Resume(t *Task, args ...any) (Values, error) {
	if t == nil {
		panic(fmt.Errorf("%w: resume called with a nil task", ErrNotATask))
	}
	if s := t.Status(); s != StatusSuspended {
		panic(fmt.Errorf("%w but %s", ErrNotSuspended, s))
	}

	prev := swapRunning(t)
	if prev != nil {
		prev.setStatus(StatusNormal)
	}

	slog.Default().Debug("task resumed", "task", t.Name())
	t.resumeCh <- Values(args)
	msg := <-t.yieldCh

	restoreRunning(prev)
	if prev != nil {
		prev.setStatus(StatusRunning)
	}

	if msg.done {
		if msg.err != nil {
			t.future.finish(nil, msg.err)
		} else {
			t.future.finish(msg.values, nil)
		}
	}
	return msg.values, msg.err
}

// ResumeWhenSuspended resumes t once it reaches the suspended state,
// spinning briefly if it is observed mid-transition into suspension. It
// is a no-op if t has already finished.
//
// This exists because a suspending task registers its own wakeup (with a
// Future, a Queue, a Semaphore...) a moment before it actually calls
// PYield; a concurrent completion on another goroutine can therefore
// legitimately observe the task as still Running. The window is a few
// instructions wide by construction (nothing else runs on the task's own
// goroutine between registering interest and suspending), so a bounded
// spin — rather than losing the wakeup — is the correct fix.
func ResumeWhenSuspended(t *Task, args ...any) {
	for {
		switch t.Status() {
		case StatusSuspended:
			Resume(t, args...)
			return
		case StatusDead:
			return
		default:
			runtime.Gosched()
		}
	}
}

// PYield is the protected suspension point: it never raises on
// cancellation, instead reporting it as (false, nil, ErrCancelled). It
// must be called from within a task.
func PYield(values ...any) (bool, Values, error) {
	t := mustRunning("pyield")
	return t.pyield(Values(values))
}

func (t *Task) pyield(values Values) (bool, Values, error) {
	if t.IsCancelled() {
		panic(fmt.Errorf("%w; call UnsetCancelled first", ErrAlreadyCancelled))
	}

	t.setStatus(StatusSuspended)
	t.yieldCh <- yieldMsg{values: values}
	resumeArgs := <-t.resumeCh
	t.setStatus(StatusRunning)

	if Running() != t {
		panic(ErrWrongScheduler)
	}
	if t.IsCancelled() {
		return false, nil, ErrCancelled
	}
	return true, resumeArgs, nil
}

// Yield suspends the current task, re-raising ErrCancelled if the task
// was cancelled while it was suspended. It must be called from within a
// task.
func Yield(values ...any) Values {
	t := mustRunning("yield")
	ok, resumeArgs, err := t.pyield(Values(values))
	if !ok {
		panic(err)
	}
	return resumeArgs
}

// PCall drives a not-yet-a-task Body that may itself yield, forwarding
// any of its yields up through the caller's own suspension point until
// it dies, and recovers cancellation of the caller into (false, nil,
// err) instead of leaving f running forever.
//
// It exists because a plain deferred recover cannot straddle the
// suspension points inside f — f needs to run as a task of its own so
// its Yield/PYield calls have a running task to suspend — and PCall is
// the bridge that makes that invisible to the caller.
func PCall(f Body, args ...any) (ok bool, values Values, err error) {
	t := Create(f)
	vals, _ := Resume(t, args...)
	for t.Status() != StatusDead {
		cok, resumeArgs, yerr := PYield(vals...)
		if !cok {
			Cancel(t, false)
			return false, nil, yerr
		}
		vals, _ = Resume(t, resumeArgs...)
	}
	fvals, ferr, _ := t.future.Result()
	if ferr != nil {
		return false, nil, ferr
	}
	return true, fvals, nil
}
