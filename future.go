package cotask

import (
	"fmt"
	"sync"
	"time"
)

// Values is a packed tuple of results, resume arguments, or yield
// arguments — the Go stand-in for Lua's variadic packed tuples, used
// uniformly across Future, Task, queue.Queue and pipe.Pipe.
type Values []any

// Future is a one-shot result slot with an ordered waiter list. It is
// completed exactly once, either with a packed result or with an error,
// and every registered waiter is invoked synchronously, in registration
// order, at the moment of completion.
type Future struct {
	mu      sync.Mutex
	done    bool
	values  Values
	err     error
	waiters []func(Values, error)
}

// NewFuture returns a new, incomplete Future.
func NewFuture() *Future {
	return &Future{}
}

// Complete completes the future successfully with values. It panics if
// the future has already been completed.
func (f *Future) Complete(values ...any) {
	f.finish(Values(values), nil)
}

// Error completes the future with err. It panics if the future has
// already been completed, and if err is nil.
func (f *Future) Error(err error) {
	if err == nil {
		panic(fmt.Errorf("cotask: Future.Error called with a nil error"))
	}
	f.finish(nil, err)
}

func (f *Future) finish(values Values, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		panic(fmt.Errorf("%w", ErrFutureAlreadyDone))
	}
	f.done = true
	f.values = values
	f.err = err
	waiters := f.waiters
	f.waiters = nil
	f.mu.Unlock()

	for _, w := range waiters {
		w(values, err)
	}
}

// Done reports whether the future has completed.
func (f *Future) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Result returns the future's packed values and error without blocking,
// along with whether it has completed yet.
func (f *Future) Result() (Values, error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values, f.err, f.done
}

// Await registers cb to run with the future's eventual result. If the
// future is already done, cb runs synchronously, before Await returns.
// Otherwise cb runs later, alongside every other waiter, in registration
// order, at the moment the future completes — possibly on a different
// goroutine than the one that called Await.
func (f *Future) Await(cb func(Values, error)) {
	f.mu.Lock()
	if f.done {
		values, err := f.values, f.err
		f.mu.Unlock()
		cb(values, err)
		return
	}
	f.waiters = append(f.waiters, cb)
	f.mu.Unlock()
}

// AwaitTask suspends the calling task until the future completes,
// raising the future's error (if any) rather than returning it. It must
// be called from within a task.
func (f *Future) AwaitTask() Values {
	t := mustRunning("await")
	ok, values, err := f.pawaitFrom(t)
	if !ok || err != nil {
		panic(err)
	}
	return values
}

// PAwaitTask is the protected form of AwaitTask: cancellation of the
// calling task, or a future error, is reported as (false, nil, err)
// instead of being raised. It must be called from within a task.
//
// If the calling task is cancelled while waiting, the future's eventual
// completion still invokes our registered waiter, but it is by then a
// no-op — matching Future's general contract that a stale waiter never
// fires into a task that has moved on.
func (f *Future) PAwaitTask() (bool, Values, error) {
	t := mustRunning("pawait")
	ok, values, err := f.pawaitFrom(t)
	if !ok {
		return false, nil, err
	}
	if err != nil {
		return false, nil, err
	}
	return true, values, nil
}

func (f *Future) pawaitFrom(t *Task) (ok bool, values Values, err error) {
	type result struct {
		values Values
		err    error
	}
	resultCh := make(chan result, 1)
	var mu sync.Mutex
	waiting := true
	inline := true

	f.Await(func(v Values, e error) {
		mu.Lock()
		w := waiting
		waiting = false
		early := inline
		mu.Unlock()
		if !w {
			return // awaiter already moved on (cancelled); stale, no-op
		}
		resultCh <- result{v, e}
		if !early {
			ResumeWhenSuspended(t)
		}
	})
	mu.Lock()
	inline = false
	mu.Unlock()

	select {
	case r := <-resultCh:
		return true, r.values, r.err
	default:
	}

	yok, _, yerr := t.pyield(nil)
	if !yok {
		mu.Lock()
		waiting = false
		mu.Unlock()
		return false, nil, yerr
	}
	r := <-resultCh
	return true, r.values, r.err
}

// Wait blocks the calling goroutine — without suspending a task — until
// the future completes or timeout elapses, polling via host's blocking
// wait primitive every interval. It is meant for callers outside any
// task (e.g. a test, or the host's own top-level code); call AwaitTask
// or PAwaitTask instead from within a task.
func (f *Future) Wait(host Host, timeout, interval time.Duration) (Values, error) {
	SleepUntilNonFast(host)
	host.BlockingWait(timeout, f.Done, interval)
	if !f.Done() {
		return nil, nil
	}
	values, err, _ := f.Result()
	return values, err
}
