package cotask

import "sync"

// CallbackFunc is the completion callback a host-style asynchronous
// function is handed; calling it with the operation's result resumes
// whichever task is waiting on it.
type CallbackFunc func(args ...any)

// adapterConfig holds the options collected from an AdapterOption list.
type adapterConfig struct {
	onCancel func(callArgs Values, immediateReturn Values)
	cleanup  func(cbArgs Values)
	schedule bool
	host     Host
}

// AdapterOption configures CallbackToTask / CallbackToTaskLast.
type AdapterOption func(*adapterConfig)

// WithOnCancel registers a hook invoked, with the adapter's original
// call arguments and the wrapped function's immediate return value, if
// the task is cancelled before the completion callback ever fires — the
// adapter's chance to cancel whatever handle the host call returned.
func WithOnCancel(f func(callArgs Values, immediateReturn Values)) AdapterOption {
	return func(c *adapterConfig) { c.onCancel = f }
}

// WithCleanup registers a hook invoked, with the completion callback's
// eventual arguments, if that callback fires after the task has already
// been cancelled — the adapter's chance to release whatever resources
// the callback handed back.
func WithCleanup(f func(cbArgs Values)) AdapterOption {
	return func(c *adapterConfig) { c.cleanup = f }
}

// WithSchedule routes the completion callback's resume through host's
// Schedule instead of resuming inline, escaping a restricted fast-event
// context the host call may have fired the callback from.
func WithSchedule(host Host) AdapterOption {
	return func(c *adapterConfig) { c.schedule = true; c.host = host }
}

func buildAdapterConfig(opts []AdapterOption) *adapterConfig {
	c := &adapterConfig{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CallbackToTask converts a host-style function that takes a completion
// callback as its first argument — fcb(done, args...) — into a Body that
// suspends the calling task until done fires, then returns done's
// packed arguments as the task's result.
//
// If fcb invokes done before returning, the task never suspends at all.
// If the task is cancelled while waiting, CallbackToTask runs
// onCancel (if set) with the call arguments and fcb's immediate return
// value, then raises ErrCancelled; if done fires anyway afterwards, it
// is a no-op except for running cleanup (if set).
func CallbackToTask(fcb func(done CallbackFunc, args ...any) Values, opts ...AdapterOption) Body {
	cfg := buildAdapterConfig(opts)
	return func(t *Task, args Values) (Values, error) {
		resultCh := make(chan Values, 1)
		var mu sync.Mutex
		waiting := true
		inline := true

		complete := func(cbArgs ...any) {
			mu.Lock()
			w := waiting
			waiting = false
			early := inline
			mu.Unlock()
			if !w {
				if cfg.cleanup != nil {
					cfg.cleanup(Values(cbArgs))
				}
				return
			}
			if early {
				// fired before fcb returned: the task is still running and
				// picks the result up below without suspending
				resultCh <- Values(cbArgs)
				return
			}
			deliver := func() {
				resultCh <- Values(cbArgs)
				ResumeWhenSuspended(t)
			}
			if cfg.schedule && cfg.host != nil {
				cfg.host.Schedule(deliver)
			} else {
				deliver()
			}
		}

		immediate := fcb(complete, []any(args)...)
		mu.Lock()
		inline = false
		mu.Unlock()

		select {
		case cbArgs := <-resultCh:
			return cbArgs, nil
		default:
		}

		ok, _, _ := PYield()
		if !ok {
			mu.Lock()
			waiting = false
			mu.Unlock()
			if cfg.onCancel != nil {
				cfg.onCancel(args, immediate)
			}
			return nil, ErrCancelled
		}

		return <-resultCh, nil
	}
}

// CallbackToTaskLast is CallbackToTask for host functions that take
// their completion callback as the last argument instead of the first —
// the Go equivalent of the adapter's `pos = "last"` option, expressed as
// a distinct, statically-typed constructor instead of a runtime argument
// splice.
func CallbackToTaskLast(fcb func(args []any, done CallbackFunc) Values, opts ...AdapterOption) Body {
	flipped := func(done CallbackFunc, args ...any) Values {
		return fcb(args, done)
	}
	return CallbackToTask(flipped, opts...)
}

// CoroutineToTask is the identity adapter: in this port, a suspendable
// "coroutine" and a task Body already share the same shape, so there is
// no conversion to perform.
func CoroutineToTask(f Body) Body { return f }
