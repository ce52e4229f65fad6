package pipe

import (
	"errors"
	"sync"
	"time"

	"github.com/cotask/cotask"
	"github.com/cotask/cotask/queue"
)

// ErrStageTimeout is the error a worker fails with when its Timeout
// option elapses before tf returns.
var ErrStageTimeout = errors.New("pipe: stage worker timed out")

// StageFunc transforms one upstream item into zero or one downstream
// values, suspending through t as needed (Sleep, queue/semaphore waits,
// nested pipes, ...). Returning no values, or a nil first value, emits
// nothing for that item.
type StageFunc func(t *cotask.Task, in cotask.Values) (cotask.Values, error)

// CatchFunc handles a worker error: if emit is true, values is pushed
// downstream in the failed item's place; if false, the item is dropped
// entirely. Either way the original error is recorded in Report().
type CatchFunc func(err error) (values cotask.Values, emit bool)

type mapConfig struct {
	parallel int
	timeout  time.Duration
	throttle time.Duration
	ordered  bool
	catch    CatchFunc
}

// MapOption configures a Map stage.
type MapOption func(*mapConfig)

// Parallel bounds how many workers may run concurrently (default 1).
func Parallel(n int) MapOption {
	return func(c *mapConfig) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// Timeout fails a worker (with ErrStageTimeout) if tf has not returned
// within d of being started.
func Timeout(d time.Duration) MapOption {
	return func(c *mapConfig) { c.timeout = d }
}

// Throttle imposes a minimum spacing between starting consecutive
// workers, regardless of how quickly upstream produces items.
func Throttle(d time.Duration) MapOption {
	return func(c *mapConfig) { c.throttle = d }
}

// Ordered requests that downstream output preserve upstream input
// order, even when workers (running in parallel) complete out of
// order.
func Ordered(v bool) MapOption {
	return func(c *mapConfig) { c.ordered = v }
}

// Catch installs an error handler for worker failures; without one, a
// failed item is simply dropped and its error recorded in Report().
func Catch(f CatchFunc) MapOption {
	return func(c *mapConfig) { c.catch = f }
}

// Map applies tf to every item of p, producing a new Pipe stage. Workers
// run as their own tasks, bounded by a semaphore of size Parallel
// (default 1, i.e. strictly sequential), and the new stage's runner task
// drains p completely before its own Future completes.
func (p *Pipe) Map(tf StageFunc, opts ...MapOption) *Pipe {
	cfg := mapConfig{parallel: 1}
	for _, o := range opts {
		o(&cfg)
	}

	next := &Pipe{host: p.host, out: queue.New(), done: cotask.NewFuture()}
	sem := queue.NewSemaphore(cfg.parallel)

	var mu sync.Mutex
	outstanding := 0
	upstreamDone := false
	pending := map[int]*item{} // nil marks an index that emits nothing
	nextToEmit := 0
	started := 0

	finishIfDone := func() {
		mu.Lock()
		fin := upstreamDone && outstanding == 0
		mu.Unlock()
		if fin {
			next.out.Push(item{done: true})
			next.done.Complete()
		}
	}

	emit := func(idx int, it *item) {
		if !cfg.ordered {
			if it != nil {
				next.out.Push(*it)
			}
			return
		}
		mu.Lock()
		pending[idx] = it
		var toPush []item
		for {
			buffered, ok := pending[nextToEmit]
			if !ok {
				break
			}
			delete(pending, nextToEmit)
			if buffered != nil {
				toPush = append(toPush, *buffered)
			}
			nextToEmit++
		}
		mu.Unlock()
		for _, b := range toPush {
			next.out.Push(b)
		}
	}

	workerBody := func(idx int, in cotask.Values) cotask.Body {
		return func(wt *cotask.Task, _ cotask.Values) (cotask.Values, error) {
			if cfg.timeout <= 0 {
				return tf(wt, in)
			}
			child := cotask.Create(func(ct *cotask.Task, cargs cotask.Values) (cotask.Values, error) {
				return tf(ct, in)
			})
			cotask.Resume(child)
			timedOut, values, err := waitWithTimeout(p.host, child.Future(), cfg.timeout)
			if timedOut {
				if child.Status() != cotask.StatusDead {
					cotask.Cancel(child, false)
				}
				return nil, ErrStageTimeout
			}
			return values, err
		}
	}

	runner := cotask.Create(func(rt *cotask.Task, _ cotask.Values) (cotask.Values, error) {
		idx := 0
		for {
			upIt := p.anextRaw()
			if upIt.done {
				mu.Lock()
				upstreamDone = true
				mu.Unlock()
				finishIfDone()
				p.host.Logger().Debug("pipe stage stopped", "started", started)
				return nil, nil
			}

			sem.Acquire()

			if cfg.throttle > 0 && started > 0 {
				cotask.Sleep(p.host, cfg.throttle)
			}
			started++
			myIdx := idx
			idx++
			mu.Lock()
			outstanding++
			mu.Unlock()
			next.workers.Add(1)

			worker := cotask.Create(workerBody(myIdx, upIt.values))
			worker.Future().Await(func(v cotask.Values, werr error) {
				sem.Release()
				if werr != nil {
					next.recordErr(werr)
					var out *item
					if cfg.catch != nil {
						if repl, ok := cfg.catch(werr); ok {
							out = &item{values: repl}
						}
					}
					emit(myIdx, out)
				} else if len(v) == 0 || v[0] == nil {
					emit(myIdx, nil)
				} else {
					emit(myIdx, &item{values: v})
				}
				mu.Lock()
				outstanding--
				mu.Unlock()
				next.workers.Add(-1)
				finishIfDone()
			})
			cotask.Resume(worker)
		}
	})
	next.runner = runner
	p.host.Logger().Debug("pipe stage started", "parallel", cfg.parallel, "ordered", cfg.ordered)
	cotask.Resume(runner)
	return next
}

// waitWithTimeout suspends the calling task until f completes or
// timeout elapses, whichever happens first, reporting which. It is the
// building block for Timeout: a plain PAwaitTask has no notion of a
// competing timer, so this races a Future completion against a host
// timer using the same settle-once pattern ResumeWhenSuspended's own
// callers rely on.
func waitWithTimeout(host cotask.Host, f *cotask.Future, timeout time.Duration) (timedOut bool, values cotask.Values, err error) {
	t := cotask.Running()
	if t == nil {
		panic(cotask.ErrNotATask)
	}

	type outcome struct {
		timedOut bool
		values   cotask.Values
		err      error
	}
	resultCh := make(chan outcome, 1)
	var mu sync.Mutex
	settled := false
	inline := true

	f.Await(func(v cotask.Values, e error) {
		mu.Lock()
		if settled {
			mu.Unlock()
			return
		}
		settled = true
		early := inline
		mu.Unlock()
		resultCh <- outcome{false, v, e}
		if !early {
			cotask.ResumeWhenSuspended(t)
		}
	})
	mu.Lock()
	inline = false
	mu.Unlock()

	timer := host.AfterFunc(timeout, func() {
		mu.Lock()
		if settled {
			mu.Unlock()
			return
		}
		settled = true
		mu.Unlock()
		resultCh <- outcome{timedOut: true}
		cotask.ResumeWhenSuspended(t)
	})

	select {
	case o := <-resultCh:
		timer.Stop()
		return o.timedOut, o.values, o.err
	default:
	}

	ok, _, yerr := cotask.PYield()
	if !ok {
		timer.Stop()
		panic(yerr)
	}
	o := <-resultCh
	if !o.timedOut {
		timer.Stop()
	}
	return o.timedOut, o.values, o.err
}
