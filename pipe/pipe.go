// Package pipe implements the bounded-parallelism stage engine: a chain
// of Map stages over cotask/queue, each stage's runner task draining its
// upstream and spawning worker tasks bounded by a semaphore, optionally
// preserving input order.
package pipe

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cotask/cotask"
	"github.com/cotask/cotask/queue"
)

// ErrEmptyRace is returned by Race(0): racing zero items has no winner,
// so this port makes it an explicit error rather than leaving it
// undefined.
var ErrEmptyRace = errors.New("pipe: race called with n == 0")

// item is what actually flows through a stage's output queue: either a
// value, or the end-of-stream marker. Worker errors never flow through
// the queue itself — Map records them via recordErr/Catch before an
// item is ever pushed — so item carries no error field.
type item struct {
	values cotask.Values
	done   bool
}

// Pipe is one stage of a pipeline: a source, or the output of a Map
// applied to an upstream Pipe. Consumers (ANext, Collect, Each, ...)
// operate on the stage they were called on; chaining Map does not
// merge errors or identity across stages — see Report.
type Pipe struct {
	host Host

	out    *queue.Queue
	runner *cotask.Task // nil only for a bare source with no transform
	done   *cotask.Future

	mu   sync.Mutex
	errs []error

	workers atomic.Int32 // workers currently in flight for this stage's Map, if any
}

// WorkersInFlight reports how many of this stage's Map workers are
// currently running (0 for a bare source with no transform).
func (p *Pipe) WorkersInFlight() int {
	return int(p.workers.Load())
}

// QueueDepth reports how many completed items are buffered in this
// stage's output queue, waiting to be consumed.
func (p *Pipe) QueueDepth() int {
	n := p.out.Len()
	if n > 0 && p.done.Done() {
		n-- // the end-of-stream marker sits behind the last item
	}
	return n
}

// Host is the subset of cotask.Host the pipe engine needs: scheduling
// worker/runner suspension through the same event loop the rest of the
// library uses.
type Host = cotask.Host

// FromSlice builds a source Pipe that yields each element of items in
// order, then ends the stream.
func FromSlice(host Host, items []any) *Pipe {
	idx := 0
	return FromFunc(host, func() (any, bool) {
		if idx >= len(items) {
			return nil, false
		}
		v := items[idx]
		idx++
		return v, true
	})
}

// FromFunc builds a source Pipe from a plain Go iterator function: next
// returns the next element and true, or false once exhausted. next is
// called from the pipe's own feeder task, so it may itself call
// cotask.PYield-based primitives (e.g. pop from another queue).
func FromFunc(host Host, next func() (any, bool)) *Pipe {
	p := &Pipe{host: host, out: queue.New(), done: cotask.NewFuture()}
	host.Logger().Debug("pipe stage started", "stage", "source")
	cotask.Spawn(func(t *cotask.Task, _ cotask.Values) (cotask.Values, error) {
		for {
			v, ok := next()
			if !ok {
				p.out.Push(item{done: true})
				p.done.Complete()
				host.Logger().Debug("pipe stage stopped", "stage", "source")
				return nil, nil
			}
			p.out.Push(item{values: cotask.Values{v}})
		}
	})
	return p
}

// anextRaw pops the next raw item from this stage's output queue. It
// must be called from within a task.
func (p *Pipe) anextRaw() item {
	v := p.out.Pop()
	it := v[0].(item)
	return it
}

// recordErr appends err to this stage's own error list (see Report).
func (p *Pipe) recordErr(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// Report returns the errors this stage's own workers have raised so
// far, oldest first. It does not include upstream stages' errors —
// chaining Map does not merge error slices (see DESIGN.md).
func (p *Pipe) Report() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]error, len(p.errs))
	copy(out, p.errs)
	return out
}

// Wait blocks (without suspending a task) until this stage's runner has
// drained its upstream completely, or timeout elapses.
func (p *Pipe) Wait(timeout, interval time.Duration) error {
	_, err := p.done.Wait(p.host, timeout, interval)
	return err
}

// AwaitTask suspends the calling task until this stage's runner has
// drained its upstream completely. It must be called from within a
// task.
func (p *Pipe) AwaitTask() {
	p.done.AwaitTask()
}

// Cancel cancels this stage's runner task (and, transitively, any
// worker tasks it spawned as children), unwinding the stage early.
func (p *Pipe) Cancel() {
	if p.runner == nil {
		return
	}
	if p.runner.Status() != cotask.StatusDead {
		cotask.Cancel(p.runner, false)
	}
}
