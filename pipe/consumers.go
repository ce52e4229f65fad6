package pipe

import (
	"time"

	"github.com/cotask/cotask"
)

// ANext suspends the calling task until the next downstream item is
// available, returning it along with true, or (nil, false) once the
// stream has ended. It must be called from within a task, and is safe
// to call repeatedly past end-of-stream (it keeps reporting false).
func (p *Pipe) ANext() (values []any, ok bool) {
	it := p.anextRaw()
	if it.done {
		p.out.Push(item{done: true}) // requeue so later ANext calls also see it
		return nil, false
	}
	return it.values, true
}

// Next is the non-suspending counterpart to ANext, for callers outside
// any task: it blocks the calling goroutine (without blocking any
// task) for up to timeout, polling every interval, by driving a
// throwaway task that performs the actual ANext.
func (p *Pipe) Next(timeout, interval time.Duration) (values []any, ok bool) {
	t := cotask.Spawn(func(_ *cotask.Task, _ cotask.Values) (cotask.Values, error) {
		v, o := p.ANext()
		return cotask.Values{v, o}, nil
	})
	result, err := t.Future().Wait(p.host, timeout, interval)
	if err != nil || result == nil {
		return nil, false
	}
	v, _ := result[0].([]any)
	o, _ := result[1].(bool)
	return v, o
}

// Collect drains up to n items (n <= 0 meaning all of them) into a
// slice, in the order they arrive. It must be called from within a
// task.
func (p *Pipe) Collect(n int) [][]any {
	var out [][]any
	for n <= 0 || len(out) < n {
		v, ok := p.ANext()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// ToTable drains the whole stream into a slice, in arrival order. It
// must be called from within a task.
func (p *Pipe) ToTable() [][]any {
	return p.Collect(0)
}

// Race returns the next available item, as if n branches were racing to
// pop it — which, over a single upstream FIFO, always resolves to
// whichever item is at the head, so Race degenerates to ANext for any
// n >= 1 rather than pulling n items the way Collect(n) does (that
// operation already exists under its own name; Race additionally
// cancels the stage once it has its winner, which Collect must not do
// since it's meant to be callable repeatedly without tearing the stage
// down). Race(0) is the one case with no sensible winner, and reports
// ErrEmptyRace rather than being left undefined.
func (p *Pipe) Race(n int) (values []any, ok bool, err error) {
	if n <= 0 {
		return nil, false, ErrEmptyRace
	}
	v, o := p.ANext()
	p.Cancel()
	return v, o, nil
}

// Each calls f with every downstream item in arrival order. It must be
// called from within a task.
func (p *Pipe) Each(f func(values []any)) {
	for {
		v, ok := p.ANext()
		if !ok {
			return
		}
		f(v)
	}
}

// Fold reduces the downstream stream into a single value, starting from
// init and folding in arrival order. It must be called from within a
// task.
func (p *Pipe) Fold(init any, f func(acc any, v []any) any) any {
	acc := init
	for {
		v, ok := p.ANext()
		if !ok {
			return acc
		}
		acc = f(acc, v)
	}
}

// All reports whether pred holds for every downstream item. The stream
// is drained fully even once pred has failed once, rather than
// stopping early at the first failure — a documented choice, since
// short-circuiting would leave the stage's runner (and any worker
// tasks still in flight upstream) running unobserved in the
// background.
func (p *Pipe) All(pred func(v []any) bool) bool {
	result := true
	for {
		v, ok := p.ANext()
		if !ok {
			return result
		}
		if !pred(v) {
			result = false
		}
	}
}

// Any reports whether pred holds for at least one downstream item,
// cancelling the stage and stopping as soon as one is found.
func (p *Pipe) Any(pred func(v []any) bool) bool {
	for {
		v, ok := p.ANext()
		if !ok {
			return false
		}
		if pred(v) {
			p.Cancel()
			return true
		}
	}
}
