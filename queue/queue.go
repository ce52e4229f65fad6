// Package queue provides the FIFO queue and counting semaphore the pipe
// stage engine is built on: both suspend the calling task through
// cotask.PYield rather than blocking an OS thread, so a queue wait
// composes with cancellation the same way any other suspension does.
package queue

import (
	"sync"

	"github.com/cotask/cotask"
)

// Queue is an unbounded FIFO of packed values. At any instant either the
// value backlog or the waiter list is non-empty, never both — a Push
// that finds a waiter resumes it directly instead of buffering.
type Queue struct {
	mu      sync.Mutex
	values  []cotask.Values
	waiters []*cotask.Task
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Push enqueues values, waking the longest-waiting Pop call if one is
// blocked, rather than buffering behind it.
func (q *Queue) Push(values ...any) {
	q.mu.Lock()
	if len(q.waiters) > 0 {
		t := q.waiters[0]
		q.waiters = q.waiters[1:]
		q.mu.Unlock()
		cotask.ResumeWhenSuspended(t, values...)
		return
	}
	q.values = append(q.values, cotask.Values(values))
	q.mu.Unlock()
}

// Pop suspends the calling task until a value is available, then
// dequeues and returns it. It must be called from within a task, and
// panics with ErrCancelled if the task is cancelled while waiting.
func (q *Queue) Pop() cotask.Values {
	q.mu.Lock()
	if len(q.values) > 0 {
		v := q.values[0]
		q.values = q.values[1:]
		q.mu.Unlock()
		return v
	}

	t := cotask.Running()
	if t == nil {
		q.mu.Unlock()
		panic(cotask.ErrNotATask)
	}
	q.waiters = append(q.waiters, t)
	q.mu.Unlock()

	ok, values, err := cotask.PYield()
	if !ok {
		q.removeWaiter(t)
		panic(err)
	}
	return values
}

// PPop is the protected form of Pop: cancellation is reported as
// (false, nil) instead of being raised.
func (q *Queue) PPop() (bool, cotask.Values) {
	q.mu.Lock()
	if len(q.values) > 0 {
		v := q.values[0]
		q.values = q.values[1:]
		q.mu.Unlock()
		return true, v
	}

	t := cotask.Running()
	if t == nil {
		q.mu.Unlock()
		panic(cotask.ErrNotATask)
	}
	q.waiters = append(q.waiters, t)
	q.mu.Unlock()

	ok, values, _ := cotask.PYield()
	if !ok {
		q.removeWaiter(t)
		return false, nil
	}
	return true, values
}

func (q *Queue) removeWaiter(t *cotask.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w == t {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

// Len reports the number of buffered values not yet popped.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.values)
}

// Waiting reports the number of tasks currently blocked in Pop/PPop.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
