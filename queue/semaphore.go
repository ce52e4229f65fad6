package queue

import (
	"sync"

	"github.com/cotask/cotask"
)

// Semaphore is a counting semaphore whose blocking Acquire suspends the
// calling task rather than blocking an OS thread. As with Queue, the
// waiter list and the available count are never both non-empty: a
// Release that finds a waiter hands the permit straight to it.
type Semaphore struct {
	mu      sync.Mutex
	count   int
	waiters []*cotask.Task
}

// NewSemaphore returns a Semaphore initialized with count available
// permits.
func NewSemaphore(count int) *Semaphore {
	if count < 0 {
		count = 0
	}
	return &Semaphore{count: count}
}

// Acquire suspends the calling task until a permit is available, then
// takes it. It must be called from within a task, and panics with
// ErrCancelled if the task is cancelled while waiting.
func (s *Semaphore) Acquire() {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return
	}

	t := cotask.Running()
	if t == nil {
		s.mu.Unlock()
		panic(cotask.ErrNotATask)
	}
	s.waiters = append(s.waiters, t)
	s.mu.Unlock()

	ok, _, err := cotask.PYield()
	if !ok {
		s.removeWaiter(t)
		panic(err)
	}
}

// TryAcquire takes a permit without suspending, reporting whether one
// was available.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Release returns a permit, waking the longest-waiting Acquire call if
// one is blocked rather than incrementing the count behind it.
func (s *Semaphore) Release() {
	s.mu.Lock()
	if len(s.waiters) > 0 {
		t := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.mu.Unlock()
		cotask.ResumeWhenSuspended(t)
		return
	}
	s.count++
	s.mu.Unlock()
}

func (s *Semaphore) removeWaiter(t *cotask.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == t {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// Available reports the number of permits currently free.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Waiting reports the number of tasks currently blocked in Acquire.
func (s *Semaphore) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}
