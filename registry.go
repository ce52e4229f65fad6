package cotask

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Registry tracks a set of tasks by status, for introspection by an
// embedding host (e.g. cotask/cometrics). Tracking a task is entirely
// optional and has no effect on scheduling; nothing in this package
// tracks tasks on its own.
type Registry struct {
	mu    sync.Mutex
	tasks map[uintptr]*Task

	cancelled atomic.Int64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: map[uintptr]*Task{}}
}

// Track adds t to the registry and arranges for it to be removed once
// its body returns (successfully, with an error, or via cancellation).
// A completion whose error wraps ErrCancelled increments the registry's
// cumulative cancelled-task count (see Stats.Cancelled).
func (r *Registry) Track(t *Task) {
	key := taskKey(t)
	r.mu.Lock()
	r.tasks[key] = t
	r.mu.Unlock()

	t.Future().Await(func(_ Values, err error) {
		if errors.Is(err, ErrCancelled) {
			r.cancelled.Add(1)
		}
		r.mu.Lock()
		delete(r.tasks, key)
		r.mu.Unlock()
	})
}

// RegistryStats is a point-in-time count of tracked tasks by status, plus
// a cumulative count of tracked tasks that have ever completed with
// ErrCancelled.
type RegistryStats struct {
	Suspended int
	Running   int
	Normal    int
	Dead      int
	Total     int
	Cancelled int64
}

// Stats snapshots the current status distribution of tracked tasks.
// Dead tasks are normally absent by the time Stats observes them (Track
// removes them as soon as their Future completes), but a task that
// dies between Stats reading its status and returning is still counted
// accurately for that one call. Cancelled is cumulative and never
// decreases, unlike the other fields.
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.Unlock()

	s := RegistryStats{Cancelled: r.cancelled.Load()}
	for _, t := range tasks {
		s.Total++
		switch t.Status() {
		case StatusSuspended:
			s.Suspended++
		case StatusRunning:
			s.Running++
		case StatusNormal:
			s.Normal++
		case StatusDead:
			s.Dead++
		}
	}
	return s
}
