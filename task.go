package cotask

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"
	"weak"

	"github.com/rs/xid"
)

// TaskStatus is one of the four states a Task moves through: Suspended
// (not running, waiting to be resumed), Running (currently executing),
// Normal (currently resuming a child and therefore not itself making
// progress), or Dead (its body has returned or panicked).
type TaskStatus int

const (
	StatusSuspended TaskStatus = iota
	StatusRunning
	StatusNormal
	StatusDead
)

func (s TaskStatus) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusNormal:
		return "normal"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Body is the function executed by a Task: it receives the task driving
// it and the arguments passed to the first Resume call, and returns the
// task's final packed result. A non-nil error is equivalent to the body
// having raised — it completes the task's Future with that error rather
// than with values.
type Body func(t *Task, args Values) (Values, error)

type yieldMsg struct {
	done   bool
	values Values
	err    error
}

// Task is a cooperatively-scheduled unit of work with its own
// suspendable body, a result Future, a cancellation flag, and a
// weakly-referenced set of children created while it was running.
type Task struct {
	id   xid.ID
	name string

	mu        sync.Mutex
	status    TaskStatus
	cancelled bool

	childMu  sync.Mutex
	children map[uintptr]weak.Pointer[Task]

	resumeCh chan Values
	yieldCh  chan yieldMsg

	future *Future
}

// Create creates a new task in the suspended state wrapping body. If a
// task is currently running, the new task is registered as one of its
// weakly-referenced children, so cancelling the parent recurses into it
// unless cancellation is orphaned.
func Create(body Body) *Task {
	return CreateNamed("", body)
}

// CreateNamed is Create with an explicit debug name.
func CreateNamed(name string, body Body) *Task {
	if body == nil {
		panic("cotask: task body must not be nil")
	}
	t := &Task{
		id:       xid.New(),
		name:     name,
		status:   StatusSuspended,
		resumeCh: make(chan Values),
		yieldCh:  make(chan yieldMsg),
		future:   NewFuture(),
	}
	if parent := Running(); parent != nil {
		parent.addChild(t)
	}
	slog.Default().Debug("task created", "task", t.Name())
	go t.runLoop(body)
	return t
}

// Spawn creates a task and immediately resumes it with args.
func Spawn(body Body, args ...any) *Task {
	t := Create(body)
	Resume(t, args...)
	return t
}

func (t *Task) runLoop(body Body) {
	args := <-t.resumeCh
	t.setStatus(StatusRunning)

	var result Values
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if rerr, ok := r.(error); ok {
					err = fmt.Errorf("task panicked: %w", rerr)
				} else {
					err = fmt.Errorf("task panicked: %v", r)
				}
				result = nil
			}
		}()
		result, err = body(t, args)
	}()

	t.setStatus(StatusDead)
	t.yieldCh <- yieldMsg{done: true, values: result, err: err}
}

func (t *Task) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Status returns the task's current state.
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsDone reports whether the task has finished (its body returned or
// panicked).
func (t *Task) IsDone() bool {
	return t.Status() == StatusDead
}

// ID returns the task's identifier.
func (t *Task) ID() xid.ID { return t.id }

// Name returns the task's debug name, defaulting to its ID string.
func (t *Task) Name() string {
	if t.name == "" {
		return t.id.String()
	}
	return t.name
}

// SetName sets the task's debug name.
func (t *Task) SetName(name string) { t.name = name }

func (t *Task) String() string {
	return fmt.Sprintf("Task[%s](%s)", t.Name(), t.Status())
}

// Future returns the task's result future, completed when the task dies.
func (t *Task) Future() *Future { return t.future }

// IsCancelled reports whether Cancel has been called on this task and
// not yet cleared with UnsetCancelled.
func (t *Task) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// UnsetCancelled clears the cancellation flag, letting subsequent pyield
// calls behave normally — the mechanism a task uses to intercept its own
// cancellation instead of unwinding.
func (t *Task) UnsetCancelled() {
	t.mu.Lock()
	t.cancelled = false
	t.mu.Unlock()
}

func (t *Task) setCancelled(v bool) {
	t.mu.Lock()
	t.cancelled = v
	t.mu.Unlock()
}

func (t *Task) addChild(c *Task) {
	t.childMu.Lock()
	defer t.childMu.Unlock()
	if t.children == nil {
		t.children = make(map[uintptr]weak.Pointer[Task])
	}
	t.children[taskKey(c)] = weak.Make(c)
}

// childrenSnapshot returns the currently-live children, pruning any map
// entries whose weak pointer has already been collected.
func (t *Task) childrenSnapshot() []*Task {
	t.childMu.Lock()
	defer t.childMu.Unlock()
	var out []*Task
	for key, wp := range t.children {
		if c := wp.Value(); c != nil {
			out = append(out, c)
		} else {
			delete(t.children, key)
		}
	}
	return out
}

// taskKey derives a non-owning identity key for the children map: the
// map must never hold a strong *Task, or the weak.Pointer stored
// alongside it would be pointless.
func taskKey(t *Task) uintptr {
	return uintptr(unsafe.Pointer(t))
}
