package cotask

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Host is the set of capabilities this library consumes from the
// embedding event loop: scheduling a callback to run at a safe point,
// reporting whether the current context is a restricted "fast event",
// a blocking wait usable outside any task, and a one-shot timer. A
// richer host (an editor's UI thread, say) can implement Host directly
// over its own loop; [NewDefaultHost] is a minimal standalone one.
type Host interface {
	// Schedule runs fn once, at the host's next safe opportunity —
	// never synchronously from inside Schedule itself.
	Schedule(fn func())
	// InFastEvent reports whether the caller is inside a restricted
	// callback context where suspending is unsafe.
	InFastEvent() bool
	// BlockingWait polls pred every interval, without suspending a
	// task, until it returns true or timeout elapses (zero meaning no
	// timeout), and reports which.
	BlockingWait(timeout time.Duration, pred func() bool, interval time.Duration) bool
	// AfterFunc schedules fn to run (via Schedule) after d.
	AfterFunc(d time.Duration, fn func()) Timer
	// Logger returns the host's logger, never nil.
	Logger() *slog.Logger
}

// Timer is a one-shot, stoppable timer.
type Timer interface {
	// Stop prevents the timer from firing, if it hasn't already. It
	// reports whether the stop succeeded in time.
	Stop() bool
}

// DefaultHost is a minimal, goroutine-backed Host for programs that do
// not already embed a richer event loop. Every Schedule callback and
// every timer fire runs on a single internal dispatch goroutine, which
// is what gives the scheduler's process-wide running-task slot (see
// Resume) a genuinely single active execution context for anything
// driven through the host, even though Go itself is happily
// multi-threaded.
type DefaultHost struct {
	logger *slog.Logger

	queue chan func()
	fast  atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// HostOption configures a DefaultHost.
type HostOption func(*DefaultHost)

// WithHostLogger sets the logger a DefaultHost reports via Logger.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *DefaultHost) { h.logger = logger }
}

// NewDefaultHost starts a DefaultHost's dispatch goroutine and returns
// it. Call Close when done with it.
func NewDefaultHost(opts ...HostOption) *DefaultHost {
	h := &DefaultHost{
		queue: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	go h.dispatchLoop()
	return h
}

func (h *DefaultHost) dispatchLoop() {
	for {
		select {
		case fn := <-h.queue:
			fn()
		case <-h.done:
			return
		}
	}
}

// Close stops the dispatch loop. Schedule calls made after Close are
// dropped rather than blocking forever.
func (h *DefaultHost) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *DefaultHost) Schedule(fn func()) {
	select {
	case h.queue <- fn:
	case <-h.done:
	}
}

func (h *DefaultHost) InFastEvent() bool { return h.fast.Load() }

// SetFastEvent is a test hook simulating the host entering or leaving a
// restricted fast-event context.
func (h *DefaultHost) SetFastEvent(v bool) { h.fast.Store(v) }

func (h *DefaultHost) BlockingWait(timeout time.Duration, pred func() bool, interval time.Duration) bool {
	if pred() {
		return true
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		<-ticker.C
		if pred() {
			return true
		}
		if timeout > 0 && !time.Now().Before(deadline) {
			return false
		}
	}
}

func (h *DefaultHost) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { h.Schedule(fn) })
}

func (h *DefaultHost) Logger() *slog.Logger { return h.logger }

var _ Host = (*DefaultHost)(nil)
