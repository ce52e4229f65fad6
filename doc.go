// Package cotask implements a cooperative task runtime for a
// single-threaded host process that owns an event loop (timers, I/O, and
// a restricted "fast event" execution context).
//
// User code is written as ordinary straight-line functions (a [Body])
// that may suspend at well-defined points — [Yield], [PYield], and
// everything built on them ([Future.AwaitTask], [Sleep],
// [cotask/queue.Queue.Pop], [cotask/queue.Semaphore.Acquire],
// [cotask/pipe.Pipe.ANext]) — while the host services other events.
//
// A [Task] wraps its own goroutine, driven through an unbuffered channel
// handshake that reproduces the single-active-task invariant: [Resume]
// sends the resume arguments and blocks until the task reports back by
// yielding or finishing, so at any instant at most one task is actually
// doing work. [Cancel] sets a cooperative flag and resumes the task once;
// the next [PYield] inside it observes the cancellation and either
// reports it (protected) or raises it (unprotected), recursing into the
// task's children unless cancellation is orphaned.
//
// [CallbackToTask] adapts a host-style function that takes a completion
// callback into a [Body], so existing callback-based I/O primitives
// (timers, reads, subprocess exits) can be awaited like any other
// suspending call.
package cotask
