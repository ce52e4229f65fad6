package cotask

import "time"

// Sleep suspends the calling task for d, waking it via host's timer. If
// the task is cancelled while asleep, Sleep raises ErrCancelled,
// unwinding the task the same way an unprotected Yield would — a worker
// that pipe's Timeout option cancels while it sleeps unwinds through
// exactly this, without needing its own cancellation check.
func Sleep(host Host, d time.Duration) {
	t := mustRunning("sleep")
	timer := host.AfterFunc(d, func() { ResumeWhenSuspended(t) })
	ok, _, err := t.pyield(nil)
	if !ok {
		timer.Stop()
		panic(err)
	}
}

// SleepUntilNonFast is a no-op when the host is not currently in a
// restricted fast-event context; otherwise it schedules a resume of the
// calling task via host and yields, returning when that scheduled resume
// runs — at the host's next safe point, as Host.Schedule defines it. It
// does not check InFastEvent again after waking.
func SleepUntilNonFast(host Host) {
	if !host.InFastEvent() {
		return
	}
	t := mustRunning("sleep_until_nonfast")
	host.Schedule(func() { ResumeWhenSuspended(t) })
	Yield()
}
