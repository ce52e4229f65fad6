package cotask

import (
	"errors"
	"testing"
	"time"
)

func TestFutureCompleteInvokesWaiters(t *testing.T) {
	f := NewFuture()
	var got Values
	var gotErr error
	called := 0
	f.Await(func(v Values, err error) {
		called++
		got, gotErr = v, err
	})
	f.Complete(1, "two")

	assertEqual(t, called, 1)
	assertNoError(t, gotErr)
	if len(got) != 2 || got[0] != 1 || got[1] != "two" {
		t.Fatalf("unexpected values: %v", got)
	}
	assertTrue(t, f.Done(), "future should be done")
}

func TestFutureAwaitAfterCompleteRunsSynchronously(t *testing.T) {
	f := NewFuture()
	f.Complete("x")

	ran := false
	f.Await(func(v Values, err error) {
		ran = true
		assertNoError(t, err)
		assertEqual(t, v[0], "x")
	})
	assertTrue(t, ran, "waiter registered after completion should fire immediately")
}

func TestFutureCompleteTwiceRaises(t *testing.T) {
	f := NewFuture()
	f.Complete(1)
	assertPanics(t, func() { f.Complete(2) })
}

func TestFutureErrorRequiresNonNil(t *testing.T) {
	f := NewFuture()
	assertPanics(t, func() { f.Error(nil) })
}

func TestFutureMultipleWaitersOrdered(t *testing.T) {
	f := NewFuture()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		f.Await(func(Values, error) { order = append(order, i) })
	}
	f.Complete()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("waiters fired out of order: %v", order)
	}
}

func TestFutureAwaitTaskReturnsValues(t *testing.T) {
	f := NewFuture()
	done := make(chan Values, 1)

	Spawn(func(t *Task, args Values) (Values, error) {
		v := f.AwaitTask()
		done <- v
		return v, nil
	})

	f.Complete("hello")
	select {
	case v := <-done:
		assertEqual(t, v[0], "hello")
	case <-time.After(time.Second):
		t.Fatal("task never resumed after future completed")
	}
}

func TestFutureAwaitTaskRaisesOnError(t *testing.T) {
	f := NewFuture()
	wantErr := errors.New("boom")
	resultCh := make(chan error, 1)

	task := Create(func(t *Task, args Values) (Values, error) {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- r.(error)
			}
		}()
		f.AwaitTask()
		resultCh <- nil
		return nil, nil
	})
	Resume(task)
	f.Error(wantErr)

	select {
	case err := <-resultCh:
		if !errors.Is(err, wantErr) {
			t.Fatalf("got %v, want %v", err, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatal("task never observed future error")
	}
}

func TestFuturePAwaitTaskProtected(t *testing.T) {
	f := NewFuture()
	resultCh := make(chan struct {
		ok  bool
		err error
	}, 1)

	Spawn(func(t *Task, args Values) (Values, error) {
		ok, _, err := f.PAwaitTask()
		resultCh <- struct {
			ok  bool
			err error
		}{ok, err}
		return nil, nil
	})

	f.Error(errors.New("failed"))
	select {
	case r := <-resultCh:
		assertFalse(t, r.ok, "pawait should report false on future error")
		assertError(t, r.err)
	case <-time.After(time.Second):
		t.Fatal("task never observed pawait result")
	}
}

func TestFutureWaitOutsideTask(t *testing.T) {
	host := NewDefaultHost()
	defer host.Close()

	f := NewFuture()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Complete(42)
	}()

	values, err := f.Wait(host, time.Second, 2*time.Millisecond)
	assertNoError(t, err)
	assertEqual(t, values[0], 42)
}

func TestFutureWaitTimesOut(t *testing.T) {
	host := NewDefaultHost()
	defer host.Close()

	f := NewFuture()
	values, err := f.Wait(host, 20*time.Millisecond, time.Millisecond)
	assertNoError(t, err)
	if values != nil {
		t.Fatalf("expected nil values on timeout, got %v", values)
	}
}
