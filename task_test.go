package cotask

import (
	"errors"
	"testing"
	"time"
)

func TestTaskLifecycleSimple(t *testing.T) {
	task := Create(func(t *Task, args Values) (Values, error) {
		return Values{args[0].(int) + 1}, nil
	})
	assertEqual(t, task.Status(), StatusSuspended)

	values, err := Resume(task, 41)
	assertNoError(t, err)
	assertEqual(t, task.Status(), StatusDead)
	assertEqual(t, values[0], 42)
}

func TestTaskBodyErrorBecomesFutureError(t *testing.T) {
	wantErr := errors.New("bad input")
	task := Create(func(t *Task, args Values) (Values, error) {
		return nil, wantErr
	})
	_, err := Resume(task)
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	fv, ferr, done := task.Future().Result()
	assertTrue(t, done, "future should be done")
	if fv != nil {
		t.Fatalf("expected nil values, got %v", fv)
	}
	if !errors.Is(ferr, wantErr) {
		t.Fatalf("future error mismatch: %v", ferr)
	}
}

func TestTaskBodyPanicBecomesFutureError(t *testing.T) {
	task := Create(func(t *Task, args Values) (Values, error) {
		panic("kaboom")
	})
	_, err := Resume(task)
	assertError(t, err)
}

func TestTaskYieldResume(t *testing.T) {
	task := Create(func(t *Task, args Values) (Values, error) {
		got := Yield("first")
		return Values{got[0].(string) + "-done"}, nil
	})

	values, err := Resume(task)
	assertNoError(t, err)
	assertEqual(t, task.Status(), StatusSuspended)
	assertEqual(t, values[0], "first")

	values, err = Resume(task, "resumed")
	assertNoError(t, err)
	assertEqual(t, task.Status(), StatusDead)
	assertEqual(t, values[0], "resumed-done")
}

func TestResumeNonSuspendedPanics(t *testing.T) {
	task := Create(func(t *Task, args Values) (Values, error) { return nil, nil })
	Resume(task)
	assertPanics(t, func() { Resume(task) })
}

func TestYieldOutsideTaskPanics(t *testing.T) {
	assertPanics(t, func() { Yield() })
}

func TestRunningReflectsCurrentTask(t *testing.T) {
	assertTrue(t, Running() == nil, "no task should be running at top level")

	var observed *Task
	task := Create(func(t *Task, args Values) (Values, error) {
		observed = Running()
		return nil, nil
	})
	Resume(task)
	if observed != task {
		t.Fatalf("Running() inside body did not match the driven task")
	}
	assertTrue(t, Running() == nil, "running slot should be restored after Resume returns")
}

func TestNestedResumeSetsParentNormal(t *testing.T) {
	var parentStatusWhileChildRuns TaskStatus
	var childTask *Task

	parent := Create(func(t *Task, args Values) (Values, error) {
		childTask = Create(func(ct *Task, _ Values) (Values, error) {
			parentStatusWhileChildRuns = t.Status()
			return nil, nil
		})
		Resume(childTask)
		return nil, nil
	})
	Resume(parent)

	assertEqual(t, parentStatusWhileChildRuns, StatusNormal)
	_ = childTask
}

func TestSpawnRunsImmediately(t *testing.T) {
	ranCh := make(chan struct{}, 1)
	task := Spawn(func(t *Task, args Values) (Values, error) {
		ranCh <- struct{}{}
		return nil, nil
	})
	select {
	case <-ranCh:
	case <-time.After(time.Second):
		t.Fatal("spawned task never ran")
	}
	assertEqual(t, task.Status(), StatusDead)
}

func TestTaskNameDefaultsToID(t *testing.T) {
	task := Create(func(t *Task, args Values) (Values, error) { return nil, nil })
	if task.Name() != task.ID().String() {
		t.Fatalf("expected default name to be the task ID")
	}
	task.SetName("worker-1")
	assertEqual(t, task.Name(), "worker-1")
}

func TestPCallForwardsYieldsAndResult(t *testing.T) {
	inner := func(t *Task, args Values) (Values, error) {
		got := Yield("inner-yield")
		return Values{got[0]}, nil
	}

	outer := Create(func(t *Task, args Values) (Values, error) {
		ok, values, err := PCall(inner)
		if !ok {
			return nil, err
		}
		return values, nil
	})

	yielded, err := Resume(outer)
	assertNoError(t, err)
	assertEqual(t, outer.Status(), StatusSuspended)
	assertEqual(t, yielded[0], "inner-yield")

	final, err := Resume(outer, "resumed-value")
	assertNoError(t, err)
	assertEqual(t, outer.Status(), StatusDead)
	assertEqual(t, final[0], "resumed-value")
}

func TestPCallNonYieldingCompletesWithoutSuspending(t *testing.T) {
	inner := func(t *Task, args Values) (Values, error) {
		return Values{"done"}, nil
	}

	resultCh := make(chan Values, 1)
	Spawn(func(t *Task, args Values) (Values, error) {
		ok, values, err := PCall(inner)
		if !ok {
			return nil, err
		}
		resultCh <- values
		return values, nil
	})

	select {
	case v := <-resultCh:
		assertEqual(t, v[0], "done")
	case <-time.After(time.Second):
		t.Fatal("pcall never completed")
	}
}

func TestPCallRecoversInnerError(t *testing.T) {
	inner := func(t *Task, args Values) (Values, error) {
		return nil, errors.New("inner failure")
	}

	resultCh := make(chan error, 1)
	Spawn(func(tt *Task, args Values) (Values, error) {
		ok, _, err := PCall(inner)
		assertFalse(t, ok, "pcall should report failure")
		resultCh <- err
		return nil, nil
	})

	select {
	case err := <-resultCh:
		assertError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pcall never reported the inner error")
	}
}
