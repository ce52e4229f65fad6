package cotask

import "testing"

func assertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func assertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}

func assertEqual(t testing.TB, got, want any) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func assertTrue(t testing.TB, got bool, msg string) {
	t.Helper()
	if !got {
		t.Fatalf("expected true: %s", msg)
	}
}

func assertFalse(t testing.TB, got bool, msg string) {
	t.Helper()
	if got {
		t.Fatalf("expected false: %s", msg)
	}
}

func assertPanics(t testing.TB, fn func()) (recovered any) {
	t.Helper()
	defer func() {
		recovered = recover()
		if recovered == nil {
			t.Fatal("expected a panic, got none")
		}
	}()
	fn()
	return nil
}
