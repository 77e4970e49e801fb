package goroutine

import (
	"runtime"
	"testing"
	"time"
)

// AssertNoLeaks fails the test if, once it finishes, the goroutine count
// does not drop back to the value observed when AssertNoLeaks was called.
// Call it first thing in tests that start background work.
func AssertNoLeaks(t testing.TB) {
	t.Helper()
	baseline := runtime.NumGoroutine()

	t.Cleanup(func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if runtime.NumGoroutine() <= baseline {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}

		current := runtime.NumGoroutine()
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		t.Errorf("goroutine leak detected: started with %d goroutines, ended with %d", baseline, current)
		t.Logf("Active goroutines:\n%s", buf[:n])
	})
}
