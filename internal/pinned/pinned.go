// Package pinned executes one-shot closures on a specific CPU. The hardware
// register the daemon compensates is per-core, so reads and writes must run
// on the owning CPU no matter which goroutine drives the transition.
package pinned

import (
	"fmt"
	"runtime"
)

// DispatchError reports that the execution context for a CPU could not be
// reached (typically: affinity could not be set, e.g. the CPU went away).
type DispatchError struct {
	CPU int
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("pinned dispatch to cpu%d: %v", e.CPU, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// IsDispatch reports whether err is a pinned-dispatch failure (as opposed to
// an error returned by the dispatched closure itself).
func IsDispatch(err error) bool {
	_, ok := err.(*DispatchError)
	return ok
}

// Runner dispatches closures with OS-thread pinning. The zero value is ready
// to use; it exists as a type so callers can substitute a test double.
type Runner struct{}

// Run executes fn on an OS thread pinned to cpu and blocks until it returns.
// A failure to pin is reported as *DispatchError; any other error is fn's.
func (Runner) Run(cpu int, fn func() error) error {
	errc := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		// The thread's affinity is dirty after fn; let the runtime retire it
		// rather than unlocking and returning it to the pool.
		if err := setAffinity(cpu); err != nil {
			errc <- &DispatchError{CPU: cpu, Err: err}
			return
		}
		errc <- fn()
	}()
	return <-errc
}
