//go:build !linux

package pinned

// setAffinity is a no-op on platforms without sched_setaffinity(2). Dispatch
// still runs fn on a locked OS thread; it just is not bound to one core.
func setAffinity(cpu int) error { return nil }
