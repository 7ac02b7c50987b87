//go:build linux

package pinned

import "golang.org/x/sys/unix"

// setAffinity pins the calling thread to a single CPU via
// sched_setaffinity(2). The caller must have locked the goroutine to its OS
// thread first.
func setAffinity(cpu int) error {
	var set unix.CPUSet
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
