//go:build !linux

package msr

// currentCPU has no portable implementation; without affinity support every
// thread reports CPU 0.
func currentCPU() (int, error) { return 0, nil }
