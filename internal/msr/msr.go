// Package msr abstracts the per-CPU throttle-state register. Read and Write
// operate on the register of the CPU the caller is currently pinned to; the
// compensator guarantees pinning via its dispatcher. Probe is evaluated once
// at attach time: an unsupported platform disables the feature entirely
// rather than erroring per event.
package msr

import "errors"

// ErrUnsupported means the platform exposes no register interface (no msr
// device nodes, non-x86 hardware, msr module not loaded). Distinguishable
// from other probe failures so callers can log "feature inert" vs a real
// fault.
var ErrUnsupported = errors.New("throttle register not supported on this platform")

// Register is the hardware-specific access primitive.
type Register interface {
	// Probe verifies the register can be accessed at all. ErrUnsupported
	// (possibly wrapped) means the feature should be left inert.
	Probe() error
	// Read returns the register value of the CPU the caller runs pinned to.
	Read() (uint64, error)
	// Write sets the register of the CPU the caller runs pinned to.
	Write(v uint64) error
}
