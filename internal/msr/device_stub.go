//go:build !linux

package msr

import "fmt"

// DefaultDevRoot matches the linux build for config plumbing; no device tree
// exists on other platforms.
const DefaultDevRoot = "/dev/cpu"

// Device is inert off linux: Probe always reports ErrUnsupported, so the
// compensator never attaches.
type Device struct{}

func NewDevice(devRoot string, addr uint32) *Device { return &Device{} }

func (d *Device) Probe() error {
	return fmt.Errorf("msr device nodes are linux-only: %w", ErrUnsupported)
}

func (d *Device) Read() (uint64, error) { return 0, ErrUnsupported }

func (d *Device) Write(uint64) error { return ErrUnsupported }
