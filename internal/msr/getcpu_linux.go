//go:build linux

package msr

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// currentCPU reports the CPU the calling thread runs on. Stable only while
// the caller is pinned.
func currentCPU() (int, error) {
	var cpu uint32
	if _, _, errno := unix.Syscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), 0, 0); errno != 0 {
		return 0, fmt.Errorf("getcpu: %w", errno)
	}
	return int(cpu), nil
}
