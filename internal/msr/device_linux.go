//go:build linux

package msr

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// DefaultDevRoot is where the msr kernel module exposes per-CPU device nodes
// (/dev/cpu/<n>/msr).
const DefaultDevRoot = "/dev/cpu"

// Device reads and writes one model-specific register through the msr device
// nodes. Which CPU's register is touched follows from the calling thread's
// affinity: the node is picked with getcpu(2), which is stable while pinned.
type Device struct {
	devRoot string
	addr    int64
}

// NewDevice returns a Device for the register at addr (the MSR number).
func NewDevice(devRoot string, addr uint32) *Device {
	if devRoot == "" {
		devRoot = DefaultDevRoot
	}
	return &Device{devRoot: devRoot, addr: int64(addr)}
}

func (d *Device) node(cpu int) string {
	return filepath.Join(d.devRoot, strconv.Itoa(cpu), "msr")
}

// Probe checks that the msr device node for CPU 0 exists and can be opened.
// A missing node tree maps to ErrUnsupported; permission problems and the
// like are reported as-is.
func (d *Device) Probe() error {
	f, err := os.OpenFile(d.node(0), os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", d.node(0), ErrUnsupported)
		}
		return fmt.Errorf("probe msr device: %w", err)
	}
	return f.Close()
}

func (d *Device) Read() (uint64, error) {
	cpu, err := currentCPU()
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(d.node(cpu), os.O_RDONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("open msr node: %w", err)
	}
	defer f.Close()
	var buf [8]byte
	if _, err := unix.Pread(int(f.Fd()), buf[:], d.addr); err != nil {
		return 0, fmt.Errorf("read msr 0x%x on cpu%d: %w", d.addr, cpu, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (d *Device) Write(v uint64) error {
	cpu, err := currentCPU()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(d.node(cpu), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open msr node: %w", err)
	}
	defer f.Close()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if _, err := unix.Pwrite(int(f.Fd()), buf[:], d.addr); err != nil {
		return fmt.Errorf("write msr 0x%x on cpu%d: %w", d.addr, cpu, err)
	}
	return nil
}
