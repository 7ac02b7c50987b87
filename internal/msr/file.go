package msr

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileRegister backs the register with one plain file per CPU (cpu0, cpu1,
// ... under Dir), each holding a decimal value. It exists for development
// boxes without the msr module and for tests; semantics match Device,
// including current-CPU resolution, which can be overridden for
// deterministic tests.
type FileRegister struct {
	Dir string
	// CPUFunc resolves the calling thread's CPU; nil means the platform
	// getcpu. Tests inject a fixed answer.
	CPUFunc func() (int, error)
}

func NewFileRegister(dir string) *FileRegister { return &FileRegister{Dir: dir} }

func (r *FileRegister) cpu() (int, error) {
	if r.CPUFunc != nil {
		return r.CPUFunc()
	}
	return currentCPU()
}

func (r *FileRegister) path(cpu int) string {
	return filepath.Join(r.Dir, "cpu"+strconv.Itoa(cpu))
}

// Probe maps a missing backing directory to ErrUnsupported.
func (r *FileRegister) Probe() error {
	st, err := os.Stat(r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", r.Dir, ErrUnsupported)
		}
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s: not a directory", r.Dir)
	}
	return nil
}

func (r *FileRegister) Read() (uint64, error) {
	cpu, err := r.cpu()
	if err != nil {
		return 0, err
	}
	b, err := os.ReadFile(r.path(cpu))
	if err != nil {
		return 0, fmt.Errorf("read register file: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse register file for cpu%d: %w", cpu, err)
	}
	return v, nil
}

func (r *FileRegister) Write(v uint64) error {
	cpu, err := r.cpu()
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.path(cpu), []byte(strconv.FormatUint(v, 10)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write register file: %w", err)
	}
	return nil
}
