// Package cputopo tracks the set of online CPUs as reported by sysfs and
// provides the hotplug freeze used by save/restore passes: while a pass holds
// the freeze, the online set it was handed cannot change underneath it.
package cputopo

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"tstated/internal/common/fsutil"
)

// DefaultSysfsRoot is the mount point of sysfs on a normal system. Tests
// point the topology at a temp directory with the same layout.
const DefaultSysfsRoot = "/sys"

type Topology struct {
	sysfsRoot string
	log       zerolog.Logger

	// mu is the hosted analogue of the kernel's cpus_read_lock: passes that
	// must see a stable online set hold the read side via Freeze, and
	// Refresh (the hotplug transition) takes the write side.
	mu       sync.RWMutex
	online   []int
	possible int
}

// New builds a topology rooted at sysfsRoot and performs the initial read of
// the possible and online CPU sets.
func New(sysfsRoot string, log zerolog.Logger) (*Topology, error) {
	if sysfsRoot == "" {
		sysfsRoot = DefaultSysfsRoot
	}
	t := &Topology{sysfsRoot: sysfsRoot, log: log}
	possible, err := t.readList("possible")
	if err != nil {
		return nil, fmt.Errorf("possible cpus: %w", err)
	}
	if len(possible) == 0 {
		return nil, fmt.Errorf("possible cpus: empty set in %s", t.cpuDir())
	}
	// Slots are indexed by CPU id, so size from the highest possible id.
	t.possible = possible[len(possible)-1] + 1
	if err := t.Refresh(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Topology) cpuDir() string {
	return filepath.Join(t.sysfsRoot, "devices", "system", "cpu")
}

func (t *Topology) readList(name string) ([]int, error) {
	s, err := fsutil.ReadTrimmed(filepath.Join(t.cpuDir(), name))
	if err != nil {
		return nil, err
	}
	return ParseList(s)
}

// Refresh re-reads the online set. It takes the write side of the hotplug
// lock, so it blocks while any pass holds the freeze.
func (t *Topology) Refresh() error {
	online, err := t.readList("online")
	if err != nil {
		return fmt.Errorf("online cpus: %w", err)
	}
	t.mu.Lock()
	prev := len(t.online)
	t.online = online
	t.mu.Unlock()
	if prev != len(online) {
		t.log.Info().Int("online", len(online)).Msg("cputopo: online set changed")
	}
	return nil
}

// Freeze excludes hotplug transitions (Refresh) until Unfreeze and returns a
// snapshot of the online CPUs, ascending. The caller must not mutate it.
func (t *Topology) Freeze() []int {
	t.mu.RLock()
	out := make([]int, len(t.online))
	copy(out, t.online)
	return out
}

// Unfreeze releases the hotplug freeze taken by Freeze.
func (t *Topology) Unfreeze() {
	t.mu.RUnlock()
}

// OnlineCPUs returns the current online set without freezing hotplug.
func (t *Topology) OnlineCPUs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, len(t.online))
	copy(out, t.online)
	return out
}

// PossibleCount is one past the highest CPU id the platform can ever bring
// online; per-CPU arrays are sized with it.
func (t *Topology) PossibleCount() int {
	return t.possible
}
