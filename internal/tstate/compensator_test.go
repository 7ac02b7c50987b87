package tstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"tstated/internal/cputopo"
	"tstated/internal/msr"
	"tstated/internal/powerbus"
)

// fakeHardware plays both the dispatcher and the register: Run records which
// CPU the closure is "pinned" to, and Read/Write act on that CPU's cell. It
// can inject dispatch failures per CPU.
type fakeHardware struct {
	mu          sync.Mutex
	regs        map[int]uint64
	cur         int
	probeErr    error
	dispatchErr map[int]error
}

func newFakeHardware(values map[int]uint64) *fakeHardware {
	regs := make(map[int]uint64, len(values))
	for cpu, v := range values {
		regs[cpu] = v
	}
	return &fakeHardware{regs: regs, dispatchErr: map[int]error{}}
}

func (h *fakeHardware) Run(cpu int, fn func() error) error {
	h.mu.Lock()
	if err := h.dispatchErr[cpu]; err != nil {
		h.mu.Unlock()
		return err
	}
	h.cur = cpu
	h.mu.Unlock()
	return fn()
}

func (h *fakeHardware) Probe() error { return h.probeErr }

func (h *fakeHardware) Read() (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.regs[h.cur]
	if !ok {
		return 0, fmt.Errorf("no register cell for cpu%d", h.cur)
	}
	return v, nil
}

func (h *fakeHardware) Write(v uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.regs[h.cur] = v
	return nil
}

func (h *fakeHardware) value(cpu int) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.regs[cpu]
}

func (h *fakeHardware) set(cpu int, v uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.regs[cpu] = v
}

// testTopology builds a Topology over a fake sysfs tree; rewrite + Refresh
// simulates hotplug.
func testTopology(t *testing.T, possible, online string) (*cputopo.Topology, func(online string)) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "devices", "system", "cpu")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("possible", possible)
	write("online", online)
	topo, err := cputopo.New(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	return topo, func(online string) {
		write("online", online)
		if err := topo.Refresh(); err != nil {
			t.Fatalf("refresh: %v", err)
		}
	}
}

func newTestCompensator(t *testing.T, hw *fakeHardware, topo *cputopo.Topology) (*Compensator, *powerbus.Bus) {
	t.Helper()
	c := New(Config{Topology: topo, Register: hw, Dispatch: hw, Log: zerolog.Nop()})
	bus := powerbus.New(zerolog.Nop())
	if err := c.Attach(bus); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return c, bus
}

func TestSaveRestoreRoundTripSurvivesTampering(t *testing.T) {
	topo, _ := testTopology(t, "0-3", "0-3")
	hw := newFakeHardware(map[int]uint64{0: 10, 1: 10, 2: 10, 3: 10})
	_, bus := newTestCompensator(t, hw, topo)

	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("pre-suspend broadcast: %v", err)
	}
	// Firmware silently throttles everything during suspend.
	for cpu := 0; cpu < 4; cpu++ {
		hw.set(cpu, 3)
	}
	if err := bus.Broadcast(powerbus.PostResume); err != nil {
		t.Fatalf("post-resume broadcast: %v", err)
	}
	for cpu := 0; cpu < 4; cpu++ {
		if got := hw.value(cpu); got != 10 {
			t.Fatalf("cpu%d register = %d after restore, want 10", cpu, got)
		}
	}
}

func TestSlotStateCycle(t *testing.T) {
	topo, _ := testTopology(t, "0-1", "0-1")
	hw := newFakeHardware(map[int]uint64{0: 7, 1: 8})
	c, bus := newTestCompensator(t, hw, topo)

	for _, s := range c.Snapshot() {
		if s.State != SlotUnsaved {
			t.Fatalf("cpu%d starts in %s, want unsaved", s.CPU, s.State)
		}
	}
	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	for _, s := range c.Snapshot() {
		if s.State != SlotSaved {
			t.Fatalf("cpu%d in %s after save, want saved", s.CPU, s.State)
		}
	}
	if err := bus.Broadcast(powerbus.PostResume); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	for _, s := range c.Snapshot() {
		if s.State != SlotRestored {
			t.Fatalf("cpu%d in %s after restore, want restored", s.CPU, s.State)
		}
	}
	// Next cycle saves again; no terminal state.
	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	for _, s := range c.Snapshot() {
		if s.State != SlotSaved {
			t.Fatalf("cpu%d in %s on second cycle, want saved", s.CPU, s.State)
		}
	}
}

func TestOfflineAtRestoreIsSkipped(t *testing.T) {
	topo, setOnline := testTopology(t, "0-3", "0-3")
	hw := newFakeHardware(map[int]uint64{0: 10, 1: 11, 2: 12, 3: 13})
	c, bus := newTestCompensator(t, hw, topo)

	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	for cpu := 0; cpu < 4; cpu++ {
		hw.set(cpu, 1) // tamper
	}
	setOnline("0-1,3") // cpu2 offlined between save and restore
	if err := bus.Broadcast(powerbus.PostResume); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	for _, cpu := range []int{0, 1, 3} {
		if got := hw.value(cpu); got != uint64(10+cpu) {
			t.Fatalf("cpu%d register = %d, want %d", cpu, got, 10+cpu)
		}
	}
	if got := hw.value(2); got != 1 {
		t.Fatalf("offline cpu2 register = %d, want untouched 1", got)
	}
	// cpu2 comes back; its stale slot must not be applied outside a cycle,
	// and the next save pass re-captures it.
	setOnline("0-3")
	if got := hw.value(2); got != 1 {
		t.Fatalf("cpu2 register = %d after re-online, want 1", got)
	}
	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	var cpu2 CPUSlot
	for _, s := range c.Snapshot() {
		if s.CPU == 2 {
			cpu2 = s
		}
	}
	if cpu2.State != SlotSaved || cpu2.Value != 1 {
		t.Fatalf("cpu2 slot = %+v after next save, want saved value 1", cpu2)
	}
}

func TestOfflineAtSaveStaysUnsaved(t *testing.T) {
	topo, setOnline := testTopology(t, "0-3", "0-1,3")
	hw := newFakeHardware(map[int]uint64{0: 10, 1: 10, 2: 99, 3: 10})
	c, bus := newTestCompensator(t, hw, topo)

	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	setOnline("0-3") // cpu2 online again before resume
	if err := bus.Broadcast(powerbus.PostResume); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	var cpu2 CPUSlot
	for _, s := range c.Snapshot() {
		if s.CPU == 2 {
			cpu2 = s
		}
	}
	if cpu2.State != SlotUnsaved {
		t.Fatalf("cpu2 slot state = %s, want unsaved (never captured this cycle)", cpu2.State)
	}
	if got := hw.value(2); got != 99 {
		t.Fatalf("cpu2 register = %d, want untouched 99", got)
	}
}

func TestUnsupportedRegisterNeverSubscribes(t *testing.T) {
	topo, _ := testTopology(t, "0-1", "0-1")
	hw := newFakeHardware(map[int]uint64{0: 1, 1: 1})
	hw.probeErr = fmt.Errorf("no msr: %w", msr.ErrUnsupported)

	c := New(Config{Topology: topo, Register: hw, Dispatch: hw, Log: zerolog.Nop()})
	bus := powerbus.New(zerolog.Nop())
	err := c.Attach(bus)
	if !errors.Is(err, msr.ErrUnsupported) {
		t.Fatalf("expected wrapped ErrUnsupported, got %v", err)
	}
	if c.Attached() || bus.Len() != 0 {
		t.Fatal("compensator subscribed despite unsupported register")
	}
	// Transitions still succeed with zero side effects.
	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if err := bus.Broadcast(powerbus.PostResume); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if hw.value(0) != 1 || hw.value(1) != 1 {
		t.Fatal("register touched by inert compensator")
	}
	saves, restores, failures := c.Counters()
	if saves != 0 || restores != 0 || failures != 0 {
		t.Fatalf("counters moved while inert: %d %d %d", saves, restores, failures)
	}
}

func TestDispatchFailureIsLocalToCPU(t *testing.T) {
	topo, _ := testTopology(t, "0-2", "0-2")
	hw := newFakeHardware(map[int]uint64{0: 10, 1: 20, 2: 30})
	hw.dispatchErr[1] = errors.New("execution context unreachable")
	c, bus := newTestCompensator(t, hw, topo)

	if err := bus.Broadcast(powerbus.PreSuspend); err != nil {
		t.Fatalf("pre-suspend must stay fail-open, got %v", err)
	}
	for cpu := 0; cpu < 3; cpu++ {
		hw.set(cpu, 0)
	}
	if err := bus.Broadcast(powerbus.PostResume); err != nil {
		t.Fatalf("post-resume must stay fail-open, got %v", err)
	}
	if hw.value(0) != 10 || hw.value(2) != 30 {
		t.Fatalf("healthy cpus not restored: %d %d", hw.value(0), hw.value(2))
	}
	if hw.value(1) != 0 {
		t.Fatalf("failed cpu1 register = %d, want untouched 0", hw.value(1))
	}
	_, _, failures := c.Counters()
	if failures != 1 {
		t.Fatalf("failures = %d, want 1 (save only; restore skips the unsaved slot)", failures)
	}
}

func TestDetach(t *testing.T) {
	topo, _ := testTopology(t, "0", "0")
	hw := newFakeHardware(map[int]uint64{0: 5})
	c, bus := newTestCompensator(t, hw, topo)

	if err := c.Detach(bus); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if c.Attached() || bus.Len() != 0 {
		t.Fatal("still attached after detach")
	}
	if err := c.Detach(bus); !errors.Is(err, powerbus.ErrNotFound) {
		t.Fatalf("second detach: %v", err)
	}
}
