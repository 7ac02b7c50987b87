package tstate

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"tstated/internal/cputopo"
	"tstated/internal/msr"
	"tstated/internal/pinned"
	"tstated/internal/powerbus"
)

// SlotState is the per-CPU position in the save/restore cycle.
type SlotState string

const (
	SlotUnsaved  SlotState = "unsaved"
	SlotSaved    SlotState = "saved"
	SlotRestored SlotState = "restored"
)

// Dispatcher runs fn pinned to cpu and blocks until it returns.
type Dispatcher interface {
	Run(cpu int, fn func() error) error
}

// Config carries the compensator's collaborators. Dispatch defaults to the
// real pinned runner when nil.
type Config struct {
	Topology *cputopo.Topology
	Register msr.Register
	Dispatch Dispatcher
	Log      zerolog.Logger
}

// CPUSlot is a read-only view of one CPU's slot for status reporting.
type CPUSlot struct {
	CPU   int
	State SlotState
	Value uint64
}

// Compensator owns one register slot per possible CPU. Register access runs
// pinned to the owning CPU; the slot arrays are committed only by the
// goroutine driving a pass, with mu ordering those commits against Snapshot
// readers.
type Compensator struct {
	topo     *cputopo.Topology
	reg      msr.Register
	dispatch Dispatcher
	log      zerolog.Logger

	mu       sync.Mutex
	slots    []uint64
	state    []SlotState
	saves    uint64 // completed save passes
	restores uint64 // completed restore passes
	failures uint64 // per-CPU dispatch/register failures

	sub powerbus.Subscriber
}

func New(cfg Config) *Compensator {
	n := cfg.Topology.PossibleCount()
	c := &Compensator{
		topo:     cfg.Topology,
		reg:      cfg.Register,
		dispatch: cfg.Dispatch,
		log:      cfg.Log,
		slots:    make([]uint64, n),
		state:    make([]SlotState, n),
	}
	if c.dispatch == nil {
		c.dispatch = pinned.Runner{}
	}
	for i := range c.state {
		c.state[i] = SlotUnsaved
	}
	return c
}

// Attach probes the register once and, if supported, subscribes to the bus.
// On an unsupported platform it returns an error wrapping msr.ErrUnsupported
// and the compensator stays inert; no per-event errors can occur afterwards.
func (c *Compensator) Attach(bus *powerbus.Bus) error {
	if err := c.reg.Probe(); err != nil {
		return fmt.Errorf("throttle register probe: %w", err)
	}
	c.sub = powerbus.NewSubscriber("tstate-compensator", c.handle)
	if err := bus.Register(c.sub); err != nil {
		c.sub = nil
		return err
	}
	c.log.Info().Msg("tstate: compensator attached to power-transition bus")
	return nil
}

// Detach unsubscribes from the bus; slots keep their values.
func (c *Compensator) Detach(bus *powerbus.Bus) error {
	if c.sub == nil {
		return powerbus.ErrNotFound
	}
	err := bus.Unregister(c.sub)
	if err == nil {
		c.sub = nil
	}
	return err
}

// Attached reports whether the compensator is subscribed to a bus.
func (c *Compensator) Attached() bool { return c.sub != nil }

// handle never returns an error: every failure is per-CPU, logged, and must
// not stall the host's power-transition sequence.
func (c *Compensator) handle(ev powerbus.Event) error {
	switch ev {
	case powerbus.PreSuspend:
		c.savePass()
	case powerbus.PostResume:
		c.restorePass()
	}
	return nil
}

// savePass captures the register of every online CPU. Hotplug is frozen for
// the whole enumeration-and-dispatch pass. Slots of CPUs that are offline,
// or whose dispatch fails, are left unsaved so restore skips them.
func (c *Compensator) savePass() {
	online := c.topo.Freeze()
	defer c.topo.Unfreeze()

	c.mu.Lock()
	for i := range c.state {
		c.state[i] = SlotUnsaved
	}
	c.mu.Unlock()

	saved := 0
	for _, cpu := range online {
		var v uint64
		err := c.dispatch.Run(cpu, func() error {
			x, err := c.reg.Read()
			v = x
			return err
		})
		if err != nil {
			c.failCPU(cpu, "save", err)
			continue
		}
		c.mu.Lock()
		c.slots[cpu] = v
		c.state[cpu] = SlotSaved
		c.mu.Unlock()
		saved++
	}
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	savePasses.Inc()
	c.log.Info().Int("online", len(online)).Int("saved", saved).Msg("tstate: save pass complete")
}

// restorePass writes back each online CPU's saved value. CPUs without a
// saved slot this cycle (offline at save time, or failed) are skipped; their
// stale values are never applied.
func (c *Compensator) restorePass() {
	online := c.topo.Freeze()
	defer c.topo.Unfreeze()

	restored := 0
	for _, cpu := range online {
		c.mu.Lock()
		st := c.state[cpu]
		v := c.slots[cpu]
		c.mu.Unlock()
		if st != SlotSaved {
			c.log.Debug().Int("cpu", cpu).Str("state", string(st)).Msg("tstate: skipping cpu without saved slot")
			continue
		}
		err := c.dispatch.Run(cpu, func() error {
			return c.reg.Write(v)
		})
		if err != nil {
			c.failCPU(cpu, "restore", err)
			continue
		}
		c.mu.Lock()
		c.state[cpu] = SlotRestored
		c.mu.Unlock()
		restored++
	}
	c.mu.Lock()
	c.restores++
	c.mu.Unlock()
	restorePasses.Inc()
	c.log.Info().Int("online", len(online)).Int("restored", restored).Msg("tstate: restore pass complete")
}

func (c *Compensator) failCPU(cpu int, pass string, err error) {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
	cpuFailures.WithLabelValues(pass).Inc()
	c.log.Error().Err(err).Int("cpu", cpu).Str("pass", pass).Msg("tstate: per-cpu compensation failed")
}

// Snapshot returns every possible CPU's slot for status reporting.
func (c *Compensator) Snapshot() []CPUSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CPUSlot, len(c.slots))
	for i := range c.slots {
		out[i] = CPUSlot{CPU: i, State: c.state[i], Value: c.slots[i]}
	}
	return out
}

// Counters reports completed save passes, restore passes, and per-CPU
// failures since startup.
func (c *Compensator) Counters() (saves, restores, failures uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves, c.restores, c.failures
}
