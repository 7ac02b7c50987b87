// Package daemon assembles the topology, compensator, and thermal notifier
// into the service the HTTP layer exposes.
package daemon

import (
	"fmt"
	"time"

	"tstated/internal/cputopo"
	"tstated/internal/thermal"
	"tstated/internal/tstate"
	"tstated/pkg/types"
)

type Daemon struct {
	topo      *cputopo.Topology
	comp      *tstate.Compensator
	notifier  *thermal.Notifier
	startTime time.Time
}

func New(topo *cputopo.Topology, comp *tstate.Compensator, notifier *thermal.Notifier) *Daemon {
	return &Daemon{topo: topo, comp: comp, notifier: notifier, startTime: time.Now()}
}

// Transition feeds a platform mode into the power-transition sequence.
func (d *Daemon) Transition(mode string) error {
	return d.notifier.Transition(thermal.Mode(mode))
}

func (d *Daemon) Ready() bool {
	return d.topo != nil && d.notifier != nil
}

func (d *Daemon) Status() types.StatusResponse {
	saves, restores, failures := d.comp.Counters()
	ts := d.notifier.Status()
	resp := types.StatusResponse{
		RegisterSupported:  d.comp.Attached(),
		SuspendInProgress:  ts.SuspendInProgress,
		LastMode:           string(ts.LastMode),
		TransitionsTotal:   ts.Transitions,
		SavePassesTotal:    saves,
		RestorePassesTotal: restores,
		CPUFailuresTotal:   failures,
		OnlineCPUs:         len(d.topo.OnlineCPUs()),
		PossibleCPUs:       d.topo.PossibleCount(),
		UptimeSeconds:      int64(time.Since(d.startTime).Seconds()),
		ServerTimeUnix:     time.Now().Unix(),
	}
	if !ts.LastAt.IsZero() {
		resp.LastTransitionUnix = ts.LastAt.Unix()
	}
	return resp
}

func (d *Daemon) CPUs() []types.CPUStatus {
	online := map[int]bool{}
	for _, cpu := range d.topo.OnlineCPUs() {
		online[cpu] = true
	}
	slots := d.comp.Snapshot()
	out := make([]types.CPUStatus, 0, len(slots))
	for _, s := range slots {
		cs := types.CPUStatus{
			CPU:       s.CPU,
			Online:    online[s.CPU],
			SlotState: string(s.State),
		}
		if s.State != tstate.SlotUnsaved {
			cs.Value = fmt.Sprintf("%#x", s.Value)
		}
		out = append(out, cs)
	}
	return out
}
