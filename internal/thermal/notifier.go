// Package thermal hosts the power-event side of the thermal subsystem: it
// collapses platform transition modes into bus events, drains the
// power-transition bus, and only then performs its own mode work. The actual
// governor/trip-point logic is external; it plugs in via the Reevaluate hook
// and is guaranteed to observe register state the compensator has already
// corrected.
package thermal

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tstated/internal/powerbus"
)

// Mode is a platform transition as reported by the suspend orchestration
// (e.g. a systemd-sleep hook).
type Mode string

const (
	ModeSuspend   Mode = "suspend"   // suspend-to-RAM, about to enter
	ModeHibernate Mode = "hibernate" // hibernation prepare
	ModeRestore   Mode = "restore"   // restore-from-image prepare
	ModeResume    Mode = "resume"    // back from suspend-to-RAM
	ModeThaw      Mode = "thaw"      // back from hibernation/restore
)

type unknownModeError struct{ mode Mode }

func (e unknownModeError) Error() string { return "unknown transition mode: " + string(e.mode) }

// IsUnknownMode reports whether err indicates a transition mode the notifier
// does not recognize (the HTTP layer maps it to 400).
func IsUnknownMode(err error) bool {
	_, ok := err.(unknownModeError)
	return ok
}

// EventFor collapses a platform mode into the two bus events: all preparing
// modes become PreSuspend and all returning modes become PostResume.
func EventFor(mode Mode) (powerbus.Event, error) {
	switch mode {
	case ModeSuspend, ModeHibernate, ModeRestore:
		return powerbus.PreSuspend, nil
	case ModeResume, ModeThaw:
		return powerbus.PostResume, nil
	default:
		return 0, unknownModeError{mode: mode}
	}
}

// Config wires the notifier. Refresh (topology re-read) runs before each
// transition; Reevaluate is the thermal zone re-check invoked after the bus
// has drained on resume. Both are optional.
type Config struct {
	Bus        *powerbus.Bus
	Log        zerolog.Logger
	Refresh    func() error
	Reevaluate func()
}

// Status is a point-in-time view for reporting.
type Status struct {
	SuspendInProgress bool
	LastMode          Mode
	LastAt            time.Time
	Transitions       uint64
}

// Notifier drives the power-transition sequence for one mode change at a
// time. The suspend orchestration calls Transition exactly once per mode.
type Notifier struct {
	bus        *powerbus.Bus
	log        zerolog.Logger
	refresh    func() error
	reevaluate func()

	mu                sync.Mutex
	suspendInProgress bool
	lastMode          Mode
	lastAt            time.Time
	transitions       uint64
}

func New(cfg Config) *Notifier {
	return &Notifier{
		bus:        cfg.Bus,
		log:        cfg.Log,
		refresh:    cfg.Refresh,
		reevaluate: cfg.Reevaluate,
	}
}

// Transition broadcasts the event for mode and then performs the notifier's
// own step: marking suspend-in-progress on the way down, clearing it and
// re-evaluating thermal state on the way up. The bus is fully drained before
// either step, so subscribers (the register compensator) have finished by
// the time the re-evaluation looks at hardware state. Subscriber failures
// are logged but never abort the sequence.
func (n *Notifier) Transition(mode Mode) error {
	ev, err := EventFor(mode)
	if err != nil {
		return err
	}
	if n.refresh != nil {
		// The online set may have changed since the last transition.
		if rerr := n.refresh(); rerr != nil {
			n.log.Warn().Err(rerr).Msg("thermal: topology refresh failed, using last known online set")
		}
	}
	start := time.Now()
	if berr := n.bus.Broadcast(ev); berr != nil {
		n.log.Warn().Err(berr).Str("event", ev.String()).Msg("thermal: subscriber failure during broadcast")
	}
	n.mu.Lock()
	switch ev {
	case powerbus.PreSuspend:
		n.suspendInProgress = true
	case powerbus.PostResume:
		n.suspendInProgress = false
	}
	n.lastMode = mode
	n.lastAt = start
	n.transitions++
	reeval := ev == powerbus.PostResume && n.reevaluate != nil
	n.mu.Unlock()
	if reeval {
		n.reevaluate()
	}
	n.log.Info().Str("mode", string(mode)).Str("event", ev.String()).Dur("dur", time.Since(start)).Msg("thermal: transition handled")
	return nil
}

func (n *Notifier) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{
		SuspendInProgress: n.suspendInProgress,
		LastMode:          n.lastMode,
		LastAt:            n.lastAt,
		Transitions:       n.transitions,
	}
}
