package powerbus

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Event is a power-transition notification. Hibernate/restore preparation is
// collapsed into PreSuspend and post-hibernate/-restore/-thaw into PostResume
// by the caller; the bus only knows these two.
type Event int

const (
	PreSuspend Event = iota
	PostResume
)

func (e Event) String() string {
	switch e {
	case PreSuspend:
		return "pre_suspend"
	case PostResume:
		return "post_resume"
	default:
		return "unknown"
	}
}

// Subscriber handles a power-transition event. Handle runs synchronously on
// the goroutine driving the transition; it must not call back into the bus
// (Register/Unregister from within Handle deadlocks).
type Subscriber interface {
	Handle(Event) error
}

type funcSubscriber struct {
	name string
	fn   func(Event) error
}

func (s *funcSubscriber) Handle(ev Event) error { return s.fn(ev) }

// NewSubscriber wraps fn in a Subscriber with a stable identity. The returned
// handle is what Register/Unregister compare; keep it if you intend to
// unregister later. name is used in logs only.
func NewSubscriber(name string, fn func(Event) error) Subscriber {
	return &funcSubscriber{name: name, fn: fn}
}

var (
	// ErrAlreadyRegistered is returned by Register for a subscriber already on the bus.
	ErrAlreadyRegistered = errors.New("subscriber already registered")
	// ErrNotFound is returned by Unregister for a subscriber not on the bus.
	ErrNotFound = errors.New("subscriber not registered")
)

// Bus is an ordered, synchronous broadcast channel for power-transition
// events. Subscribers are invoked in registration order; each must return
// before the next runs, and Broadcast returns only after all have run.
type Bus struct {
	mu   sync.Mutex
	subs []Subscriber
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Register appends s to the broadcast order.
func (b *Bus) Register(s Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cur := range b.subs {
		if cur == s {
			return ErrAlreadyRegistered
		}
	}
	b.subs = append(b.subs, s)
	b.log.Debug().Str("subscriber", subscriberName(s)).Int("total", len(b.subs)).Msg("bus: subscriber registered")
	return nil
}

// Unregister removes s. The relative order of the remaining subscribers is
// unchanged.
func (b *Bus) Unregister(s Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.subs {
		if cur == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			b.log.Debug().Str("subscriber", subscriberName(s)).Int("total", len(b.subs)).Msg("bus: subscriber unregistered")
			return nil
		}
	}
	return ErrNotFound
}

// Broadcast delivers ev to every subscriber in registration order, waiting
// for each before invoking the next. A failing subscriber is logged and does
// not stop delivery to the rest; the first error is returned so callers can
// surface it, but by the time Broadcast returns every subscriber has run.
// The bus lock is held for the whole traversal.
func (b *Bus) Broadcast(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for _, s := range b.subs {
		if err := s.Handle(ev); err != nil {
			b.log.Error().Err(err).Str("event", ev.String()).Str("subscriber", subscriberName(s)).Msg("bus: subscriber failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Len reports the number of registered subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func subscriberName(s Subscriber) string {
	if fs, ok := s.(*funcSubscriber); ok {
		return fs.name
	}
	return "anonymous"
}
