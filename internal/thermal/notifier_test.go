package thermal

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"tstated/internal/powerbus"
)

func TestEventForCollapsesModes(t *testing.T) {
	pre := []Mode{ModeSuspend, ModeHibernate, ModeRestore}
	for _, m := range pre {
		ev, err := EventFor(m)
		if err != nil || ev != powerbus.PreSuspend {
			t.Fatalf("EventFor(%s) = %v, %v; want PreSuspend", m, ev, err)
		}
	}
	post := []Mode{ModeResume, ModeThaw}
	for _, m := range post {
		ev, err := EventFor(m)
		if err != nil || ev != powerbus.PostResume {
			t.Fatalf("EventFor(%s) = %v, %v; want PostResume", m, ev, err)
		}
	}
	if _, err := EventFor("standby"); !IsUnknownMode(err) {
		t.Fatalf("expected unknown-mode error, got %v", err)
	}
}

func TestBusDrainedBeforeOwnStep(t *testing.T) {
	bus := powerbus.New(zerolog.Nop())
	var order []string
	err := bus.Register(powerbus.NewSubscriber("sub", func(ev powerbus.Event) error {
		order = append(order, "subscriber:"+ev.String())
		return nil
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	n := New(Config{
		Bus:        bus,
		Log:        zerolog.Nop(),
		Reevaluate: func() { order = append(order, "reevaluate") },
	})
	if err := n.Transition(ModeSuspend); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if !n.Status().SuspendInProgress {
		t.Fatal("suspend-in-progress not marked after pre-suspend")
	}
	if err := n.Transition(ModeResume); err != nil {
		t.Fatalf("resume: %v", err)
	}
	want := []string{"subscriber:pre_suspend", "subscriber:post_resume", "reevaluate"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	st := n.Status()
	if st.SuspendInProgress {
		t.Fatal("suspend-in-progress still set after resume")
	}
	if st.LastMode != ModeResume || st.Transitions != 2 {
		t.Fatalf("status = %+v", st)
	}
}

func TestReevaluateOnlyOnResume(t *testing.T) {
	bus := powerbus.New(zerolog.Nop())
	calls := 0
	n := New(Config{Bus: bus, Log: zerolog.Nop(), Reevaluate: func() { calls++ }})
	if err := n.Transition(ModeHibernate); err != nil {
		t.Fatalf("hibernate: %v", err)
	}
	if calls != 0 {
		t.Fatal("reevaluate ran on a pre-suspend transition")
	}
	if err := n.Transition(ModeThaw); err != nil {
		t.Fatalf("thaw: %v", err)
	}
	if calls != 1 {
		t.Fatalf("reevaluate calls = %d, want 1", calls)
	}
}

func TestSubscriberFailureDoesNotAbortTransition(t *testing.T) {
	bus := powerbus.New(zerolog.Nop())
	if err := bus.Register(powerbus.NewSubscriber("bad", func(powerbus.Event) error {
		return errors.New("boom")
	})); err != nil {
		t.Fatalf("register: %v", err)
	}
	ran := false
	n := New(Config{Bus: bus, Log: zerolog.Nop(), Reevaluate: func() { ran = true }})
	if err := n.Transition(ModeResume); err != nil {
		t.Fatalf("transition must swallow subscriber failures, got %v", err)
	}
	if !ran {
		t.Fatal("own step skipped after subscriber failure")
	}
}

func TestRefreshRunsBeforeBroadcast(t *testing.T) {
	bus := powerbus.New(zerolog.Nop())
	var order []string
	if err := bus.Register(powerbus.NewSubscriber("sub", func(powerbus.Event) error {
		order = append(order, "broadcast")
		return nil
	})); err != nil {
		t.Fatalf("register: %v", err)
	}
	n := New(Config{
		Bus:     bus,
		Log:     zerolog.Nop(),
		Refresh: func() error { order = append(order, "refresh"); return nil },
	})
	if err := n.Transition(ModeSuspend); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(order) != 2 || order[0] != "refresh" || order[1] != "broadcast" {
		t.Fatalf("order = %v, want [refresh broadcast]", order)
	}
}
