package lockers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vdtime/vdtime/pkg/desktop"
)

type processes struct {
	mu      sync.Mutex
	running map[string]bool
}

func (p *processes) set(name string, running bool) {
	p.mu.Lock()
	p.running[name] = running
	p.mu.Unlock()
}

func (p *processes) isRunning(ctx context.Context, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running[name]
}

func TestLocked(t *testing.T) {
	procs := &processes{running: map[string]bool{}}
	src := NewSourceWith(time.Second, []string{"i3lock", "slock"}, procs.isRunning)

	if src.Locked(context.Background()) {
		t.Error("Locked() = true with no lockers running")
	}
	procs.set("slock", true)
	if !src.Locked(context.Background()) {
		t.Error("Locked() = false with slock running")
	}
	procs.set("xterm", true)
	procs.set("slock", false)
	if src.Locked(context.Background()) {
		t.Error("Locked() = true for an unknown process")
	}
}

func next(t *testing.T, events <-chan desktop.SessionEvent) desktop.SessionState {
	t.Helper()
	select {
	case ev := <-events:
		return ev.State
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a session event")
		return desktop.SessionOther
	}
}

func TestWatchReportsTransitions(t *testing.T) {
	procs := &processes{running: map[string]bool{}}
	src := NewSourceWith(2*time.Millisecond, []string{"i3lock", "swaylock"}, procs.isRunning)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan desktop.SessionEvent, 4)
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx, events) }()

	time.Sleep(10 * time.Millisecond)
	procs.set("i3lock", true)
	if got := next(t, events); got != desktop.SessionLocked {
		t.Errorf("first transition = %v, want locked", got)
	}

	// A second locker while locked is not a transition
	procs.set("swaylock", true)
	procs.set("i3lock", false)
	time.Sleep(10 * time.Millisecond)
	procs.set("swaylock", false)
	if got := next(t, events); got != desktop.SessionUnlocked {
		t.Errorf("second transition = %v, want unlocked", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() = %v, want nil", err)
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected event %v", ev.State)
	default:
	}
}
