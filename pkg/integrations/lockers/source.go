// Package lockers infers the lock state from running screen locker
// processes, for sessions without logind.
package lockers

import (
	"context"
	"os/exec"
	"time"

	"github.com/vdtime/vdtime/pkg/desktop"
)

// Known screen lockers
var Known = []string{
	"gnome-screensaver-dialog",
	"kscreenlocker",
	"kscreenlocker_greet",
	"i3lock",
	"slock",
	"swaylock",
	"hyprlock",
	"xscreensaver",
	"xsecurelock",
}

// IsRunning reports whether the named process is running
type IsRunning func(ctx context.Context, process string) bool

func pgrep(ctx context.Context, process string) bool {
	return exec.CommandContext(ctx, "pgrep", "-x", process).Run() == nil
}

// Source implements desktop.SessionSource by polling for lockers
type Source struct {
	interval time.Duration
	lockers  []string
	running  IsRunning
}

var _ desktop.SessionSource = (*Source)(nil)

func NewSource(interval time.Duration) *Source {
	return NewSourceWith(interval, Known, pgrep)
}

func NewSourceWith(interval time.Duration, lockers []string, running IsRunning) *Source {
	return &Source{
		interval: interval,
		lockers:  lockers,
		running:  running,
	}
}

func (s *Source) Name() string {
	return "lockers"
}

func (s *Source) IsAvailable() bool {
	_, err := exec.LookPath("pgrep")
	return err == nil
}

// Locked reports whether any known locker is running
func (s *Source) Locked(ctx context.Context) bool {
	for _, locker := range s.lockers {
		if s.running(ctx, locker) {
			return true
		}
	}
	return false
}

// Watch polls every interval and reports Locked when a locker appears and
// Unlocked when the last one exits.
func (s *Source) Watch(ctx context.Context, events chan<- desktop.SessionEvent) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	locked := s.Locked(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		now := s.Locked(ctx)
		if now == locked {
			continue
		}
		locked = now

		state := desktop.SessionUnlocked
		if locked {
			state = desktop.SessionLocked
		}
		select {
		case events <- desktop.SessionEvent{State: state}:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Source) Close() error {
	return nil
}
