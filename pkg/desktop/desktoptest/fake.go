// Package desktoptest provides in-memory desktop and session sources for tests.
package desktoptest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/vdtime/vdtime/pkg/desktop"
)

var ErrNoCurrent = errors.New("no current desktop")

// Source is a desktop.Source whose state and notifications are driven by the test.
type Source struct {
	mu       sync.Mutex
	desktops []desktop.Desktop
	current  uuid.UUID
	feed     chan desktop.Event
	closed   bool
}

// NewSource returns a source enumerating desktops with current active.
func NewSource(current uuid.UUID, desktops ...desktop.Desktop) *Source {
	return &Source{
		desktops: append([]desktop.Desktop(nil), desktops...),
		current:  current,
		feed:     make(chan desktop.Event, 64),
	}
}

func (s *Source) Desktops() ([]desktop.Desktop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]desktop.Desktop(nil), s.desktops...), nil
}

func (s *Source) Current() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == uuid.Nil {
		return uuid.Nil, ErrNoCurrent
	}
	return s.current, nil
}

// SetCurrent changes the desktop reported by Current without emitting an event.
func (s *Source) SetCurrent(id uuid.UUID) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

// Emit queues a notification for Watch. A DesktopSwitched event also
// updates the desktop reported by Current.
func (s *Source) Emit(ev desktop.Event) {
	if ev.Kind == desktop.DesktopSwitched {
		s.SetCurrent(ev.Desktop.ID)
	}
	s.feed <- ev
}

func (s *Source) Watch(ctx context.Context, events chan<- desktop.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.feed:
			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *Source) IsAvailable() bool { return true }

func (s *Source) Name() string { return "fake" }

func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SessionSource is a desktop.SessionSource driven by the test.
type SessionSource struct {
	feed chan desktop.SessionEvent
}

func NewSessionSource() *SessionSource {
	return &SessionSource{feed: make(chan desktop.SessionEvent, 64)}
}

// Emit queues a session transition for Watch.
func (s *SessionSource) Emit(state desktop.SessionState) {
	s.feed <- desktop.SessionEvent{State: state}
}

func (s *SessionSource) Watch(ctx context.Context, events chan<- desktop.SessionEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.feed:
			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *SessionSource) IsAvailable() bool { return true }

func (s *SessionSource) Name() string { return "fake-session" }

func (s *SessionSource) Close() error { return nil }
