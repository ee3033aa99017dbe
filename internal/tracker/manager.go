package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/pkg/desktop"
)

const eventBuffer = 64

// Observer is told about rejected transitions and resets. It is called
// after the write lock has been released and must not block.
type Observer interface {
	ActionFailed(at time.Time, action Action, err error)
	TimeReset(at time.Time, totals []models.DesktopAndTime)
}

// Manager owns the authoritative Snapshot. Writers are serialized through
// Reduce; readers load the current Snapshot once and never wait for writers.
type Manager struct {
	source   desktop.Source
	session  desktop.SessionSource
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu         sync.Mutex
	snap       atomic.Pointer[Snapshot]
	subscribed atomic.Bool
}

// Option configures a Manager
type Option func(*Manager)

// WithSessionSource tracks lock/unlock transitions from src
func WithSessionSource(src desktop.SessionSource) Option {
	return func(m *Manager) { m.session = src }
}

// WithLogger sets the logger rejected transitions are reported to
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithObserver registers an Observer
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager enumerates the desktops of src and makes its current desktop
// active.
func NewManager(src desktop.Source, opts ...Option) (*Manager, error) {
	m := &Manager{
		source: src,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	desktops, err := src.Desktops()
	if err != nil {
		return nil, errors.Wrapf(err, "enumerate %s desktops", src.Name())
	}

	current, err := src.Current()
	if err != nil {
		m.logger.Warn("no active desktop at startup", "source", src.Name(), "error", err)
		current = uuid.Nil
	}

	snap, err := NewSnapshot(desktops, current, m.now())
	if err != nil {
		return nil, err
	}
	m.snap.Store(snap)
	m.logger.Info("tracking desktops", "source", src.Name(), "desktops", len(desktops), "snapshot", snap)

	return m, nil
}

// Run subscribes to the desktop and session sources and applies their
// notifications in delivery order until ctx is cancelled or a source fails.
// It may only be called once.
func (m *Manager) Run(ctx context.Context) error {
	if !m.subscribed.CompareAndSwap(false, true) {
		return ErrAlreadySubscribed
	}

	g, ctx := errgroup.WithContext(ctx)
	desktopEvents := make(chan desktop.Event, eventBuffer)
	sessionEvents := make(chan desktop.SessionEvent, eventBuffer)

	g.Go(func() error {
		return errors.Wrapf(m.source.Watch(ctx, desktopEvents), "%s source", m.source.Name())
	})
	if m.session != nil {
		g.Go(func() error {
			return errors.Wrapf(m.session.Watch(ctx, sessionEvents), "%s session source", m.session.Name())
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-desktopEvents:
				m.Apply(desktopAction(ev))
			case ev := <-sessionEvents:
				m.Apply(m.sessionAction(ev))
			}
		}
	})

	return g.Wait()
}

func desktopAction(ev desktop.Event) Action {
	switch ev.Kind {
	case desktop.DesktopSwitched:
		return SetDesktop{ID: ev.Desktop.ID}
	case desktop.DesktopCreated:
		return NewDesktop{Desktop: ev.Desktop}
	case desktop.DesktopRenamed:
		return UpdateDesktop{Desktop: ev.Desktop}
	case desktop.DesktopDestroyed:
		return RemoveDesktop{ID: ev.Desktop.ID}
	default:
		return nil
	}
}

// sessionAction asks the desktop source which desktop is current when the
// session comes back. The query happens before the write lock is taken.
func (m *Manager) sessionAction(ev desktop.SessionEvent) Action {
	a := SessionSwitch{State: ev.State}
	if ev.State == desktop.SessionUnlocked || ev.State == desktop.SessionLoggedOn {
		current, err := m.source.Current()
		if err != nil {
			m.logger.Warn("cannot resolve current desktop", "session", ev.State, "error", err)
		} else {
			a.Current = current
		}
	}
	return a
}

// Apply runs a through the reducer and publishes the result. A rejected
// transition is logged and leaves the current Snapshot in place.
func (m *Manager) Apply(a Action) *Snapshot {
	_, _, next := m.apply(a)
	return next
}

func (m *Manager) apply(a Action) (time.Time, *Snapshot, *Snapshot) {
	m.mu.Lock()
	at := m.now()
	prev := m.snap.Load()
	next, err := Reduce(prev, a, at)
	m.snap.Store(next)
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("transition rejected", "action", a, "error", err)
		if m.observer != nil {
			m.observer.ActionFailed(at, a, err)
		}
		return at, prev, prev
	}
	m.logger.Debug("transition", "action", a, "snapshot", next)
	return at, prev, next
}

// Snapshot returns the current state
func (m *Manager) Snapshot() *Snapshot {
	return m.snap.Load()
}

// Desktops returns the registry in insertion order
func (m *Manager) Desktops() []desktop.Desktop {
	return m.snap.Load().Desktops()
}

// CurrentDesktop returns the active desktop with its time figures
func (m *Manager) CurrentDesktop() (models.DesktopAndTime, error) {
	s := m.snap.Load()
	id, ok := s.Active()
	if !ok {
		return models.DesktopAndTime{}, NotFoundf("no active desktop")
	}
	i := s.index(id)
	if i < 0 {
		return models.DesktopAndTime{}, NotFoundf("no active desktop")
	}
	return models.DesktopAndTime{
		Desktop: s.registry[i],
		Time:    s.TimeOf(id, m.now()),
	}, nil
}

// TimeOn returns the total seconds of the desktop matching exactly one of
// name or guid. Both are resolved identifier first, then by name.
func (m *Manager) TimeOn(name, guid string) (uint64, error) {
	name, guid = strings.TrimSpace(name), strings.TrimSpace(guid)

	var query string
	switch {
	case name != "" && guid != "":
		return 0, Validationf("only one of name or guid may be given")
	case name != "":
		query = name
	case guid != "":
		query = guid
	default:
		return 0, Validationf("missing name or guid")
	}

	s := m.snap.Load()
	d, ok := s.Find(query)
	if !ok {
		return 0, NotFoundf("desktop not found: %s", query)
	}
	return s.TimeOf(d.ID, m.now()).Total, nil
}

// TimeAll returns the time figures of every desktop in registry order
func (m *Manager) TimeAll() []models.DesktopAndTime {
	return m.snap.Load().TimeAll(m.now())
}

// Reset zeroes every accumulator. The totals reached just before the reset
// are handed to the Observer.
func (m *Manager) Reset() {
	at, prev, next := m.apply(ResetTime{})
	if next == prev {
		return
	}
	m.logger.Info("time reset", "at", at)
	if m.observer != nil {
		m.observer.TimeReset(at, prev.TimeAll(at))
	}
}
