package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/pkg/desktop"
)

// Snapshot is one immutable accounting state. Transitions never modify a
// published Snapshot; Reduce returns a new one that shares whatever did
// not change.
type Snapshot struct {
	lastUpdate  time.Time
	active      uuid.UUID // uuid.Nil while the session is locked
	registry    []desktop.Desktop
	accumulated map[uuid.UUID]uint64
}

// NewSnapshot builds the initial state from a live enumeration. An active
// identifier that is not among desktops leaves no desktop active.
func NewSnapshot(desktops []desktop.Desktop, active uuid.UUID, now time.Time) (*Snapshot, error) {
	s := &Snapshot{
		lastUpdate:  now,
		registry:    make([]desktop.Desktop, 0, len(desktops)),
		accumulated: make(map[uuid.UUID]uint64, len(desktops)),
	}
	for _, d := range desktops {
		if _, ok := s.accumulated[d.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicateDesktop, "initial desktop %s", d)
		}
		s.registry = append(s.registry, d)
		s.accumulated[d.ID] = 0
	}
	if _, ok := s.accumulated[active]; ok {
		s.active = active
	}
	return s, nil
}

// LastUpdate returns the instant of the last flush
func (s *Snapshot) LastUpdate() time.Time {
	return s.lastUpdate
}

// Active returns the active desktop identifier, if any
func (s *Snapshot) Active() (uuid.UUID, bool) {
	return s.active, s.active != uuid.Nil
}

// Desktops returns a copy of the registry in insertion order
func (s *Snapshot) Desktops() []desktop.Desktop {
	out := make([]desktop.Desktop, len(s.registry))
	copy(out, s.registry)
	return out
}

// Accumulated returns the flushed seconds of a desktop
func (s *Snapshot) Accumulated(id uuid.UUID) (uint64, bool) {
	secs, ok := s.accumulated[id]
	return secs, ok
}

// Elapsed returns the whole seconds between the last flush and now
func (s *Snapshot) Elapsed(now time.Time) uint64 {
	return elapsedSeconds(s.lastUpdate, now)
}

// Find resolves a desktop by identifier first, then by case-insensitive
// name. The first name match in registry order wins.
func (s *Snapshot) Find(nameOrID string) (desktop.Desktop, bool) {
	if id, err := uuid.Parse(nameOrID); err == nil {
		if i := s.index(id); i >= 0 {
			return s.registry[i], true
		}
	}
	for _, d := range s.registry {
		if strings.EqualFold(d.Name, nameOrID) {
			return d, true
		}
	}
	return desktop.Desktop{}, false
}

// TimeOf computes the time figures of a registered desktop at now
func (s *Snapshot) TimeOf(id uuid.UUID, now time.Time) models.TimeInfo {
	var current uint64
	if s.active != uuid.Nil && id == s.active {
		current = s.Elapsed(now)
	}
	return models.TimeInfo{
		Current: current,
		Total:   s.accumulated[id] + current,
	}
}

// TimeAll computes the time figures of every desktop in registry order
func (s *Snapshot) TimeAll(now time.Time) []models.DesktopAndTime {
	out := make([]models.DesktopAndTime, 0, len(s.registry))
	for _, d := range s.registry {
		out = append(out, models.DesktopAndTime{Desktop: d, Time: s.TimeOf(d.ID, now)})
	}
	return out
}

func (s *Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lastUpdate=%s active=", s.lastUpdate.Format(time.RFC3339))
	if s.active == uuid.Nil {
		b.WriteString("none")
	} else {
		b.WriteString(s.active.String())
	}
	for _, d := range s.registry {
		fmt.Fprintf(&b, " %s=%ds", d, s.accumulated[d.ID])
	}
	return b.String()
}

func (s *Snapshot) index(id uuid.UUID) int {
	for i, d := range s.registry {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// flush credits the interval since lastUpdate to the active desktop and
// returns a copy whose lastUpdate is now. The accumulator map is copied so
// the result can be modified before it is published.
func (s *Snapshot) flush(now time.Time) (*Snapshot, error) {
	next := &Snapshot{
		lastUpdate:  now,
		active:      s.active,
		registry:    s.registry,
		accumulated: make(map[uuid.UUID]uint64, len(s.accumulated)),
	}
	for id, secs := range s.accumulated {
		next.accumulated[id] = secs
	}
	if s.active == uuid.Nil {
		return next, nil
	}

	secs, ok := s.accumulated[s.active]
	if !ok {
		return nil, errors.Wrapf(ErrInconsistentState, "active desktop %s has no accumulator", s.active)
	}
	next.accumulated[s.active] = secs + s.Elapsed(now)
	return next, nil
}

// elapsedSeconds truncates to whole seconds. Every flush drops the
// fractional part, so rapid switching loses up to a second per transition.
// A clock that went backwards credits nothing.
func elapsedSeconds(from, to time.Time) uint64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}
