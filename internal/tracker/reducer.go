package tracker

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/pkg/desktop"
)

// Reduce computes the state that follows s once a has happened at now.
// Every transition except an unlock/logon first flushes the elapsed time
// to the active desktop. A transition that fails, including one that
// panics, returns s unchanged together with the reason.
func Reduce(s *Snapshot, a Action, now time.Time) (next *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = s, errors.Errorf("%v: panic: %v", a, r)
		}
	}()

	next, err = reduce(s, a, now)
	if err != nil {
		return s, errors.Wrapf(err, "%v", a)
	}
	return next, nil
}

func reduce(s *Snapshot, a Action, now time.Time) (*Snapshot, error) {
	switch a := a.(type) {
	case SetDesktop:
		if s.index(a.ID) < 0 {
			return nil, ErrUnknownDesktop
		}
		next, err := s.flush(now)
		if err != nil {
			return nil, err
		}
		next.active = a.ID
		return next, nil

	case NewDesktop:
		if s.index(a.Desktop.ID) >= 0 {
			return nil, ErrDuplicateDesktop
		}
		next, err := s.flush(now)
		if err != nil {
			return nil, err
		}
		next.registry = append(slices.Clip(s.registry), a.Desktop)
		next.accumulated[a.Desktop.ID] = 0
		return next, nil

	case UpdateDesktop:
		i := s.index(a.Desktop.ID)
		if i < 0 {
			return nil, ErrUnknownDesktop
		}
		next, err := s.flush(now)
		if err != nil {
			return nil, err
		}
		next.registry = slices.Clone(s.registry)
		next.registry[i] = a.Desktop
		return next, nil

	case RemoveDesktop:
		i := s.index(a.ID)
		if i < 0 {
			return nil, ErrUnknownDesktop
		}
		next, err := s.flush(now)
		if err != nil {
			return nil, err
		}
		next.registry = slices.Delete(slices.Clone(s.registry), i, i+1)
		delete(next.accumulated, a.ID)
		// The removed desktop was credited by the flush; nobody is
		// active until the next switch.
		if next.active == a.ID {
			next.active = uuid.Nil
		}
		return next, nil

	case SessionSwitch:
		return reduceSession(s, a, now)

	case ResetTime:
		next, err := s.flush(now)
		if err != nil {
			return nil, err
		}
		for id := range next.accumulated {
			next.accumulated[id] = 0
		}
		return next, nil

	default:
		return nil, ErrUnhandledAction
	}
}

func reduceSession(s *Snapshot, a SessionSwitch, now time.Time) (*Snapshot, error) {
	switch a.State {
	case desktop.SessionLocked, desktop.SessionLoggedOff:
		next, err := s.flush(now)
		if err != nil {
			return nil, err
		}
		next.active = uuid.Nil
		return next, nil

	case desktop.SessionUnlocked, desktop.SessionLoggedOn:
		// Nothing was active while locked, so there is nothing to credit:
		// only rebase lastUpdate.
		if a.Current != uuid.Nil && s.index(a.Current) < 0 {
			return nil, ErrUnknownDesktop
		}
		next := *s
		next.lastUpdate = now
		next.active = a.Current
		return &next, nil

	default:
		return s, nil
	}
}
