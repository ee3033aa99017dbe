// Package logind reports lock and logon transitions of the current session
// from systemd-logind over the system bus.
package logind

import (
	"context"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/pkg/desktop"
)

const (
	dest           = "org.freedesktop.login1"
	managerPath    = dbus.ObjectPath("/org/freedesktop/login1")
	managerIface   = "org.freedesktop.login1.Manager"
	sessionIface   = "org.freedesktop.login1.Session"
	propertiesName = "org.freedesktop.DBus.Properties.PropertiesChanged"
)

// Source implements desktop.SessionSource for logind
type Source struct {
	conn      *dbus.Conn
	session   dbus.ObjectPath
	sessionID string

	closeOnce sync.Once
}

var _ desktop.SessionSource = (*Source)(nil)

// NewSource connects to the system bus and resolves the session from
// $XDG_SESSION_ID, or from this process when it is unset.
func NewSource() (*Source, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect to system bus")
	}

	s := &Source{conn: conn}
	if err := s.resolveSession(os.Getenv("XDG_SESSION_ID")); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) resolveSession(id string) error {
	manager := s.conn.Object(dest, managerPath)

	var path dbus.ObjectPath
	var err error
	if id != "" {
		err = manager.Call(managerIface+".GetSession", 0, id).Store(&path)
	} else {
		err = manager.Call(managerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	}
	if err != nil {
		return errors.Wrap(err, "resolve logind session")
	}

	if id == "" {
		v, err := s.conn.Object(dest, path).GetProperty(sessionIface + ".Id")
		if err != nil {
			return errors.Wrap(err, "read session id")
		}
		if err := v.Store(&id); err != nil {
			return errors.Wrap(err, "decode session id")
		}
	}

	s.session, s.sessionID = path, id
	return nil
}

func (s *Source) Name() string {
	return "logind"
}

// Session returns the tracked session id
func (s *Source) Session() string {
	return s.sessionID
}

func (s *Source) IsAvailable() bool {
	return s.conn != nil && s.session.IsValid()
}

// Watch reports session transitions until ctx is done. Repeated
// notifications of the same state are reported once.
func (s *Source) Watch(ctx context.Context, events chan<- desktop.SessionEvent) error {
	matches := [][]dbus.MatchOption{
		{dbus.WithMatchObjectPath(s.session), dbus.WithMatchInterface(sessionIface)},
		{dbus.WithMatchObjectPath(s.session), dbus.WithMatchInterface("org.freedesktop.DBus.Properties"), dbus.WithMatchMember("PropertiesChanged")},
		{dbus.WithMatchObjectPath(managerPath), dbus.WithMatchInterface(managerIface)},
	}
	for _, m := range matches {
		if err := s.conn.AddMatchSignal(m...); err != nil {
			return errors.Wrap(err, "subscribe to logind signals")
		}
	}

	signals := make(chan *dbus.Signal, 16)
	s.conn.Signal(signals)
	defer s.conn.RemoveSignal(signals)

	last := desktop.SessionOther
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return errors.New("system bus connection closed")
			}
			state, ok := translateSignal(sig, s.session, s.sessionID)
			if !ok || state == last {
				continue
			}
			last = state
			select {
			case events <- desktop.SessionEvent{State: state}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// translateSignal maps a logind signal about session to a session state
func translateSignal(sig *dbus.Signal, session dbus.ObjectPath, sessionID string) (desktop.SessionState, bool) {
	if sig == nil {
		return desktop.SessionOther, false
	}

	switch sig.Name {
	case sessionIface + ".Lock":
		if sig.Path == session {
			return desktop.SessionLocked, true
		}
	case sessionIface + ".Unlock":
		if sig.Path == session {
			return desktop.SessionUnlocked, true
		}
	case propertiesName:
		if sig.Path != session || len(sig.Body) < 2 {
			break
		}
		if iface, _ := sig.Body[0].(string); iface != sessionIface {
			break
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			break
		}
		hint, ok := changed["LockedHint"]
		if !ok {
			break
		}
		if locked, ok := hint.Value().(bool); ok {
			if locked {
				return desktop.SessionLocked, true
			}
			return desktop.SessionUnlocked, true
		}
	case managerIface + ".SessionRemoved":
		if sessionSignal(sig, session, sessionID) {
			return desktop.SessionLoggedOff, true
		}
	case managerIface + ".SessionNew":
		if sessionSignal(sig, session, sessionID) {
			return desktop.SessionLoggedOn, true
		}
	}
	return desktop.SessionOther, false
}

// sessionSignal reports whether a SessionNew or SessionRemoved signal,
// whose body is (id, path), concerns the tracked session.
func sessionSignal(sig *dbus.Signal, session dbus.ObjectPath, sessionID string) bool {
	if len(sig.Body) < 2 {
		return false
	}
	id, _ := sig.Body[0].(string)
	path, _ := sig.Body[1].(dbus.ObjectPath)
	return (sessionID != "" && id == sessionID) || path == session
}

func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}
