// Package x11 reads virtual desktops from an EWMH compliant X11 window
// manager through the root window properties.
package x11

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/pkg/desktop"
)

const (
	atomNumberOfDesktops = "_NET_NUMBER_OF_DESKTOPS"
	atomCurrentDesktop   = "_NET_CURRENT_DESKTOP"
	atomDesktopNames     = "_NET_DESKTOP_NAMES"
	atomUTF8String       = "UTF8_STRING"

	maxNamesLength = 4096
)

var atomNames = []string{
	atomNumberOfDesktops,
	atomCurrentDesktop,
	atomDesktopNames,
	atomUTF8String,
}

// Source implements desktop.Source for X11
type Source struct {
	display string
	conn    *xgb.Conn
	root    xproto.Window
	atoms   map[string]xproto.Atom

	baseline  desktop.Baseline
	closeOnce sync.Once
}

var _ desktop.Source = (*Source)(nil)

// NewSource connects to the display named by $DISPLAY
func NewSource() (*Source, error) {
	display := os.Getenv("DISPLAY")
	conn, root, atoms, err := connect(display)
	if err != nil {
		return nil, err
	}
	return &Source{
		display: display,
		conn:    conn,
		root:    root,
		atoms:   atoms,
	}, nil
}

func connect(display string) (*xgb.Conn, xproto.Window, map[string]xproto.Atom, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, 0, nil, errors.Wrapf(err, "connect to X display %q", display)
	}

	root := xproto.Setup(conn).DefaultScreen(conn).Root

	atoms := make(map[string]xproto.Atom, len(atomNames))
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, 0, nil, errors.Wrapf(err, "intern atom %s", name)
		}
		atoms[name] = reply.Atom
	}
	return conn, root, atoms, nil
}

func (s *Source) Name() string {
	return sourceName
}

// IsAvailable reports whether the window manager advertises desktops
func (s *Source) IsAvailable() bool {
	_, err := s.count()
	return err == nil
}

func (s *Source) getProperty(atom xproto.Atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(s.conn, false, s.root, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (s *Source) count() (uint32, error) {
	data, err := s.getProperty(s.atoms[atomNumberOfDesktops], xproto.AtomCardinal, 1)
	if err != nil {
		return 0, errors.Wrap(err, "read "+atomNumberOfDesktops)
	}
	n, ok := parseCardinal(data)
	if !ok {
		return 0, errors.New(atomNumberOfDesktops + " is not set")
	}
	return n, nil
}

func (s *Source) Desktops() ([]desktop.Desktop, error) {
	desktops, err := s.readDesktops()
	if err != nil {
		return nil, err
	}
	s.baseline.SetDesktops(desktops)
	return desktops, nil
}

func (s *Source) Current() (uuid.UUID, error) {
	current, err := s.readCurrent()
	s.baseline.SetCurrent(current)
	return current, err
}

func (s *Source) readDesktops() ([]desktop.Desktop, error) {
	n, err := s.count()
	if err != nil {
		return nil, err
	}
	data, err := s.getProperty(s.atoms[atomDesktopNames], s.atoms[atomUTF8String], maxNamesLength)
	if err != nil {
		return nil, errors.Wrap(err, "read "+atomDesktopNames)
	}
	return buildDesktops(s.display, n, parseNames(data)), nil
}

func (s *Source) readCurrent() (uuid.UUID, error) {
	data, err := s.getProperty(s.atoms[atomCurrentDesktop], xproto.AtomCardinal, 1)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "read "+atomCurrentDesktop)
	}
	index, ok := parseCardinal(data)
	if !ok {
		return uuid.Nil, errors.New(atomCurrentDesktop + " is not set")
	}
	return desktopID(s.display, index), nil
}

// Watch listens for root window property changes on a dedicated connection
// and reports the resulting desktop changes until ctx is done.
func (s *Source) Watch(ctx context.Context, events chan<- desktop.Event) error {
	conn, root, atoms, err := connect(s.display)
	if err != nil {
		return err
	}
	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(conn.Close) }
	defer closeConn()

	err = xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		return errors.Wrap(err, "subscribe to root window property changes")
	}

	if err := s.refresh(ctx, events); err != nil {
		return err
	}

	watched := map[xproto.Atom]bool{
		atoms[atomNumberOfDesktops]: true,
		atoms[atomCurrentDesktop]:   true,
		atoms[atomDesktopNames]:     true,
	}

	notify := make(chan struct{}, 1)
	readErr := make(chan error, 1)
	go func() {
		for {
			ev, xerr := conn.WaitForEvent()
			if ev == nil && xerr == nil {
				readErr <- errors.New("X connection closed")
				return
			}
			if xerr != nil {
				continue
			}
			if pn, ok := ev.(xproto.PropertyNotifyEvent); ok && watched[pn.Atom] {
				select {
				case notify <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			closeConn()
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case <-notify:
			if err := s.refresh(ctx, events); err != nil {
				return err
			}
		}
	}
}

// refresh re-reads the desktops and reports what changed since the consumer
// last learned about them.
func (s *Source) refresh(ctx context.Context, events chan<- desktop.Event) error {
	desktops, err := s.readDesktops()
	if err != nil {
		return err
	}
	current, err := s.readCurrent()
	if err != nil {
		current = uuid.Nil
	}

	for _, ev := range s.baseline.Update(desktops, current) {
		select {
		case events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func (s *Source) Close() error {
	s.closeOnce.Do(s.conn.Close)
	return nil
}
