package desktop

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Desktop is a virtual desktop with a stable identifier and a display name
type Desktop struct {
	Name string    `json:"Name"`
	ID   uuid.UUID `json:"Id"`
}

func (d Desktop) String() string {
	return fmt.Sprintf("%s(%s)", d.Name, d.ID)
}

// EventKind identifies a desktop notification
type EventKind int

const (
	DesktopSwitched EventKind = iota
	DesktopCreated
	DesktopRenamed
	DesktopDestroyed
)

func (k EventKind) String() string {
	switch k {
	case DesktopSwitched:
		return "switched"
	case DesktopCreated:
		return "created"
	case DesktopRenamed:
		return "renamed"
	case DesktopDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is an asynchronous notification from a desktop source.
// For DesktopSwitched and DesktopDestroyed only Desktop.ID is meaningful.
type Event struct {
	Kind    EventKind
	Desktop Desktop
}

// SessionState is the session transition reported by a session source
type SessionState int

const (
	SessionOther SessionState = iota
	SessionLocked
	SessionUnlocked
	SessionLoggedOff
	SessionLoggedOn
)

func (s SessionState) String() string {
	switch s {
	case SessionLocked:
		return "locked"
	case SessionUnlocked:
		return "unlocked"
	case SessionLoggedOff:
		return "logged-off"
	case SessionLoggedOn:
		return "logged-on"
	default:
		return "other"
	}
}

// SessionEvent is an asynchronous notification from a session source
type SessionEvent struct {
	State SessionState
}

// Source is the interface that all desktop enumeration implementations must satisfy
type Source interface {
	// Desktops returns every desktop in display order
	Desktops() ([]Desktop, error)

	// Current returns the identifier of the active desktop
	Current() (uuid.UUID, error)

	// Watch delivers notifications in the order they happen until ctx is
	// cancelled or the source fails. It must not close events.
	Watch(ctx context.Context, events chan<- Event) error

	// IsAvailable checks if this source can run on the current system
	IsAvailable() bool

	// Name returns the source name ("x11", "sway", ...)
	Name() string

	// Close cleans up any resources used by the source
	Close() error
}

// SessionSource reports lock/unlock and logoff/logon transitions
type SessionSource interface {
	// Watch delivers notifications in the order they happen until ctx is
	// cancelled or the source fails. It must not close events.
	Watch(ctx context.Context, events chan<- SessionEvent) error

	// IsAvailable checks if this source can run on the current system
	IsAvailable() bool

	// Name returns the source name ("logind", "lockers", ...)
	Name() string

	// Close cleans up any resources used by the source
	Close() error
}

// Namespace is the UUID namespace for desktop identifiers derived from
// window-system specific keys.
var Namespace = uuid.MustParse("6b1c4e2a-3f0d-5e8b-9a47-d1c2b3a4f5e6")

// StableID derives a deterministic identifier for a desktop from the
// source name, the display it lives on and its key within that display.
func StableID(source, display, key string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(source+"/"+display+"/"+key))
}
