package tracker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vdtime/vdtime/pkg/desktop"
)

// Action is a state transition understood by Reduce. The set is closed:
// only the types in this file implement it.
type Action interface {
	fmt.Stringer
	isAction()
}

// SetDesktop makes ID the active desktop
type SetDesktop struct {
	ID uuid.UUID
}

// NewDesktop registers a desktop with zero accumulated time
type NewDesktop struct {
	Desktop desktop.Desktop
}

// UpdateDesktop replaces the registry entry with the same ID
type UpdateDesktop struct {
	Desktop desktop.Desktop
}

// RemoveDesktop drops a desktop and its accumulated time
type RemoveDesktop struct {
	ID uuid.UUID
}

// SessionSwitch reports a session transition. Current is the desktop the
// desktop source reported as active when the session was unlocked or
// logged on; uuid.Nil when it could not tell.
type SessionSwitch struct {
	State   desktop.SessionState
	Current uuid.UUID
}

// ResetTime zeroes every accumulator
type ResetTime struct{}

func (SetDesktop) isAction()    {}
func (NewDesktop) isAction()    {}
func (UpdateDesktop) isAction() {}
func (RemoveDesktop) isAction() {}
func (SessionSwitch) isAction() {}
func (ResetTime) isAction()     {}

func (a SetDesktop) String() string    { return fmt.Sprintf("SetDesktop(%s)", a.ID) }
func (a NewDesktop) String() string    { return fmt.Sprintf("NewDesktop(%s)", a.Desktop) }
func (a UpdateDesktop) String() string { return fmt.Sprintf("UpdateDesktop(%s)", a.Desktop) }
func (a RemoveDesktop) String() string { return fmt.Sprintf("RemoveDesktop(%s)", a.ID) }
func (a ResetTime) String() string     { return "ResetTime" }

func (a SessionSwitch) String() string {
	if a.Current == uuid.Nil {
		return fmt.Sprintf("SessionSwitch(%s)", a.State)
	}
	return fmt.Sprintf("SessionSwitch(%s, %s)", a.State, a.Current)
}
