package tracker

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies errors surfaced by read queries
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
)

// Error is a query failure callers are expected to report back to clients.
// errors.Is(err, ErrValidation) and errors.Is(err, ErrNotFound) match any
// Error of the same kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Kind == e.Kind
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
)

// Validationf returns a KindValidation error
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a KindNotFound error
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Transition failures. These never reach query callers; the reducer
// reports them and keeps the previous snapshot.
var (
	ErrUnknownDesktop    = errors.New("unknown desktop")
	ErrDuplicateDesktop  = errors.New("desktop already registered")
	ErrUnhandledAction   = errors.New("unhandled action")
	ErrInconsistentState = errors.New("inconsistent snapshot")
	ErrAlreadySubscribed = errors.New("already subscribed to desktop events")
)
