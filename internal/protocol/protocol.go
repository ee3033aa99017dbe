// Package protocol defines the five commands shared by the HTTP and pipe
// adaptors and the encodings of their replies.
package protocol

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/internal/tracker"
	"github.com/vdtime/vdtime/pkg/desktop"
)

// Verb names a command
type Verb string

const (
	GetDesktops Verb = "get_desktops"
	CurrDesktop Verb = "curr_desktop"
	TimeOn      Verb = "time_on"
	TimeAll     Verb = "time_all"
	Reset       Verb = "reset"
)

// Verbs lists every command in protocol order
var Verbs = []Verb{GetDesktops, CurrDesktop, TimeOn, TimeAll, Reset}

// Ack is the reply to a successful reset
const Ack = "ok"

const bom = "\uFEFF"

// Request is one parsed command
type Request struct {
	Verb Verb
	Name string
	GUID string
}

// String renders r as a command line without the terminator
func (r Request) String() string {
	switch {
	case r.Name != "":
		return string(r.Verb) + " name=" + r.Name
	case r.GUID != "":
		return string(r.Verb) + " guid=" + r.GUID
	default:
		return string(r.Verb)
	}
}

// Service answers commands. *tracker.Manager implements it.
type Service interface {
	Desktops() []desktop.Desktop
	CurrentDesktop() (models.DesktopAndTime, error)
	TimeOn(name, guid string) (uint64, error)
	TimeAll() []models.DesktopAndTime
	Reset()
}

// ParseLine parses `<verb>[ <key>=<value>]`. The verb is case-insensitive;
// the value is the rest of the line and may contain spaces.
func ParseLine(line string) (Request, error) {
	line = strings.TrimPrefix(line, bom)
	line = strings.TrimRight(line, "\r\n")

	verb, args, _ := strings.Cut(line, " ")
	req := Request{Verb: Verb(strings.ToLower(strings.TrimSpace(verb)))}

	if args == "" {
		return req, nil
	}
	key, value, ok := strings.Cut(args, "=")
	if !ok {
		return req, tracker.Validationf("malformed argument %q, expected key=value", args)
	}
	switch strings.ToLower(key) {
	case "name":
		req.Name = value
	case "guid":
		req.GUID = value
	default:
		return req, tracker.Validationf("unknown argument %q", key)
	}
	return req, nil
}

// Execute runs req against svc. The result is []desktop.Desktop,
// models.DesktopAndTime, uint64, []models.DesktopAndTime or Ack.
func Execute(svc Service, req Request) (any, error) {
	switch req.Verb {
	case GetDesktops:
		return svc.Desktops(), nil
	case CurrDesktop:
		return svc.CurrentDesktop()
	case TimeOn:
		if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.GUID) == "" {
			return nil, tracker.Validationf("time_on requires name= or guid= parameter")
		}
		return svc.TimeOn(req.Name, req.GUID)
	case TimeAll:
		return svc.TimeAll(), nil
	case Reset:
		svc.Reset()
		return Ack, nil
	default:
		return nil, tracker.Validationf("unknown command: %s", req.Verb)
	}
}

// ErrorReply is the structured form of a failed command
type ErrorReply struct {
	Error string `json:"error"`
}

// EncodeLine renders a result for the pipe: time_on as a bare decimal,
// reset as the acknowledgement, everything else as single-line JSON.
func EncodeLine(result any, err error) string {
	if err != nil {
		return encodeError(err)
	}
	switch v := result.(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		return v
	}
	b, err := json.Marshal(result)
	if err != nil {
		return encodeError(err)
	}
	return string(b)
}

func encodeError(err error) string {
	b, _ := json.Marshal(ErrorReply{Error: err.Error()})
	return string(b)
}

// DecodeError returns the message of a structured error reply
func DecodeError(line string) (string, bool) {
	if !strings.HasPrefix(line, "{") {
		return "", false
	}
	var reply ErrorReply
	if err := json.Unmarshal([]byte(line), &reply); err != nil || reply.Error == "" {
		return "", false
	}
	return reply.Error, true
}

// Status maps an Execute error to an HTTP status code
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, tracker.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
