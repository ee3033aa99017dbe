package protocol

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/internal/tracker"
	"github.com/vdtime/vdtime/pkg/desktop"
	"github.com/vdtime/vdtime/pkg/desktop/desktoptest"
)

var (
	home = desktop.Desktop{Name: "Home", ID: desktop.StableID("test", "", "0")}
	work = desktop.Desktop{Name: "Work Stuff", ID: desktop.StableID("test", "", "1")}
)

func newService(t *testing.T) *tracker.Manager {
	t.Helper()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start
	m, err := tracker.NewManager(
		desktoptest.NewSource(home.ID, home, work),
		tracker.WithClock(func() time.Time { return now }),
		tracker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	now = start.Add(42 * time.Second)
	return m
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Request
		wantErr error
	}{
		{"Bare verb", "get_desktops", Request{Verb: GetDesktops}, nil},
		{"Upper case verb", "TIME_ALL", Request{Verb: TimeAll}, nil},
		{"Trailing newline", "reset\r\n", Request{Verb: Reset}, nil},
		{"Byte order mark", "\uFEFFcurr_desktop", Request{Verb: CurrDesktop}, nil},
		{"Name with spaces", "time_on name=Work Stuff", Request{Verb: TimeOn, Name: "Work Stuff"}, nil},
		{"Guid", "time_on guid=" + home.ID.String(), Request{Verb: TimeOn, GUID: home.ID.String()}, nil},
		{"Value with equals", "time_on name=a=b", Request{Verb: TimeOn, Name: "a=b"}, nil},
		{"Missing equals", "time_on Home", Request{Verb: TimeOn}, tracker.ErrValidation},
		{"Unknown key", "time_on id=1", Request{Verb: TimeOn}, tracker.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseLine(%q) error = %v, want %v", tt.line, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine(%q) error: %v", tt.line, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestRequestString(t *testing.T) {
	for _, req := range []Request{
		{Verb: TimeAll},
		{Verb: TimeOn, Name: "Work Stuff"},
		{Verb: TimeOn, GUID: home.ID.String()},
	} {
		got, err := ParseLine(req.String())
		if err != nil {
			t.Fatalf("ParseLine(%q) error: %v", req.String(), err)
		}
		if diff := cmp.Diff(req, got); diff != "" {
			t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", req.String(), diff)
		}
	}
}

func TestExecute(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name    string
		req     Request
		want    any
		wantErr error
	}{
		{
			name: "get_desktops",
			req:  Request{Verb: GetDesktops},
			want: []desktop.Desktop{home, work},
		},
		{
			name: "curr_desktop",
			req:  Request{Verb: CurrDesktop},
			want: models.DesktopAndTime{Desktop: home, Time: models.TimeInfo{Current: 42, Total: 42}},
		},
		{
			name: "time_on by name",
			req:  Request{Verb: TimeOn, Name: "home"},
			want: uint64(42),
		},
		{
			name: "time_on by guid",
			req:  Request{Verb: TimeOn, GUID: work.ID.String()},
			want: uint64(0),
		},
		{
			name:    "time_on without arguments",
			req:     Request{Verb: TimeOn},
			wantErr: tracker.ErrValidation,
		},
		{
			name:    "time_on unknown desktop",
			req:     Request{Verb: TimeOn, Name: "Games"},
			wantErr: tracker.ErrNotFound,
		},
		{
			name: "time_all",
			req:  Request{Verb: TimeAll},
			want: []models.DesktopAndTime{
				{Desktop: home, Time: models.TimeInfo{Current: 42, Total: 42}},
				{Desktop: work},
			},
		},
		{
			name:    "unknown verb",
			req:     Request{Verb: "shutdown"},
			wantErr: tracker.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Execute(svc, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Execute() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteReset(t *testing.T) {
	svc := newService(t)

	got, err := Execute(svc, Request{Verb: Reset})
	if err != nil || got != Ack {
		t.Fatalf("Execute(reset) = %v, %v, want %q", got, err, Ack)
	}
	secs, err := svc.TimeOn("Home", "")
	if err != nil || secs != 0 {
		t.Errorf("TimeOn(Home) after reset = %d, %v, want 0", secs, err)
	}
}

func TestEncodeLine(t *testing.T) {
	tests := []struct {
		name   string
		result any
		err    error
		want   string
	}{
		{"Number", uint64(93), nil, "93"},
		{"Ack", Ack, nil, "ok"},
		{"Desktops", []desktop.Desktop{home}, nil, `[{"Name":"Home","Id":"` + home.ID.String() + `"}]`},
		{
			"Desktop and time",
			models.DesktopAndTime{Desktop: home, Time: models.TimeInfo{Current: 1, Total: 2}},
			nil,
			`{"Desktop":{"Name":"Home","Id":"` + home.ID.String() + `"},"Time":{"Current":1,"Total":2}}`,
		},
		{"Error", nil, tracker.Validationf("missing name or guid"), `{"error":"missing name or guid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeLine(tt.result, tt.err); got != tt.want {
				t.Errorf("EncodeLine() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeError(t *testing.T) {
	if msg, ok := DecodeError(`{"error":"desktop not found: x"}`); !ok || msg != "desktop not found: x" {
		t.Errorf("DecodeError() = %q, %v", msg, ok)
	}
	for _, line := range []string{"12", "ok", `{"Desktop":{}}`, `[]`} {
		if _, ok := DecodeError(line); ok {
			t.Errorf("DecodeError(%s) reported an error", line)
		}
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{tracker.Validationf("bad"), http.StatusBadRequest},
		{tracker.NotFoundf("gone"), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
