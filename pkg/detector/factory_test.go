package detector

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vdtime/vdtime/internal/config"
)

func setDisplayEnv(t *testing.T, sessionType, waylandDisplay, x11Display string) {
	t.Helper()
	t.Setenv("XDG_SESSION_TYPE", sessionType)
	t.Setenv("WAYLAND_DISPLAY", waylandDisplay)
	t.Setenv("DISPLAY", x11Display)
}

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		expected       string
	}{
		{
			name:           "Wayland session",
			sessionType:    "wayland",
			waylandDisplay: "wayland-0",
			expected:       "wayland",
		},
		{
			name:        "X11 session",
			sessionType: "x11",
			x11Display:  ":0",
			expected:    "x11",
		},
		{
			name:     "Unknown session",
			expected: "unknown",
		},
		{
			name:           "Wayland display set",
			waylandDisplay: "wayland-1",
			expected:       "wayland",
		},
		{
			name:       "X11 display set",
			x11Display: ":1",
			expected:   "x11",
		},
		{
			name:           "Xwayland display alongside Wayland",
			waylandDisplay: "wayland-1",
			x11Display:     ":0",
			expected:       "wayland",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setDisplayEnv(t, tt.sessionType, tt.waylandDisplay, tt.x11Display)

			result := DetectDisplayServer()
			if result != tt.expected {
				t.Errorf("DetectDisplayServer() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestDesktopCandidates(t *testing.T) {
	tests := []struct {
		name        string
		kind        string
		sessionType string
		want        []string
	}{
		{"Explicit x11", config.SourceX11, "wayland", []string{"x11"}},
		{"Explicit wayland", config.SourceWayland, "x11", []string{"wayland"}},
		{"Auto on Wayland", config.SourceAuto, "wayland", []string{"wayland", "x11"}},
		{"Auto on X11", config.SourceAuto, "x11", []string{"x11"}},
		{"Auto unknown", config.SourceAuto, "", []string{"x11", "wayland"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setDisplayEnv(t, tt.sessionType, "", "")
			if diff := cmp.Diff(tt.want, DesktopCandidates(tt.kind)); diff != "" {
				t.Errorf("DesktopCandidates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSessionCandidates(t *testing.T) {
	tests := []struct {
		kind string
		want []string
	}{
		{config.SourceAuto, []string{"logind", "lockers"}},
		{config.SourceLogind, []string{"logind"}},
		{config.SourceLockers, []string{"lockers"}},
		{config.SourceNone, nil},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SessionCandidates(tt.kind)); diff != "" {
			t.Errorf("SessionCandidates(%s) mismatch (-want +got):\n%s", tt.kind, diff)
		}
	}
}

func TestNewSessionSourceDisabled(t *testing.T) {
	cfg := config.Default().Tracker
	cfg.SessionSource = config.SourceNone

	src, err := NewSessionSource(cfg)
	if err != nil || src != nil {
		t.Errorf("NewSessionSource(none) = %v, %v, want nil, nil", src, err)
	}
}

func TestNewDesktopSourceUnknownKind(t *testing.T) {
	cfg := config.Default().Tracker
	cfg.DesktopSource = "quartz"

	if _, err := NewDesktopSource(cfg); !errors.Is(err, ErrNoSource) {
		t.Errorf("NewDesktopSource(quartz) = %v, want ErrNoSource", err)
	}
}

func TestNewDesktopSource(t *testing.T) {
	src, err := NewDesktopSource(config.Default().Tracker)
	if err != nil {
		t.Skipf("no desktop source on this system: %v", err)
	}
	defer src.Close()

	desktops, err := src.Desktops()
	if err != nil {
		t.Fatalf("Desktops() error: %v", err)
	}
	t.Logf("%s: %d desktops", src.Name(), len(desktops))
}
