package detector

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/internal/config"
	"github.com/vdtime/vdtime/pkg/desktop"
	"github.com/vdtime/vdtime/pkg/integrations/lockers"
	"github.com/vdtime/vdtime/pkg/integrations/logind"
	"github.com/vdtime/vdtime/pkg/integrations/wayland"
	"github.com/vdtime/vdtime/pkg/integrations/x11"
)

// ErrNoSource is returned when none of the candidate sources can be used
var ErrNoSource = errors.New("no usable source")

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}

// DesktopCandidates lists the desktop sources to try for kind, in order.
// Under Wayland the X11 source is kept as a fallback for compositors that
// publish EWMH desktops to Xwayland.
func DesktopCandidates(kind string) []string {
	if kind != config.SourceAuto {
		return []string{kind}
	}
	switch DetectDisplayServer() {
	case "wayland":
		return []string{config.SourceWayland, config.SourceX11}
	case "x11":
		return []string{config.SourceX11}
	default:
		return []string{config.SourceX11, config.SourceWayland}
	}
}

// SessionCandidates lists the session sources to try for kind, in order
func SessionCandidates(kind string) []string {
	switch kind {
	case config.SourceNone:
		return nil
	case config.SourceAuto:
		return []string{config.SourceLogind, config.SourceLockers}
	default:
		return []string{kind}
	}
}

// NewDesktopSource returns the first available desktop source
func NewDesktopSource(cfg config.TrackerConfig) (desktop.Source, error) {
	var failures []string
	for _, kind := range DesktopCandidates(cfg.DesktopSource) {
		src, err := newDesktopSource(kind, cfg)
		if err == nil && !src.IsAvailable() {
			src.Close()
			err = errors.New("not available")
		}
		if err != nil {
			failures = append(failures, kind+": "+err.Error())
			continue
		}
		return src, nil
	}
	return nil, errors.Wrapf(ErrNoSource, "desktops (%s)", strings.Join(failures, "; "))
}

func newDesktopSource(kind string, cfg config.TrackerConfig) (desktop.Source, error) {
	switch kind {
	case config.SourceX11:
		return x11.NewSource()
	case config.SourceWayland:
		return wayland.NewSource(cfg.PollInterval), nil
	default:
		return nil, errors.Errorf("unknown desktop source %q", kind)
	}
}

// NewSessionSource returns the first available session source. It returns
// nil without error when session tracking is disabled.
func NewSessionSource(cfg config.TrackerConfig) (desktop.SessionSource, error) {
	candidates := SessionCandidates(cfg.SessionSource)
	if len(candidates) == 0 {
		return nil, nil
	}

	var failures []string
	for _, kind := range candidates {
		src, err := newSessionSource(kind, cfg)
		if err == nil && !src.IsAvailable() {
			src.Close()
			err = errors.New("not available")
		}
		if err != nil {
			failures = append(failures, kind+": "+err.Error())
			continue
		}
		return src, nil
	}
	return nil, errors.Wrapf(ErrNoSource, "session (%s)", strings.Join(failures, "; "))
}

func newSessionSource(kind string, cfg config.TrackerConfig) (desktop.SessionSource, error) {
	switch kind {
	case config.SourceLogind:
		return logind.NewSource()
	case config.SourceLockers:
		return lockers.NewSource(cfg.PollInterval), nil
	default:
		return nil, errors.Errorf("unknown session source %q", kind)
	}
}
