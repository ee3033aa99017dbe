// Package wayland reads workspaces from wlroots compositors that expose them
// through their IPC tools. Compositors are polled.
package wayland

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/pkg/desktop"
)

// Compositors with workspace support
const (
	Sway     = "sway"
	Hyprland = "hyprland"
	Unknown  = "unknown"
)

const maxFailures = 5

// Runner executes an IPC command and returns its standard output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Source implements desktop.Source by polling the compositor
type Source struct {
	compositor string
	display    string
	interval   time.Duration
	run        Runner

	baseline desktop.Baseline
}

var _ desktop.Source = (*Source)(nil)

// NewSource detects the running compositor and polls it every interval
func NewSource(interval time.Duration) *Source {
	return NewSourceWith(DetectCompositor(), interval, execRunner)
}

// NewSourceWith polls compositor through run
func NewSourceWith(compositor string, interval time.Duration, run Runner) *Source {
	return &Source{
		compositor: compositor,
		display:    os.Getenv("WAYLAND_DISPLAY"),
		interval:   interval,
		run:        run,
	}
}

// DetectCompositor identifies the compositor from its IPC environment,
// falling back to the process list.
func DetectCompositor() string {
	if os.Getenv("SWAYSOCK") != "" {
		return Sway
	}
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return Hyprland
	}

	compositors := map[string]string{
		"sway":     Sway,
		"Hyprland": Hyprland,
	}
	for process, name := range compositors {
		if err := exec.Command("pgrep", "-x", process).Run(); err == nil {
			return name
		}
	}
	return Unknown
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// Compositor returns the detected compositor
func (s *Source) Compositor() string {
	return s.compositor
}

func (s *Source) Name() string {
	return "wayland/" + s.compositor
}

func (s *Source) IsAvailable() bool {
	switch s.compositor {
	case Sway:
		return commandExists("swaymsg")
	case Hyprland:
		return commandExists("hyprctl")
	default:
		return false
	}
}

func (s *Source) Desktops() ([]desktop.Desktop, error) {
	desktops, _, err := s.poll(context.Background())
	if err != nil {
		return nil, err
	}
	s.baseline.SetDesktops(desktops)
	return desktops, nil
}

func (s *Source) Current() (uuid.UUID, error) {
	_, current, err := s.poll(context.Background())
	if err == nil && current == uuid.Nil {
		err = errors.New("no focused workspace")
	}
	if err != nil {
		current = uuid.Nil
	}
	s.baseline.SetCurrent(current)
	return current, err
}

func (s *Source) poll(ctx context.Context) ([]desktop.Desktop, uuid.UUID, error) {
	switch s.compositor {
	case Sway:
		out, err := s.run(ctx, "swaymsg", "-t", "get_workspaces", "-r")
		if err != nil {
			return nil, uuid.Nil, errors.Wrap(err, "swaymsg get_workspaces")
		}
		return parseSwayWorkspaces(s.display, out)
	case Hyprland:
		out, err := s.run(ctx, "hyprctl", "workspaces", "-j")
		if err != nil {
			return nil, uuid.Nil, errors.Wrap(err, "hyprctl workspaces")
		}
		active, err := s.run(ctx, "hyprctl", "activeworkspace", "-j")
		if err != nil {
			return nil, uuid.Nil, errors.Wrap(err, "hyprctl activeworkspace")
		}
		return parseHyprlandWorkspaces(s.display, out, active)
	default:
		return nil, uuid.Nil, errors.Errorf("unsupported wayland compositor: %s", s.compositor)
	}
}

// Watch polls the compositor every interval and reports what changed until
// ctx is done. A failed poll is retried on the next tick; Watch gives up
// after maxFailures consecutive failures.
func (s *Source) Watch(ctx context.Context, events chan<- desktop.Event) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.refresh(ctx, events); err != nil {
		return err
	}
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := s.refresh(ctx, events); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if failures >= maxFailures {
				return errors.Wrapf(err, "%d consecutive polls failed", failures)
			}
			continue
		}
		failures = 0
	}
}

func (s *Source) refresh(ctx context.Context, events chan<- desktop.Event) error {
	desktops, current, err := s.poll(ctx)
	if err != nil {
		return err
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
	return nil
}

type swayWorkspace struct {
	Num     int    `json:"num"`
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
	Output  string `json:"output"`
}

// parseSwayWorkspaces decodes `swaymsg -t get_workspaces -r`. Sway identifies
// workspaces by name, so a rename is reported as a new workspace.
func parseSwayWorkspaces(display string, data []byte) ([]desktop.Desktop, uuid.UUID, error) {
	var workspaces []swayWorkspace
	if err := json.Unmarshal(data, &workspaces); err != nil {
		return nil, uuid.Nil, errors.Wrap(err, "decode sway workspaces")
	}

	desktops := make([]desktop.Desktop, 0, len(workspaces))
	current := uuid.Nil
	for _, ws := range workspaces {
		d := desktop.Desktop{Name: ws.Name, ID: desktop.StableID(Sway, display, ws.Name)}
		desktops = append(desktops, d)
		if ws.Focused {
			current = d.ID
		}
	}
	return desktops, current, nil
}

type hyprWorkspace struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// parseHyprlandWorkspaces decodes `hyprctl workspaces -j` and
// `hyprctl activeworkspace -j`. Workspaces are ordered by id; special
// workspaces (negative ids) are skipped. A focused special workspace is an
// overlay, so it yields uuid.Nil and the regular workspace stays current.
func parseHyprlandWorkspaces(display string, data, active []byte) ([]desktop.Desktop, uuid.UUID, error) {
	var workspaces []hyprWorkspace
	if err := json.Unmarshal(data, &workspaces); err != nil {
		return nil, uuid.Nil, errors.Wrap(err, "decode hyprland workspaces")
	}
	var focused hyprWorkspace
	if err := json.Unmarshal(active, &focused); err != nil {
		return nil, uuid.Nil, errors.Wrap(err, "decode hyprland active workspace")
	}

	sort.Slice(workspaces, func(i, j int) bool { return workspaces[i].ID < workspaces[j].ID })

	desktops := make([]desktop.Desktop, 0, len(workspaces))
	current := uuid.Nil
	for _, ws := range workspaces {
		if ws.ID < 0 {
			continue
		}
		name := ws.Name
		if name == "" {
			name = strconv.Itoa(ws.ID)
		}
		d := desktop.Desktop{Name: name, ID: desktop.StableID(Hyprland, display, strconv.Itoa(ws.ID))}
		desktops = append(desktops, d)
		if ws.ID == focused.ID {
			current = d.ID
		}
	}
	return desktops, current, nil
}
