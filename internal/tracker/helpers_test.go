package tracker

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/pkg/desktop"
	"github.com/vdtime/vdtime/pkg/desktop/desktoptest"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingObserver struct {
	mu     sync.Mutex
	failed []Action
	resets [][]models.DesktopAndTime
}

func (o *recordingObserver) ActionFailed(_ time.Time, a Action, _ error) {
	o.mu.Lock()
	o.failed = append(o.failed, a)
	o.mu.Unlock()
}

func (o *recordingObserver) TimeReset(_ time.Time, totals []models.DesktopAndTime) {
	o.mu.Lock()
	o.resets = append(o.resets, totals)
	o.mu.Unlock()
}

func testDesktop(name string) desktop.Desktop {
	return desktop.Desktop{Name: name, ID: desktop.StableID("test", "", name)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager starts with desktops registered and the first one active.
func newTestManager(t *testing.T, desktops ...desktop.Desktop) (*Manager, *fakeClock, *desktoptest.Source) {
	t.Helper()

	active := uuid.Nil
	if len(desktops) > 0 {
		active = desktops[0].ID
	}
	src := desktoptest.NewSource(active, desktops...)
	clock := newFakeClock()

	m, err := NewManager(src, WithClock(clock.Now), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return m, clock, src
}

func mustTimeOn(t *testing.T, m *Manager, query string) uint64 {
	t.Helper()
	secs, err := m.TimeOn(query, "")
	if err != nil {
		t.Fatalf("TimeOn(%q) error: %v", query, err)
	}
	return secs
}
