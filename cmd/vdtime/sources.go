package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vdtime/vdtime/internal/reporter"
	"github.com/vdtime/vdtime/pkg/desktop"
	"github.com/vdtime/vdtime/pkg/detector"
)

// sourcesAction opens the configured sources without a daemon and prints what
// they report, so source selection can be checked on a new system.
func sourcesAction(c *cli.Context) error {
	cfg := loadConfig(c)
	w := c.App.Writer

	fmt.Fprintf(w, "Display server: %s\n", detector.DetectDisplayServer())

	src, err := detector.NewDesktopSource(cfg.Tracker)
	if err != nil {
		return err
	}
	defer src.Close()

	desktops, err := src.Desktops()
	if err != nil {
		return err
	}
	current, err := src.Current()
	if err != nil {
		pterm.Warning.Printfln("No current desktop: %v", err)
	}
	fmt.Fprintf(w, "Desktop source: %s (current %s)\n", src.Name(), current)
	out, err := reporter.New(nil).FormatDesktopsText(desktops)
	if err != nil {
		return err
	}
	fmt.Fprint(w, out)

	session, err := detector.NewSessionSource(cfg.Tracker)
	switch {
	case err != nil:
		pterm.Warning.Printfln("No session source: %v", err)
	case session == nil:
		fmt.Fprintln(w, "Session source: disabled")
	default:
		defer session.Close()
		fmt.Fprintf(w, "Session source: %s\n", session.Name())
	}

	duration := c.Duration("duration")
	if duration <= 0 {
		return nil
	}
	fmt.Fprintf(w, "\nWatching for %s. Switch desktops or lock the screen.\n", duration)

	ctx, cancel := context.WithTimeout(c.Context, duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	events := make(chan desktop.Event, 16)
	sessionEvents := make(chan desktop.SessionEvent, 16)
	g.Go(func() error { return src.Watch(ctx, events) })
	if session != nil {
		g.Go(func() error { return session.Watch(ctx, sessionEvents) })
	}
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				fmt.Fprintf(w, "%s  %-10s %s\n", time.Now().Format(time.TimeOnly), ev.Kind, ev.Desktop)
			case ev := <-sessionEvents:
				fmt.Fprintf(w, "%s  %-10s\n", time.Now().Format(time.TimeOnly), ev.State)
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Fprintln(w, "\nDone")
	return nil
}
