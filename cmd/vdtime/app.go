package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/vdtime/vdtime/internal/config"
)

const configKey = "config"

func init() {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		disableStyling()
	}

	pterm.Error.MessageStyle = pterm.NewStyle(pterm.FgRed)
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// disableStyling disables all styling provided by pterm
func disableStyling() {
	pterm.DisableColor()
	pterm.DisableStyling()
	pterm.Info.Prefix.Text = ""
	pterm.Success.Prefix.Text = ""
	pterm.Warning.Prefix.Text = ""
	pterm.Error.Prefix.Text = ""
}

// loadConfig returns the configuration loaded in Before
func loadConfig(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

func newApp() *cli.App {
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the reply as JSON.",
	}
	compactFlag := &cli.BoolFlag{
		Name:    "compact",
		Aliases: []string{"c"},
		Usage:   "Print name and time blocks sized for small key displays.",
	}

	return &cli.App{
		Name:      appName,
		Usage:     "Track the time spent on each virtual desktop.",
		UsageText: appName + " [GLOBAL OPTIONS] COMMAND [OPTIONS]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Read configuration from `FILE` (default " + config.DefaultFile() + ").",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable coloured output.",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				disableStyling()
			}
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]any{configKey: cfg}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Start the tracking daemon in the background",
				Action: startAction,
			},
			{
				Name:  "serve",
				Usage: "Run the tracking daemon in the foreground",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Serve the HTTP API on `PORT`.",
					},
					&cli.StringFlag{
						Name:  "pipe",
						Usage: "Serve the command pipe on the socket at `PATH`.",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Adaptors to serve: rest, pipe or both.",
					},
				},
				Action: serveAction,
			},
			{
				Name:   "stop",
				Usage:  "Stop the tracking daemon",
				Action: stopAction,
			},
			{
				Name:   "status",
				Usage:  "Show daemon status and the active desktop",
				Action: statusAction,
			},
			{
				Name:   "desktops",
				Usage:  "List the known desktops",
				Flags:  []cli.Flag{jsonFlag},
				Action: desktopsAction,
			},
			{
				Name:   "current",
				Usage:  "Show the active desktop and its time",
				Flags:  []cli.Flag{jsonFlag, compactFlag},
				Action: currentAction,
			},
			{
				Name:  "time-on",
				Usage: "Show the total seconds spent on one desktop",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Desktop `NAME` (case-insensitive).",
					},
					&cli.StringFlag{
						Name:    "guid",
						Aliases: []string{"g"},
						Usage:   "Desktop `ID`.",
					},
				},
				Action: timeOnAction,
			},
			{
				Name:  "times",
				Usage: "Show the time spent on every desktop",
				Flags: []cli.Flag{
					jsonFlag,
					compactFlag,
					&cli.BoolFlag{
						Name:  "current",
						Usage: "With --compact, show the time of the current visit instead of the total.",
					},
				},
				Action: timesAction,
			},
			{
				Name:   "reset",
				Usage:  "Zero the time of every desktop",
				Action: resetAction,
			},
			{
				Name:  "history",
				Usage: "List past resets and the totals they cleared",
				Flags: []cli.Flag{
					jsonFlag,
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   10,
						Usage:   "Show at most `N` resets.",
					},
				},
				Action: historyAction,
			},
			{
				Name:  "errors",
				Usage: "List transitions the tracker rejected",
				Flags: []cli.Flag{
					jsonFlag,
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   20,
						Usage:   "Show at most `N` entries.",
					},
				},
				Action: errorsAction,
			},
			{
				Name:  "clear",
				Usage: "Delete journal entries",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Only delete resets older than `DURATION`.",
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Do not ask for confirmation.",
					},
				},
				Action: clearAction,
			},
			{
				Name:  "sources",
				Usage: "Print what the desktop and session sources report",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "duration",
						Aliases: []string{"d"},
						Value:   30 * time.Second,
						Usage:   "Watch for notifications for `DURATION` (0 to only enumerate).",
					},
				},
				Action: sourcesAction,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration as TOML",
				Action: configAction,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "%s version %s\n  commit: %s\n  built:  %s\n", appName, version, commit, date)
					return nil
				},
			},
		},
	}
}
