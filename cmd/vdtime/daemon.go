package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vdtime/vdtime/internal/config"
	"github.com/vdtime/vdtime/internal/daemon"
	"github.com/vdtime/vdtime/internal/database"
	"github.com/vdtime/vdtime/internal/logging"
	"github.com/vdtime/vdtime/internal/pipe"
	"github.com/vdtime/vdtime/internal/tracker"
	"github.com/vdtime/vdtime/internal/web"
	"github.com/vdtime/vdtime/pkg/detector"
	"github.com/vdtime/vdtime/pkg/utils"
)

const stopTimeout = 10 * time.Second

func startAction(c *cli.Context) error {
	cfg := loadConfig(c)

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to locate executable")
	}
	args := []string{exe}
	if path := c.String("config"); path != "" {
		args = append(args, "--config", path)
	}
	args = append(args, "serve")

	// stdin, stdout and stderr go to /dev/null
	process, err := os.StartProcess(exe, args, &os.ProcAttr{
		Env:   append(os.Environ(), daemon.ChildEnv+"=1"),
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return errors.Wrap(err, "failed to start daemon process")
	}

	pterm.Success.Printfln("Daemon started (PID: %d)", process.Pid)
	if cfg.ServesREST() {
		pterm.Info.Printfln("Web API: http://%s:%d", cfg.Web.Host, cfg.Web.Port)
	}
	if cfg.ServesPipe() {
		pterm.Info.Printfln("Pipe: %s", cfg.PipePath())
	}
	pterm.Info.Printfln("Logs: %s", cfg.Log.Path)
	return process.Release()
}

func serveAction(c *cli.Context) error {
	cfg := loadConfig(c)
	if c.IsSet("mode") {
		if err := cfg.SetMode(c.String("mode")); err != nil {
			return err
		}
	}
	if c.IsSet("port") {
		if err := cfg.SetWebPort(c.Int("port")); err != nil {
			return err
		}
	}
	if c.IsSet("pipe") {
		cfg.Pipe.Path = c.String("pipe")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger := logging.Console(cfg.Log)
	if daemon.IsChild() {
		fileLogger, closer, err := logging.File(cfg.Log)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = fileLogger
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("daemon failed", "error", err)
		return err
	}
	return nil
}

// serve runs the tracker, the journal and the configured adaptors until ctx
// is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		return err
	}
	journal := database.NewJournal(database.NewRepository(db), logger, database.DefaultJournalBuffer)

	src, err := detector.NewDesktopSource(cfg.Tracker)
	if err != nil {
		return err
	}
	defer closeQuietly(src, logger)

	opts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithObserver(journal),
	}
	session, err := detector.NewSessionSource(cfg.Tracker)
	switch {
	case err != nil:
		logger.Warn("lock tracking disabled", "error", err)
	case session != nil:
		defer closeQuietly(session, logger)
		opts = append(opts, tracker.WithSessionSource(session))
		logger.Info("tracking session state", "source", session.Name())
	}

	mgr, err := tracker.NewManager(src, opts...)
	if err != nil {
		return err
	}

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer func() {
		if err := dm.RemovePID(); err != nil {
			logger.Warn("cannot remove PID file", "error", err)
		}
	}()

	logger.Info("starting vdtime daemon", "version", version, "config", cfg.String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(ctx) })
	g.Go(func() error { return journal.Run(ctx) })
	if cfg.ServesREST() {
		srv := web.NewServer(cfg, mgr, logger)
		g.Go(func() error { return srv.Run(ctx) })
	}
	if cfg.ServesPipe() {
		srv := pipe.NewServer(cfg.PipePath(), mgr, logger)
		g.Go(func() error { return srv.Run(ctx) })
	}

	err = g.Wait()
	logger.Info("daemon stopped")
	return err
}

func closeQuietly(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}
}

func stopAction(c *cli.Context) error {
	cfg := loadConfig(c)
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if !running {
		pterm.Info.Println("Daemon is not running")
		return nil
	}

	pterm.Info.Printfln("Stopping daemon (PID: %d)...", pid)
	if err := dm.Stop(stopTimeout); err != nil {
		return errors.Wrap(err, "failed to stop daemon")
	}
	pterm.Success.Println("Daemon stopped")
	return nil
}

func statusAction(c *cli.Context) error {
	cfg := loadConfig(c)
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if !running {
		pterm.Info.Println("Status: not running")
		return nil
	}

	pterm.Info.Printfln("Status: running (PID: %d)", pid)
	pterm.Printfln("Mode:     %s", cfg.Service.Mode)
	printLastReset(c)
	if cfg.ServesREST() {
		pterm.Printfln("Web API:  http://%s:%d", cfg.Web.Host, cfg.Web.Port)
	}
	if !cfg.ServesPipe() {
		return nil
	}
	pterm.Printfln("Pipe:     %s", cfg.PipePath())

	client, err := dialDaemon(c)
	if err != nil {
		return err
	}
	defer client.Close()

	current, err := client.CurrentDesktop()
	if err != nil {
		var reply *pipe.ReplyError
		if errors.As(err, &reply) {
			pterm.Printfln("Desktop:  none active (%s)", reply.Message)
			return nil
		}
		return err
	}
	pterm.Printfln("Desktop:  %s (%s)", current.Desktop.Name, current.Desktop.ID)
	pterm.Printfln("Visit:    %ds", current.Time.Current)
	pterm.Printfln("Total:    %ds", current.Time.Total)
	return nil
}

// printLastReset shows when the counters were last reset, if the journal
// has a record of it.
func printLastReset(c *cli.Context) {
	db, repo, err := openJournal(c)
	if err != nil {
		return
	}
	defer db.Close()

	last, err := repo.GetLatestReset()
	if err != nil || last == nil {
		return
	}
	pterm.Printfln("Reset:    %s (cleared %s)",
		last.ResetAt.Local().Format(time.DateTime), utils.FormatRoundedUnit(last.TotalSeconds))
}
