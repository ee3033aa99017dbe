package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/vdtime/vdtime/internal/database"
	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/internal/pipe"
	"github.com/vdtime/vdtime/internal/reporter"
)

// dialDaemon connects to the pipe of the running daemon
func dialDaemon(c *cli.Context) (*pipe.Client, error) {
	cfg := loadConfig(c)
	if !cfg.ServesPipe() {
		return nil, errors.Errorf("the pipe adaptor is disabled (service.mode = %s)", cfg.Service.Mode)
	}
	path := cfg.PipePath()
	client, err := pipe.Dial(c.Context, path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot reach the daemon at %s (is it running?)", path)
	}
	return client, nil
}

// printJSON writes v as indented JSON when --json is set
func printJSON(c *cli.Context, rep *reporter.Reporter, v any) (bool, error) {
	if !c.Bool("json") {
		return false, nil
	}
	out, err := rep.FormatJSON(v)
	if err != nil {
		return true, err
	}
	fmt.Fprintln(c.App.Writer, out)
	return true, nil
}

func desktopsAction(c *cli.Context) error {
	client, err := dialDaemon(c)
	if err != nil {
		return err
	}
	defer client.Close()

	desktops, err := client.Desktops()
	if err != nil {
		return err
	}

	rep := reporter.New(nil)
	if done, err := printJSON(c, rep, desktops); done {
		return err
	}
	out, err := rep.FormatDesktopsText(desktops)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

func currentAction(c *cli.Context) error {
	client, err := dialDaemon(c)
	if err != nil {
		return err
	}
	defer client.Close()

	current, err := client.CurrentDesktop()
	if err != nil {
		return err
	}

	rep := reporter.New(nil)
	if done, err := printJSON(c, rep, current); done {
		return err
	}
	if c.Bool("compact") {
		fmt.Fprintln(c.App.Writer, rep.FormatCompact([]models.DesktopAndTime{current}, true))
		return nil
	}
	out, err := rep.FormatTimesText([]models.DesktopAndTime{current}, current.Desktop.ID)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

func timeOnAction(c *cli.Context) error {
	name, guid := c.String("name"), c.String("guid")
	if name == "" && guid == "" {
		return errors.New("time-on requires --name or --guid")
	}

	client, err := dialDaemon(c)
	if err != nil {
		return err
	}
	defer client.Close()

	secs, err := client.TimeOn(name, guid)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, secs)
	return nil
}

func timesAction(c *cli.Context) error {
	client, err := dialDaemon(c)
	if err != nil {
		return err
	}
	defer client.Close()

	times, err := client.TimeAll()
	if err != nil {
		return err
	}

	rep := reporter.New(nil)
	if done, err := printJSON(c, rep, times); done {
		return err
	}
	if c.Bool("compact") {
		fmt.Fprintln(c.App.Writer, rep.FormatCompact(times, c.Bool("current")))
		return nil
	}
	active, err := activeDesktop(client)
	if err != nil {
		return err
	}
	out, err := rep.FormatTimesText(times, active)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

// activeDesktop asks the daemon which desktop is active, uuid.Nil when the
// session is locked or nothing is focused.
func activeDesktop(client *pipe.Client) (uuid.UUID, error) {
	current, err := client.CurrentDesktop()
	if err != nil {
		var reply *pipe.ReplyError
		if errors.As(err, &reply) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return current.Desktop.ID, nil
}

func resetAction(c *cli.Context) error {
	client, err := dialDaemon(c)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Reset(); err != nil {
		return err
	}
	pterm.Success.Println("Desktop times reset")
	return nil
}

func openJournal(c *cli.Context) (*database.DB, *database.Repository, error) {
	db, err := database.Connect(loadConfig(c).Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, database.NewRepository(db), nil
}

func historyAction(c *cli.Context) error {
	db, repo, err := openJournal(c)
	if err != nil {
		return err
	}
	defer db.Close()

	rep := reporter.New(repo)
	summaries, err := rep.History(c.Int("limit"))
	if err != nil {
		return err
	}
	if done, err := printJSON(c, rep, summaries); done {
		return err
	}
	out, err := rep.FormatHistoryText(summaries)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

func errorsAction(c *cli.Context) error {
	db, repo, err := openJournal(c)
	if err != nil {
		return err
	}
	defer db.Close()

	rep := reporter.New(repo)
	logs, err := rep.Errors(c.Int("limit"))
	if err != nil {
		return err
	}
	if done, err := printJSON(c, rep, logs); done {
		return err
	}
	out, err := rep.FormatErrorsText(logs)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

func clearAction(c *cli.Context) error {
	olderThan := c.Duration("older-than")

	if !c.Bool("yes") {
		prompt := "This will delete the whole journal. Continue?"
		if olderThan > 0 {
			prompt = fmt.Sprintf("This will delete resets older than %s. Continue?", olderThan)
		}
		ok, err := pterm.DefaultInteractiveConfirm.Show(prompt)
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.Println("Operation cancelled")
			return nil
		}
	}

	db, repo, err := openJournal(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if olderThan > 0 {
		n, err := repo.DeleteResetsBefore(time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Deleted %d reset records", n)
		return nil
	}

	if err := repo.Clear(); err != nil {
		return err
	}
	pterm.Success.Println("Journal cleared")
	return nil
}

func configAction(c *cli.Context) error {
	out, err := loadConfig(c).TOML()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(out)
	return err
}
