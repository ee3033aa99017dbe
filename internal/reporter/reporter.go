package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"github.com/vdtime/vdtime/internal/database"
	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/pkg/desktop"
	"github.com/vdtime/vdtime/pkg/utils"
)

const timeLayout = "2006-01-02 15:04:05"

// Reporter renders tracker state and the reset journal
type Reporter struct {
	repo *database.Repository
}

// New creates a new reporter. repo may be nil when no history is needed.
func New(repo *database.Repository) *Reporter {
	return &Reporter{repo: repo}
}

// History returns the most recent resets
func (r *Reporter) History(limit int) ([]models.ResetSummary, error) {
	if r.repo == nil {
		return nil, errors.New("no journal configured")
	}
	return r.repo.GetResets(limit)
}

// Errors returns the most recent rejected transitions
func (r *Reporter) Errors(limit int) ([]models.ErrorLog, error) {
	if r.repo == nil {
		return nil, errors.New("no journal configured")
	}
	return r.repo.GetErrorLogs(limit)
}

// FormatTimesText renders times as a table with each desktop's share of the
// total. The row of the active desktop is marked; pass uuid.Nil when none is.
func (r *Reporter) FormatTimesText(times []models.DesktopAndTime, active uuid.UUID) (string, error) {
	if len(times) == 0 {
		return "No desktops tracked.\n", nil
	}

	var total uint64
	for _, t := range times {
		total += t.Time.Total
	}

	data := pterm.TableData{{"", "Desktop", "Current", "Total", "Share"}}
	for _, t := range times {
		marker := ""
		if active != uuid.Nil && t.Desktop.ID == active {
			marker = "*"
		}
		data = append(data, []string{
			marker,
			truncate(t.Desktop.Name, 30),
			utils.FormatSeconds(t.Time.Current),
			utils.FormatSeconds(t.Time.Total),
			fmt.Sprintf("%5.1f%%", share(t.Time.Total, total)),
		})
	}
	data = append(data, []string{"", "Total", "", utils.FormatSeconds(total), ""})

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", errors.Wrap(err, "render times table")
	}
	return out + "\n", nil
}

// FormatDesktopsText renders the registry in order
func (r *Reporter) FormatDesktopsText(desktops []desktop.Desktop) (string, error) {
	if len(desktops) == 0 {
		return "No desktops tracked.\n", nil
	}

	data := pterm.TableData{{"#", "Desktop", "Id"}}
	for i, d := range desktops {
		data = append(data, []string{fmt.Sprint(i + 1), d.Name, d.ID.String()})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", errors.Wrap(err, "render desktops table")
	}
	return out + "\n", nil
}

// FormatCompact renders name and time blocks sized for small key displays.
// Names are right-aligned to the longest one.
func (r *Reporter) FormatCompact(times []models.DesktopAndTime, current bool) string {
	width := 0
	for _, t := range times {
		width = max(width, utf8.RuneCountInString(t.Desktop.Name))
	}

	blocks := make([]string, 0, len(times))
	for _, t := range times {
		secs := t.Time.Total
		if current {
			secs = t.Time.Current
		}
		blocks = append(blocks, utils.PadLeft(t.Desktop.Name, width)+"\n"+utils.FormatSeconds(secs))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatHistoryText renders past resets, newest first
func (r *Reporter) FormatHistoryText(summaries []models.ResetSummary) (string, error) {
	if len(summaries) == 0 {
		return "No resets recorded.\n", nil
	}

	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "Reset at %s, total %s\n",
			s.ResetAt.Local().Format(timeLayout), utils.FormatRoundedUnit(s.TotalSeconds))

		data := pterm.TableData{{"Desktop", "Time", "Share"}}
		for _, d := range s.Desktops {
			data = append(data, []string{
				truncate(d.DesktopName, 30),
				utils.FormatSeconds(uint64(max(d.TotalSeconds, 0))),
				fmt.Sprintf("%5.1f%%", share(uint64(max(d.TotalSeconds, 0)), uint64(max(s.TotalSeconds, 0)))),
			})
		}
		out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return "", errors.Wrap(err, "render history table")
		}
		b.WriteString(out)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// FormatErrorsText renders rejected transitions, newest first
func (r *Reporter) FormatErrorsText(logs []models.ErrorLog) (string, error) {
	if len(logs) == 0 {
		return "No rejected transitions recorded.\n", nil
	}

	data := pterm.TableData{{"Time", "Action", "Error"}}
	for _, l := range logs {
		data = append(data, []string{
			l.Timestamp.Local().Format(timeLayout),
			truncate(l.Action, 40),
			truncate(l.ErrorMsg, 60),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", errors.Wrap(err, "render errors table")
	}
	return out + "\n", nil
}

// FormatJSON formats v as indented JSON
func (r *Reporter) FormatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

func share(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100.0
}

// truncate truncates a string to the specified number of runes
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
