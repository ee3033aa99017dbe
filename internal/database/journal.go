package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/internal/tracker"
)

// DefaultJournalBuffer is the number of pending entries a Journal holds
const DefaultJournalBuffer = 128

// Journal records rejected transitions and resets. It implements
// tracker.Observer; entries are queued and written by Run so the tracker
// never waits for the database.
type Journal struct {
	repo    *Repository
	logger  *slog.Logger
	entries chan any
}

var _ tracker.Observer = (*Journal)(nil)

func NewJournal(repo *Repository, logger *slog.Logger, size int) *Journal {
	if size <= 0 {
		size = DefaultJournalBuffer
	}
	return &Journal{
		repo:    repo,
		logger:  logger,
		entries: make(chan any, size),
	}
}

func (j *Journal) ActionFailed(at time.Time, action tracker.Action, err error) {
	name := "<nil>"
	if action != nil {
		name = action.String()
	}
	j.enqueue(&models.ErrorLog{
		Timestamp: at,
		Action:    name,
		ErrorMsg:  err.Error(),
	})
}

func (j *Journal) TimeReset(at time.Time, totals []models.DesktopAndTime) {
	records := make([]models.ResetRecord, 0, len(totals))
	for _, t := range totals {
		records = append(records, models.ResetRecord{
			ResetAt:      at,
			DesktopID:    t.Desktop.ID.String(),
			DesktopName:  t.Desktop.Name,
			TotalSeconds: int64(t.Time.Total),
		})
	}
	j.enqueue(records)
}

func (j *Journal) enqueue(entry any) {
	select {
	case j.entries <- entry:
	default:
		j.logger.Warn("journal buffer full, dropping entry", "entry", entry)
	}
}

// Run writes queued entries until ctx is cancelled, then flushes what is
// still queued.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case entry := <-j.entries:
			j.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-j.entries:
					j.write(entry)
				default:
					return nil
				}
			}
		}
	}
}

func (j *Journal) write(entry any) {
	var err error
	switch e := entry.(type) {
	case *models.ErrorLog:
		err = j.repo.CreateErrorLog(e)
	case []models.ResetRecord:
		err = j.repo.CreateResetRecords(e)
	}
	if err != nil {
		j.logger.Error("journal write failed", "error", err)
	}
}
