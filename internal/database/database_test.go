package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/internal/tracker"
	"github.com/vdtime/vdtime/pkg/desktop"
)

var (
	epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	home  = desktop.Desktop{Name: "Home", ID: desktop.StableID("test", "", "0")}
	work  = desktop.Desktop{Name: "Work", ID: desktop.StableID("test", "", "1")}
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	return NewRepository(db)
}

func resetRecords(at time.Time, totals ...int64) []models.ResetRecord {
	desktops := []desktop.Desktop{home, work}
	var records []models.ResetRecord
	for i, total := range totals {
		records = append(records, models.ResetRecord{
			ResetAt:      at,
			DesktopID:    desktops[i].ID.String(),
			DesktopName:  desktops[i].Name,
			TotalSeconds: total,
		})
	}
	return records
}

var ignoreBookkeeping = cmpopts.IgnoreFields(models.ResetRecord{}, "ID", "CreatedAt", "UpdatedAt", "DeletedAt")

func TestGetResets(t *testing.T) {
	repo := newTestRepo(t)

	if latest, err := repo.GetLatestReset(); err != nil || latest != nil {
		t.Fatalf("GetLatestReset() on empty journal = %v, %v", latest, err)
	}

	first := epoch
	second := epoch.Add(time.Hour)
	if err := repo.CreateResetRecords(resetRecords(first, 100, 20)); err != nil {
		t.Fatalf("CreateResetRecords() error: %v", err)
	}
	if err := repo.CreateResetRecords(resetRecords(second, 3, 4)); err != nil {
		t.Fatalf("CreateResetRecords() error: %v", err)
	}
	if err := repo.CreateResetRecords(nil); err != nil {
		t.Fatalf("CreateResetRecords(nil) error: %v", err)
	}

	got, err := repo.GetResets(0)
	if err != nil {
		t.Fatalf("GetResets() error: %v", err)
	}
	want := []models.ResetSummary{
		{ResetAt: second, TotalSeconds: 7, Desktops: resetRecords(second, 3, 4)},
		{ResetAt: first, TotalSeconds: 120, Desktops: resetRecords(first, 100, 20)},
	}
	if diff := cmp.Diff(want, got, ignoreBookkeeping, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("GetResets() mismatch (-want +got):\n%s", diff)
	}

	latest, err := repo.GetLatestReset()
	if err != nil || latest == nil || latest.TotalSeconds != 7 {
		t.Errorf("GetLatestReset() = %v, %v, want the second reset", latest, err)
	}

	limited, err := repo.GetResets(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("GetResets(1) = %d summaries, %v", len(limited), err)
	}

	deleted, err := repo.DeleteResetsBefore(second)
	if err != nil || deleted != 2 {
		t.Errorf("DeleteResetsBefore() = %d, %v, want 2", deleted, err)
	}
	if remaining, _ := repo.GetResets(0); len(remaining) != 1 {
		t.Errorf("GetResets() after delete = %d summaries, want 1", len(remaining))
	}
}

func TestErrorLogsAndClear(t *testing.T) {
	repo := newTestRepo(t)

	for i, msg := range []string{"unknown desktop", "duplicate desktop"} {
		err := repo.CreateErrorLog(&models.ErrorLog{
			Timestamp: epoch.Add(time.Duration(i) * time.Second),
			Action:    "SetDesktop",
			ErrorMsg:  msg,
		})
		if err != nil {
			t.Fatalf("CreateErrorLog() error: %v", err)
		}
	}

	logs, err := repo.GetErrorLogs(10)
	if err != nil {
		t.Fatalf("GetErrorLogs() error: %v", err)
	}
	if len(logs) != 2 || logs[0].ErrorMsg != "duplicate desktop" {
		t.Errorf("GetErrorLogs() = %v, want newest first", logs)
	}

	if err := repo.CreateResetRecords(resetRecords(epoch, 1)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if logs, _ := repo.GetErrorLogs(0); len(logs) != 0 {
		t.Errorf("GetErrorLogs() after Clear = %d, want 0", len(logs))
	}
	if resets, _ := repo.GetResets(0); len(resets) != 0 {
		t.Errorf("GetResets() after Clear = %d, want 0", len(resets))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJournal(t *testing.T) {
	repo := newTestRepo(t)
	j := NewJournal(repo, discardLogger(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	j.TimeReset(epoch, []models.DesktopAndTime{
		{Desktop: home, Time: models.TimeInfo{Current: 5, Total: 65}},
		{Desktop: work, Time: models.TimeInfo{Total: 10}},
	})
	j.ActionFailed(epoch, tracker.SetDesktop{ID: work.ID}, errors.Wrap(tracker.ErrUnknownDesktop, "set"))

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v", err)
	}

	resets, err := repo.GetResets(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.ResetSummary{{ResetAt: epoch, TotalSeconds: 75, Desktops: resetRecords(epoch, 65, 10)}}
	if diff := cmp.Diff(want, resets, ignoreBookkeeping, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("journaled resets mismatch (-want +got):\n%s", diff)
	}

	logs, err := repo.GetErrorLogs(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Action != (tracker.SetDesktop{ID: work.ID}).String() {
		t.Errorf("journaled error logs = %v", logs)
	}
}

func TestJournalDropsWhenFull(t *testing.T) {
	repo := newTestRepo(t)
	j := NewJournal(repo, discardLogger(), 1)

	j.ActionFailed(epoch, tracker.ResetTime{}, errors.New("first"))
	j.ActionFailed(epoch, tracker.ResetTime{}, errors.New("second"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	logs, _ := repo.GetErrorLogs(0)
	if len(logs) != 1 || logs[0].ErrorMsg != "first" {
		t.Errorf("error logs = %v, want only the first entry", logs)
	}
}
