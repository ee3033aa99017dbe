package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vdtime/vdtime/internal/models"
)

// Repository handles all journal database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateResetRecords inserts the records of one reset in a single transaction
func (r *Repository) CreateResetRecords(records []models.ResetRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert reset records")
	}
	return nil
}

// GetResets returns the most recent resets, newest first. Records within a
// reset keep registry order. A limit of zero or less returns every reset.
func (r *Repository) GetResets(limit int) ([]models.ResetSummary, error) {
	var records []models.ResetRecord
	result := r.db.Order("reset_at DESC").Order("id ASC").Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query reset records")
	}

	summaries := groupResets(records)
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// GetLatestReset returns the most recent reset, or nil when there is none
func (r *Repository) GetLatestReset() (*models.ResetSummary, error) {
	summaries, err := r.GetResets(1)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return &summaries[0], nil
}

func groupResets(records []models.ResetRecord) []models.ResetSummary {
	var summaries []models.ResetSummary
	for _, rec := range records {
		n := len(summaries)
		if n == 0 || !summaries[n-1].ResetAt.Equal(rec.ResetAt) {
			summaries = append(summaries, models.ResetSummary{ResetAt: rec.ResetAt})
			n++
		}
		summaries[n-1].TotalSeconds += rec.TotalSeconds
		summaries[n-1].Desktops = append(summaries[n-1].Desktops, rec)
	}
	return summaries
}

// DeleteResetsBefore deletes reset records older than before (soft delete)
func (r *Repository) DeleteResetsBefore(before time.Time) (int64, error) {
	result := r.db.Where("reset_at < ?", before).Delete(&models.ResetRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old reset records")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetErrorLogs returns the most recent error logs, newest first
func (r *Repository) GetErrorLogs(limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	query := r.db.Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&logs); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes every journal entry
func (r *Repository) Clear() error {
	for _, table := range []string{"reset_records", "error_logs"} {
		result := r.db.Exec("DELETE FROM " + table)
		if result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}
