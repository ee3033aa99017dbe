package models

import (
	"time"

	"gorm.io/gorm"
)

// ResetRecord keeps the total a desktop had reached when the counters were reset
type ResetRecord struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ResetAt      time.Time      `gorm:"not null;index" json:"reset_at"`
	DesktopID    string         `gorm:"not null;index" json:"desktop_id"`
	DesktopName  string         `gorm:"not null" json:"desktop_name"`
	TotalSeconds int64          `gorm:"not null;default:0" json:"total_seconds"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// ResetSummary aggregates the records written by one reset
type ResetSummary struct {
	ResetAt      time.Time     `json:"reset_at"`
	TotalSeconds int64         `json:"total_seconds"`
	Desktops     []ResetRecord `json:"desktops"`
}
