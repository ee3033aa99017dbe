package models

import (
	"fmt"

	"github.com/vdtime/vdtime/pkg/desktop"
)

// TimeInfo holds whole seconds attributed to a desktop
type TimeInfo struct {
	Current uint64 `json:"Current"` // Seconds since the last flush, non-zero only for the active desktop
	Total   uint64 `json:"Total"`   // Seconds since the last reset, including Current
}

// DesktopAndTime pairs a desktop with its time figures
type DesktopAndTime struct {
	Desktop desktop.Desktop `json:"Desktop"`
	Time    TimeInfo        `json:"Time"`
}

func (d DesktopAndTime) String() string {
	return fmt.Sprintf("%s(%s) = %ds", d.Desktop.Name, d.Desktop.ID, d.Time.Total)
}
