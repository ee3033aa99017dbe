package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds > 3600 {
		return fmt.Sprintf("%dh", int64(seconds/3600))
	}
	return fmt.Sprintf("%dm", int64(seconds/60))
}

// FormatSeconds renders a duration in the compact form used on small
// displays: " 1h05", "12h30", " 3m07", "  9s".
func FormatSeconds(seconds uint64) string {
	s := seconds % 60
	m := (seconds / 60) % 60
	h := seconds / 3600

	switch {
	case h > 0:
		return fmt.Sprintf("%2dh%02d", h, m)
	case m > 0:
		return fmt.Sprintf("%2dm%02d", m, s)
	default:
		return fmt.Sprintf("  %ds", s)
	}
}

// PadLeft right-aligns s in a field of width runes
func PadLeft(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}
