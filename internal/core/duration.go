package core

import (
	"fmt"
	"time"
)

// ElapsedSeconds returns the whole seconds between start and now,
// floored. A now before start yields a negative value, matching the
// floor semantics of the original display code rather than clamping.
func ElapsedSeconds(now, start time.Time) int64 {
	return floorDiv(now.Sub(start).Milliseconds(), 1000)
}

func floorDiv(ms, div int64) int64 {
	q := ms / div
	if ms%div != 0 && (ms < 0) != (div < 0) {
		q--
	}
	return q
}

// FormatDuration renders total seconds as HH:MM:SS with each field
// zero-padded to two digits. Beyond 99 hours the hours field simply
// grows; that drift is acceptable, not an error.
func FormatDuration(totalSeconds int64) string {
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// TotalHours converts tracked seconds to decimal hours for the
// dashboard counter.
func TotalHours(totalSeconds int64) float64 {
	return float64(totalSeconds) / 3600
}
