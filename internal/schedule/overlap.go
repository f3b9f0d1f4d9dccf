package schedule

import (
	"time"

	"venueq/internal/models"
)

// WindowEnd returns the exclusive end of a window starting at start and
// lasting durationHours. Fractional hours are supported.
func WindowEnd(start time.Time, durationHours float64) time.Time {
	return start.Add(time.Duration(durationHours * float64(time.Hour)))
}

// Overlaps reports whether the proposed half-open window [start, end)
// intersects any existing booking on the same venue calendar. Touching
// endpoints do not conflict: a booking ending at 18:00 and one starting at
// 18:00 coexist. Callers must reject non-positive durations before calling;
// all instants are compared as absolute time, so inputs should share a
// consistent location (UTC in practice).
func Overlaps(existing []models.Booking, start time.Time, durationHours float64) bool {
	return FirstConflict(existing, start, durationHours) != nil
}

// FirstConflict returns the earliest existing booking whose window overlaps
// the proposed one, or nil when the window is free.
func FirstConflict(existing []models.Booking, start time.Time, durationHours float64) *models.Booking {
	end := WindowEnd(start, durationHours)

	var found *models.Booking
	for i := range existing {
		b := &existing[i]
		if start.Before(b.End()) && end.After(b.Start) {
			if found == nil || b.Start.Before(found.Start) {
				found = b
			}
		}
	}
	return found
}
