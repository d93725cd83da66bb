/*
week.go - Pay-period windows

PURPOSE:
  A pay week runs Sunday 00:00:00 through Saturday 23:59:59 in the
  center's local timezone. Every payroll bucket, late check and weekly
  report keys on the Sunday that anchors the window.

IMPORTANT:
  Anchors are computed in wall-clock time by walking backward to the most
  recent Sunday, so weeks that straddle a DST transition still start at
  local midnight.
*/
package payroll

import (
	"fmt"
	"time"
)

// Week is a Sunday-anchored pay period. Start is always a local midnight.
type Week struct {
	Start time.Time
}

// WeekOf returns the pay week containing t, in loc.
func WeekOf(t time.Time, loc *time.Location) Week {
	lt := t.In(loc)
	y, m, d := lt.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	for day.Weekday() != time.Sunday {
		y, m, d = day.AddDate(0, 0, -1).Date()
		day = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	return Week{Start: day}
}

// End is the inclusive close of the window, Saturday 23:59:59. Hours
// signed after this instant are late for the week.
func (w Week) End() time.Time {
	y, m, d := w.Start.AddDate(0, 0, 6).Date()
	return time.Date(y, m, d, 23, 59, 59, 0, w.Start.Location())
}

// Next returns the following pay week.
func (w Week) Next() Week {
	y, m, d := w.Start.AddDate(0, 0, 7).Date()
	return Week{Start: time.Date(y, m, d, 0, 0, 0, 0, w.Start.Location())}
}

// Contains reports whether t falls inside the window.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End())
}

// String renders the report label, e.g. "9/1 - 9/7".
func (w Week) String() string {
	end := w.End()
	return fmt.Sprintf("%d/%d - %d/%d", int(w.Start.Month()), w.Start.Day(), int(end.Month()), end.Day())
}
