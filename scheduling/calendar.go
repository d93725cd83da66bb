/*
calendar.go - Recurring occurrence resolution against the semester calendar

PURPOSE:
  Turns a weekly class schedule entry into the concrete dates on which the
  session actually occurs, honoring the semester's exception lists:

  - Holiday: the session is simply canceled that week. No substitute.
  - DaySwitch: on the switch date the university follows another weekday's
    schedule, so a session of that weekday ALSO occurs on the switch date.
    The native weekly occurrence is kept; the switch adds one.

ALGORITHM:
  Start from the first occurrence of the weekday on or after the semester
  start date, step forward 7 days until past the end date, dropping
  holidays. Then append one occurrence per matching day switch.

IDEMPOTENCE:
  Each call is independent and deterministic for the same inputs.
  Re-running against the shift store creates duplicates unless the caller
  clears prior generated shifts first (see ShiftService.RedoClassShifts).
*/
package scheduling

import (
	"sort"
	"time"

	"github.com/lrcstaff/shift-engine/roster"
)

// Resolver materializes recurring occurrences in a fixed timezone. The same
// location must be used for every local-day computation in the system.
type Resolver struct {
	Loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{Loc: loc}
}

// Occurrences returns the concrete start times of a weekly session on
// `day` at `timeOfDay` (offset from local midnight) over the semester,
// sorted ascending.
func (r *Resolver) Occurrences(sem *roster.Semester, day time.Weekday, timeOfDay time.Duration) []time.Time {
	var starts []time.Time

	// First occurrence of `day` on or after the semester start.
	ahead := (int(day) - int(sem.StartDate.Weekday()) + 7) % 7
	date := sem.StartDate.AddDate(0, 0, ahead)

	for !date.After(sem.EndDate) {
		if !sem.IsHoliday(date) {
			starts = append(starts, r.at(date, timeOfDay))
		}
		date = date.AddDate(0, 0, 7)
	}

	// Day switches: the switch date follows `day`'s schedule, so the
	// session occurs there too.
	for _, ds := range sem.SwitchesFollowing(day) {
		starts = append(starts, r.at(ds.Date, timeOfDay))
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts
}

// MeetingOccurrences resolves one weekly class meeting of a course section.
func (r *Resolver) MeetingOccurrences(sem *roster.Semester, m roster.ClassMeeting) []time.Time {
	return r.Occurrences(sem, m.Day, m.StartTime)
}

// DayStart returns local midnight of the calendar day containing t.
func (r *Resolver) DayStart(t time.Time) time.Time {
	local := t.In(r.Loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.Loc)
}

// at combines a calendar date with a wall-clock offset. Built via time.Date
// so the wall time survives DST transitions.
func (r *Resolver) at(date time.Time, timeOfDay time.Duration) time.Time {
	y, m, d := date.Date()
	hh := int(timeOfDay / time.Hour)
	mm := int(timeOfDay % time.Hour / time.Minute)
	ss := int(timeOfDay % time.Minute / time.Second)
	return time.Date(y, m, d, hh, mm, ss, 0, r.Loc)
}
