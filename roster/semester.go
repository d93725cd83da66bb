package roster

import "time"

// =============================================================================
// SEMESTER - the calendar backbone for recurring shift generation
// =============================================================================

// Semester is keyed by name ("FALL 2024"). At most one semester is active
// at a time; the invariant is enforced by whoever flips the flag, not here.
type Semester struct {
	Name      string
	StartDate time.Time // date-only, local midnight
	EndDate   time.Time // date-only, inclusive
	Active    bool

	Holidays    []Holiday
	DaySwitches []DaySwitch
}

// Holiday cancels every recurring session on its date. No substitute session
// is scheduled that week.
type Holiday struct {
	Semester string
	Date     time.Time // date-only, unique per semester
}

// DaySwitch marks a date on which the university follows another weekday's
// class schedule ("today runs on a Monday schedule").
type DaySwitch struct {
	Semester    string
	Date        time.Time // date-only, unique per semester
	DayToFollow time.Weekday
}

// IsHoliday reports whether date (compared by calendar day) is a holiday.
func (s *Semester) IsHoliday(date time.Time) bool {
	for _, h := range s.Holidays {
		if sameDate(h.Date, date) {
			return true
		}
	}
	return false
}

// SwitchesFollowing returns the day-switch dates that follow the given weekday.
func (s *Semester) SwitchesFollowing(day time.Weekday) []DaySwitch {
	var out []DaySwitch
	for _, ds := range s.DaySwitches {
		if ds.DayToFollow == day {
			out = append(out, ds)
		}
	}
	return out
}

// Contains reports whether date falls within [StartDate, EndDate].
func (s *Semester) Contains(date time.Time) bool {
	return !date.Before(s.StartDate) && !date.After(s.EndDate)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
