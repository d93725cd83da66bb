/*
report.go - Weekly and per-person payroll reports

PURPOSE:
  Read-only rollups over signed shifts. The weekly report partitions a
  target week into late, on-time-signed and unsigned shifts; the person
  report walks a whole semester week by week.

LAYOUT:
  Every line is a 9-slot vector: hours for Sunday through Saturday, total
  hours, total pay. Late shifts are grouped under the pay week they were
  WORKED in, not the week they were signed, so a supervisor resubmitting
  a past week sees the delta against the right check.
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
)

// Line is the 9-slot report vector for one position (or a person total).
type Line struct {
	Days  [7]decimal.Decimal
	Hours decimal.Decimal
	Pay   decimal.Decimal
}

func (l *Line) add(weekday int, hours, pay decimal.Decimal) {
	l.Days[weekday] = l.Days[weekday].Add(hours)
	l.Hours = l.Hours.Add(hours)
	l.Pay = l.Pay.Add(pay)
}

// ShiftCell is one shift's contribution, kept for drill-down display.
type ShiftCell struct {
	ShiftID scheduling.ShiftID
	Hours   decimal.Decimal
	Color   string
	Late    bool
}

// PersonLines holds one person's per-position lines plus their total.
type PersonLines struct {
	Person    roster.Person
	Positions map[string]*Line
	Total     Line
}

// Partition is one section of the weekly report.
type Partition struct {
	People     map[roster.PersonID]*PersonLines
	TotalHours decimal.Decimal
	TotalPay   decimal.Decimal
}

func newPartition() *Partition {
	return &Partition{People: map[roster.PersonID]*PersonLines{}}
}

func (p *Partition) add(loc *time.Location, shift scheduling.Shift) {
	person := shift.Position.Person
	lines, ok := p.People[person.ID]
	if !ok {
		lines = &PersonLines{Person: person, Positions: map[string]*Line{}}
		p.People[person.ID] = lines
	}
	label := shift.Position.Label()
	line, ok := lines.Positions[label]
	if !ok {
		line = &Line{}
		lines.Positions[label] = line
	}

	weekday := int(shift.Start.In(loc).Weekday())
	hours := Hours(shift.Duration)
	pay := Pay(shift.Duration, shift.Position.HourlyRate)

	line.add(weekday, hours, pay)
	lines.Total.add(weekday, hours, pay)
	p.TotalHours = p.TotalHours.Add(hours)
	p.TotalPay = p.TotalPay.Add(pay)
}

// WeeklyReport covers one target pay week.
type WeeklyReport struct {
	Week     Week
	OnTime   *Partition
	Unsigned *Partition

	// Late shifts signed during the target week, grouped by the pay week
	// they were worked in.
	Late      map[string]*Partition
	LateWeeks []string
}

// Reporter builds payroll rollups.
type Reporter struct {
	Store Store
	Loc   *time.Location
	Now   func() time.Time
}

func NewReporter(store Store, loc *time.Location) *Reporter {
	return &Reporter{Store: store, Loc: loc, Now: time.Now}
}

// Weekly reports on the week `offset` weeks before the current one.
// Offset 0 is this week.
func (r *Reporter) Weekly(ctx context.Context, semester string, offset int) (*WeeklyReport, error) {
	week := WeekOf(r.Now().AddDate(0, 0, -7*offset), r.Loc)
	report := &WeeklyReport{
		Week:     week,
		OnTime:   newPartition(),
		Unsigned: newPartition(),
		Late:     map[string]*Partition{},
	}

	t, f := true, false
	start := week.Start
	end := week.End().Add(time.Second)

	late, err := r.Store.Shifts(ctx, scheduling.ShiftFilter{
		Semester: semester,
		Late:     &t, Attended: &t, Signed: &t,
		LateFrom: &start, LateTo: &end,
	})
	if err != nil {
		return nil, err
	}
	for _, shift := range late {
		worked := WeekOf(shift.Start, r.Loc).String()
		part, ok := report.Late[worked]
		if !ok {
			part = newPartition()
			report.Late[worked] = part
			report.LateWeeks = append(report.LateWeeks, worked)
		}
		part.add(r.Loc, shift)
	}

	onTime, err := r.Store.Shifts(ctx, scheduling.ShiftFilter{
		Semester: semester,
		Attended: &t, Signed: &t, Late: &f,
		StartFrom: &start, StartTo: &end,
	})
	if err != nil {
		return nil, err
	}
	for _, shift := range onTime {
		report.OnTime.add(r.Loc, shift)
	}

	unsigned, err := r.Store.Shifts(ctx, scheduling.ShiftFilter{
		Semester:  semester,
		Signed:    &f,
		StartFrom: &start, StartTo: &end,
	})
	if err != nil {
		return nil, err
	}
	for _, shift := range unsigned {
		report.Unsigned.add(r.Loc, shift)
	}

	return report, nil
}

// PersonWeek is one pay week of a person's semester report.
type PersonWeek struct {
	Week      Week
	Positions map[string]*Line
	Cells     map[string][7][]ShiftCell
}

// PersonReport is a person's attended+signed hours for a semester,
// broken out week by week.
type PersonReport struct {
	Person     roster.PersonID
	Weeks      []PersonWeek
	TotalHours decimal.Decimal
	TotalPay   decimal.Decimal
}

// ForPerson rolls up one person's attended, signed shifts across the
// semester, one entry per pay week from their first shift to their last.
func (r *Reporter) ForPerson(ctx context.Context, person roster.PersonID, semester string) (*PersonReport, error) {
	t := true
	shifts, err := r.Store.Shifts(ctx, scheduling.ShiftFilter{
		Semester: semester,
		Person:   person,
		Attended: &t, Signed: &t,
	})
	if err != nil {
		return nil, err
	}

	report := &PersonReport{Person: person}
	if len(shifts) == 0 {
		return report, nil
	}

	week := WeekOf(shifts[0].Start, r.Loc)
	i := 0
	for i < len(shifts) {
		pw := PersonWeek{
			Week:      week,
			Positions: map[string]*Line{},
			Cells:     map[string][7][]ShiftCell{},
		}
		for i < len(shifts) && !shifts[i].Start.After(week.End()) {
			shift := shifts[i]
			label := shift.Position.Label()
			line, ok := pw.Positions[label]
			if !ok {
				line = &Line{}
				pw.Positions[label] = line
			}
			weekday := int(shift.Start.In(r.Loc).Weekday())
			hours := Hours(shift.Duration)
			pay := Pay(shift.Duration, shift.Position.HourlyRate)
			line.add(weekday, hours, pay)

			cells := pw.Cells[label]
			cells[weekday] = append(cells[weekday], ShiftCell{
				ShiftID: shift.ID,
				Hours:   hours,
				Color:   shift.Kind.Color(),
				Late:    shift.Late,
			})
			pw.Cells[label] = cells

			report.TotalHours = report.TotalHours.Add(hours)
			report.TotalPay = report.TotalPay.Add(pay)
			i++
		}
		if len(pw.Positions) > 0 {
			report.Weeks = append(report.Weeks, pw)
		}
		week = week.Next()
	}
	return report, nil
}
