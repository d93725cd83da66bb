/*
shifts.go - Shift service: creation, day queries, recurring generation

PURPOSE:
  Orchestrates the shift store: ad hoc creation, local-calendar-day
  queries, recurring Class generation through the calendar resolver, bulk
  creation with partial-application semantics, bulk day edits, and the
  punch clock.

RECURRING GENERATION:
  AddRecurring creates one KindClass shift per resolved occurrence of each
  weekly meeting of a course section. Generation is NOT idempotent: running
  it twice doubles the shifts. RedoClassShifts is the supported way to
  regenerate — it hard-deletes every Class shift for the semester first,
  then regenerates for every SI position. Never run two generations for
  the same position concurrently.

BULK CREATE:
  Records are applied in order; the first invalid record aborts processing
  and the error reports how many prior records were created. Rows already
  created are NOT rolled back — partial application is the documented
  behavior for bulk input.
*/
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lrcstaff/shift-engine/roster"
)

// ShiftService owns shift lifecycle operations.
type ShiftService struct {
	Store    Store
	Resolver *Resolver
	Now      func() time.Time
}

func NewShiftService(store Store, resolver *Resolver) *ShiftService {
	return &ShiftService{Store: store, Resolver: resolver, Now: time.Now}
}

// =============================================================================
// CREATION
// =============================================================================

// Create inserts an ad hoc shift. Privileged only.
func (s *ShiftService) Create(ctx context.Context, actor roster.Person, shift Shift) (Shift, error) {
	if !actor.Privileged {
		return Shift{}, ErrPermissionDenied
	}
	if err := shift.Validate(); err != nil {
		return Shift{}, err
	}
	shift.ID = NewShiftID()
	shift.CreatedAt = s.Now()
	if err := s.Store.CreateShift(ctx, shift); err != nil {
		return Shift{}, err
	}
	return shift, nil
}

// BulkCreateResult reports how far a bulk creation got.
type BulkCreateResult struct {
	Created int
}

// BulkCreate applies records in order, aborting at the first invalid one.
// Prior records stay created. The returned result is valid even on error.
func (s *ShiftService) BulkCreate(ctx context.Context, actor roster.Person, shifts []Shift) (BulkCreateResult, error) {
	res := BulkCreateResult{}
	if !actor.Privileged {
		return res, ErrPermissionDenied
	}
	for i, shift := range shifts {
		if err := shift.Validate(); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				verr.Line = i + 1
			}
			return res, fmt.Errorf("bulk create stopped after %d of %d records: %w", res.Created, len(shifts), err)
		}
		shift.ID = NewShiftID()
		shift.CreatedAt = s.Now()
		if err := s.Store.CreateShift(ctx, shift); err != nil {
			return res, fmt.Errorf("bulk create stopped after %d of %d records: %w", res.Created, len(shifts), err)
		}
		res.Created++
	}
	return res, nil
}

// =============================================================================
// DAY QUERIES
// =============================================================================

// AllOnDate returns the non-deleted shifts whose start falls within the
// local calendar day containing date. The boundary is half-open, so a
// shift at 23:59 and one at 00:01 the next day never both match.
func (s *ShiftService) AllOnDate(ctx context.Context, date time.Time) ([]Shift, error) {
	dayStart := s.Resolver.DayStart(date)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return s.Store.Shifts(ctx, ShiftFilter{StartFrom: &dayStart, StartTo: &dayEnd})
}

// =============================================================================
// RECURRING GENERATION
// =============================================================================

// AddRecurring creates one KindClass shift per occurrence of each weekly
// meeting of the section, tagged with a generation timestamp. The batch is
// written atomically.
func (s *ShiftService) AddRecurring(ctx context.Context, sem *roster.Semester, position roster.StaffPosition, section roster.CourseSection) (int, error) {
	now := s.Now()
	var shifts []Shift
	for _, meeting := range section.Meetings {
		for _, start := range s.Resolver.MeetingOccurrences(sem, meeting) {
			shifts = append(shifts, Shift{
				ID:        NewShiftID(),
				Position:  position,
				Start:     start,
				Duration:  meeting.Duration,
				Location:  meeting.Location,
				Kind:      KindClass,
				CreatedAt: now,
			})
		}
	}
	if len(shifts) == 0 {
		return 0, nil
	}
	if err := s.Store.CreateShifts(ctx, shifts); err != nil {
		return 0, err
	}
	return len(shifts), nil
}

// RedoClassShifts clears every Class shift for the semester and regenerates
// from each SI position's assigned section. This is the only idempotent
// path to regeneration. Privileged only.
func (s *ShiftService) RedoClassShifts(ctx context.Context, actor roster.Person, dir roster.Directory, sem *roster.Semester) (int, error) {
	if !actor.Privileged {
		return 0, ErrPermissionDenied
	}
	if _, err := s.Store.PurgeClassShifts(ctx, sem.Name); err != nil {
		return 0, err
	}
	leaders, err := dir.PositionsByKind(ctx, sem.Name, roster.PositionSI)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, si := range leaders {
		if si.AssignedSection == nil {
			continue
		}
		n, err := s.AddRecurring(ctx, sem, si, *si.AssignedSection)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// =============================================================================
// BULK DAY EDITS
// =============================================================================

// DropAllOnDate soft-deletes every shift on the local calendar date.
// Privileged only. Returns the number of shifts dropped.
func (s *ShiftService) DropAllOnDate(ctx context.Context, actor roster.Person, date time.Time) (int, error) {
	if !actor.Privileged {
		return 0, ErrPermissionDenied
	}
	shifts, err := s.AllOnDate(ctx, date)
	if err != nil {
		return 0, err
	}
	for i, shift := range shifts {
		shift.Deleted = true
		if err := s.Store.UpdateShift(ctx, shift); err != nil {
			return i, err
		}
	}
	return len(shifts), nil
}

// MoveShiftsBetweenDates moves every shift on `from` to the calendar date
// `to`, keeping each shift's local time of day. Privileged only.
func (s *ShiftService) MoveShiftsBetweenDates(ctx context.Context, actor roster.Person, from, to time.Time) (int, error) {
	if !actor.Privileged {
		return 0, ErrPermissionDenied
	}
	shifts, err := s.AllOnDate(ctx, from)
	if err != nil {
		return 0, err
	}
	for i, shift := range shifts {
		shift.Start = s.rebase(shift.Start, to)
		if err := s.Store.UpdateShift(ctx, shift); err != nil {
			return i, err
		}
	}
	return len(shifts), nil
}

// SwapShiftDates exchanges the shifts of two calendar dates. Privileged only.
func (s *ShiftService) SwapShiftDates(ctx context.Context, actor roster.Person, first, second time.Time) (int, error) {
	if !actor.Privileged {
		return 0, ErrPermissionDenied
	}
	firstShifts, err := s.AllOnDate(ctx, first)
	if err != nil {
		return 0, err
	}
	secondShifts, err := s.AllOnDate(ctx, second)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, shift := range firstShifts {
		shift.Start = s.rebase(shift.Start, second)
		if err := s.Store.UpdateShift(ctx, shift); err != nil {
			return moved, err
		}
		moved++
	}
	for _, shift := range secondShifts {
		shift.Start = s.rebase(shift.Start, first)
		if err := s.Store.UpdateShift(ctx, shift); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// rebase keeps a start's local wall time while moving it to another date.
func (s *ShiftService) rebase(start, date time.Time) time.Time {
	local := start.In(s.Resolver.Loc)
	y, m, d := date.In(s.Resolver.Loc).Date()
	return time.Date(y, m, d, local.Hour(), local.Minute(), local.Second(), 0, s.Resolver.Loc)
}

// =============================================================================
// PUNCH CLOCK
// =============================================================================

// ClockIn opens a punch for the position. A second clock-in without a
// clock-out is a caller error.
func (s *ShiftService) ClockIn(ctx context.Context, position roster.StaffPosition) (PunchedIn, error) {
	p := PunchedIn{
		ID:       PunchID(uuid.NewString()),
		Position: position,
		Start:    s.Now(),
	}
	if err := s.Store.OpenPunch(ctx, p); err != nil {
		return PunchedIn{}, err
	}
	return p, nil
}

// ClockOut converts the position's open punch into a shift with
// duration = now - punch start, and removes the punch.
func (s *ShiftService) ClockOut(ctx context.Context, position roster.StaffPosition, location string, kind ShiftKind) (Shift, error) {
	punch, err := s.Store.GetPunch(ctx, position.ID)
	if err != nil {
		return Shift{}, err
	}
	now := s.Now()
	shift := Shift{
		ID:        NewShiftID(),
		Position:  punch.Position,
		Start:     punch.Start,
		Duration:  now.Sub(punch.Start),
		Location:  location,
		Kind:      kind,
		CreatedAt: now,
	}
	if err := shift.Validate(); err != nil {
		return Shift{}, err
	}
	if err := s.Store.ClosePunch(ctx, punch.ID, shift); err != nil {
		return Shift{}, err
	}
	return shift, nil
}

// NewShiftID returns a fresh shift identifier.
func NewShiftID() ShiftID { return ShiftID(uuid.NewString()) }
