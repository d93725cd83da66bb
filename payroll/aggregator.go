/*
aggregator.go - Sign-off and PayrollCheck accumulation

PURPOSE:
  Turns a signed shift into payroll state: marks the shift signed, detects
  a late sign-off, synthesizes the preparation bonus for SI and
  Group-Tutoring sessions, and accrues hours into the owner's
  PayrollCheck for the shift's pay week. The whole sign-off lands
  atomically through Store.ApplySignOff.

PREPARATION BONUS:
  An attended SI/GT session earns a companion Preparation shift: 2 hours
  base, plus 60 minutes of prep per 45 minutes of session beyond 1h15m,
  never exceeding 3 hours total. The prep shift inherits the session's
  start, position and lateness, with location "None".

NUMERIC POLICY:
  Hours are rounded to 2 decimal places per shift at accrual time, not
  once at display time. Reconciliation against historical checks depends
  on error accumulating additively the same way.

CONCURRENCY:
  Accrual is a read-modify-write of the owner's check, so Sign and
  Approve serialize on a per-(person, week) mutex. Without it, two
  concurrent sign-offs in the same pay week both read the base check
  and the last write wins, losing one shift's hours.
*/
package payroll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
)

const (
	prepBase   = 2 * time.Hour
	prepCap    = 3 * time.Hour
	prepExcess = scheduling.ExamReviewThreshold
)

var secondsPerHour = decimal.NewFromInt(3600)

// Aggregator owns pay-week bucketing and sign-off side effects.
type Aggregator struct {
	Store Store
	Loc   *time.Location
	Now   func() time.Time

	mu    sync.Mutex
	locks map[checkLockKey]*sync.Mutex
}

type checkLockKey struct {
	person roster.PersonID
	week   string
}

func NewAggregator(store Store, loc *time.Location) *Aggregator {
	return &Aggregator{
		Store: store,
		Loc:   loc,
		Now:   time.Now,
		locks: make(map[checkLockKey]*sync.Mutex),
	}
}

// checkLock returns the mutex serializing updates to one person's check
// for one pay week. Locks are never discarded; the population is bounded
// by people times pay weeks.
func (a *Aggregator) checkLock(person roster.PersonID, weekStart time.Time) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.locks == nil {
		a.locks = make(map[checkLockKey]*sync.Mutex)
	}
	key := checkLockKey{person: person, week: weekStart.In(a.Loc).Format("2006-01-02")}
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// SignOffResult reports what a sign-off produced. Prep is nil when no
// preparation shift was synthesized.
type SignOffResult struct {
	Signed scheduling.Shift
	Prep   *scheduling.Shift
	Check  PayrollCheck
}

// Sign records attendance for a shift, detects lateness against the pay
// week's Saturday 23:59:59 boundary, synthesizes the preparation bonus,
// and accrues hours into the owner's check. Signing an already-signed
// shift is a state conflict.
func (a *Aggregator) Sign(ctx context.Context, actor roster.Person, id scheduling.ShiftID, attended bool, reason string) (SignOffResult, error) {
	shift, err := a.Store.GetShift(ctx, id)
	if err != nil {
		return SignOffResult{}, err
	}
	if shift.Position.Person.ID != actor.ID && !actor.Privileged {
		return SignOffResult{}, scheduling.ErrPermissionDenied
	}

	lock := a.checkLock(shift.Position.Person.ID, WeekOf(shift.Start, a.Loc).Start)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent sign-off may have won.
	shift, err = a.Store.GetShift(ctx, id)
	if err != nil {
		return SignOffResult{}, err
	}
	if shift.Signed {
		return SignOffResult{}, &scheduling.StateConflictError{Entity: "shift", From: "signed", Action: "sign"}
	}

	now := a.Now()
	shift.Attended = attended
	shift.Reason = reason
	shift.Signed = true
	if now.After(WeekOf(shift.Start, a.Loc).End()) {
		shift.Late = true
		at := now
		shift.LateAt = &at
	}

	var prep *scheduling.Shift
	if attended && shift.Kind.PrepEligible() {
		prep = &scheduling.Shift{
			ID:        scheduling.NewShiftID(),
			Position:  shift.Position,
			Start:     shift.Start,
			Duration:  PrepDuration(shift.Duration),
			Location:  "None",
			Kind:      scheduling.KindPreparation,
			Attended:  true,
			Signed:    true,
			Late:      shift.Late,
			LateAt:    shift.LateAt,
			CreatedAt: now,
		}
	}

	check, err := a.checkFor(ctx, shift.Position.Person, shift.Start)
	if err != nil {
		return SignOffResult{}, err
	}
	// Only attended shifts earn hours; a signed no-show just records the
	// reason. Rebuild replays attended+signed, so the two paths agree.
	if attended {
		a.accrue(check, *shift)
	}
	if prep != nil {
		a.accrue(check, *prep)
	}

	if err := a.Store.ApplySignOff(ctx, *shift, prep, *check); err != nil {
		return SignOffResult{}, err
	}
	return SignOffResult{Signed: *shift, Prep: prep, Check: *check}, nil
}

// Approve marks a person's check for a week as submitted. A later accrual
// in that week rescinds this and lands in the additional ledger.
func (a *Aggregator) Approve(ctx context.Context, actor roster.Person, person roster.PersonID, weekStart time.Time) error {
	if !actor.Privileged {
		return scheduling.ErrPermissionDenied
	}

	lock := a.checkLock(person, weekStart)
	lock.Lock()
	defer lock.Unlock()

	check, err := a.Store.GetCheck(ctx, person, weekStart)
	if err != nil {
		return err
	}
	check.Approved = true
	return a.Store.SaveCheck(ctx, *check)
}

// Rebuild drops every check and replays all attended, signed shifts for
// the semester in start order. Checks are derived state; this is the
// recovery path when the ledger is suspect.
func (a *Aggregator) Rebuild(ctx context.Context, actor roster.Person, semester string) error {
	if !actor.Privileged {
		return scheduling.ErrPermissionDenied
	}
	attended, signed := true, true
	shifts, err := a.Store.Shifts(ctx, scheduling.ShiftFilter{
		Semester: semester,
		Attended: &attended,
		Signed:   &signed,
	})
	if err != nil {
		return err
	}
	if err := a.Store.PurgeChecks(ctx); err != nil {
		return err
	}

	rebuilt := make(map[string]*PayrollCheck)
	var order []string
	for _, shift := range shifts {
		week := WeekOf(shift.Start, a.Loc)
		key := string(shift.Position.Person.ID) + "|" + week.Start.Format(time.RFC3339)
		check, ok := rebuilt[key]
		if !ok {
			check = &PayrollCheck{Person: shift.Position.Person, WeekStart: week.Start}
			rebuilt[key] = check
			order = append(order, key)
		}
		a.accrue(check, shift)
	}
	for _, key := range order {
		if err := a.Store.SaveCheck(ctx, *rebuilt[key]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) checkFor(ctx context.Context, person roster.Person, start time.Time) (*PayrollCheck, error) {
	week := WeekOf(start, a.Loc)
	check, err := a.Store.GetCheck(ctx, person.ID, week.Start)
	if errors.Is(err, scheduling.ErrNotFound) {
		return &PayrollCheck{Person: person, WeekStart: week.Start}, nil
	}
	if err != nil {
		return nil, err
	}
	return check, nil
}

func (a *Aggregator) accrue(check *PayrollCheck, shift scheduling.Shift) {
	weekday := int(shift.Start.In(a.Loc).Weekday())
	check.Accrue(shift.Position.HourlyRate, weekday, Hours(shift.Duration))
}

// PrepDuration computes the preparation bonus for a session of the given
// scheduled length.
func PrepDuration(session time.Duration) time.Duration {
	bonus := prepBase
	if session > prepExcess {
		bonus += (session - prepExcess) * 4 / 3
	}
	if bonus > prepCap {
		bonus = prepCap
	}
	return bonus
}

// Hours converts a duration to hours rounded to 2 decimal places.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(secondsPerHour).Round(2)
}

// Pay is a shift's earnings: unrounded hours times the rate, rounded to
// 2 decimal places.
func Pay(d time.Duration, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(secondsPerHour).Mul(rate).Round(2)
}
