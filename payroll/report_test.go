package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/scheduling"
	"github.com/lrcstaff/shift-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestReporter pins "now" to Tuesday 2024-10-01, so the target week for
// offset 0 is Sep 29 - Oct 5.
func newTestReporter(t *testing.T) (*payroll.Reporter, *memory.Store, *time.Location) {
	loc := newYork(t)
	store := memory.New(loc)
	rep := payroll.NewReporter(store, loc)
	rep.Now = func() time.Time {
		return time.Date(2024, time.October, 1, 12, 0, 0, 0, loc)
	}
	return rep, store, loc
}

// =============================================================================
// WEEKLY REPORT
// =============================================================================

func TestWeekly_PartitionsShiftsByState(t *testing.T) {
	// GIVEN: An on-time signed shift, an unsigned shift, and a shift worked
	//        last week but signed late this week
	// WHEN: Building the weekly report for the current week
	// THEN: Each lands in its own partition; the late one is grouped under
	//       the week it was WORKED in

	rep, store, loc := newTestReporter(t)
	ctx := context.Background()

	onTimeStart := time.Date(2024, time.September, 30, 14, 0, 0, 0, loc)
	signedAt := time.Date(2024, time.October, 1, 9, 0, 0, 0, loc)
	workedLastWeek := time.Date(2024, time.September, 25, 14, 0, 0, 0, loc)

	// On time: worked and signed inside the target week.
	seedShift(t, store, scheduling.Shift{
		Position: siPosition(), Start: onTimeStart, Duration: time.Hour,
		Location: "Hall 2", Kind: scheduling.KindTutoring,
		Attended: true, Signed: true,
	})
	// Unsigned: worked this week, not yet signed.
	seedShift(t, store, scheduling.Shift{
		Position: siPosition(), Start: onTimeStart.Add(3 * time.Hour), Duration: 2 * time.Hour,
		Location: "Hall 2", Kind: scheduling.KindTutoring,
	})
	// Late: worked last week, signed this week after the window closed.
	seedShift(t, store, scheduling.Shift{
		Position: siPosition(), Start: workedLastWeek, Duration: time.Hour,
		Location: "Hall 2", Kind: scheduling.KindTutoring,
		Attended: true, Signed: true, Late: true, LateAt: &signedAt,
	})

	report, err := rep.Weekly(ctx, "FALL 2024", 0)
	require.NoError(t, err)

	assert.Equal(t, "9/29 - 10/5", report.Week.String())

	require.Contains(t, report.OnTime.People, staff.ID)
	assert.True(t, report.OnTime.TotalHours.Equal(dec("1")))

	require.Contains(t, report.Unsigned.People, staff.ID)
	assert.True(t, report.Unsigned.TotalHours.Equal(dec("2")))

	workedWeek := payroll.WeekOf(workedLastWeek, loc).String()
	require.Contains(t, report.Late, workedWeek)
	assert.True(t, report.Late[workedWeek].TotalHours.Equal(dec("1")))
	assert.Equal(t, []string{workedWeek}, report.LateWeeks)
}

func TestWeekly_OffsetWalksBackward(t *testing.T) {
	// GIVEN: A signed shift in the previous pay week
	// WHEN: Reporting with offset 1
	// THEN: The previous week is the target and contains the shift on time

	rep, store, loc := newTestReporter(t)
	ctx := context.Background()

	seedShift(t, store, scheduling.Shift{
		Position: siPosition(),
		Start:    time.Date(2024, time.September, 25, 14, 0, 0, 0, loc),
		Duration: time.Hour,
		Location: "Hall 2", Kind: scheduling.KindTutoring,
		Attended: true, Signed: true,
	})

	report, err := rep.Weekly(ctx, "FALL 2024", 1)
	require.NoError(t, err)

	assert.Equal(t, "9/22 - 9/28", report.Week.String())
	assert.Contains(t, report.OnTime.People, staff.ID)
	assert.Empty(t, report.Late)
}

func TestWeekly_DeletedShiftsExcluded(t *testing.T) {
	// GIVEN: A soft-deleted signed shift in the target week
	// WHEN: Building the report
	// THEN: It appears nowhere

	rep, store, loc := newTestReporter(t)
	ctx := context.Background()

	seedShift(t, store, scheduling.Shift{
		Position: siPosition(),
		Start:    time.Date(2024, time.September, 30, 14, 0, 0, 0, loc),
		Duration: time.Hour,
		Location: "Hall 2", Kind: scheduling.KindTutoring,
		Attended: true, Signed: true, Deleted: true,
	})

	report, err := rep.Weekly(ctx, "FALL 2024", 0)
	require.NoError(t, err)

	assert.Empty(t, report.OnTime.People)
	assert.Empty(t, report.Unsigned.People)
	assert.Empty(t, report.Late)
}

// =============================================================================
// PERSON REPORT
// =============================================================================

func TestForPerson_OneEntryPerWorkedWeek(t *testing.T) {
	// GIVEN: Attended signed shifts in two different pay weeks
	// WHEN: Building the person report
	// THEN: Two week entries with per-position lines and running totals

	rep, store, loc := newTestReporter(t)
	ctx := context.Background()

	week1 := time.Date(2024, time.September, 23, 14, 0, 0, 0, loc)
	week2 := time.Date(2024, time.September, 30, 14, 0, 0, 0, loc)
	for _, start := range []time.Time{week1, week2} {
		seedShift(t, store, scheduling.Shift{
			Position: siPosition(), Start: start, Duration: 90 * time.Minute,
			Location: "Hall 2", Kind: scheduling.KindTutoring,
			Attended: true, Signed: true,
		})
	}
	// An unsigned shift must not appear.
	seedShift(t, store, scheduling.Shift{
		Position: siPosition(), Start: week2.Add(2 * time.Hour), Duration: time.Hour,
		Location: "Hall 2", Kind: scheduling.KindTutoring,
	})

	report, err := rep.ForPerson(ctx, staff.ID, "FALL 2024")
	require.NoError(t, err)

	require.Len(t, report.Weeks, 2)
	assert.Equal(t, "9/22 - 9/28", report.Weeks[0].Week.String())
	assert.Equal(t, "9/29 - 10/5", report.Weeks[1].Week.String())

	label := siPosition().Label()
	for _, week := range report.Weeks {
		line, ok := week.Positions[label]
		require.True(t, ok)
		assert.True(t, line.Days[1].Equal(dec("1.5")), "Monday slot holds the shift")
		cells := week.Cells[label]
		assert.Len(t, cells[1], 1)
	}

	assert.True(t, report.TotalHours.Equal(dec("3")))
	assert.True(t, report.TotalPay.Equal(dec("45")))
}

func TestForPerson_NoShiftsMeansEmptyReport(t *testing.T) {
	// GIVEN: A person with no attended signed shifts
	// WHEN: Building the report
	// THEN: Zero weeks, zero totals

	rep, _, _ := newTestReporter(t)

	report, err := rep.ForPerson(context.Background(), staff.ID, "FALL 2024")
	require.NoError(t, err)
	assert.Empty(t, report.Weeks)
	assert.True(t, report.TotalHours.IsZero())
}
