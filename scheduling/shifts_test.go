package scheduling_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
	"github.com/lrcstaff/shift-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	supervisor = roster.Person{ID: "msuper", FirstName: "Morgan", LastName: "Supervisor", Privileged: true}
	staff      = roster.Person{ID: "ssmith", FirstName: "Sam", LastName: "Smith"}
)

func siPosition() roster.StaffPosition {
	return roster.StaffPosition{
		ID:         "ssmith-si",
		Person:     staff,
		Semester:   "FALL 2024",
		Kind:       roster.PositionSI,
		HourlyRate: decimal.RequireFromString("15.00"),
	}
}

func newTestShiftService(t *testing.T) (*scheduling.ShiftService, *memory.Store) {
	loc := newYork(t)
	store := memory.New(loc)
	svc := scheduling.NewShiftService(store, scheduling.NewResolver(loc))
	svc.Now = func() time.Time {
		return time.Date(2024, time.October, 1, 12, 0, 0, 0, loc)
	}
	return svc, store
}

func testShift(start time.Time) scheduling.Shift {
	return scheduling.Shift{
		Position: siPosition(),
		Start:    start,
		Duration: time.Hour,
		Location: "Hall 2",
		Kind:     scheduling.KindSI,
	}
}

// =============================================================================
// CREATION
// =============================================================================

func TestCreate_RequiresPrivilege(t *testing.T) {
	// GIVEN: A non-privileged staff member
	// WHEN: Creating an ad hoc shift
	// THEN: Permission is denied

	svc, _ := newTestShiftService(t)
	loc := newYork(t)

	_, err := svc.Create(context.Background(), staff, testShift(time.Date(2024, time.October, 2, 14, 0, 0, 0, loc)))

	assert.ErrorIs(t, err, scheduling.ErrPermissionDenied)
}

func TestCreate_AssignsIDAndTimestamp(t *testing.T) {
	// GIVEN: A valid shift from a privileged caller
	// WHEN: Creating it
	// THEN: It gets an ID and creation timestamp and is retrievable

	svc, store := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, supervisor, testShift(time.Date(2024, time.October, 2, 14, 0, 0, 0, loc)))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetShift(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Location, got.Location)
}

func TestCreate_RejectsInvalidShift(t *testing.T) {
	// GIVEN: A shift with no location
	// WHEN: Creating it
	// THEN: A validation error names the field

	svc, _ := newTestShiftService(t)
	loc := newYork(t)

	shift := testShift(time.Date(2024, time.October, 2, 14, 0, 0, 0, loc))
	shift.Location = ""
	_, err := svc.Create(context.Background(), supervisor, shift)

	var verr *scheduling.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "location", verr.Field)
}

func TestBulkCreate_PartialApplication(t *testing.T) {
	// GIVEN: Three records where the second has a non-positive duration
	// WHEN: Bulk creating
	// THEN: The first is kept, processing stops, and the error carries the
	//       1-based record number

	svc, store := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()

	good1 := testShift(time.Date(2024, time.October, 2, 14, 0, 0, 0, loc))
	bad := testShift(time.Date(2024, time.October, 3, 14, 0, 0, 0, loc))
	bad.Duration = 0
	good2 := testShift(time.Date(2024, time.October, 4, 14, 0, 0, 0, loc))

	res, err := svc.BulkCreate(ctx, supervisor, []scheduling.Shift{good1, bad, good2})

	assert.Equal(t, 1, res.Created)
	var verr *scheduling.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.Line)

	// The first record stays created.
	day, err := svc.AllOnDate(ctx, good1.Start)
	require.NoError(t, err)
	assert.Len(t, day, 1)

	// The third was never attempted.
	day, err = svc.AllOnDate(ctx, good2.Start)
	require.NoError(t, err)
	assert.Empty(t, day)
	_ = store
}

// =============================================================================
// DAY QUERIES AND DAY EDITS
// =============================================================================

func TestAllOnDate_HalfOpenBoundary(t *testing.T) {
	// GIVEN: A shift at 23:59 and one at 00:01 the next day
	// WHEN: Querying each day
	// THEN: Each day sees exactly its own shift

	svc, _ := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()

	lateNight := time.Date(2024, time.October, 2, 23, 59, 0, 0, loc)
	earlyMorning := time.Date(2024, time.October, 3, 0, 1, 0, 0, loc)
	_, err := svc.Create(ctx, supervisor, testShift(lateNight))
	require.NoError(t, err)
	_, err = svc.Create(ctx, supervisor, testShift(earlyMorning))
	require.NoError(t, err)

	day2, err := svc.AllOnDate(ctx, lateNight)
	require.NoError(t, err)
	require.Len(t, day2, 1)
	assert.True(t, day2[0].Start.Equal(lateNight))

	day3, err := svc.AllOnDate(ctx, earlyMorning)
	require.NoError(t, err)
	require.Len(t, day3, 1)
	assert.True(t, day3[0].Start.Equal(earlyMorning))
}

func TestDropAllOnDate_SoftDeletes(t *testing.T) {
	// GIVEN: Two shifts on a date
	// WHEN: Dropping the date
	// THEN: Day queries no longer see them, but PK lookup still does

	svc, store := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()

	start := time.Date(2024, time.October, 2, 14, 0, 0, 0, loc)
	first, err := svc.Create(ctx, supervisor, testShift(start))
	require.NoError(t, err)
	_, err = svc.Create(ctx, supervisor, testShift(start.Add(2*time.Hour)))
	require.NoError(t, err)

	n, err := svc.DropAllOnDate(ctx, supervisor, start)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	day, err := svc.AllOnDate(ctx, start)
	require.NoError(t, err)
	assert.Empty(t, day)

	got, err := store.GetShift(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
}

func TestMoveShiftsBetweenDates_KeepsWallTime(t *testing.T) {
	// GIVEN: A 2pm shift on October 2
	// WHEN: Moving October 2 onto October 9
	// THEN: The shift is at 2pm on October 9

	svc, _ := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()

	from := time.Date(2024, time.October, 2, 14, 0, 0, 0, loc)
	to := time.Date(2024, time.October, 9, 0, 0, 0, 0, loc)
	_, err := svc.Create(ctx, supervisor, testShift(from))
	require.NoError(t, err)

	n, err := svc.MoveShiftsBetweenDates(ctx, supervisor, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	moved, err := svc.AllOnDate(ctx, to)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.True(t, moved[0].Start.Equal(time.Date(2024, time.October, 9, 14, 0, 0, 0, loc)))
}

func TestSwapShiftDates_ExchangesDays(t *testing.T) {
	// GIVEN: A morning shift on one day and an afternoon shift on another
	// WHEN: Swapping the two dates
	// THEN: Each shift lands on the other date at its own wall time

	svc, _ := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()

	first := time.Date(2024, time.October, 2, 9, 0, 0, 0, loc)
	second := time.Date(2024, time.October, 3, 15, 0, 0, 0, loc)
	_, err := svc.Create(ctx, supervisor, testShift(first))
	require.NoError(t, err)
	_, err = svc.Create(ctx, supervisor, testShift(second))
	require.NoError(t, err)

	n, err := svc.SwapShiftDates(ctx, supervisor, first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	day2, err := svc.AllOnDate(ctx, first)
	require.NoError(t, err)
	require.Len(t, day2, 1)
	assert.Equal(t, 15, day2[0].Start.In(newYork(t)).Hour())

	day3, err := svc.AllOnDate(ctx, second)
	require.NoError(t, err)
	require.Len(t, day3, 1)
	assert.Equal(t, 9, day3[0].Start.In(newYork(t)).Hour())
}

// =============================================================================
// RECURRING GENERATION
// =============================================================================

func TestAddRecurring_GeneratesClassShifts(t *testing.T) {
	// GIVEN: An SI position assigned to a section meeting twice a week
	// WHEN: Generating recurring shifts
	// THEN: One Class shift per resolved occurrence

	svc, _ := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()
	sem := fallSemester(loc)

	section := roster.CourseSection{
		ID:       "cs101-01",
		Semester: sem.Name,
		Course:   roster.Course{ID: "cs101", Department: "COMPSCI", Number: "101"},
		Meetings: []roster.ClassMeeting{
			{Section: "cs101-01", Location: "Hall 2", Day: time.Tuesday, StartTime: 14 * time.Hour, Duration: 75 * time.Minute},
			{Section: "cs101-01", Location: "Hall 2", Day: time.Thursday, StartTime: 14 * time.Hour, Duration: 75 * time.Minute},
		},
	}
	pos := siPosition()
	pos.AssignedSection = &section

	n, err := svc.AddRecurring(ctx, sem, pos, section)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	// Spot-check one generated day.
	day, err := svc.AllOnDate(ctx, time.Date(2024, time.September, 5, 0, 0, 0, 0, loc))
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, scheduling.KindClass, day[0].Kind)
	assert.Equal(t, 75*time.Minute, day[0].Duration)
}

func TestRedoClassShifts_IsIdempotent(t *testing.T) {
	// GIVEN: Class shifts already generated for the semester
	// WHEN: Redoing class shifts twice
	// THEN: Both runs produce the same count, not double

	svc, store := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()
	sem := fallSemester(loc)

	section := roster.CourseSection{
		ID:       "cs101-01",
		Semester: sem.Name,
		Course:   roster.Course{ID: "cs101"},
		Meetings: []roster.ClassMeeting{
			{Section: "cs101-01", Location: "Hall 2", Day: time.Monday, StartTime: 9 * time.Hour, Duration: 50 * time.Minute},
		},
	}
	pos := siPosition()
	pos.AssignedSection = &section
	require.NoError(t, store.SaveSemester(ctx, *sem))
	require.NoError(t, store.SavePerson(ctx, staff))
	require.NoError(t, store.SavePosition(ctx, pos))

	first, err := svc.RedoClassShifts(ctx, supervisor, store, sem)
	require.NoError(t, err)
	second, err := svc.RedoClassShifts(ctx, supervisor, store, sem)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	all, err := store.Shifts(ctx, scheduling.ShiftFilter{Semester: sem.Name, Kind: scheduling.KindClass})
	require.NoError(t, err)
	assert.Len(t, all, second)
}

// =============================================================================
// PUNCH CLOCK
// =============================================================================

func TestClockInOut_CreatesShift(t *testing.T) {
	// GIVEN: An open punch from 12:00
	// WHEN: Clocking out at 13:30
	// THEN: A 90 minute shift exists and the punch is gone

	svc, store := newTestShiftService(t)
	loc := newYork(t)
	ctx := context.Background()
	pos := siPosition()

	clockIn := time.Date(2024, time.October, 1, 12, 0, 0, 0, loc)
	svc.Now = func() time.Time { return clockIn }
	punch, err := svc.ClockIn(ctx, pos)
	require.NoError(t, err)
	assert.True(t, punch.Start.Equal(clockIn))

	svc.Now = func() time.Time { return clockIn.Add(90 * time.Minute) }
	shift, err := svc.ClockOut(ctx, pos, "Front Desk", scheduling.KindOther)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, shift.Duration)
	assert.True(t, shift.Start.Equal(clockIn))

	_, err = store.GetPunch(ctx, pos.ID)
	assert.ErrorIs(t, err, scheduling.ErrNotFound)
}

func TestClockIn_TwiceIsConflict(t *testing.T) {
	// GIVEN: An open punch for a position
	// WHEN: Clocking in again
	// THEN: The second clock-in is rejected

	svc, _ := newTestShiftService(t)
	ctx := context.Background()
	pos := siPosition()

	_, err := svc.ClockIn(ctx, pos)
	require.NoError(t, err)

	_, err = svc.ClockIn(ctx, pos)
	assert.ErrorIs(t, err, scheduling.ErrAlreadyPunchedIn)
}
