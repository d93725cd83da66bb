package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrcstaff/shift-engine/payroll"
)

func newYork(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// =============================================================================
// PAY WEEK ANCHORING
// =============================================================================

func TestWeekOf_AnchorsOnSunday(t *testing.T) {
	// GIVEN: A Wednesday afternoon
	// WHEN: Computing its pay week
	// THEN: The week starts on the preceding Sunday at local midnight

	loc := newYork(t)
	wednesday := time.Date(2024, time.October, 2, 15, 30, 0, 0, loc)

	week := payroll.WeekOf(wednesday, loc)

	assert.True(t, week.Start.Equal(time.Date(2024, time.September, 29, 0, 0, 0, 0, loc)))
	assert.Equal(t, time.Sunday, week.Start.Weekday())
}

func TestWeekOf_SundayAnchorsItself(t *testing.T) {
	// GIVEN: A Sunday at noon
	// WHEN: Computing its pay week
	// THEN: The week starts on that same Sunday

	loc := newYork(t)
	sunday := time.Date(2024, time.October, 6, 12, 0, 0, 0, loc)

	week := payroll.WeekOf(sunday, loc)

	assert.True(t, week.Start.Equal(time.Date(2024, time.October, 6, 0, 0, 0, 0, loc)))
}

func TestWeek_EndIsSaturdayNight(t *testing.T) {
	// GIVEN: The pay week of 2024-09-29
	// WHEN: Reading the window close
	// THEN: Saturday 23:59:59 local

	loc := newYork(t)
	week := payroll.WeekOf(time.Date(2024, time.October, 2, 0, 0, 0, 0, loc), loc)

	end := week.End()
	assert.True(t, end.Equal(time.Date(2024, time.October, 5, 23, 59, 59, 0, loc)))
	assert.True(t, week.Contains(end))
	assert.False(t, week.Contains(end.Add(time.Second)))
}

func TestWeekOf_DSTFallBackKeepsLocalMidnight(t *testing.T) {
	// GIVEN: A date in the week where clocks fall back (2024-11-03)
	// WHEN: Computing the pay week
	// THEN: Start and End stay at wall-clock boundaries in local time

	loc := newYork(t)
	week := payroll.WeekOf(time.Date(2024, time.November, 6, 10, 0, 0, 0, loc), loc)

	assert.True(t, week.Start.Equal(time.Date(2024, time.November, 3, 0, 0, 0, 0, loc)))
	assert.True(t, week.End().Equal(time.Date(2024, time.November, 9, 23, 59, 59, 0, loc)))

	// The following week anchors exactly 7 calendar days later.
	next := week.Next()
	assert.True(t, next.Start.Equal(time.Date(2024, time.November, 10, 0, 0, 0, 0, loc)))
}

func TestWeek_StringLabel(t *testing.T) {
	// GIVEN: The pay week spanning a month boundary
	// WHEN: Rendering the report label
	// THEN: Month/day for both ends without zero padding

	loc := newYork(t)
	week := payroll.WeekOf(time.Date(2024, time.October, 2, 0, 0, 0, 0, loc), loc)

	assert.Equal(t, "9/29 - 10/5", week.String())
}
