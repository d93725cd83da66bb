package factory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrcstaff/shift-engine/factory"
	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

const fullRoster = `{
  "semester": {
    "name": "FALL 2024",
    "start_date": "2024-09-02",
    "end_date": "2024-12-13",
    "active": true,
    "holidays": ["2024-11-28"],
    "day_switches": [{"date": "2024-12-03", "day_to_follow": 4}]
  },
  "people": [
    {"id": "msuper", "first_name": "Mia", "last_name": "Super",
     "email": "msuper@example.edu", "privileged": true},
    {"id": "ssmith", "first_name": "Sam", "last_name": "Smith",
     "email": "ssmith@example.edu"}
  ],
  "courses": [
    {"id": "cs101", "department": "COMPSCI", "number": "101",
     "name": "Intro to Programming"},
    {"id": "math201", "department": "MATH", "number": "201",
     "name": "Linear Algebra",
     "cross_listed": [{"department": "STAT", "number": "201",
                       "name": "Linear Algebra for Statistics"}]}
  ],
  "sections": [
    {"id": "cs101-01", "course_id": "cs101", "faculty": "Prof. Lee",
     "meetings": [
       {"location": "Hall 2", "day": 2, "start_time": "14h", "duration": "1h15m"},
       {"location": "Hall 2", "day": 4, "start_time": "14h", "duration": "1h15m"}
     ]}
  ],
  "positions": [
    {"id": "ssmith-si", "person_id": "ssmith", "kind": "SI",
     "hourly_rate": "15.00", "section_id": "cs101-01",
     "peer_ids": ["msuper"]},
    {"id": "msuper-tutor", "person_id": "msuper", "kind": "Tutor",
     "hourly_rate": "16.50", "tutor_course_ids": ["cs101", "math201"]}
  ]
}`

// =============================================================================
// PARSING
// =============================================================================

func TestParseRoster_FullRoster(t *testing.T) {
	// GIVEN: A complete roster definition
	// WHEN: Parsing it
	// THEN: Every object comes back resolved against its dependencies

	loc := newYork(t)
	r, err := factory.NewRosterFactory(loc).ParseRoster(fullRoster)
	require.NoError(t, err)

	assert.Equal(t, "FALL 2024", r.Semester.Name)
	assert.True(t, r.Semester.Active)
	assert.Equal(t, time.Date(2024, time.September, 2, 0, 0, 0, 0, loc), r.Semester.StartDate)
	assert.Equal(t, time.Date(2024, time.December, 13, 0, 0, 0, 0, loc), r.Semester.EndDate)
	require.Len(t, r.Semester.Holidays, 1)
	assert.Equal(t, time.Date(2024, time.November, 28, 0, 0, 0, 0, loc), r.Semester.Holidays[0].Date)
	require.Len(t, r.Semester.DaySwitches, 1)
	assert.Equal(t, time.Thursday, r.Semester.DaySwitches[0].DayToFollow)

	require.Len(t, r.People, 2)
	assert.True(t, r.People[0].Privileged)

	require.Len(t, r.CrossListed, 1)
	assert.Equal(t, roster.CourseID("math201"), r.CrossListed[0].MainCourse)
	assert.Equal(t, "STAT", r.CrossListed[0].Department)

	require.Len(t, r.Sections, 1)
	sec := r.Sections[0]
	assert.Equal(t, roster.CourseID("cs101"), sec.Course.ID)
	assert.Equal(t, "FALL 2024", sec.Semester)
	require.Len(t, sec.Meetings, 2)
	assert.Equal(t, time.Tuesday, sec.Meetings[0].Day)
	assert.Equal(t, 14*time.Hour, sec.Meetings[0].StartTime)
	assert.Equal(t, 75*time.Minute, sec.Meetings[0].Duration)

	require.Len(t, r.Positions, 2)
	si := r.Positions[0]
	assert.Equal(t, roster.PositionSI, si.Kind)
	assert.Equal(t, "15", si.HourlyRate.String())
	require.NotNil(t, si.AssignedSection)
	assert.Equal(t, roster.SectionID("cs101-01"), si.AssignedSection.ID)
	assert.Equal(t, []roster.PersonID{"msuper"}, si.Peers)

	tutor := r.Positions[1]
	assert.Nil(t, tutor.AssignedSection)
	require.Len(t, tutor.TutorCourses, 2)
	assert.Equal(t, roster.CourseID("math201"), tutor.TutorCourses[1].ID)
}

func TestParseRoster_RejectsBadReferences(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{
			name: "unknown course in section",
			json: `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
			        "sections": [{"id": "x-01", "course_id": "nope"}]}`,
			want: "unknown course",
		},
		{
			name: "unknown person in position",
			json: `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
			        "positions": [{"id": "p1", "person_id": "ghost", "kind": "SI", "hourly_rate": "15.00"}]}`,
			want: "unknown person",
		},
		{
			name: "unknown section in position",
			json: `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
			        "people": [{"id": "a"}],
			        "positions": [{"id": "p1", "person_id": "a", "kind": "SI",
			                       "hourly_rate": "15.00", "section_id": "nope"}]}`,
			want: "unknown section",
		},
		{
			name: "unknown peer",
			json: `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
			        "people": [{"id": "a"}],
			        "positions": [{"id": "p1", "person_id": "a", "kind": "Tutor",
			                       "hourly_rate": "15.00", "peer_ids": ["ghost"]}]}`,
			want: "unknown peer",
		},
		{
			name: "cross-listing missing number",
			json: `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
			        "courses": [{"id": "c1", "department": "MATH", "number": "201", "name": "LA",
			                     "cross_listed": [{"department": "STAT"}]}]}`,
			want: "cross-listing missing",
		},
		{
			name: "invalid position kind",
			json: `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
			        "people": [{"id": "a"}],
			        "positions": [{"id": "p1", "person_id": "a", "kind": "Wizard", "hourly_rate": "15.00"}]}`,
			want: "invalid kind",
		},
		{
			name: "invalid hourly rate",
			json: `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
			        "people": [{"id": "a"}],
			        "positions": [{"id": "p1", "person_id": "a", "kind": "SI", "hourly_rate": "lots"}]}`,
			want: "invalid hourly rate",
		},
	}

	loc := newYork(t)
	f := factory.NewRosterFactory(loc)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseRoster(tc.json)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseRoster_RejectsBadSemester(t *testing.T) {
	loc := newYork(t)
	f := factory.NewRosterFactory(loc)

	_, err := f.ParseRoster(`{"semester": {"name": "", "start_date": "2024-09-02", "end_date": "2024-12-13"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")

	_, err = f.ParseRoster(`{"semester": {"name": "S", "start_date": "2024-12-13", "end_date": "2024-09-02"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ends before it starts")

	_, err = f.ParseRoster(`{"semester": {"name": "S", "start_date": "Sep 2", "end_date": "2024-12-13"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestParseRoster_RejectsBadMeeting(t *testing.T) {
	loc := newYork(t)
	f := factory.NewRosterFactory(loc)

	base := `{"semester": {"name": "S", "start_date": "2024-09-02", "end_date": "2024-12-13"},
	          "courses": [{"id": "cs101"}],
	          "sections": [{"id": "cs101-01", "course_id": "cs101",
	                        "meetings": [%s]}]}`

	for _, tc := range []struct{ meeting, want string }{
		{`{"location": "L", "day": 9, "start_time": "14h", "duration": "1h"}`, "day out of range"},
		{`{"location": "L", "day": 2, "start_time": "2pm", "duration": "1h"}`, "start_time"},
		{`{"location": "L", "day": 2, "start_time": "14h", "duration": "0h"}`, "must be positive"},
	} {
		_, err := f.ParseRoster(fmt.Sprintf(base, tc.meeting))
		require.Error(t, err)
		assert.Contains(t, err.Error(), tc.want)
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestApply_PersistsInDependencyOrder(t *testing.T) {
	// GIVEN: A parsed roster
	// WHEN: Applying it to a store
	// THEN: Everything is loadable, with position references intact

	loc := newYork(t)
	ctx := context.Background()
	store := memory.New(loc)

	r, err := factory.NewRosterFactory(loc).ParseRoster(fullRoster)
	require.NoError(t, err)
	require.NoError(t, r.Apply(ctx, store))

	sem, err := store.ActiveSemester(ctx)
	require.NoError(t, err)
	require.NotNil(t, sem)
	assert.Equal(t, "FALL 2024", sem.Name)

	pos, err := store.GetPosition(ctx, "ssmith-si")
	require.NoError(t, err)
	assert.Equal(t, roster.PersonID("ssmith"), pos.Person.ID)
	require.NotNil(t, pos.AssignedSection)
	assert.Len(t, pos.AssignedSection.Meetings, 2)

	// A cross-listed lookup resolves to the main course.
	course, err := store.GetCourse(ctx, "STAT", "201")
	require.NoError(t, err)
	assert.Equal(t, roster.CourseID("math201"), course.ID)
}
