package roster

import (
	"fmt"
	"time"
)

// =============================================================================
// COURSE
// =============================================================================

type CourseID string

// Course is a catalog entry. Number is a string to accommodate suffixed
// numbers like "189C".
type Course struct {
	ID         CourseID
	Department string // e.g. COMPSCI, MATH
	Number     string
	Name       string
}

func (c Course) ShortName() string {
	if c.Department == "STUDY-SKILL" {
		return "Study-Skill"
	}
	return fmt.Sprintf("%s %s", c.Department, c.Number)
}

func (c Course) String() string {
	if c.Department == "STUDY-SKILL" {
		return "Study-Skill"
	}
	return fmt.Sprintf("%s %s: %s", c.Department, c.Number, c.Name)
}

// CrossListed aliases another department/number/name to a main course for
// roster and display purposes. Schedule data always follows the main course.
type CrossListed struct {
	MainCourse CourseID
	Department string
	Number     string
	Name       string
}

func (c CrossListed) ShortName() string {
	if c.Department == "STUDY-SKILL" {
		return "Study-Skill"
	}
	return fmt.Sprintf("%s %s", c.Department, c.Number)
}

// =============================================================================
// COURSE SECTION - one faculty member's offering in one semester
// =============================================================================

type SectionID string

// CourseSection is a course taught by one faculty member in one semester.
// SI positions are assigned to a section, and recurring Class shifts are
// generated from its weekly meetings.
type CourseSection struct {
	ID       SectionID
	Semester string
	Course   Course
	Faculty  string

	Meetings []ClassMeeting
}

func (s CourseSection) ShortName() string {
	return fmt.Sprintf("%s, %s", s.Course.ShortName(), s.Faculty)
}

// ClassMeeting is one weekly slot of a course section.
type ClassMeeting struct {
	Section  SectionID
	Location string
	Day      time.Weekday
	// StartTime is the time of day the meeting begins, expressed as an
	// offset from local midnight.
	StartTime time.Duration
	Duration  time.Duration
}

func (m ClassMeeting) String() string {
	start := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(m.StartTime)
	return fmt.Sprintf("%s (%s, %s)", m.Day, m.Location, start.Format("3:04 pm"))
}
