/*
Package roster holds the staff directory data model.

PURPOSE:
  Everything the scheduling and payroll engines need to know about WHO
  works at the tutoring center and WHEN the semester runs: semesters with
  their calendar exceptions, courses and their weekly meetings, and staff
  positions with hourly rates.

KEY CONCEPTS IN THIS FILE (roster.go):
  - Person: a staff member (identity only; auth lives elsewhere)
  - StaffPosition: person + semester + position kind + hourly rate
  - PositionKind: closed enum of staff roles (SI, Tutor, ...)
  - Directory: lookup interface implemented by the storage layer

UNIQUENESS:
  (person, semester, kind, assigned course) is unique. A person may hold
  the same kind twice only when tied to different courses; the storage
  layer enforces this with a unique index.

SEE ALSO:
  - semester.go: Semester, Holiday, DaySwitch
  - course.go: Course, CrossListed, CourseSection, ClassMeeting
*/
package roster

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PersonID string
type PositionID string

// =============================================================================
// PERSON
// =============================================================================

type Person struct {
	ID        PersonID
	FirstName string
	LastName  string
	Email     string

	// Privileged staff (office staff, supervisors) bypass the lead-time
	// rule and may review change requests.
	Privileged bool
}

func (p Person) Name() string { return p.FirstName + " " + p.LastName }

func (p Person) String() string {
	return fmt.Sprintf("%s %s [%s]", p.FirstName, p.LastName, p.Email)
}

// =============================================================================
// POSITION KIND
// =============================================================================

type PositionKind string

const (
	PositionSI              PositionKind = "SI"
	PositionTutor           PositionKind = "Tutor"
	PositionGroupTutor      PositionKind = "GT"
	PositionPeerMentor      PositionKind = "PM"
	PositionOursMentor      PositionKind = "OursM"
	PositionTech            PositionKind = "Tech"
	PositionOfficeAssistant PositionKind = "OA"
	PositionOther           PositionKind = "Other"
)

// PositionKinds lists every valid kind, for validation and exhaustive UIs.
func PositionKinds() []PositionKind {
	return []PositionKind{
		PositionSI, PositionTutor, PositionGroupTutor, PositionPeerMentor,
		PositionOursMentor, PositionTech, PositionOfficeAssistant, PositionOther,
	}
}

func (k PositionKind) Valid() bool {
	for _, kind := range PositionKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func (k PositionKind) Display() string {
	switch k {
	case PositionGroupTutor:
		return "Group-Tutor"
	case PositionOursMentor:
		return "OURS-Mentor"
	case PositionOfficeAssistant:
		return "Office Assistant"
	default:
		return string(k)
	}
}

// =============================================================================
// STAFF POSITION
// =============================================================================

// StaffPosition ties a person to a role for one semester at one hourly rate.
// SI and Group-Tutor positions carry the course section they lead; tutors
// carry the set of courses they cover; peer mentors carry their peers.
type StaffPosition struct {
	ID       PositionID
	Person   Person
	Semester string // Semester.Name
	Kind     PositionKind

	// HourlyRate is a money amount with two decimal places.
	HourlyRate decimal.Decimal

	// AssignedSection is the SI/Group-Tutor course section, nil otherwise.
	AssignedSection *CourseSection

	// TutorCourses is the set of courses a tutor covers.
	TutorCourses []Course

	// Peers are the people a peer mentor oversees.
	Peers []PersonID
}

func (p StaffPosition) String() string {
	if (p.Kind == PositionSI || p.Kind == PositionGroupTutor) && p.AssignedSection != nil {
		return fmt.Sprintf("%s - %s, %s", p.Kind, p.AssignedSection.Course.ShortName(), p.Person.Name())
	}
	return fmt.Sprintf("%s, %s", p.Kind, p.Person.Name())
}

// Label is the position without the person, used as a payroll bucket key.
func (p StaffPosition) Label() string {
	if (p.Kind == PositionSI || p.Kind == PositionGroupTutor) && p.AssignedSection != nil {
		return fmt.Sprintf("%s - %s", p.Kind, p.AssignedSection.Course.ShortName())
	}
	return string(p.Kind)
}

// =============================================================================
// DIRECTORY - lookup interface implemented by the storage layer
// =============================================================================

// Directory is the read side of the roster, consumed by the calendar
// resolver and the payroll aggregator.
type Directory interface {
	// ActiveSemester returns the semester with the active flag set, or nil.
	ActiveSemester(ctx context.Context) (*Semester, error)

	// PositionsFor returns the positions a person holds in a semester.
	// Kind filters to one position kind when non-empty.
	PositionsFor(ctx context.Context, person PersonID, semester string, kind PositionKind) ([]StaffPosition, error)

	// PositionsByKind returns every position of a kind in a semester.
	PositionsByKind(ctx context.Context, semester string, kind PositionKind) ([]StaffPosition, error)

	// PeersOf returns the people a peer-mentor position oversees.
	PeersOf(ctx context.Context, position PositionID) ([]Person, error)

	// TutorCoursesOf returns the courses a tutoring position covers.
	TutorCoursesOf(ctx context.Context, position PositionID) ([]Course, error)
}
