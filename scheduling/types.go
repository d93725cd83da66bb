/*
Package scheduling provides the shift engine for the tutoring center.

PURPOSE:
  This package contains the algorithmic core of the staff database:
  materializing recurring class sessions against the semester calendar,
  the durable shift record with soft-delete semantics, and the
  change-request approval workflow.

KEY CONCEPTS IN THIS FILE (types.go):
  - ShiftKind: closed enum of session kinds with a display-color table
  - Shift: a scheduled work instance owned by a staff position
  - Visibility: the Active/Deleted variant all queries are filtered by
  - PunchedIn: an open clock-in awaiting clock-out

DESIGN PRINCIPLES:
  1. Soft delete: shifts are never hard-deleted by normal flows; the
     deleted flag is flipped and every default query excludes it
  2. Exhaustive kinds: branching on ShiftKind switches on the enum, so
     the compiler flags missed cases when a kind is added
  3. Precision: durations are time.Duration; money is decimal.Decimal

SEE ALSO:
  - calendar.go: recurring occurrence resolution
  - request.go: change-request workflow
  - store.go: persistence interfaces
*/
package scheduling

import (
	"time"

	"github.com/lrcstaff/shift-engine/roster"
)

// =============================================================================
// SHIFT KIND - closed enum with display metadata
// =============================================================================

type ShiftKind string

const (
	KindSI            ShiftKind = "SI"
	KindTutoring      ShiftKind = "Tutoring"
	KindGroupTutoring ShiftKind = "Group Tutoring"
	KindTraining      ShiftKind = "Training"
	KindObservation   ShiftKind = "Observation"
	KindClass         ShiftKind = "Class"
	KindPreparation   ShiftKind = "Preparation"
	KindMeeting       ShiftKind = "Meeting"
	KindOursMentor    ShiftKind = "OURS Mentor"
	KindOther         ShiftKind = "Other"
)

// ShiftKinds lists every valid kind.
func ShiftKinds() []ShiftKind {
	return []ShiftKind{
		KindSI, KindTutoring, KindGroupTutoring, KindTraining, KindObservation,
		KindClass, KindPreparation, KindMeeting, KindOursMentor, KindOther,
	}
}

func (k ShiftKind) Valid() bool {
	for _, kind := range ShiftKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Color returns the calendar display color for a kind.
func (k ShiftKind) Color() string {
	switch k {
	case KindSI:
		return "orange"
	case KindTutoring:
		return "green"
	case KindGroupTutoring:
		return "purple"
	case KindTraining:
		return "red"
	case KindObservation:
		return "blue"
	case KindClass:
		return "magenta"
	case KindPreparation:
		return "teal"
	case KindMeeting:
		return "brown"
	case KindOursMentor:
		return "olive"
	case KindOther:
		return "black"
	default:
		return "black"
	}
}

// PrepEligible reports whether an attended session of this kind earns a
// companion Preparation shift at sign-off.
func (k ShiftKind) PrepEligible() bool {
	return k == KindSI || k == KindGroupTutoring
}

// =============================================================================
// SHIFT
// =============================================================================

type ShiftID string

// Shift is a scheduled work instance. It is created ad hoc, generated from
// the semester calendar (KindClass), or synthesized by payroll sign-off
// (KindPreparation). Payroll signing and request approval mutate it; drop
// approval soft-deletes it.
type Shift struct {
	ID       ShiftID
	Position roster.StaffPosition
	Start    time.Time // timezone-aware
	Duration time.Duration
	Location string
	Kind     ShiftKind

	// Payroll state, set at sign-off.
	Attended bool
	Signed   bool
	Reason   string // required when signed as not attended
	Late     bool
	LateAt   *time.Time

	// Deleted is the soft-delete flag. All default queries exclude it.
	Deleted bool

	// Document is an attachment path, empty when none.
	Document string

	// CreatedAt is the generation timestamp, set for every shift and used
	// to audit bulk/recurring creation.
	CreatedAt time.Time
}

func (s Shift) End() time.Time { return s.Start.Add(s.Duration) }

func (s Shift) String() string { return string(s.Kind) + ", " + s.Location }

// Validate checks the required fields for shift construction.
func (s Shift) Validate() error {
	switch {
	case s.Position.ID == "":
		return &ValidationError{Field: "position", Message: "position is required"}
	case s.Start.IsZero():
		return &ValidationError{Field: "start", Message: "start is required"}
	case s.Duration <= 0:
		return &ValidationError{Field: "duration", Message: "duration must be positive"}
	case s.Location == "":
		return &ValidationError{Field: "location", Message: "location is required"}
	case !s.Kind.Valid():
		return &ValidationError{Field: "kind", Message: "unknown shift kind"}
	}
	return nil
}

// =============================================================================
// VISIBILITY - the soft-delete variant at the storage boundary
// =============================================================================

// Visibility selects which rows a shift query sees. The default everywhere
// is VisibleOnly; deleted rows are reachable only by explicit request, so
// no query path can bypass the soft-delete filter by accident.
type Visibility int

const (
	VisibleOnly Visibility = iota
	DeletedOnly
	VisibleAndDeleted
)

// =============================================================================
// PUNCHED IN - open clock-in
// =============================================================================

type PunchID string

// PunchedIn is an open clock-in with no end. At most one exists per
// position; clock-out converts it into a Shift and removes it.
type PunchedIn struct {
	ID       PunchID
	Position roster.StaffPosition
	Start    time.Time
}
