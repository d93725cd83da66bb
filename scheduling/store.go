/*
store.go - Persistence interfaces for shifts, requests, and punches

PURPOSE:
  Defines the interface between the engine and the database. Implementations
  live in store/sqlite (production) and store/memory (tests/dev).

SOFT-DELETE CONTRACT:
  Shifts(...) sees only non-deleted rows unless the filter's Visibility
  says otherwise. GetShift is the primary-key audit path and returns the
  row regardless of the deleted flag. Hard deletion exists only for the
  explicit regeneration clear (PurgeClassShifts).

ATOMIC COMPOUND WRITES:
  Multi-record effects that must land together are single store operations:
  - CreateShifts: bulk recurring generation, all-or-nothing
  - ApplyApproval: approved request + its shift as one unit
  - ClosePunch: delete the punch and create its shift as one unit
  This keeps the workflow from ever observing an Approved request with no
  shift, or a half-generated semester.

SEE ALSO:
  - request.go: the workflow driving ApplyApproval
  - payroll package: the sign-off compound write
*/
package scheduling

import (
	"context"
	"time"

	"github.com/lrcstaff/shift-engine/roster"
)

// =============================================================================
// SHIFT STORE
// =============================================================================

type ShiftStore interface {
	// CreateShift inserts a shift after validation.
	CreateShift(ctx context.Context, s Shift) error

	// CreateShifts inserts many shifts atomically. Either all land or none.
	CreateShifts(ctx context.Context, shifts []Shift) error

	// GetShift returns a shift by primary key, deleted or not.
	// Returns ErrNotFound when no row exists.
	GetShift(ctx context.Context, id ShiftID) (*Shift, error)

	// UpdateShift overwrites an existing shift.
	UpdateShift(ctx context.Context, s Shift) error

	// Shifts returns shifts matching the filter, ordered by start.
	Shifts(ctx context.Context, f ShiftFilter) ([]Shift, error)

	// PurgeClassShifts hard-deletes every KindClass shift in the semester.
	// This is the explicit clear before regeneration; no other flow
	// hard-deletes shifts. Returns the number of rows removed.
	PurgeClassShifts(ctx context.Context, semester string) (int, error)
}

// ShiftFilter selects shifts. The zero value matches every non-deleted
// shift. Time ranges are half-open: [From, To).
type ShiftFilter struct {
	Visibility Visibility

	Semester string
	Person   roster.PersonID
	Position roster.PositionID
	Kind     ShiftKind

	Signed   *bool
	Attended *bool
	Late     *bool

	StartFrom *time.Time
	StartTo   *time.Time

	// Late-detection window, for grouping late submissions into the
	// report week they surfaced in.
	LateFrom *time.Time
	LateTo   *time.Time
}

// =============================================================================
// CHANGE REQUEST STORE
// =============================================================================

type RequestStore interface {
	CreateRequest(ctx context.Context, r ChangeRequest) error

	// GetRequest returns ErrNotFound when no row exists.
	GetRequest(ctx context.Context, id RequestID) (*ChangeRequest, error)

	UpdateRequest(ctx context.Context, r ChangeRequest) error

	// Requests returns requests matching the filter, ordered by NewStart.
	Requests(ctx context.Context, f RequestFilter) ([]ChangeRequest, error)

	// ApplyApproval persists the approved request and its shift as one
	// atomic unit. For a drop approval the shift carries Deleted=true; for
	// an edit or new-shift approval it is the upserted shift.
	ApplyApproval(ctx context.Context, r ChangeRequest, shift Shift) error
}

// RequestFilter selects change requests.
type RequestFilter struct {
	State  RequestState
	Person roster.PersonID

	// PositionKind matches the request's proposed or target position kind.
	PositionKind roster.PositionKind

	// Drop filters on the drop-request flag when non-nil.
	Drop *bool
}

// =============================================================================
// PUNCH STORE
// =============================================================================

type PunchStore interface {
	// OpenPunch records a clock-in. Returns ErrAlreadyPunchedIn if the
	// position already has an open punch.
	OpenPunch(ctx context.Context, p PunchedIn) error

	// GetPunch returns the open punch for a position, or ErrNotFound.
	GetPunch(ctx context.Context, position roster.PositionID) (*PunchedIn, error)

	// ClosePunch removes the punch and creates its shift as one atomic unit.
	ClosePunch(ctx context.Context, id PunchID, shift Shift) error
}

// Store bundles the scheduling persistence surface.
type Store interface {
	ShiftStore
	RequestStore
	PunchStore
}
