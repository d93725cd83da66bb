/*
errors.go - Centralized error types for the shift engine

PURPOSE:
  All error categories in one place. The payroll package and the API layer
  wrap and classify against these.

ERROR CATEGORIES:
  1. Validation errors - malformed or missing input
  2. Permission errors - non-privileged actor on a privileged operation
  3. Not-found errors  - dangling references
  4. State conflicts   - invalid workflow transitions, double sign-off

USAGE:
  if errors.Is(err, scheduling.ErrStateConflict) { ... }

SEE ALSO:
  - request.go: raises state conflicts on bad transitions
  - api/handlers.go: maps these to HTTP status codes
*/
package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all malformed-input failures.
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied is returned when a non-privileged actor attempts
	// a privileged operation, or touches a shift or request they do not own.
	// Always fatal to the operation; no partial effect.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned for references to nonexistent records.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict is returned for invalid workflow transitions, e.g.
	// approving an already-approved request or signing a signed shift.
	// Rejecting these prevents double shift materialization and double
	// payroll accrual.
	ErrStateConflict = errors.New("state conflict")

	// ErrAlreadyPunchedIn is returned when a position clocks in twice
	// without clocking out.
	ErrAlreadyPunchedIn = errors.New("already punched in")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError identifies the offending field, and for bulk input the
// offending record.
type ValidationError struct {
	Field   string
	Message string
	// Line is the 1-based record number for bulk input, 0 otherwise.
	Line int
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("record %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StateConflictError reports the transition that was rejected.
type StateConflictError struct {
	Entity string // "change request", "shift", ...
	From   string
	Action string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %q", e.Action, e.Entity, e.From)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// LeadTimeError reports a submission rejected by the lead-time rule.
type LeadTimeError struct {
	Window time.Duration
	Start  time.Time
}

func (e *LeadTimeError) Error() string {
	return fmt.Sprintf("cannot change a shift starting within %s (shift starts %s)",
		e.Window, e.Start.Format(time.RFC3339))
}

func (e *LeadTimeError) Unwrap() error { return ErrPermissionDenied }

// ExamReviewError redirects an SI/Group-Tutoring submission whose duration
// exceeds the exam-review threshold into the confirmation sub-flow. The
// proposal is carried back so the caller can resubmit it confirmed.
type ExamReviewError struct {
	Proposal Proposal
}

func (e *ExamReviewError) Error() string {
	return fmt.Sprintf("duration %s exceeds %s: exam review confirmation required",
		e.Proposal.Duration, ExamReviewThreshold)
}

func (e *ExamReviewError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to bad input or a bad
// transition rather than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrAlreadyPunchedIn)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
