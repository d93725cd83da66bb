/*
request.go - Shift change-request workflow

PURPOSE:
  The state machine for proposing, reviewing, approving, denying, and
  dropping shifts.

REQUEST FLOW:

  submit      ──▶  New ──▶ Pending ──▶ Approved
  (staff)           │         │
                    │         └──▶ Not Approved
                    ├──▶ Approved
                    └──▶ Not Approved

  Approved and Not Approved are terminal. Pending is a reviewer's holding
  state. Any transition out of a terminal state is a StateConflictError —
  re-approving an approved request would materialize its shift twice.

DROP REQUESTS:
  A drop request targets an existing shift and copies its position, kind
  and start into the new_* fields for audit display; its approval only
  flips the target's deleted flag and touches nothing else.

SUBMISSION GUARDS (pre-commit, not workflow states):
  - Lead time: when enabled, a non-privileged submitter may not target or
    propose a start within the configured window of now. Privileged
    submitters bypass it.
  - Exam review: SI/Group-Tutoring proposals longer than 1h15m bounce back
    with ExamReviewError until resubmitted with the confirmed flag set.

SIDE EFFECTS:
  After a successful submission the Notifier is invoked fire-and-forget;
  its failure never blocks or fails the submission.
*/
package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lrcstaff/shift-engine/roster"
)

// =============================================================================
// CHANGE REQUEST
// =============================================================================

type RequestID string

type RequestState string

const (
	StateNew         RequestState = "New"
	StatePending     RequestState = "Pending"
	StateApproved    RequestState = "Approved"
	StateNotApproved RequestState = "Not Approved"
)

// Terminal reports whether no further transitions are allowed.
func (s RequestState) Terminal() bool {
	return s == StateApproved || s == StateNotApproved
}

// ChangeRequest proposes a new shift (ShiftToUpdate nil), an edit to an
// existing one, or a drop. The New* fields hold the proposed values; for a
// drop request only NewPosition/NewKind/NewStart are meaningful, copied
// from the target for display.
type ChangeRequest struct {
	ID            RequestID
	ShiftToUpdate *ShiftID
	Reason        string
	State         RequestState
	IsDrop        bool

	NewPosition roster.StaffPosition
	NewStart    time.Time
	NewDuration time.Duration
	NewLocation string
	NewKind     ShiftKind

	Created time.Time
}

// Proposal is the submission input for a new or edited shift.
type Proposal struct {
	Position roster.StaffPosition
	Start    time.Time
	Duration time.Duration
	Location string
	Kind     ShiftKind
	Reason   string

	// ExamReviewConfirmed marks that the submitter confirmed the extended
	// duration in the exam-review sub-flow.
	ExamReviewConfirmed bool
}

// ApprovalEdits are the reviewer's overrides on the approval form. Nil
// fields keep the proposed value.
type ApprovalEdits struct {
	Position *roster.StaffPosition
	Start    *time.Time
	Duration *time.Duration
	Location *string
	Kind     *ShiftKind
	Document *string
}

// ExamReviewThreshold is the scheduled duration beyond which an SI or
// Group-Tutoring session counts as an exam review.
const ExamReviewThreshold = time.Hour + 15*time.Minute

// =============================================================================
// NOTIFIER - fire-and-forget collaborator
// =============================================================================

// Notifier is told about new change requests. Implementations must not
// block; failures are theirs to log and never propagate here.
type Notifier interface {
	ShiftRequestSubmitted(ctx context.Context, r ChangeRequest)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) ShiftRequestSubmitted(context.Context, ChangeRequest) {}

// =============================================================================
// LEAD TIME POLICY
// =============================================================================

// LeadTimePolicy rejects non-privileged changes too close to the shift
// start. Disabled by default; the window is conventionally 7 days.
type LeadTimePolicy struct {
	Enabled bool
	Window  time.Duration
}

// DefaultLeadTimeWindow is the conventional restriction window.
const DefaultLeadTimeWindow = 7 * 24 * time.Hour

func (p LeadTimePolicy) violates(now, start time.Time) bool {
	return p.Enabled && start.Sub(now) < p.Window
}

// =============================================================================
// WORKFLOW
// =============================================================================

// Workflow drives the change-request state machine.
type Workflow struct {
	Store    Store
	Notifier Notifier
	LeadTime LeadTimePolicy
	Now      func() time.Time
}

func NewWorkflow(store Store, notifier Notifier, leadTime LeadTimePolicy) *Workflow {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Workflow{Store: store, Notifier: notifier, LeadTime: leadTime, Now: time.Now}
}

// Submit creates a change request in state New. targetID nil proposes a
// brand-new shift; otherwise the request edits the target.
func (w *Workflow) Submit(ctx context.Context, actor roster.Person, targetID *ShiftID, p Proposal) (ChangeRequest, error) {
	now := w.Now()

	if targetID != nil {
		target, err := w.Store.GetShift(ctx, *targetID)
		if err != nil {
			return ChangeRequest{}, err
		}
		if target.Position.Person.ID != actor.ID && !actor.Privileged {
			return ChangeRequest{}, ErrPermissionDenied
		}
		if !actor.Privileged && w.LeadTime.violates(now, target.Start) {
			return ChangeRequest{}, &LeadTimeError{Window: w.LeadTime.Window, Start: target.Start}
		}
	}
	if !actor.Privileged && w.LeadTime.violates(now, p.Start) {
		return ChangeRequest{}, &LeadTimeError{Window: w.LeadTime.Window, Start: p.Start}
	}

	// Exam-review confirmation gate. The request is not created until the
	// submitter confirms the extended duration.
	if kindOfPosition(p.Position) && p.Duration > ExamReviewThreshold && !p.ExamReviewConfirmed {
		return ChangeRequest{}, &ExamReviewError{Proposal: p}
	}

	if err := (Shift{
		Position: p.Position,
		Start:    p.Start,
		Duration: p.Duration,
		Location: p.Location,
		Kind:     p.Kind,
	}).Validate(); err != nil {
		return ChangeRequest{}, err
	}

	req := ChangeRequest{
		ID:            NewRequestID(),
		ShiftToUpdate: targetID,
		Reason:        p.Reason,
		State:         StateNew,
		NewPosition:   p.Position,
		NewStart:      p.Start,
		NewDuration:   p.Duration,
		NewLocation:   p.Location,
		NewKind:       p.Kind,
		Created:       now,
	}
	if err := w.Store.CreateRequest(ctx, req); err != nil {
		return ChangeRequest{}, err
	}
	w.Notifier.ShiftRequestSubmitted(ctx, req)
	return req, nil
}

// SubmitDrop creates a drop request for an existing shift. The target's
// position, kind and start are copied for display; duration and location
// inputs are ignored for shift construction.
func (w *Workflow) SubmitDrop(ctx context.Context, actor roster.Person, targetID ShiftID, reason string) (ChangeRequest, error) {
	target, err := w.Store.GetShift(ctx, targetID)
	if err != nil {
		return ChangeRequest{}, err
	}
	if target.Position.Person.ID != actor.ID && !actor.Privileged {
		return ChangeRequest{}, ErrPermissionDenied
	}
	now := w.Now()
	if !actor.Privileged && w.LeadTime.violates(now, target.Start) {
		return ChangeRequest{}, &LeadTimeError{Window: w.LeadTime.Window, Start: target.Start}
	}
	if reason == "" {
		return ChangeRequest{}, &ValidationError{Field: "reason", Message: "reason is required"}
	}

	req := ChangeRequest{
		ID:            NewRequestID(),
		ShiftToUpdate: &targetID,
		Reason:        reason,
		State:         StateNew,
		IsDrop:        true,
		NewPosition:   target.Position,
		NewKind:       target.Kind,
		NewStart:      target.Start,
		Created:       now,
	}
	if err := w.Store.CreateRequest(ctx, req); err != nil {
		return ChangeRequest{}, err
	}
	w.Notifier.ShiftRequestSubmitted(ctx, req)
	return req, nil
}

// Deny sets the request to Not Approved. No other side effects.
func (w *Workflow) Deny(ctx context.Context, actor roster.Person, id RequestID) error {
	req, err := w.reviewable(ctx, actor, id, "deny")
	if err != nil {
		return err
	}
	req.State = StateNotApproved
	return w.Store.UpdateRequest(ctx, *req)
}

// MakePending moves the request into the reviewer's holding state.
func (w *Workflow) MakePending(ctx context.Context, actor roster.Person, id RequestID) error {
	req, err := w.reviewable(ctx, actor, id, "hold")
	if err != nil {
		return err
	}
	req.State = StatePending
	return w.Store.UpdateRequest(ctx, *req)
}

// Approve finalizes the request. For a drop request the target shift is
// soft-deleted and nothing else is touched. Otherwise the proposed fields,
// merged with any reviewer edits, are upserted into the target shift (or a
// new shift when the request proposed one). The shift write and the state
// change land atomically.
func (w *Workflow) Approve(ctx context.Context, actor roster.Person, id RequestID, edits ApprovalEdits) (Shift, error) {
	req, err := w.reviewable(ctx, actor, id, "approve")
	if err != nil {
		return Shift{}, err
	}

	if req.IsDrop {
		target, err := w.Store.GetShift(ctx, *req.ShiftToUpdate)
		if err != nil {
			return Shift{}, err
		}
		target.Deleted = true
		req.State = StateApproved
		if err := w.Store.ApplyApproval(ctx, *req, *target); err != nil {
			return Shift{}, err
		}
		return *target, nil
	}

	var shift Shift
	if req.ShiftToUpdate != nil {
		existing, err := w.Store.GetShift(ctx, *req.ShiftToUpdate)
		if err != nil {
			return Shift{}, err
		}
		shift = *existing
	} else {
		shift = Shift{ID: NewShiftID(), CreatedAt: w.Now()}
	}

	// Proposed values over the existing shift, reviewer edits over both.
	if req.NewPosition.ID != "" {
		shift.Position = req.NewPosition
	}
	if !req.NewStart.IsZero() {
		shift.Start = req.NewStart
	}
	if req.NewDuration != 0 {
		shift.Duration = req.NewDuration
	}
	if req.NewLocation != "" {
		shift.Location = req.NewLocation
	}
	if req.NewKind != "" {
		shift.Kind = req.NewKind
	}
	applyEdits(&shift, edits)

	if err := shift.Validate(); err != nil {
		return Shift{}, err
	}

	req.State = StateApproved
	if err := w.Store.ApplyApproval(ctx, *req, shift); err != nil {
		return Shift{}, err
	}
	return shift, nil
}

// reviewable loads a request and guards the reviewer's transition.
func (w *Workflow) reviewable(ctx context.Context, actor roster.Person, id RequestID, action string) (*ChangeRequest, error) {
	if !actor.Privileged {
		return nil, ErrPermissionDenied
	}
	req, err := w.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.State.Terminal() {
		return nil, &StateConflictError{Entity: "change request", From: string(req.State), Action: action}
	}
	return req, nil
}

func applyEdits(shift *Shift, edits ApprovalEdits) {
	if edits.Position != nil {
		shift.Position = *edits.Position
	}
	if edits.Start != nil {
		shift.Start = *edits.Start
	}
	if edits.Duration != nil {
		shift.Duration = *edits.Duration
	}
	if edits.Location != nil {
		shift.Location = *edits.Location
	}
	if edits.Kind != nil {
		shift.Kind = *edits.Kind
	}
	if edits.Document != nil {
		shift.Document = *edits.Document
	}
}

func kindOfPosition(p roster.StaffPosition) bool {
	return p.Kind == roster.PositionSI || p.Kind == roster.PositionGroupTutor
}

// NewRequestID returns a fresh request identifier.
func NewRequestID() RequestID { return RequestID(uuid.NewString()) }
