package scheduling_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
	"github.com/lrcstaff/shift-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// recordingNotifier captures submissions for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	submitted []scheduling.ChangeRequest
}

func (n *recordingNotifier) ShiftRequestSubmitted(_ context.Context, r scheduling.ChangeRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, r)
}

func newTestWorkflow(t *testing.T, leadTime scheduling.LeadTimePolicy) (*scheduling.Workflow, *memory.Store, *recordingNotifier) {
	loc := newYork(t)
	store := memory.New(loc)
	notifier := &recordingNotifier{}
	w := scheduling.NewWorkflow(store, notifier, leadTime)
	w.Now = func() time.Time {
		return time.Date(2024, time.October, 1, 12, 0, 0, 0, loc)
	}
	return w, store, notifier
}

func proposalAt(start time.Time) scheduling.Proposal {
	return scheduling.Proposal{
		Position: siPosition(),
		Start:    start,
		Duration: time.Hour,
		Location: "Hall 2",
		Kind:     scheduling.KindSI,
		Reason:   "Extra session",
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_NewShiftRequest(t *testing.T) {
	// GIVEN: A staff member proposing a new shift on their own position
	// WHEN: Submitting
	// THEN: A request in state New is stored and the notifier fires

	w, store, notifier := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	req, err := w.Submit(ctx, staff, nil, proposalAt(time.Date(2024, time.October, 10, 14, 0, 0, 0, loc)))
	require.NoError(t, err)
	assert.Equal(t, scheduling.StateNew, req.State)
	assert.Nil(t, req.ShiftToUpdate)
	assert.False(t, req.IsDrop)

	stored, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StateNew, stored.State)

	require.Len(t, notifier.submitted, 1)
	assert.Equal(t, req.ID, notifier.submitted[0].ID)
}

func TestSubmit_TargetingAnothersShiftDenied(t *testing.T) {
	// GIVEN: A shift owned by someone else
	// WHEN: A non-privileged staff member submits a change against it
	// THEN: Permission is denied

	w, store, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	other := siPosition()
	other.ID = "tchen-si"
	other.Person = roster.Person{ID: "tchen"}
	target := scheduling.Shift{
		ID: scheduling.NewShiftID(), Position: other,
		Start:    time.Date(2024, time.October, 10, 14, 0, 0, 0, loc),
		Duration: time.Hour, Location: "Hall 2", Kind: scheduling.KindSI,
	}
	require.NoError(t, store.CreateShift(ctx, target))

	_, err := w.Submit(ctx, staff, &target.ID, proposalAt(target.Start))
	assert.ErrorIs(t, err, scheduling.ErrPermissionDenied)
}

func TestSubmit_ExamReviewGate(t *testing.T) {
	// GIVEN: An SI proposal longer than 1h15m without confirmation
	// WHEN: Submitting
	// THEN: The proposal bounces with ExamReviewError; confirming resubmits it

	w, _, notifier := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	p := proposalAt(time.Date(2024, time.October, 10, 14, 0, 0, 0, loc))
	p.Duration = 90 * time.Minute

	_, err := w.Submit(ctx, staff, nil, p)
	var examErr *scheduling.ExamReviewError
	require.ErrorAs(t, err, &examErr)
	assert.Empty(t, notifier.submitted, "bounced proposal should not notify")

	p.ExamReviewConfirmed = true
	req, err := w.Submit(ctx, staff, nil, p)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, req.NewDuration)
}

func TestSubmit_ExamReviewGateSkipsTutorPositions(t *testing.T) {
	// GIVEN: A plain tutoring proposal longer than 1h15m
	// WHEN: Submitting without the confirmation flag
	// THEN: No gate; only SI and Group-Tutoring positions exam-review

	w, _, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	p := proposalAt(time.Date(2024, time.October, 10, 14, 0, 0, 0, loc))
	p.Position.Kind = roster.PositionTutor
	p.Kind = scheduling.KindTutoring
	p.Duration = 2 * time.Hour

	_, err := w.Submit(ctx, staff, nil, p)
	assert.NoError(t, err)
}

func TestSubmit_LeadTimeRestriction(t *testing.T) {
	// GIVEN: The lead-time rule enabled with a 7 day window
	// WHEN: Staff proposes a start 2 days out; a supervisor does the same
	// THEN: Staff is rejected, the supervisor bypasses the rule

	policy := scheduling.LeadTimePolicy{Enabled: true, Window: scheduling.DefaultLeadTimeWindow}
	w, _, _ := newTestWorkflow(t, policy)
	loc := newYork(t)
	ctx := context.Background()

	soon := proposalAt(time.Date(2024, time.October, 3, 14, 0, 0, 0, loc))

	_, err := w.Submit(ctx, staff, nil, soon)
	var ltErr *scheduling.LeadTimeError
	require.ErrorAs(t, err, &ltErr)
	assert.ErrorIs(t, err, scheduling.ErrPermissionDenied)

	_, err = w.Submit(ctx, supervisor, nil, soon)
	assert.NoError(t, err)
}

func TestSubmitDrop_RequiresReason(t *testing.T) {
	// GIVEN: A shift owned by the submitter
	// WHEN: Submitting a drop without a reason
	// THEN: Validation fails; with a reason the drop request is created

	w, store, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	target := scheduling.Shift{
		ID: scheduling.NewShiftID(), Position: siPosition(),
		Start:    time.Date(2024, time.October, 10, 14, 0, 0, 0, loc),
		Duration: time.Hour, Location: "Hall 2", Kind: scheduling.KindSI,
	}
	require.NoError(t, store.CreateShift(ctx, target))

	_, err := w.SubmitDrop(ctx, staff, target.ID, "")
	assert.ErrorIs(t, err, scheduling.ErrValidation)

	req, err := w.SubmitDrop(ctx, staff, target.ID, "Conflicts with an exam")
	require.NoError(t, err)
	assert.True(t, req.IsDrop)
	require.NotNil(t, req.ShiftToUpdate)
	assert.Equal(t, target.ID, *req.ShiftToUpdate)
	assert.Equal(t, target.Kind, req.NewKind, "drop request copies the target for display")
}

// =============================================================================
// REVIEW TRANSITIONS
// =============================================================================

func TestDeny_ThenReviewIsConflict(t *testing.T) {
	// GIVEN: A denied request
	// WHEN: Denying or approving it again
	// THEN: The terminal state rejects the transition

	w, _, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	req, err := w.Submit(ctx, staff, nil, proposalAt(time.Date(2024, time.October, 10, 14, 0, 0, 0, loc)))
	require.NoError(t, err)
	require.NoError(t, w.Deny(ctx, supervisor, req.ID))

	err = w.Deny(ctx, supervisor, req.ID)
	var conflict *scheduling.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, string(scheduling.StateNotApproved), conflict.From)

	_, err = w.Approve(ctx, supervisor, req.ID, scheduling.ApprovalEdits{})
	assert.ErrorIs(t, err, scheduling.ErrStateConflict)
}

func TestMakePending_HoldsForLater(t *testing.T) {
	// GIVEN: A new request
	// WHEN: A reviewer holds it, then approves it
	// THEN: Pending is not terminal; the approval still goes through

	w, store, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	req, err := w.Submit(ctx, staff, nil, proposalAt(time.Date(2024, time.October, 10, 14, 0, 0, 0, loc)))
	require.NoError(t, err)
	require.NoError(t, w.MakePending(ctx, supervisor, req.ID))

	held, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatePending, held.State)

	_, err = w.Approve(ctx, supervisor, req.ID, scheduling.ApprovalEdits{})
	assert.NoError(t, err)
}

func TestReview_RequiresPrivilege(t *testing.T) {
	// GIVEN: A new request
	// WHEN: A non-privileged staff member tries to review it
	// THEN: Permission is denied for every transition

	w, _, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	req, err := w.Submit(ctx, staff, nil, proposalAt(time.Date(2024, time.October, 10, 14, 0, 0, 0, loc)))
	require.NoError(t, err)

	assert.ErrorIs(t, w.Deny(ctx, staff, req.ID), scheduling.ErrPermissionDenied)
	assert.ErrorIs(t, w.MakePending(ctx, staff, req.ID), scheduling.ErrPermissionDenied)
	_, err = w.Approve(ctx, staff, req.ID, scheduling.ApprovalEdits{})
	assert.ErrorIs(t, err, scheduling.ErrPermissionDenied)
}

// =============================================================================
// APPROVAL
// =============================================================================

func TestApprove_NewShiftMaterialized(t *testing.T) {
	// GIVEN: An approved new-shift request
	// WHEN: Approving with a reviewer edit on the location
	// THEN: The shift exists with proposed values plus the edit

	w, store, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	req, err := w.Submit(ctx, staff, nil, proposalAt(time.Date(2024, time.October, 10, 14, 0, 0, 0, loc)))
	require.NoError(t, err)

	newLoc := "Library 3"
	shift, err := w.Approve(ctx, supervisor, req.ID, scheduling.ApprovalEdits{Location: &newLoc})
	require.NoError(t, err)
	assert.Equal(t, "Library 3", shift.Location)
	assert.Equal(t, req.NewDuration, shift.Duration)

	stored, err := store.GetShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, "Library 3", stored.Location)

	approved, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StateApproved, approved.State)
}

func TestApprove_EditRequestUpdatesTarget(t *testing.T) {
	// GIVEN: A request moving an existing shift to a later start
	// WHEN: Approving it
	// THEN: The target shift carries the proposed start, same ID

	w, store, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	target := scheduling.Shift{
		ID: scheduling.NewShiftID(), Position: siPosition(),
		Start:    time.Date(2024, time.October, 10, 14, 0, 0, 0, loc),
		Duration: time.Hour, Location: "Hall 2", Kind: scheduling.KindSI,
	}
	require.NoError(t, store.CreateShift(ctx, target))

	p := proposalAt(time.Date(2024, time.October, 11, 16, 0, 0, 0, loc))
	req, err := w.Submit(ctx, staff, &target.ID, p)
	require.NoError(t, err)

	shift, err := w.Approve(ctx, supervisor, req.ID, scheduling.ApprovalEdits{})
	require.NoError(t, err)
	assert.Equal(t, target.ID, shift.ID)
	assert.True(t, shift.Start.Equal(p.Start))
}

func TestApprove_DropOnlyFlipsDeleted(t *testing.T) {
	// GIVEN: An approved drop request
	// WHEN: Approving it
	// THEN: The target is soft-deleted and nothing else changes

	w, store, _ := newTestWorkflow(t, scheduling.LeadTimePolicy{})
	loc := newYork(t)
	ctx := context.Background()

	target := scheduling.Shift{
		ID: scheduling.NewShiftID(), Position: siPosition(),
		Start:    time.Date(2024, time.October, 10, 14, 0, 0, 0, loc),
		Duration: time.Hour, Location: "Hall 2", Kind: scheduling.KindSI,
	}
	require.NoError(t, store.CreateShift(ctx, target))

	req, err := w.SubmitDrop(ctx, staff, target.ID, "Conflicts with an exam")
	require.NoError(t, err)

	dropped, err := w.Approve(ctx, supervisor, req.ID, scheduling.ApprovalEdits{})
	require.NoError(t, err)
	assert.True(t, dropped.Deleted)
	assert.Equal(t, target.Location, dropped.Location)
	assert.Equal(t, target.Duration, dropped.Duration)
	assert.True(t, dropped.Start.Equal(target.Start))

	stored, err := store.GetShift(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
}
