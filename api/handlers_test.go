/*
handlers_test.go - HTTP tests for the API surface

Runs the real router against an in-memory SQLite store: actor
resolution, privilege checks, the shift and sign-off flows, and the
exam-review bounce.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrcstaff/shift-engine/docs"
	"github.com/lrcstaff/shift-engine/notify"
	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
	"github.com/lrcstaff/shift-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	*httptest.Server
	store *sqlite.Store
	loc   *time.Location
}

// newTestServer wires the full stack against an in-memory database and
// seeds a minimal active-semester roster: a privileged supervisor
// "msuper", a staff member "ssmith" and their SI position "ssmith-si".
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	store, err := sqlite.New(":memory:", loc)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	shifts := scheduling.NewShiftService(store, scheduling.NewResolver(loc))
	workflow := scheduling.NewWorkflow(store, notify.NewConsole(nil), scheduling.LeadTimePolicy{})
	agg := payroll.NewAggregator(store, loc)
	reports := payroll.NewReporter(store, loc)
	documents := docs.NewFS(t.TempDir(), store)

	h := NewHandler(store, shifts, workflow, agg, reports, documents, loc)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	now := time.Now().In(loc)
	require.NoError(t, store.SaveSemester(ctx, roster.Semester{
		Name:      "TEST SEMESTER",
		StartDate: now.AddDate(0, 0, -30),
		EndDate:   now.AddDate(0, 0, 30),
		Active:    true,
	}))

	super := roster.Person{
		ID: "msuper", FirstName: "Mia", LastName: "Super",
		Email: "msuper@example.edu", Privileged: true,
	}
	staff := roster.Person{
		ID: "ssmith", FirstName: "Sam", LastName: "Smith",
		Email: "ssmith@example.edu",
	}
	require.NoError(t, store.SavePerson(ctx, super))
	require.NoError(t, store.SavePerson(ctx, staff))
	require.NoError(t, store.SavePosition(ctx, roster.StaffPosition{
		ID: "ssmith-si", Person: staff, Semester: "TEST SEMESTER",
		Kind: roster.PositionSI, HourlyRate: decimal.RequireFromString("15.00"),
	}))

	return &testServer{Server: srv, store: store, loc: loc}
}

// do sends a JSON request identified (or not) via X-Person-ID.
func (ts *testServer) do(t *testing.T, method, path, person string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if person != "" {
		req.Header.Set("X-Person-ID", person)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeAs[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// todayAt formats an RFC3339 start on today's date at the given hour.
func (ts *testServer) todayAt(hour int) string {
	now := time.Now().In(ts.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, ts.loc).Format(time.RFC3339)
}

func (ts *testServer) today() string {
	return time.Now().In(ts.loc).Format("2006-01-02")
}

// =============================================================================
// ACTOR RESOLUTION
// =============================================================================

func TestAPI_MissingPersonHeader(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/shifts", "", CreateShiftRequest{
		PositionID: "ssmith-si", Start: ts.todayAt(9),
		Duration: "1h", Location: "Hall 2", Kind: "Tutoring",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_UnknownPersonHeader(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/shifts", "ghost", CreateShiftRequest{
		PositionID: "ssmith-si", Start: ts.todayAt(9),
		Duration: "1h", Location: "Hall 2", Kind: "Tutoring",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// SHIFTS
// =============================================================================

func TestAPI_CreateShift_RequiresPrivilege(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/shifts", "ssmith", CreateShiftRequest{
		PositionID: "ssmith-si", Start: ts.todayAt(9),
		Duration: "1h", Location: "Hall 2", Kind: "Tutoring",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_CreateAndListShifts(t *testing.T) {
	// GIVEN: A supervisor creating a shift
	// WHEN: Listing today's shifts
	// THEN: The created shift comes back with its resolved position

	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/shifts", "msuper", CreateShiftRequest{
		PositionID: "ssmith-si", Start: ts.todayAt(9),
		Duration: "1h30m", Location: "Hall 2", Kind: "Tutoring",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeAs[ShiftDTO](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Sam Smith", created.Person)

	resp = ts.do(t, http.MethodGet, "/api/shifts?date="+ts.today(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeAs[[]ShiftDTO](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, "1h30m0s", listed[0].Duration)
}

func TestAPI_CreateShift_BadDurationRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/shifts", "msuper", CreateShiftRequest{
		PositionID: "ssmith-si", Start: ts.todayAt(9),
		Duration: "ninety minutes", Location: "Hall 2", Kind: "Tutoring",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeAs[ErrorResponse](t, resp)
	assert.Contains(t, body.Details, "duration")
}

// =============================================================================
// SIGN-OFF
// =============================================================================

func TestAPI_SignShift_CreditsPrep(t *testing.T) {
	// GIVEN: An SI session earlier today
	// WHEN: Its owner signs it off as attended
	// THEN: The response carries both the signed shift and the prep credit

	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/shifts", "msuper", CreateShiftRequest{
		PositionID: "ssmith-si", Start: ts.todayAt(9),
		Duration: "2h", Location: "Hall 2", Kind: "SI",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeAs[ShiftDTO](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/payroll/sign", "ssmith", SignShiftRequest{
		ShiftID: created.ID, Attended: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signed := decodeAs[SignShiftResponse](t, resp)

	assert.True(t, signed.Shift.Signed)
	assert.False(t, signed.Shift.Late)
	require.NotNil(t, signed.Prep)
	assert.Equal(t, "Preparation", signed.Prep.Kind)
	assert.Equal(t, "None", signed.Prep.Location)
	assert.Equal(t, "3h0m0s", signed.Prep.Duration)
}

func TestAPI_SignShift_NotOwnerForbidden(t *testing.T) {
	ts := newTestServer(t)

	ctx := context.Background()
	require.NoError(t, ts.store.SavePerson(ctx, roster.Person{
		ID: "tchen", FirstName: "Tia", LastName: "Chen", Email: "tchen@example.edu",
	}))

	resp := ts.do(t, http.MethodPost, "/api/shifts", "msuper", CreateShiftRequest{
		PositionID: "ssmith-si", Start: ts.todayAt(9),
		Duration: "1h", Location: "Hall 2", Kind: "Tutoring",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeAs[ShiftDTO](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/payroll/sign", "tchen", SignShiftRequest{
		ShiftID: created.ID, Attended: true,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

func TestAPI_SubmitRequest_ExamReviewBounce(t *testing.T) {
	// GIVEN: An SI proposal longer than a class session
	// WHEN: Submitting without confirming it is an exam review
	// THEN: 409 with the machine-readable confirmation code; confirming
	//       the resubmission goes through

	ts := newTestServer(t)

	propose := SubmitRequestRequest{
		PositionID: "ssmith-si",
		Start:      time.Now().In(ts.loc).Add(72 * time.Hour).Format(time.RFC3339),
		Duration:   "2h", Location: "Hall 2", Kind: "SI",
		Reason: "review before midterm",
	}

	resp := ts.do(t, http.MethodPost, "/api/requests", "ssmith", propose)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeAs[ErrorResponse](t, resp)
	assert.Equal(t, "exam_review_confirmation_required", body.Code)

	propose.ExamReviewConfirmed = true
	resp = ts.do(t, http.MethodPost, "/api/requests", "ssmith", propose)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeAs[RequestDTO](t, resp)
	assert.Equal(t, "New", created.State)
}

func TestAPI_ApproveRequest_MaterializesShift(t *testing.T) {
	// GIVEN: A pending new-shift request
	// WHEN: A supervisor approves it
	// THEN: The shift exists and shows up on its day

	ts := newTestServer(t)

	start := time.Now().In(ts.loc).Add(72 * time.Hour)
	resp := ts.do(t, http.MethodPost, "/api/requests", "ssmith", SubmitRequestRequest{
		PositionID: "ssmith-si",
		Start:      start.Format(time.RFC3339),
		Duration:   "1h", Location: "Hall 2", Kind: "Tutoring",
		Reason: "extra session",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeAs[RequestDTO](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/requests/"+created.ID+"/approve", "msuper", ApproveRequestRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/shifts?date="+start.Format("2006-01-02"), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeAs[[]ShiftDTO](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, "Sam Smith", listed[0].Person)
}

func TestAPI_ApproveRequest_RequiresPrivilege(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/requests", "ssmith", SubmitRequestRequest{
		PositionID: "ssmith-si",
		Start:      time.Now().In(ts.loc).Add(72 * time.Hour).Format(time.RFC3339),
		Duration:   "1h", Location: "Hall 2", Kind: "Tutoring",
		Reason: "extra session",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeAs[RequestDTO](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/requests/"+created.ID+"/approve", "ssmith", ApproveRequestRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAPI_WeeklyReport_PrivilegedOnly(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/payroll/weekly/0", "ssmith", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/payroll/weekly/0", "msuper", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeAs[WeeklyReportDTO](t, resp)
	assert.NotEmpty(t, report.Week)
}

func TestAPI_PersonPayroll_OwnOrPrivileged(t *testing.T) {
	ts := newTestServer(t)

	ctx := context.Background()
	require.NoError(t, ts.store.SavePerson(ctx, roster.Person{
		ID: "tchen", FirstName: "Tia", LastName: "Chen", Email: "tchen@example.edu",
	}))

	resp := ts.do(t, http.MethodGet, "/api/payroll/people/ssmith", "tchen", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/payroll/people/ssmith", "ssmith", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeAs[PersonReportDTO](t, resp)
	assert.Empty(t, report.Weeks)
}

// =============================================================================
// PUNCH CLOCK
// =============================================================================

func TestAPI_PunchInOut(t *testing.T) {
	// GIVEN: A clocked-in staff member
	// WHEN: Clocking out
	// THEN: A worked shift exists; clocking in twice conflicts

	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/punch/in", "ssmith", PunchInRequest{PositionID: "ssmith-si"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/punch/in", "ssmith", PunchInRequest{PositionID: "ssmith-si"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/punch/out", "ssmith", PunchOutRequest{
		PositionID: "ssmith-si", Location: "Front Desk", Kind: "Other",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	shift := decodeAs[ShiftDTO](t, resp)
	assert.Equal(t, "Other", shift.Kind)
	assert.Equal(t, "Front Desk", shift.Location)
}
