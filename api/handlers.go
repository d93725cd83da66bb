/*
handlers.go - HTTP API handlers for the shift engine

PURPOSE:
  Exposes the scheduling and payroll engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Shifts:
    GET    /api/shifts?date=YYYY-MM-DD   Shifts on a calendar day
    POST   /api/shifts                   Create shift (privileged)
    POST   /api/shifts/bulk              Bulk create (privileged)
    POST   /api/shifts/recurring         Generate Class shifts for a position
    GET    /api/shifts/{id}              Get shift (by PK, deleted included)
    GET    /api/shifts/{id}/document     Download attachment
    POST   /api/shifts/{id}/drop         Submit a drop request

  Requests:
    POST   /api/requests                 Submit a change request
    GET    /api/requests                 List requests (filters)
    POST   /api/requests/{id}/approve    Approve (privileged)
    POST   /api/requests/{id}/deny      Deny (privileged)
    POST   /api/requests/{id}/pending   Hold (privileged)

  Payroll:
    POST   /api/payroll/sign             Sign a shift off
    GET    /api/payroll/weekly/{offset}  Weekly report (privileged)
    GET    /api/payroll/people/{id}      Person's semester payroll
    POST   /api/payroll/approve          Approve a check (privileged)

  Punch clock:
    POST   /api/punch/in                 Clock in
    POST   /api/punch/out                Clock out
    GET    /api/punch/{position}         Open punch, if any

  Admin:
    POST   /api/admin/redo-class-shifts  Clear and regenerate Class shifts
    POST   /api/admin/drop-date          Soft-delete a whole day
    POST   /api/admin/move-date          Move a day's shifts to another date
    POST   /api/admin/swap-dates         Swap two days
    POST   /api/admin/payroll/rebuild    Rebuild the check ledger

  Roster:
    POST   /api/semesters                Upsert semester + calendar
    GET    /api/semesters/active         The active semester
    POST   /api/people | /api/positions | /api/courses | /api/sections

ACTOR RESOLUTION:
  The caller identifies as an existing person via the X-Person-ID header;
  authentication itself is fronted elsewhere (SSO proxy). Privileged
  operations check the person's flag, not the transport.

ERROR HANDLING:
  Domain errors map to HTTP status:
  - 400: validation errors, bad input
  - 403: permission denied, lead-time rule
  - 404: not found
  - 409: state conflicts, double punch-in, exam-review confirmation
  - 500: storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lrcstaff/shift-engine/docs"
	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
	"github.com/lrcstaff/shift-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Shifts   *scheduling.ShiftService
	Workflow *scheduling.Workflow
	Payroll  *payroll.Aggregator
	Reports  *payroll.Reporter
	Docs     docs.Store
	Loc      *time.Location

	validate        *validator.Validate
	currentScenario string
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store *sqlite.Store, shifts *scheduling.ShiftService, workflow *scheduling.Workflow, agg *payroll.Aggregator, reports *payroll.Reporter, documents docs.Store, loc *time.Location) *Handler {
	return &Handler{
		Store:    store,
		Shifts:   shifts,
		Workflow: workflow,
		Payroll:  agg,
		Reports:  reports,
		Docs:     documents,
		Loc:      loc,
		validate: validator.New(),
	}
}

// actor resolves the calling person from the X-Person-ID header.
func (h *Handler) actor(r *http.Request) (roster.Person, error) {
	id := r.Header.Get("X-Person-ID")
	if id == "" {
		return roster.Person{}, errors.New("missing X-Person-ID header")
	}
	p, err := h.Store.GetPerson(r.Context(), roster.PersonID(id))
	if err != nil {
		return roster.Person{}, err
	}
	return *p, nil
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

func (h *Handler) parseDate(v string) time.Time {
	t, _ := time.ParseInLocation("2006-01-02", v, h.Loc)
	return t
}

// toShift resolves a shift creation record against the roster.
func (h *Handler) toShift(r *http.Request, req CreateShiftRequest) (scheduling.Shift, error) {
	pos, err := h.Store.GetPosition(r.Context(), roster.PositionID(req.PositionID))
	if err != nil {
		return scheduling.Shift{}, &scheduling.ValidationError{Field: "position_id", Message: "unknown position " + req.PositionID}
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return scheduling.Shift{}, &scheduling.ValidationError{Field: "start", Message: "bad timestamp, want RFC3339"}
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		return scheduling.Shift{}, &scheduling.ValidationError{Field: "duration", Message: "bad duration, want Go duration syntax"}
	}
	return scheduling.Shift{
		Position: *pos,
		Start:    start.In(h.Loc),
		Duration: duration,
		Location: req.Location,
		Kind:     scheduling.ShiftKind(req.Kind),
		Document: req.Document,
	}, nil
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShiftsOnDate returns the (non-deleted) shifts on a calendar day.
func (h *Handler) ListShiftsOnDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	var day time.Time
	if date == "" {
		day = time.Now().In(h.Loc)
	} else {
		day = h.parseDate(date)
		if day.IsZero() {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", nil)
			return
		}
	}

	shifts, err := h.Shifts.AllOnDate(r.Context(), day)
	if err != nil {
		h.writeDomainError(w, "Failed to list shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTOs(shifts))
}

// GetShift returns a shift by primary key, soft-deleted included.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	id := scheduling.ShiftID(chi.URLParam(r, "id"))

	shift, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*shift))
}

// CreateShift creates a single shift (privileged).
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req CreateShiftRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	shift, err := h.toShift(r, req)
	if err != nil {
		h.writeDomainError(w, "Invalid shift", err)
		return
	}
	created, err := h.Shifts.Create(r.Context(), actor, shift)
	if err != nil {
		h.writeDomainError(w, "Failed to create shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(created))
}

// BulkCreateShifts creates shifts in order, stopping at the first bad
// record. Earlier records stay created; the response reports both the
// count and the error.
func (h *Handler) BulkCreateShifts(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req BulkCreateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var shifts []scheduling.Shift
	var convErr error
	for i, record := range req.Shifts {
		shift, err := h.toShift(r, record)
		if err != nil {
			var verr *scheduling.ValidationError
			if errors.As(err, &verr) {
				verr.Line = i + 1
			}
			convErr = err
			break
		}
		shifts = append(shifts, shift)
	}

	result, err := h.Shifts.BulkCreate(r.Context(), actor, shifts)
	if err == nil {
		err = convErr
	}
	resp := BulkCreateResponse{Created: result.Created}
	status := http.StatusCreated
	if err != nil {
		if errors.Is(err, scheduling.ErrPermissionDenied) {
			h.writeDomainError(w, "Failed to bulk create", err)
			return
		}
		resp.Error = err.Error()
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// GenerateRecurring generates Class shifts for one position's assigned
// section across the semester.
func (h *Handler) GenerateRecurring(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	if !actor.Privileged {
		h.writeDomainError(w, "Failed to generate shifts", scheduling.ErrPermissionDenied)
		return
	}
	var req RecurringRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	sem, err := h.Store.GetSemester(ctx, req.Semester)
	if err != nil {
		h.writeDomainError(w, "Unknown semester", err)
		return
	}
	pos, err := h.Store.GetPosition(ctx, roster.PositionID(req.PositionID))
	if err != nil {
		h.writeDomainError(w, "Unknown position", err)
		return
	}
	if pos.AssignedSection == nil {
		writeError(w, http.StatusBadRequest, "Position has no assigned course section", nil)
		return
	}

	n, err := h.Shifts.AddRecurring(ctx, sem, *pos, *pos.AssignedSection)
	if err != nil {
		h.writeDomainError(w, "Failed to generate shifts", err)
		return
	}
	writeJSON(w, http.StatusCreated, CountResponse{Count: n})
}

// GetShiftDocument streams a shift's attachment.
func (h *Handler) GetShiftDocument(w http.ResponseWriter, r *http.Request) {
	id := scheduling.ShiftID(chi.URLParam(r, "id"))

	doc, err := h.Docs.Open(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to open document", err)
		return
	}
	defer doc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, doc)
}

// =============================================================================
// ADMIN DAY OPERATIONS
// =============================================================================

// RedoClassShifts clears and regenerates every Class shift in a semester.
func (h *Handler) RedoClassShifts(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req struct {
		Semester string `json:"semester" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sem, err := h.Store.GetSemester(r.Context(), req.Semester)
	if err != nil {
		h.writeDomainError(w, "Unknown semester", err)
		return
	}
	n, err := h.Shifts.RedoClassShifts(r.Context(), actor, h.Store, sem)
	if err != nil {
		h.writeDomainError(w, "Failed to regenerate class shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// DropDate soft-deletes every shift on a calendar day.
func (h *Handler) DropDate(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req DateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	n, err := h.Shifts.DropAllOnDate(r.Context(), actor, h.parseDate(req.Date))
	if err != nil {
		h.writeDomainError(w, "Failed to drop shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// MoveDate moves every shift from one day onto another, keeping wall times.
func (h *Handler) MoveDate(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req MoveDatesRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	n, err := h.Shifts.MoveShiftsBetweenDates(r.Context(), actor, h.parseDate(req.From), h.parseDate(req.To))
	if err != nil {
		h.writeDomainError(w, "Failed to move shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// SwapDates exchanges the shifts of two days.
func (h *Handler) SwapDates(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req SwapDatesRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	n, err := h.Shifts.SwapShiftDates(r.Context(), actor, h.parseDate(req.First), h.parseDate(req.Second))
	if err != nil {
		h.writeDomainError(w, "Failed to swap shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// =============================================================================
// CHANGE REQUEST HANDLERS
// =============================================================================

// SubmitRequest submits a change request for a new or existing shift.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req SubmitRequestRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pos, err := h.Store.GetPosition(r.Context(), roster.PositionID(req.PositionID))
	if err != nil {
		h.writeDomainError(w, "Unknown position", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use RFC3339)", err)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration", err)
		return
	}

	var targetID *scheduling.ShiftID
	if req.ShiftID != "" {
		id := scheduling.ShiftID(req.ShiftID)
		targetID = &id
	}

	created, err := h.Workflow.Submit(r.Context(), actor, targetID, scheduling.Proposal{
		Position:            *pos,
		Start:               start.In(h.Loc),
		Duration:            duration,
		Location:            req.Location,
		Kind:                scheduling.ShiftKind(req.Kind),
		Reason:              req.Reason,
		ExamReviewConfirmed: req.ExamReviewConfirmed,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// SubmitDrop submits a drop request for an existing shift.
func (h *Handler) SubmitDrop(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req DropRequestRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := scheduling.ShiftID(chi.URLParam(r, "id"))
	created, err := h.Workflow.SubmitDrop(r.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to submit drop request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// ListRequests lists change requests, filterable by state, person, kind,
// and the drop flag.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := scheduling.RequestFilter{
		State:        scheduling.RequestState(q.Get("state")),
		Person:       roster.PersonID(q.Get("person")),
		PositionKind: roster.PositionKind(q.Get("kind")),
	}
	if v := q.Get("drop"); v != "" {
		drop := v == "true"
		filter.Drop = &drop
	}

	requests, err := h.Store.Requests(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list requests", err)
		return
	}
	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest approves a request, with optional reviewer edits.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req ApproveRequestRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	edits, err := h.toEdits(r, req)
	if err != nil {
		h.writeDomainError(w, "Invalid edits", err)
		return
	}

	id := scheduling.RequestID(chi.URLParam(r, "id"))
	shift, err := h.Workflow.Approve(r.Context(), actor, id, edits)
	if err != nil {
		h.writeDomainError(w, "Failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(shift))
}

func (h *Handler) toEdits(r *http.Request, req ApproveRequestRequest) (scheduling.ApprovalEdits, error) {
	var edits scheduling.ApprovalEdits
	if req.PositionID != nil {
		pos, err := h.Store.GetPosition(r.Context(), roster.PositionID(*req.PositionID))
		if err != nil {
			return edits, err
		}
		edits.Position = pos
	}
	if req.Start != nil {
		start, err := time.Parse(time.RFC3339, *req.Start)
		if err != nil {
			return edits, &scheduling.ValidationError{Field: "start", Message: "bad timestamp, want RFC3339"}
		}
		local := start.In(h.Loc)
		edits.Start = &local
	}
	if req.Duration != nil {
		duration, err := time.ParseDuration(*req.Duration)
		if err != nil {
			return edits, &scheduling.ValidationError{Field: "duration", Message: "bad duration"}
		}
		edits.Duration = &duration
	}
	edits.Location = req.Location
	if req.Kind != nil {
		kind := scheduling.ShiftKind(*req.Kind)
		edits.Kind = &kind
	}
	edits.Document = req.Document
	return edits, nil
}

// DenyRequest denies a request.
func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	id := scheduling.RequestID(chi.URLParam(r, "id"))
	if err := h.Workflow.Deny(r.Context(), actor, id); err != nil {
		h.writeDomainError(w, "Failed to deny request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HoldRequest moves a request to the Pending holding state.
func (h *Handler) HoldRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	id := scheduling.RequestID(chi.URLParam(r, "id"))
	if err := h.Workflow.MakePending(r.Context(), actor, id); err != nil {
		h.writeDomainError(w, "Failed to hold request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// SignShift signs a shift off for payroll.
func (h *Handler) SignShift(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req SignShiftRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Payroll.Sign(r.Context(), actor, scheduling.ShiftID(req.ShiftID), req.Attended, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to sign shift", err)
		return
	}

	resp := SignShiftResponse{Shift: toShiftDTO(result.Signed)}
	if result.Prep != nil {
		prep := toShiftDTO(*result.Prep)
		resp.Prep = &prep
	}
	writeJSON(w, http.StatusOK, resp)
}

// WeeklyReport returns the weekly payroll report (privileged).
// offset 0 is the current pay week, 1 the week before, and so on.
func (h *Handler) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	if !actor.Privileged {
		h.writeDomainError(w, "Failed to build report", scheduling.ErrPermissionDenied)
		return
	}

	offset := 0
	if v := chi.URLParam(r, "offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "Invalid offset", err)
			return
		}
	}
	semester, err := h.semesterOrActive(r)
	if err != nil {
		h.writeDomainError(w, "No semester", err)
		return
	}

	report, err := h.Reports.Weekly(r.Context(), semester, offset)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}

	dto := WeeklyReportDTO{
		Week:     report.Week.String(),
		OnTime:   toPartitionDTO(report.OnTime),
		Unsigned: toPartitionDTO(report.Unsigned),
		Late:     map[string]PartitionDTO{},
	}
	for week, part := range report.Late {
		dto.Late[week] = toPartitionDTO(part)
	}
	writeJSON(w, http.StatusOK, dto)
}

// PersonPayroll returns one person's semester payroll, week by week.
// Staff may view their own; privileged callers may view anyone's.
func (h *Handler) PersonPayroll(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	person := roster.PersonID(chi.URLParam(r, "id"))
	if person != actor.ID && !actor.Privileged {
		h.writeDomainError(w, "Failed to build payroll", scheduling.ErrPermissionDenied)
		return
	}
	semester, err := h.semesterOrActive(r)
	if err != nil {
		h.writeDomainError(w, "No semester", err)
		return
	}

	report, err := h.Reports.ForPerson(r.Context(), person, semester)
	if err != nil {
		h.writeDomainError(w, "Failed to build payroll", err)
		return
	}

	dto := PersonReportDTO{
		Person:     string(report.Person),
		Weeks:      []PersonWeekDTO{},
		TotalHours: report.TotalHours.StringFixed(2),
		TotalPay:   "$" + report.TotalPay.StringFixed(2),
	}
	for _, week := range report.Weeks {
		wd := PersonWeekDTO{Week: week.Week.String(), Positions: map[string]LineDTO{}}
		labels := make([]string, 0, len(week.Positions))
		for label := range week.Positions {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			wd.Positions[label] = toLineDTO(*week.Positions[label])
		}
		dto.Weeks = append(dto.Weeks, wd)
	}
	writeJSON(w, http.StatusOK, dto)
}

// ApproveCheck approves a person's check for a pay week (privileged).
func (h *Handler) ApproveCheck(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req ApproveCheckRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err = h.Payroll.Approve(r.Context(), actor, roster.PersonID(req.PersonID), h.parseDate(req.WeekStart))
	if err != nil {
		h.writeDomainError(w, "Failed to approve check", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RebuildPayroll replays every signed shift into a fresh check ledger.
func (h *Handler) RebuildPayroll(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req struct {
		Semester string `json:"semester" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Payroll.Rebuild(r.Context(), actor, req.Semester); err != nil {
		h.writeDomainError(w, "Failed to rebuild payroll", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) semesterOrActive(r *http.Request) (string, error) {
	if v := r.URL.Query().Get("semester"); v != "" {
		return v, nil
	}
	sem, err := h.Store.ActiveSemester(r.Context())
	if err != nil {
		return "", err
	}
	if sem == nil {
		return "", scheduling.ErrNotFound
	}
	return sem.Name, nil
}

// =============================================================================
// PUNCH CLOCK HANDLERS
// =============================================================================

// PunchIn opens a punch for a position.
func (h *Handler) PunchIn(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req PunchInRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pos, err := h.Store.GetPosition(r.Context(), roster.PositionID(req.PositionID))
	if err != nil {
		h.writeDomainError(w, "Unknown position", err)
		return
	}
	if pos.Person.ID != actor.ID && !actor.Privileged {
		h.writeDomainError(w, "Failed to punch in", scheduling.ErrPermissionDenied)
		return
	}

	punch, err := h.Shifts.ClockIn(r.Context(), *pos)
	if err != nil {
		h.writeDomainError(w, "Failed to punch in", err)
		return
	}
	writeJSON(w, http.StatusCreated, PunchDTO{
		ID:       string(punch.ID),
		Position: punch.Position.Label(),
		Start:    punch.Start.Format(time.RFC3339),
	})
}

// PunchOut closes the open punch, creating the worked shift.
func (h *Handler) PunchOut(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return
	}
	var req PunchOutRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pos, err := h.Store.GetPosition(r.Context(), roster.PositionID(req.PositionID))
	if err != nil {
		h.writeDomainError(w, "Unknown position", err)
		return
	}
	if pos.Person.ID != actor.ID && !actor.Privileged {
		h.writeDomainError(w, "Failed to punch out", scheduling.ErrPermissionDenied)
		return
	}

	shift, err := h.Shifts.ClockOut(r.Context(), *pos, req.Location, scheduling.ShiftKind(req.Kind))
	if err != nil {
		h.writeDomainError(w, "Failed to punch out", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(shift))
}

// GetPunch returns the open punch for a position, if any.
func (h *Handler) GetPunch(w http.ResponseWriter, r *http.Request) {
	position := roster.PositionID(chi.URLParam(r, "position"))

	punch, err := h.Store.GetPunch(r.Context(), position)
	if err != nil {
		h.writeDomainError(w, "No open punch", err)
		return
	}
	writeJSON(w, http.StatusOK, PunchDTO{
		ID:       string(punch.ID),
		Position: punch.Position.Label(),
		Start:    punch.Start.Format(time.RFC3339),
	})
}

// =============================================================================
// ROSTER ADMIN HANDLERS
// =============================================================================

// SaveSemester upserts a semester with holidays and day switches.
func (h *Handler) SaveSemester(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	var req SemesterRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sem := roster.Semester{
		Name:      req.Name,
		StartDate: h.parseDate(req.StartDate),
		EndDate:   h.parseDate(req.EndDate),
		Active:    req.Active,
	}
	for _, date := range req.Holidays {
		sem.Holidays = append(sem.Holidays, roster.Holiday{Semester: req.Name, Date: h.parseDate(date)})
	}
	for _, ds := range req.DaySwitches {
		sem.DaySwitches = append(sem.DaySwitches, roster.DaySwitch{
			Semester:    req.Name,
			Date:        h.parseDate(ds.Date),
			DayToFollow: time.Weekday(ds.DayToFollow),
		})
	}

	if err := h.Store.SaveSemester(r.Context(), sem); err != nil {
		h.writeDomainError(w, "Failed to save semester", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSemesterDTO(sem))
}

// GetActiveSemester returns the active semester.
func (h *Handler) GetActiveSemester(w http.ResponseWriter, r *http.Request) {
	sem, err := h.Store.ActiveSemester(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load semester", err)
		return
	}
	if sem == nil {
		writeError(w, http.StatusNotFound, "No active semester", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSemesterDTO(*sem))
}

// SavePerson upserts a staff member.
func (h *Handler) SavePerson(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	var req PersonRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Store.SavePerson(r.Context(), roster.Person{
		ID:         roster.PersonID(req.ID),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Privileged: req.Privileged,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save person", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// SaveCourse upserts a catalog entry.
func (h *Handler) SaveCourse(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	var req CourseRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Store.SaveCourse(r.Context(), roster.Course{
		ID:         roster.CourseID(req.ID),
		Department: req.Department,
		Number:     req.Number,
		Name:       req.Name,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save course", err)
		return
	}
	for _, x := range req.CrossListed {
		err := h.Store.SaveCrossListed(r.Context(), roster.CrossListed{
			MainCourse: roster.CourseID(req.ID),
			Department: x.Department,
			Number:     x.Number,
			Name:       x.Name,
		})
		if err != nil {
			h.writeDomainError(w, "Failed to save cross-listing", err)
			return
		}
	}
	w.WriteHeader(http.StatusCreated)
}

// SaveSection upserts a course section with its weekly meetings.
func (h *Handler) SaveSection(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	var req SectionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sec := roster.CourseSection{
		ID:       roster.SectionID(req.ID),
		Semester: req.Semester,
		Course:   roster.Course{ID: roster.CourseID(req.CourseID)},
		Faculty:  req.Faculty,
	}
	for _, m := range req.Meetings {
		start, err := time.ParseDuration(m.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid meeting start_time", err)
			return
		}
		duration, err := time.ParseDuration(m.Duration)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid meeting duration", err)
			return
		}
		sec.Meetings = append(sec.Meetings, roster.ClassMeeting{
			Section:   sec.ID,
			Location:  m.Location,
			Day:       time.Weekday(m.Day),
			StartTime: start,
			Duration:  duration,
		})
	}

	if err := h.Store.SaveSection(r.Context(), sec); err != nil {
		h.writeDomainError(w, "Failed to save section", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// SavePosition upserts a staff position.
func (h *Handler) SavePosition(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	var req PositionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := roster.PositionKind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid position kind", nil)
		return
	}
	rate, err := parseRate(req.HourlyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hourly rate", err)
		return
	}
	person, err := h.Store.GetPerson(r.Context(), roster.PersonID(req.PersonID))
	if err != nil {
		h.writeDomainError(w, "Unknown person", err)
		return
	}

	pos := roster.StaffPosition{
		ID:         roster.PositionID(req.ID),
		Person:     *person,
		Semester:   req.Semester,
		Kind:       kind,
		HourlyRate: rate,
	}
	if req.SectionID != "" {
		pos.AssignedSection = &roster.CourseSection{ID: roster.SectionID(req.SectionID)}
	}
	for _, id := range req.TutorCourseIDs {
		pos.TutorCourses = append(pos.TutorCourses, roster.Course{ID: roster.CourseID(id)})
	}
	for _, id := range req.PeerIDs {
		pos.Peers = append(pos.Peers, roster.PersonID(id))
	}

	if err := h.Store.SavePosition(r.Context(), pos); err != nil {
		h.writeDomainError(w, "Failed to save position", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func (h *Handler) requirePrivileged(w http.ResponseWriter, r *http.Request) bool {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown caller", err)
		return false
	}
	if !actor.Privileged {
		h.writeDomainError(w, "Privileged operation", scheduling.ErrPermissionDenied)
		return false
	}
	return true
}

// writeDomainError maps domain error categories to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var examErr *scheduling.ExamReviewError
	if errors.As(err, &examErr) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   message,
			Details: examErr.Error(),
			Code:    "exam_review_confirmation_required",
		})
		return
	}

	switch {
	case scheduling.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, scheduling.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, message, err)
	case errors.Is(err, scheduling.ErrStateConflict), errors.Is(err, scheduling.ErrAlreadyPunchedIn):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, scheduling.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
