/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a semester roster,
	positions, and shifts that demonstrate specific features.

AVAILABLE SCENARIOS:

	fall-semester:  Full roster with generated Class shifts
	payroll-week:   Signed shifts with prep bonuses, a late sign-off, and
	                an unsigned shift for the current week
	request-queue:  Pending change requests including a drop

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Parse a roster definition via the factory
 3. Apply it (semester, people, courses, sections, positions)
 4. Create or generate shifts
 5. Optionally sign shifts or submit requests

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "payroll-week"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler dependencies
  - factory/roster.go: Roster JSON parsing
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lrcstaff/shift-engine/factory"
	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/scheduling"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "fall-semester",
		Name:        "Fall Semester",
		Description: "Full roster with Class shifts generated from section meetings",
	},
	{
		ID:          "payroll-week",
		Name:        "Payroll Week",
		Description: "Signed shifts with prep bonuses, one late sign-off, one unsigned shift",
	},
	{
		ID:          "request-queue",
		Name:        "Request Queue",
		Description: "Pending change requests, including a drop request",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "fall-semester":
		err = h.loadFallSemesterScenario(ctx)
	case "payroll-week":
		err = h.loadPayrollWeekScenario(ctx)
	case "request-queue":
		err = h.loadRequestQueueScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// demoRosterJSON builds a roster definition spanning roughly the current
// date, so generated shifts land in weeks a demo can interact with.
func (h *Handler) demoRosterJSON() string {
	now := time.Now().In(h.Loc)
	start := now.AddDate(0, 0, -10*7)
	end := now.AddDate(0, 0, 8*7)
	return fmt.Sprintf(`{
		"semester": {
			"name": "DEMO SEMESTER",
			"start_date": %q,
			"end_date": %q,
			"active": true
		},
		"people": [
			{"id": "msuper", "first_name": "Morgan", "last_name": "Supervisor",
			 "email": "msuper@example.edu", "privileged": true},
			{"id": "ssmith", "first_name": "Sam", "last_name": "Smith",
			 "email": "ssmith@example.edu"},
			{"id": "tchen", "first_name": "Taylor", "last_name": "Chen",
			 "email": "tchen@example.edu"}
		],
		"courses": [
			{"id": "cs101", "department": "COMPSCI", "number": "101",
			 "name": "Intro to Programming"},
			{"id": "math201", "department": "MATH", "number": "201",
			 "name": "Calculus II"}
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
			 "hourly_rate": "15.00", "section_id": "cs101-01"},
			{"id": "tchen-tutor", "person_id": "tchen", "kind": "Tutor",
			 "hourly_rate": "14.50", "tutor_course_ids": ["cs101", "math201"]},
			{"id": "msuper-oa", "person_id": "msuper", "kind": "OA",
			 "hourly_rate": "16.00"}
		]
	}`, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// loadDemoRoster parses and applies the shared demo roster, returning the
// pieces the loaders build on.
func (h *Handler) loadDemoRoster(ctx context.Context) (*factory.Roster, error) {
	f := factory.NewRosterFactory(h.Loc)
	r, err := f.ParseRoster(h.demoRosterJSON())
	if err != nil {
		return nil, err
	}
	if err := r.Apply(ctx, h.Store); err != nil {
		return nil, err
	}
	return r, nil
}

func (h *Handler) loadFallSemesterScenario(ctx context.Context) error {
	r, err := h.loadDemoRoster(ctx)
	if err != nil {
		return err
	}

	// Generate the SI position's Class shifts from its section meetings.
	si := r.Positions[0]
	_, err = h.Shifts.AddRecurring(ctx, &r.Semester, si, *si.AssignedSection)
	return err
}

func (h *Handler) loadPayrollWeekScenario(ctx context.Context) error {
	r, err := h.loadDemoRoster(ctx)
	if err != nil {
		return err
	}
	supervisor := r.People[0]
	si := r.Positions[0]
	tutor := r.Positions[1]

	now := time.Now().In(h.Loc)
	lastWeek := payroll.WeekOf(now, h.Loc).Start.AddDate(0, 0, -7)

	// Worked last week; signing them now lands after that week's due end,
	// so both come back late and the session earns a prep bonus.
	sessions := []scheduling.Shift{
		{
			Position: si,
			Start:    lastWeek.AddDate(0, 0, 1).Add(14 * time.Hour),
			Duration: 90 * time.Minute,
			Location: "Hall 2",
			Kind:     scheduling.KindSI,
		},
		{
			Position: tutor,
			Start:    lastWeek.AddDate(0, 0, 3).Add(10 * time.Hour),
			Duration: time.Hour,
			Location: "Learning Commons",
			Kind:     scheduling.KindTutoring,
		},
	}
	for _, shift := range sessions {
		created, err := h.Shifts.Create(ctx, supervisor, shift)
		if err != nil {
			return err
		}
		if _, err := h.Payroll.Sign(ctx, supervisor, created.ID, true, ""); err != nil {
			return err
		}
	}

	// One shift this week, left unsigned.
	thisWeek := payroll.WeekOf(now, h.Loc).Start
	_, err = h.Shifts.Create(ctx, supervisor, scheduling.Shift{
		Position: tutor,
		Start:    thisWeek.AddDate(0, 0, 2).Add(11 * time.Hour),
		Duration: 2 * time.Hour,
		Location: "Learning Commons",
		Kind:     scheduling.KindTutoring,
	})
	return err
}

func (h *Handler) loadRequestQueueScenario(ctx context.Context) error {
	r, err := h.loadDemoRoster(ctx)
	if err != nil {
		return err
	}
	supervisor := r.People[0]
	smith := r.People[1]
	chen := r.People[2]
	si := r.Positions[0]
	tutor := r.Positions[1]

	now := time.Now().In(h.Loc)
	nextWeek := payroll.WeekOf(now, h.Loc).Start.AddDate(0, 0, 8)

	// A new-shift request from each staff member.
	_, err = h.Workflow.Submit(ctx, smith, nil, scheduling.Proposal{
		Position: si,
		Start:    nextWeek.Add(15 * time.Hour),
		Duration: time.Hour,
		Location: "Hall 2",
		Kind:     scheduling.KindSI,
		Reason:   "Extra session before the midterm",
	})
	if err != nil {
		return err
	}
	_, err = h.Workflow.Submit(ctx, chen, nil, scheduling.Proposal{
		Position: tutor,
		Start:    nextWeek.AddDate(0, 0, 1).Add(13 * time.Hour),
		Duration: 90 * time.Minute,
		Location: "Learning Commons",
		Kind:     scheduling.KindTutoring,
		Reason:   "Covering for a cancelled group session",
	})
	if err != nil {
		return err
	}

	// An existing shift with a drop request against it.
	created, err := h.Shifts.Create(ctx, supervisor, scheduling.Shift{
		Position: tutor,
		Start:    nextWeek.AddDate(0, 0, 2).Add(9 * time.Hour),
		Duration: time.Hour,
		Location: "Learning Commons",
		Kind:     scheduling.KindTutoring,
	})
	if err != nil {
		return err
	}
	_, err = h.Workflow.SubmitDrop(ctx, chen, created.ID, "Conflicts with an exam")
	return err
}
