/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validator/v10 struct tags; handlers run them
  through Handler.validate before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
)

// =============================================================================
// SHIFTS
// =============================================================================

// ShiftDTO represents a shift in API responses.
type ShiftDTO struct {
	ID       string `json:"id"`
	Position string `json:"position"`
	Person   string `json:"person"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration string `json:"duration"`
	Location string `json:"location"`
	Kind     string `json:"kind"`
	Color    string `json:"color"`

	Attended bool   `json:"attended"`
	Signed   bool   `json:"signed"`
	Reason   string `json:"reason,omitempty"`
	Late     bool   `json:"late"`
	LateAt   string `json:"late_at,omitempty"`
	Deleted  bool   `json:"deleted,omitempty"`

	HasDocument bool `json:"has_document"`
}

func toShiftDTO(s scheduling.Shift) ShiftDTO {
	dto := ShiftDTO{
		ID:          string(s.ID),
		Position:    s.Position.Label(),
		Person:      s.Position.Person.Name(),
		Start:       s.Start.Format(time.RFC3339),
		End:         s.End().Format(time.RFC3339),
		Duration:    s.Duration.String(),
		Location:    s.Location,
		Kind:        string(s.Kind),
		Color:       s.Kind.Color(),
		Attended:    s.Attended,
		Signed:      s.Signed,
		Reason:      s.Reason,
		Late:        s.Late,
		Deleted:     s.Deleted,
		HasDocument: s.Document != "",
	}
	if s.LateAt != nil {
		dto.LateAt = s.LateAt.Format(time.RFC3339)
	}
	return dto
}

func toShiftDTOs(shifts []scheduling.Shift) []ShiftDTO {
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	return dtos
}

// CreateShiftRequest is the request to create a single shift.
type CreateShiftRequest struct {
	PositionID string `json:"position_id" validate:"required"`
	Start      string `json:"start" validate:"required"`
	Duration   string `json:"duration" validate:"required"`
	Location   string `json:"location" validate:"required"`
	Kind       string `json:"kind" validate:"required"`
	Document   string `json:"document,omitempty"`
}

// BulkCreateRequest creates many shifts in submission order. Processing
// stops at the first bad record; earlier records stay created.
type BulkCreateRequest struct {
	Shifts []CreateShiftRequest `json:"shifts" validate:"required,min=1,dive"`
}

// BulkCreateResponse reports how far a bulk create got.
type BulkCreateResponse struct {
	Created int    `json:"created"`
	Error   string `json:"error,omitempty"`
}

// RecurringRequest generates Class shifts for one SI/GT position.
type RecurringRequest struct {
	Semester   string `json:"semester" validate:"required"`
	PositionID string `json:"position_id" validate:"required"`
}

// DateRequest targets a whole calendar day.
type DateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// MoveDatesRequest moves every shift from one day onto another.
type MoveDatesRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// SwapDatesRequest exchanges the shifts of two days.
type SwapDatesRequest struct {
	First  string `json:"first" validate:"required,datetime=2006-01-02"`
	Second string `json:"second" validate:"required,datetime=2006-01-02"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

// RequestDTO represents a change request in API responses.
type RequestDTO struct {
	ID            string `json:"id"`
	ShiftToUpdate string `json:"shift_to_update,omitempty"`
	Reason        string `json:"reason"`
	State         string `json:"state"`
	IsDrop        bool   `json:"is_drop"`

	Position string `json:"position"`
	Person   string `json:"person"`
	Start    string `json:"start"`
	Duration string `json:"duration"`
	Location string `json:"location,omitempty"`
	Kind     string `json:"kind,omitempty"`

	Created string `json:"created"`
}

func toRequestDTO(r scheduling.ChangeRequest) RequestDTO {
	dto := RequestDTO{
		ID:       string(r.ID),
		Reason:   r.Reason,
		State:    string(r.State),
		IsDrop:   r.IsDrop,
		Position: r.NewPosition.Label(),
		Person:   r.NewPosition.Person.Name(),
		Start:    r.NewStart.Format(time.RFC3339),
		Duration: r.NewDuration.String(),
		Location: r.NewLocation,
		Kind:     string(r.NewKind),
		Created:  r.Created.Format(time.RFC3339),
	}
	if r.ShiftToUpdate != nil {
		dto.ShiftToUpdate = string(*r.ShiftToUpdate)
	}
	return dto
}

// SubmitRequestRequest proposes a new shift or an edit to an existing one.
type SubmitRequestRequest struct {
	ShiftID    string `json:"shift_id,omitempty"`
	PositionID string `json:"position_id" validate:"required"`
	Start      string `json:"start" validate:"required"`
	Duration   string `json:"duration" validate:"required"`
	Location   string `json:"location" validate:"required"`
	Kind       string `json:"kind" validate:"required"`
	Reason     string `json:"reason" validate:"required"`

	// ExamReviewConfirmed resubmits a proposal bounced into the
	// exam-review confirmation sub-flow.
	ExamReviewConfirmed bool `json:"exam_review_confirmed,omitempty"`
}

// DropRequestRequest asks to drop an existing shift.
type DropRequestRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ApproveRequestRequest carries the reviewer's optional edits.
type ApproveRequestRequest struct {
	PositionID *string `json:"position_id,omitempty"`
	Start      *string `json:"start,omitempty"`
	Duration   *string `json:"duration,omitempty"`
	Location   *string `json:"location,omitempty"`
	Kind       *string `json:"kind,omitempty"`
	Document   *string `json:"document,omitempty"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// SignShiftRequest signs a shift off for payroll.
type SignShiftRequest struct {
	ShiftID  string `json:"shift_id" validate:"required"`
	Attended bool   `json:"attended"`
	Reason   string `json:"reason,omitempty"`
}

// SignShiftResponse reports the sign-off outcome, including the
// synthesized preparation shift when one was credited.
type SignShiftResponse struct {
	Shift ShiftDTO  `json:"shift"`
	Prep  *ShiftDTO `json:"prep,omitempty"`
}

// ApproveCheckRequest approves a person's check for one pay week.
type ApproveCheckRequest struct {
	PersonID  string `json:"person_id" validate:"required"`
	WeekStart string `json:"week_start" validate:"required,datetime=2006-01-02"`
}

// LineDTO is the 9-slot report vector.
type LineDTO struct {
	Days  [7]string `json:"days"`
	Hours string    `json:"hours"`
	Pay   string    `json:"pay"`
}

func toLineDTO(l payroll.Line) LineDTO {
	dto := LineDTO{
		Hours: l.Hours.StringFixed(2),
		Pay:   "$" + l.Pay.StringFixed(2),
	}
	for i, d := range l.Days {
		dto.Days[i] = d.StringFixed(2)
	}
	return dto
}

// PersonLinesDTO is one person's section of a report partition.
type PersonLinesDTO struct {
	Person    string             `json:"person"`
	Positions map[string]LineDTO `json:"positions"`
	Total     LineDTO            `json:"total"`
}

// PartitionDTO is one section of the weekly report.
type PartitionDTO struct {
	People     []PersonLinesDTO `json:"people"`
	TotalHours string           `json:"total_hours"`
	TotalPay   string           `json:"total_pay"`
}

func toPartitionDTO(p *payroll.Partition) PartitionDTO {
	dto := PartitionDTO{
		People:     []PersonLinesDTO{},
		TotalHours: p.TotalHours.StringFixed(2),
		TotalPay:   "$" + p.TotalPay.StringFixed(2),
	}
	for _, lines := range p.People {
		pl := PersonLinesDTO{
			Person:    lines.Person.Name(),
			Positions: map[string]LineDTO{},
			Total:     toLineDTO(lines.Total),
		}
		for label, line := range lines.Positions {
			pl.Positions[label] = toLineDTO(*line)
		}
		dto.People = append(dto.People, pl)
	}
	return dto
}

// WeeklyReportDTO is the full weekly payroll report.
type WeeklyReportDTO struct {
	Week     string                  `json:"week"`
	OnTime   PartitionDTO            `json:"on_time"`
	Unsigned PartitionDTO            `json:"unsigned"`
	Late     map[string]PartitionDTO `json:"late"`
}

// PersonWeekDTO is one pay week of a person's semester payroll.
type PersonWeekDTO struct {
	Week      string             `json:"week"`
	Positions map[string]LineDTO `json:"positions"`
}

// PersonReportDTO is a person's semester payroll rollup.
type PersonReportDTO struct {
	Person     string          `json:"person"`
	Weeks      []PersonWeekDTO `json:"weeks"`
	TotalHours string          `json:"total_hours"`
	TotalPay   string          `json:"total_pay"`
}

// =============================================================================
// PUNCH CLOCK
// =============================================================================

// PunchInRequest opens a punch for a position.
type PunchInRequest struct {
	PositionID string `json:"position_id" validate:"required"`
}

// PunchOutRequest closes the open punch, creating the worked shift.
type PunchOutRequest struct {
	PositionID string `json:"position_id" validate:"required"`
	Location   string `json:"location" validate:"required"`
	Kind       string `json:"kind" validate:"required"`
}

// PunchDTO represents an open punch.
type PunchDTO struct {
	ID       string `json:"id"`
	Position string `json:"position"`
	Start    string `json:"start"`
}

// =============================================================================
// ROSTER ADMIN
// =============================================================================

// SemesterRequest upserts a semester with its calendar exceptions.
type SemesterRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Active    bool   `json:"active"`

	Holidays []string `json:"holidays,omitempty" validate:"dive,datetime=2006-01-02"`

	DaySwitches []DaySwitchRequest `json:"day_switches,omitempty" validate:"dive"`
}

// DaySwitchRequest marks a date that follows another weekday's schedule.
type DaySwitchRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	DayToFollow int    `json:"day_to_follow" validate:"min=0,max=6"`
}

// SemesterDTO represents a semester in API responses.
type SemesterDTO struct {
	Name      string   `json:"name"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Active    bool     `json:"active"`
	Holidays  []string `json:"holidays,omitempty"`
}

func toSemesterDTO(s roster.Semester) SemesterDTO {
	dto := SemesterDTO{
		Name:      s.Name,
		StartDate: s.StartDate.Format("2006-01-02"),
		EndDate:   s.EndDate.Format("2006-01-02"),
		Active:    s.Active,
	}
	for _, h := range s.Holidays {
		dto.Holidays = append(dto.Holidays, h.Date.Format("2006-01-02"))
	}
	return dto
}

// PersonRequest upserts a staff member.
type PersonRequest struct {
	ID         string `json:"id" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Privileged bool   `json:"privileged"`
}

// PositionRequest upserts a staff position.
type PositionRequest struct {
	ID         string `json:"id" validate:"required"`
	PersonID   string `json:"person_id" validate:"required"`
	Semester   string `json:"semester" validate:"required"`
	Kind       string `json:"kind" validate:"required"`
	HourlyRate string `json:"hourly_rate" validate:"required"`
	SectionID  string `json:"section_id,omitempty"`

	TutorCourseIDs []string `json:"tutor_course_ids,omitempty"`
	PeerIDs        []string `json:"peer_ids,omitempty"`
}

// CourseRequest upserts a catalog entry with its cross-listed aliases.
type CourseRequest struct {
	ID         string `json:"id" validate:"required"`
	Department string `json:"department" validate:"required"`
	Number     string `json:"number" validate:"required"`
	Name       string `json:"name" validate:"required"`

	CrossListed []CrossListingRequest `json:"cross_listed,omitempty" validate:"dive"`
}

// CrossListingRequest is an alternate catalog identity for a course.
type CrossListingRequest struct {
	Department string `json:"department" validate:"required"`
	Number     string `json:"number" validate:"required"`
	Name       string `json:"name" validate:"required"`
}

// SectionRequest upserts a course section and its weekly meetings.
type SectionRequest struct {
	ID       string           `json:"id" validate:"required"`
	Semester string           `json:"semester" validate:"required"`
	CourseID string           `json:"course_id" validate:"required"`
	Faculty  string           `json:"faculty" validate:"required"`
	Meetings []MeetingRequest `json:"meetings,omitempty" validate:"dive"`
}

// MeetingRequest is one weekly slot of a section.
type MeetingRequest struct {
	Location string `json:"location" validate:"required"`
	Day      int    `json:"day" validate:"min=0,max=6"`
	// StartTime is an offset from midnight, e.g. "14h" for 2pm.
	StartTime string `json:"start_time" validate:"required"`
	Duration  string `json:"duration" validate:"required"`
}

// =============================================================================
// SHARED
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	// Code is a machine-readable subcategory, e.g.
	// "exam_review_confirmation_required".
	Code string `json:"code,omitempty"`
}

func parseRate(v string) (decimal.Decimal, error) {
	return decimal.NewFromString(v)
}
