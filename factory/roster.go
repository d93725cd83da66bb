/*
Package factory provides JSON to Go roster conversion.

PURPOSE:
  Converts JSON roster definitions into roster domain objects. This
  enables semester setup without code changes - the center director can
  define a semester's staff, courses, and positions in JSON, and the
  factory creates the proper Go structs in dependency order.

WHY JSON?
  - Non-developers can prepare the semester roster
  - Easy integration with an admin UI
  - Version control for roster definitions
  - One file per semester in practice

JSON SCHEMA:
  {
    "semester": {
      "name": "FALL 2025",
      "start_date": "2025-09-01",
      "end_date": "2025-12-12",
      "active": true,
      "holidays": ["2025-11-27"],
      "day_switches": [{"date": "2025-11-26", "day_to_follow": 5}]
    },
    "people": [
      {"id": "jdoe", "first_name": "Jan", "last_name": "Doe",
       "email": "jdoe@example.edu"}
    ],
    "courses": [
      {"id": "cs101", "department": "COMPSCI", "number": "101",
       "name": "Intro to Programming"}
    ],
    "sections": [
      {"id": "cs101-01", "course_id": "cs101", "faculty": "Prof. Lee",
       "meetings": [{"location": "Hall 2", "day": 2,
                     "start_time": "14h", "duration": "1h15m"}]}
    ],
    "positions": [
      {"id": "jdoe-si", "person_id": "jdoe", "kind": "SI",
       "hourly_rate": "15.00", "section_id": "cs101-01"}
    ]
  }

KEY FEATURES:
  - Validates references (positions point at real people and sections)
  - Parses dates in the center's local timezone
  - Meeting start times are offsets from midnight ("14h" is 2pm)
  - Applies everything in dependency order

USAGE:
  f := factory.NewRosterFactory(loc)
  r, err := f.ParseRoster(jsonString)
  if err != nil { ... }
  err = r.Apply(ctx, store)

SEE ALSO:
  - roster/roster.go: Domain type definitions
  - api/scenarios.go: Demo rosters built with this factory
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lrcstaff/shift-engine/roster"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RosterJSON is the JSON representation of a semester roster.
type RosterJSON struct {
	Semester  SemesterJSON   `json:"semester"`
	People    []PersonJSON   `json:"people,omitempty"`
	Courses   []CourseJSON   `json:"courses,omitempty"`
	Sections  []SectionJSON  `json:"sections,omitempty"`
	Positions []PositionJSON `json:"positions,omitempty"`
}

// SemesterJSON defines the semester and its calendar exceptions.
type SemesterJSON struct {
	Name        string          `json:"name"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Active      bool            `json:"active,omitempty"`
	Holidays    []string        `json:"holidays,omitempty"`
	DaySwitches []DaySwitchJSON `json:"day_switches,omitempty"`
}

// DaySwitchJSON marks a date that follows another weekday's schedule.
type DaySwitchJSON struct {
	Date        string `json:"date"`
	DayToFollow int    `json:"day_to_follow"` // 0 = Sunday
}

// PersonJSON defines a staff member.
type PersonJSON struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Privileged bool   `json:"privileged,omitempty"`
}

// CourseJSON defines a catalog entry, optionally with cross-listed
// aliases that resolve to it.
type CourseJSON struct {
	ID         string `json:"id"`
	Department string `json:"department"`
	Number     string `json:"number"`
	Name       string `json:"name"`

	CrossListed []CrossListingJSON `json:"cross_listed,omitempty"`
}

// CrossListingJSON is an alternate catalog identity for a course.
type CrossListingJSON struct {
	Department string `json:"department"`
	Number     string `json:"number"`
	Name       string `json:"name"`
}

// SectionJSON defines a course section with its weekly meetings.
type SectionJSON struct {
	ID       string        `json:"id"`
	CourseID string        `json:"course_id"`
	Faculty  string        `json:"faculty,omitempty"`
	Meetings []MeetingJSON `json:"meetings,omitempty"`
}

// MeetingJSON is one weekly slot of a section.
type MeetingJSON struct {
	Location  string `json:"location"`
	Day       int    `json:"day"`        // 0 = Sunday
	StartTime string `json:"start_time"` // offset from midnight, e.g. "14h"
	Duration  string `json:"duration"`
}

// PositionJSON defines one person's role for the semester.
type PositionJSON struct {
	ID         string `json:"id"`
	PersonID   string `json:"person_id"`
	Kind       string `json:"kind"`
	HourlyRate string `json:"hourly_rate"`
	SectionID  string `json:"section_id,omitempty"`

	TutorCourseIDs []string `json:"tutor_course_ids,omitempty"`
	PeerIDs        []string `json:"peer_ids,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// RosterFactory converts JSON roster definitions into domain objects.
type RosterFactory struct {
	loc *time.Location
}

// NewRosterFactory creates a factory resolving dates in loc.
func NewRosterFactory(loc *time.Location) *RosterFactory {
	return &RosterFactory{loc: loc}
}

// Roster holds the parsed domain objects in dependency order.
type Roster struct {
	Semester    roster.Semester
	People      []roster.Person
	Courses     []roster.Course
	CrossListed []roster.CrossListed
	Sections    []roster.CourseSection
	Positions   []roster.StaffPosition
}

// rosterSaver is the persistence surface Apply needs.
type rosterSaver interface {
	SaveSemester(ctx context.Context, s roster.Semester) error
	SavePerson(ctx context.Context, p roster.Person) error
	SaveCourse(ctx context.Context, c roster.Course) error
	SaveCrossListed(ctx context.Context, c roster.CrossListed) error
	SaveSection(ctx context.Context, s roster.CourseSection) error
	SavePosition(ctx context.Context, p roster.StaffPosition) error
}

// ParseRoster parses and validates a JSON roster definition.
func (f *RosterFactory) ParseRoster(jsonStr string) (*Roster, error) {
	var def RosterJSON
	if err := json.Unmarshal([]byte(jsonStr), &def); err != nil {
		return nil, fmt.Errorf("invalid roster JSON: %w", err)
	}

	sem, err := f.parseSemester(def.Semester)
	if err != nil {
		return nil, err
	}
	out := &Roster{Semester: sem}

	people := map[string]roster.Person{}
	for _, p := range def.People {
		if p.ID == "" {
			return nil, fmt.Errorf("person missing id")
		}
		person := roster.Person{
			ID:         roster.PersonID(p.ID),
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Email:      p.Email,
			Privileged: p.Privileged,
		}
		people[p.ID] = person
		out.People = append(out.People, person)
	}

	courses := map[string]roster.Course{}
	for _, c := range def.Courses {
		course := roster.Course{
			ID:         roster.CourseID(c.ID),
			Department: c.Department,
			Number:     c.Number,
			Name:       c.Name,
		}
		courses[c.ID] = course
		out.Courses = append(out.Courses, course)
		for _, x := range c.CrossListed {
			if x.Department == "" || x.Number == "" {
				return nil, fmt.Errorf("course %s: cross-listing missing department or number", c.ID)
			}
			out.CrossListed = append(out.CrossListed, roster.CrossListed{
				MainCourse: course.ID,
				Department: x.Department,
				Number:     x.Number,
				Name:       x.Name,
			})
		}
	}

	sections := map[string]roster.CourseSection{}
	for _, s := range def.Sections {
		course, ok := courses[s.CourseID]
		if !ok {
			return nil, fmt.Errorf("section %s: unknown course %s", s.ID, s.CourseID)
		}
		sec := roster.CourseSection{
			ID:       roster.SectionID(s.ID),
			Semester: sem.Name,
			Course:   course,
			Faculty:  s.Faculty,
		}
		for _, m := range s.Meetings {
			meeting, err := f.parseMeeting(sec.ID, m)
			if err != nil {
				return nil, fmt.Errorf("section %s: %w", s.ID, err)
			}
			sec.Meetings = append(sec.Meetings, meeting)
		}
		sections[s.ID] = sec
		out.Sections = append(out.Sections, sec)
	}

	for _, p := range def.Positions {
		person, ok := people[p.PersonID]
		if !ok {
			return nil, fmt.Errorf("position %s: unknown person %s", p.ID, p.PersonID)
		}
		kind := roster.PositionKind(p.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("position %s: invalid kind %q", p.ID, p.Kind)
		}
		rate, err := decimal.NewFromString(p.HourlyRate)
		if err != nil {
			return nil, fmt.Errorf("position %s: invalid hourly rate %q", p.ID, p.HourlyRate)
		}
		pos := roster.StaffPosition{
			ID:         roster.PositionID(p.ID),
			Person:     person,
			Semester:   sem.Name,
			Kind:       kind,
			HourlyRate: rate,
		}
		if p.SectionID != "" {
			sec, ok := sections[p.SectionID]
			if !ok {
				return nil, fmt.Errorf("position %s: unknown section %s", p.ID, p.SectionID)
			}
			pos.AssignedSection = &sec
		}
		for _, id := range p.TutorCourseIDs {
			course, ok := courses[id]
			if !ok {
				return nil, fmt.Errorf("position %s: unknown tutor course %s", p.ID, id)
			}
			pos.TutorCourses = append(pos.TutorCourses, course)
		}
		for _, id := range p.PeerIDs {
			if _, ok := people[id]; !ok {
				return nil, fmt.Errorf("position %s: unknown peer %s", p.ID, id)
			}
			pos.Peers = append(pos.Peers, roster.PersonID(id))
		}
		out.Positions = append(out.Positions, pos)
	}

	return out, nil
}

// Apply persists the roster in dependency order.
func (r *Roster) Apply(ctx context.Context, store rosterSaver) error {
	if err := store.SaveSemester(ctx, r.Semester); err != nil {
		return fmt.Errorf("save semester: %w", err)
	}
	for _, p := range r.People {
		if err := store.SavePerson(ctx, p); err != nil {
			return fmt.Errorf("save person %s: %w", p.ID, err)
		}
	}
	for _, c := range r.Courses {
		if err := store.SaveCourse(ctx, c); err != nil {
			return fmt.Errorf("save course %s: %w", c.ID, err)
		}
	}
	for _, c := range r.CrossListed {
		if err := store.SaveCrossListed(ctx, c); err != nil {
			return fmt.Errorf("save cross-listing %s %s: %w", c.Department, c.Number, err)
		}
	}
	for _, s := range r.Sections {
		if err := store.SaveSection(ctx, s); err != nil {
			return fmt.Errorf("save section %s: %w", s.ID, err)
		}
	}
	for _, p := range r.Positions {
		if err := store.SavePosition(ctx, p); err != nil {
			return fmt.Errorf("save position %s: %w", p.ID, err)
		}
	}
	return nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func (f *RosterFactory) parseSemester(s SemesterJSON) (roster.Semester, error) {
	if s.Name == "" {
		return roster.Semester{}, fmt.Errorf("semester missing name")
	}
	start, err := f.parseDate(s.StartDate)
	if err != nil {
		return roster.Semester{}, fmt.Errorf("semester start_date: %w", err)
	}
	end, err := f.parseDate(s.EndDate)
	if err != nil {
		return roster.Semester{}, fmt.Errorf("semester end_date: %w", err)
	}
	if end.Before(start) {
		return roster.Semester{}, fmt.Errorf("semester ends before it starts")
	}

	sem := roster.Semester{
		Name:      s.Name,
		StartDate: start,
		EndDate:   end,
		Active:    s.Active,
	}
	for _, h := range s.Holidays {
		date, err := f.parseDate(h)
		if err != nil {
			return roster.Semester{}, fmt.Errorf("holiday: %w", err)
		}
		sem.Holidays = append(sem.Holidays, roster.Holiday{Semester: s.Name, Date: date})
	}
	for _, ds := range s.DaySwitches {
		date, err := f.parseDate(ds.Date)
		if err != nil {
			return roster.Semester{}, fmt.Errorf("day switch: %w", err)
		}
		if ds.DayToFollow < 0 || ds.DayToFollow > 6 {
			return roster.Semester{}, fmt.Errorf("day switch %s: day_to_follow out of range", ds.Date)
		}
		sem.DaySwitches = append(sem.DaySwitches, roster.DaySwitch{
			Semester:    s.Name,
			Date:        date,
			DayToFollow: time.Weekday(ds.DayToFollow),
		})
	}
	return sem, nil
}

func (f *RosterFactory) parseMeeting(section roster.SectionID, m MeetingJSON) (roster.ClassMeeting, error) {
	if m.Day < 0 || m.Day > 6 {
		return roster.ClassMeeting{}, fmt.Errorf("meeting day out of range")
	}
	start, err := time.ParseDuration(m.StartTime)
	if err != nil {
		return roster.ClassMeeting{}, fmt.Errorf("meeting start_time %q: %w", m.StartTime, err)
	}
	duration, err := time.ParseDuration(m.Duration)
	if err != nil {
		return roster.ClassMeeting{}, fmt.Errorf("meeting duration %q: %w", m.Duration, err)
	}
	if duration <= 0 {
		return roster.ClassMeeting{}, fmt.Errorf("meeting duration must be positive")
	}
	return roster.ClassMeeting{
		Section:   section,
		Location:  m.Location,
		Day:       time.Weekday(m.Day),
		StartTime: start,
		Duration:  duration,
	}, nil
}

func (f *RosterFactory) parseDate(v string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", v, f.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", v)
	}
	return t, nil
}
