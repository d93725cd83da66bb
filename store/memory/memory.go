// Package memory provides in-memory Store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
)

// =============================================================================
// MEMORY STORE - implements roster.Directory, scheduling.Store, payroll.Store
// =============================================================================

type Store struct {
	mu sync.RWMutex

	loc *time.Location

	semesters   map[string]roster.Semester
	people      map[roster.PersonID]roster.Person
	courses     map[roster.CourseID]roster.Course
	crossListed []roster.CrossListed
	sections    map[roster.SectionID]roster.CourseSection
	positions   map[roster.PositionID]roster.StaffPosition

	shifts   map[scheduling.ShiftID]scheduling.Shift
	requests map[scheduling.RequestID]scheduling.ChangeRequest
	punches  map[roster.PositionID]scheduling.PunchedIn

	checks map[checkKey]payroll.PayrollCheck
}

type checkKey struct {
	Person    roster.PersonID
	WeekStart string
}

func New(loc *time.Location) *Store {
	return &Store{
		loc:       loc,
		semesters: make(map[string]roster.Semester),
		people:    make(map[roster.PersonID]roster.Person),
		courses:   make(map[roster.CourseID]roster.Course),
		sections:  make(map[roster.SectionID]roster.CourseSection),
		positions: make(map[roster.PositionID]roster.StaffPosition),
		shifts:    make(map[scheduling.ShiftID]scheduling.Shift),
		requests:  make(map[scheduling.RequestID]scheduling.ChangeRequest),
		punches:   make(map[roster.PositionID]scheduling.PunchedIn),
		checks:    make(map[checkKey]payroll.PayrollCheck),
	}
}

// =============================================================================
// ROSTER
// =============================================================================

func (m *Store) SaveSemester(_ context.Context, sem roster.Semester) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sem.Active {
		for name, other := range m.semesters {
			if name != sem.Name && other.Active {
				other.Active = false
				m.semesters[name] = other
			}
		}
	}
	m.semesters[sem.Name] = sem
	return nil
}

func (m *Store) SavePerson(_ context.Context, p roster.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people[p.ID] = p
	return nil
}

func (m *Store) SaveCourse(_ context.Context, c roster.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

// GetCourse looks a course up by department and number, resolving
// cross-listed aliases to their main course.
func (m *Store) GetCourse(_ context.Context, department, number string) (*roster.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.courses {
		if c.Department == department && c.Number == number {
			out := c
			return &out, nil
		}
	}
	for _, x := range m.crossListed {
		if x.Department == department && x.Number == number {
			if c, ok := m.courses[x.MainCourse]; ok {
				out := c
				return &out, nil
			}
		}
	}
	return nil, scheduling.ErrNotFound
}

func (m *Store) SaveCrossListed(_ context.Context, c roster.CrossListed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, x := range m.crossListed {
		if x.Department == c.Department && x.Number == c.Number {
			m.crossListed[i] = c
			return nil
		}
	}
	m.crossListed = append(m.crossListed, c)
	return nil
}

func (m *Store) SaveSection(_ context.Context, sec roster.CourseSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[sec.ID] = sec
	return nil
}

func (m *Store) SavePosition(_ context.Context, p roster.StaffPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.ID] = p
	return nil
}

func (m *Store) ActiveSemester(_ context.Context) (*roster.Semester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sem := range m.semesters {
		if sem.Active {
			out := sem
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Store) GetSemester(_ context.Context, name string) (*roster.Semester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sem, ok := m.semesters[name]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := sem
	return &out, nil
}

func (m *Store) GetPerson(_ context.Context, id roster.PersonID) (*roster.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.people[id]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := p
	return &out, nil
}

func (m *Store) PositionsFor(_ context.Context, person roster.PersonID, semester string, kind roster.PositionKind) ([]roster.StaffPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []roster.StaffPosition
	for _, p := range m.positions {
		if p.Person.ID != person || p.Semester != semester {
			continue
		}
		if kind != "" && p.Kind != kind {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (m *Store) PositionsByKind(_ context.Context, semester string, kind roster.PositionKind) ([]roster.StaffPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []roster.StaffPosition
	for _, p := range m.positions {
		if p.Semester == semester && p.Kind == kind {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) GetPosition(_ context.Context, id roster.PositionID) (*roster.StaffPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.positions[id]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := p
	return &out, nil
}

func (m *Store) PeersOf(_ context.Context, position roster.PositionID) ([]roster.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.positions[position]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	var out []roster.Person
	for _, id := range p.Peers {
		if peer, ok := m.people[id]; ok {
			out = append(out, peer)
		}
	}
	return out, nil
}

func (m *Store) TutorCoursesOf(_ context.Context, position roster.PositionID) ([]roster.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.positions[position]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	return append([]roster.Course(nil), p.TutorCourses...), nil
}

// =============================================================================
// SHIFTS
// =============================================================================

func (m *Store) CreateShift(_ context.Context, s scheduling.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[s.ID] = s
	return nil
}

func (m *Store) CreateShifts(_ context.Context, shifts []scheduling.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range shifts {
		m.shifts[s.ID] = s
	}
	return nil
}

func (m *Store) GetShift(_ context.Context, id scheduling.ShiftID) (*scheduling.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.shifts[id]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := s
	return &out, nil
}

func (m *Store) UpdateShift(_ context.Context, s scheduling.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shifts[s.ID]; !ok {
		return scheduling.ErrNotFound
	}
	m.shifts[s.ID] = s
	return nil
}

func (m *Store) Shifts(_ context.Context, f scheduling.ShiftFilter) ([]scheduling.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []scheduling.Shift
	for _, s := range m.shifts {
		if matchShift(s, f) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matchShift(s scheduling.Shift, f scheduling.ShiftFilter) bool {
	switch f.Visibility {
	case scheduling.VisibleOnly:
		if s.Deleted {
			return false
		}
	case scheduling.DeletedOnly:
		if !s.Deleted {
			return false
		}
	}
	if f.Semester != "" && s.Position.Semester != f.Semester {
		return false
	}
	if f.Person != "" && s.Position.Person.ID != f.Person {
		return false
	}
	if f.Position != "" && s.Position.ID != f.Position {
		return false
	}
	if f.Kind != "" && s.Kind != f.Kind {
		return false
	}
	if f.Signed != nil && s.Signed != *f.Signed {
		return false
	}
	if f.Attended != nil && s.Attended != *f.Attended {
		return false
	}
	if f.Late != nil && s.Late != *f.Late {
		return false
	}
	if f.StartFrom != nil && s.Start.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && !s.Start.Before(*f.StartTo) {
		return false
	}
	if f.LateFrom != nil && (s.LateAt == nil || s.LateAt.Before(*f.LateFrom)) {
		return false
	}
	if f.LateTo != nil && (s.LateAt == nil || !s.LateAt.Before(*f.LateTo)) {
		return false
	}
	return true
}

func (m *Store) PurgeClassShifts(_ context.Context, semester string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.shifts {
		if s.Kind == scheduling.KindClass && s.Position.Semester == semester {
			delete(m.shifts, id)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

func (m *Store) CreateRequest(_ context.Context, r scheduling.ChangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *Store) GetRequest(_ context.Context, id scheduling.RequestID) (*scheduling.ChangeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := r
	return &out, nil
}

func (m *Store) UpdateRequest(_ context.Context, r scheduling.ChangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[r.ID]; !ok {
		return scheduling.ErrNotFound
	}
	m.requests[r.ID] = r
	return nil
}

func (m *Store) Requests(_ context.Context, f scheduling.RequestFilter) ([]scheduling.ChangeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []scheduling.ChangeRequest
	for _, r := range m.requests {
		if f.State != "" && r.State != f.State {
			continue
		}
		if f.Person != "" && r.NewPosition.Person.ID != f.Person {
			continue
		}
		if f.PositionKind != "" && r.NewPosition.Kind != f.PositionKind {
			continue
		}
		if f.Drop != nil && r.IsDrop != *f.Drop {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NewStart.Before(out[j].NewStart) })
	return out, nil
}

func (m *Store) ApplyApproval(_ context.Context, r scheduling.ChangeRequest, shift scheduling.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[r.ID]; !ok {
		return scheduling.ErrNotFound
	}
	m.shifts[shift.ID] = shift
	m.requests[r.ID] = r
	return nil
}

// =============================================================================
// PUNCH CLOCK
// =============================================================================

func (m *Store) OpenPunch(_ context.Context, p scheduling.PunchedIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.punches[p.Position.ID]; ok {
		return scheduling.ErrAlreadyPunchedIn
	}
	m.punches[p.Position.ID] = p
	return nil
}

func (m *Store) GetPunch(_ context.Context, position roster.PositionID) (*scheduling.PunchedIn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.punches[position]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := p
	return &out, nil
}

func (m *Store) ClosePunch(_ context.Context, id scheduling.PunchID, shift scheduling.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pos, p := range m.punches {
		if p.ID == id {
			delete(m.punches, pos)
			m.shifts[shift.ID] = shift
			return nil
		}
	}
	return scheduling.ErrNotFound
}

// =============================================================================
// PAYROLL CHECKS
// =============================================================================

func (m *Store) GetCheck(_ context.Context, person roster.PersonID, weekStart time.Time) (*payroll.PayrollCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.checks[m.keyFor(person, weekStart)]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := clone(c)
	return &out, nil
}

func (m *Store) SaveCheck(_ context.Context, c payroll.PayrollCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks[m.keyFor(c.Person.ID, c.WeekStart)] = clone(c)
	return nil
}

func (m *Store) PurgeChecks(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks = make(map[checkKey]payroll.PayrollCheck)
	return nil
}

func (m *Store) ApplySignOff(_ context.Context, signed scheduling.Shift, prep *scheduling.Shift, check payroll.PayrollCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shifts[signed.ID]; !ok {
		return scheduling.ErrNotFound
	}
	m.shifts[signed.ID] = signed
	if prep != nil {
		m.shifts[prep.ID] = *prep
	}
	m.checks[m.keyFor(check.Person.ID, check.WeekStart)] = clone(check)
	return nil
}

func (m *Store) keyFor(person roster.PersonID, weekStart time.Time) checkKey {
	return checkKey{Person: person, WeekStart: weekStart.In(m.loc).Format("2006-01-02")}
}

// clone deep-copies bucket slices so callers cannot alias stored state.
func clone(c payroll.PayrollCheck) payroll.PayrollCheck {
	c.PayDetails = append([]payroll.RateHours(nil), c.PayDetails...)
	c.AdditionalPayDetails = append([]payroll.RateHours(nil), c.AdditionalPayDetails...)
	return c
}
