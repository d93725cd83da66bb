/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (roster.Directory, scheduling.Store,
  payroll.Store) using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  roster.Directory:  semester/position/peer/course lookups
  scheduling.Store:  shifts, change requests, punch clock
  payroll.Store:     PayrollCheck ledger and the sign-off compound write

SOFT DELETE:
  The shifts table keeps a deleted flag instead of removing rows. Every
  listing query excludes deleted rows unless the filter's visibility says
  otherwise; primary-key lookups always see the row. The only hard delete
  is PurgeClassShifts, the explicit clear before regeneration.

KEY TABLES:
  semesters/holidays/day_switches: the academic calendar
  people/positions:                staff directory with hourly rates
  courses/sections/class_meetings: course catalog and weekly schedule
  shifts:                          scheduled and worked shifts
  requests:                        change-request workflow state
  punches:                         open clock-ins (one per position)
  payroll_checks:                  per-person per-week hour buckets

TIME ENCODING:
  Instants are stored as UTC RFC3339 strings so lexicographic comparison
  matches chronological order. Date-only fields (holidays, week starts)
  are stored as local YYYY-MM-DD and parsed back in the store's location.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Compound writes (ApplyApproval,
  ClosePunch, ApplySignOff, CreateShifts) run in a database transaction so
  a request can never be observed Approved without its shift.

USAGE:
  store, err := sqlite.New("./data/lrc.db", loc)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - scheduling/store.go: interface definitions and the atomicity contract
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	loc *time.Location
	mu  sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database. loc is the center's local
// timezone, used to interpret stored calendar dates.
func New(dbPath string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and pooled
	// connections would each see their own ":memory:" database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, loc: loc}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reset deletes every row. Demo and test use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"payroll_checks", "punches", "requests", "shifts",
		"position_peers", "position_tutor_courses", "positions",
		"class_meetings", "sections", "cross_listed", "courses",
		"people", "day_switches", "holidays", "semesters",
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Academic calendar
	CREATE TABLE IF NOT EXISTS semesters (
		name TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS holidays (
		semester TEXT NOT NULL,
		date TEXT NOT NULL,
		PRIMARY KEY (semester, date)
	);

	CREATE TABLE IF NOT EXISTS day_switches (
		semester TEXT NOT NULL,
		date TEXT NOT NULL,
		day_to_follow INTEGER NOT NULL,
		PRIMARY KEY (semester, date)
	);

	-- Staff directory
	CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		privileged INTEGER NOT NULL DEFAULT 0
	);

	-- Course catalog
	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		department TEXT NOT NULL,
		number TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_courses_unique
		ON courses(department, number);

	CREATE TABLE IF NOT EXISTS cross_listed (
		main_course TEXT NOT NULL,
		department TEXT NOT NULL,
		number TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (department, number)
	);

	CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		semester TEXT NOT NULL,
		course_id TEXT NOT NULL,
		faculty TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sections_semester
		ON sections(semester);

	CREATE TABLE IF NOT EXISTS class_meetings (
		section_id TEXT NOT NULL,
		location TEXT NOT NULL,
		day INTEGER NOT NULL,
		start_seconds INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_section
		ON class_meetings(section_id);

	-- Positions: (person, semester, kind, section) is unique. The same
	-- kind twice is legal only against different course sections.
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL,
		semester TEXT NOT NULL,
		kind TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		section_id TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_unique
		ON positions(person_id, semester, kind, COALESCE(section_id, ''));
	CREATE INDEX IF NOT EXISTS idx_positions_semester_kind
		ON positions(semester, kind);

	CREATE TABLE IF NOT EXISTS position_tutor_courses (
		position_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		PRIMARY KEY (position_id, course_id)
	);

	CREATE TABLE IF NOT EXISTS position_peers (
		position_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		PRIMARY KEY (position_id, person_id)
	);

	-- Shifts (soft-deleted, never removed except class regeneration)
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		position_id TEXT NOT NULL,
		start TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		location TEXT NOT NULL,
		kind TEXT NOT NULL,
		attended INTEGER NOT NULL DEFAULT 0,
		signed INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		late INTEGER NOT NULL DEFAULT 0,
		late_at TEXT,
		deleted INTEGER NOT NULL DEFAULT 0,
		document TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_start
		ON shifts(start);
	CREATE INDEX IF NOT EXISTS idx_shifts_position_start
		ON shifts(position_id, start);
	-- Hot path: default listings exclude deleted rows
	CREATE INDEX IF NOT EXISTS idx_shifts_visible_start
		ON shifts(start) WHERE deleted = 0;
	CREATE INDEX IF NOT EXISTS idx_shifts_late_at
		ON shifts(late_at) WHERE late_at IS NOT NULL;

	-- Change requests
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		shift_to_update TEXT,
		reason TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		is_drop INTEGER NOT NULL DEFAULT 0,
		new_position_id TEXT NOT NULL,
		new_start TEXT NOT NULL,
		new_duration_seconds INTEGER NOT NULL DEFAULT 0,
		new_location TEXT NOT NULL DEFAULT '',
		new_kind TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_state
		ON requests(state);

	-- Punch clock: one open punch per position
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		position_id TEXT NOT NULL UNIQUE,
		start TEXT NOT NULL
	);

	-- Payroll ledger, one row per person per pay week
	CREATE TABLE IF NOT EXISTS payroll_checks (
		person_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		approved INTEGER NOT NULL DEFAULT 0,
		pay_details_json TEXT NOT NULL,
		additional_pay_details_json TEXT NOT NULL,
		PRIMARY KEY (person_id, week_start)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER WRITES
// =============================================================================

// SaveSemester upserts a semester with its holidays and day switches.
func (s *Store) SaveSemester(ctx context.Context, sem roster.Semester) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO semesters (name, start_date, end_date, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active
	`, sem.Name, fmtDate(sem.StartDate), fmtDate(sem.EndDate), boolInt(sem.Active))
	if err != nil {
		return err
	}
	if sem.Active {
		// At most one active semester.
		if _, err := tx.ExecContext(ctx,
			"UPDATE semesters SET active = 0 WHERE name != ?", sem.Name); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM holidays WHERE semester = ?", sem.Name); err != nil {
		return err
	}
	for _, h := range sem.Holidays {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO holidays (semester, date) VALUES (?, ?)",
			sem.Name, fmtDate(h.Date)); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM day_switches WHERE semester = ?", sem.Name); err != nil {
		return err
	}
	for _, ds := range sem.DaySwitches {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO day_switches (semester, date, day_to_follow) VALUES (?, ?, ?)",
			sem.Name, fmtDate(ds.Date), int(ds.DayToFollow)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SavePerson upserts a staff member.
func (s *Store) SavePerson(ctx context.Context, p roster.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, first_name, last_name, email, privileged)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			privileged = excluded.privileged
	`, p.ID, p.FirstName, p.LastName, p.Email, boolInt(p.Privileged))
	return err
}

// SaveCourse upserts a catalog entry.
func (s *Store) SaveCourse(ctx context.Context, c roster.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, department, number, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			department = excluded.department,
			number = excluded.number,
			name = excluded.name
	`, c.ID, c.Department, c.Number, c.Name)
	return err
}

// GetCourse looks a course up by department and number, resolving
// cross-listed aliases to their main course.
func (s *Store) GetCourse(ctx context.Context, department, number string) (*roster.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c roster.Course
	err := s.db.QueryRowContext(ctx,
		"SELECT id, department, number, name FROM courses WHERE department = ? AND number = ?",
		department, number,
	).Scan(&c.ID, &c.Department, &c.Number, &c.Name)
	if err == sql.ErrNoRows {
		var mainID string
		err = s.db.QueryRowContext(ctx,
			"SELECT main_course FROM cross_listed WHERE department = ? AND number = ?",
			department, number,
		).Scan(&mainID)
		if err == sql.ErrNoRows {
			return nil, scheduling.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		err = s.db.QueryRowContext(ctx,
			"SELECT id, department, number, name FROM courses WHERE id = ?", mainID,
		).Scan(&c.ID, &c.Department, &c.Number, &c.Name)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCrossListed upserts a cross-listing alias for a main course.
func (s *Store) SaveCrossListed(ctx context.Context, c roster.CrossListed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cross_listed (main_course, department, number, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(department, number) DO UPDATE SET
			main_course = excluded.main_course,
			name = excluded.name
	`, c.MainCourse, c.Department, c.Number, c.Name)
	return err
}

// SaveSection upserts a course section and replaces its weekly meetings.
func (s *Store) SaveSection(ctx context.Context, sec roster.CourseSection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sections (id, semester, course_id, faculty)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			semester = excluded.semester,
			course_id = excluded.course_id,
			faculty = excluded.faculty
	`, sec.ID, sec.Semester, sec.Course.ID, sec.Faculty)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM class_meetings WHERE section_id = ?", sec.ID); err != nil {
		return err
	}
	for _, m := range sec.Meetings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO class_meetings (section_id, location, day, start_seconds, duration_seconds)
			VALUES (?, ?, ?, ?, ?)
		`, sec.ID, m.Location, int(m.Day), int(m.StartTime/time.Second), int(m.Duration/time.Second)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SavePosition upserts a staff position with its tutor courses and peers.
func (s *Store) SavePosition(ctx context.Context, p roster.StaffPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sectionID any
	if p.AssignedSection != nil {
		sectionID = string(p.AssignedSection.ID)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO positions (id, person_id, semester, kind, hourly_rate, section_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_id = excluded.person_id,
			semester = excluded.semester,
			kind = excluded.kind,
			hourly_rate = excluded.hourly_rate,
			section_id = excluded.section_id
	`, p.ID, p.Person.ID, p.Semester, p.Kind, p.HourlyRate.StringFixed(2), sectionID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM position_tutor_courses WHERE position_id = ?", p.ID); err != nil {
		return err
	}
	for _, c := range p.TutorCourses {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO position_tutor_courses (position_id, course_id) VALUES (?, ?)",
			p.ID, c.ID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM position_peers WHERE position_id = ?", p.ID); err != nil {
		return err
	}
	for _, peer := range p.Peers {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO position_peers (position_id, person_id) VALUES (?, ?)",
			p.ID, peer); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// =============================================================================
// ROSTER READS (roster.Directory interface)
// =============================================================================

// ActiveSemester returns the semester with the active flag, or nil.
func (s *Store) ActiveSemester(ctx context.Context) (*roster.Semester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sem roster.Semester
	var start, end string
	var active int
	err := s.db.QueryRowContext(ctx,
		"SELECT name, start_date, end_date, active FROM semesters WHERE active = 1",
	).Scan(&sem.Name, &start, &end, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sem.StartDate = s.parseDate(start)
	sem.EndDate = s.parseDate(end)
	sem.Active = active != 0

	if err := s.loadCalendar(ctx, &sem); err != nil {
		return nil, err
	}
	return &sem, nil
}

// GetSemester returns a semester by name with its calendar exceptions.
func (s *Store) GetSemester(ctx context.Context, name string) (*roster.Semester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sem roster.Semester
	var start, end string
	var active int
	err := s.db.QueryRowContext(ctx,
		"SELECT name, start_date, end_date, active FROM semesters WHERE name = ?", name,
	).Scan(&sem.Name, &start, &end, &active)
	if err == sql.ErrNoRows {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sem.StartDate = s.parseDate(start)
	sem.EndDate = s.parseDate(end)
	sem.Active = active != 0

	if err := s.loadCalendar(ctx, &sem); err != nil {
		return nil, err
	}
	return &sem, nil
}

func (s *Store) loadCalendar(ctx context.Context, sem *roster.Semester) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT date FROM holidays WHERE semester = ? ORDER BY date", sem.Name)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return err
		}
		sem.Holidays = append(sem.Holidays, roster.Holiday{Semester: sem.Name, Date: s.parseDate(date)})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	switches, err := s.db.QueryContext(ctx,
		"SELECT date, day_to_follow FROM day_switches WHERE semester = ? ORDER BY date", sem.Name)
	if err != nil {
		return err
	}
	defer switches.Close()
	for switches.Next() {
		var date string
		var day int
		if err := switches.Scan(&date, &day); err != nil {
			return err
		}
		sem.DaySwitches = append(sem.DaySwitches, roster.DaySwitch{
			Semester:    sem.Name,
			Date:        s.parseDate(date),
			DayToFollow: time.Weekday(day),
		})
	}
	return switches.Err()
}

const positionColumns = `
	p.id, p.semester, p.kind, p.hourly_rate,
	u.id, u.first_name, u.last_name, u.email, u.privileged,
	sec.id, sec.semester, sec.faculty,
	c.id, c.department, c.number, c.name
`

const positionJoins = `
	FROM positions p
	JOIN people u ON u.id = p.person_id
	LEFT JOIN sections sec ON sec.id = p.section_id
	LEFT JOIN courses c ON c.id = sec.course_id
`

// PositionsFor returns the positions a person holds in a semester.
func (s *Store) PositionsFor(ctx context.Context, person roster.PersonID, semester string, kind roster.PositionKind) ([]roster.StaffPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + positionColumns + positionJoins +
		" WHERE p.person_id = ? AND p.semester = ?"
	args := []any{person, semester}
	if kind != "" {
		query += " AND p.kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY p.kind"

	return s.queryPositions(ctx, query, args...)
}

// PositionsByKind returns every position of a kind in a semester.
func (s *Store) PositionsByKind(ctx context.Context, semester string, kind roster.PositionKind) ([]roster.StaffPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + positionColumns + positionJoins +
		" WHERE p.semester = ? AND p.kind = ? ORDER BY u.last_name, u.first_name"
	return s.queryPositions(ctx, query, semester, kind)
}

// GetPosition returns a position by primary key.
func (s *Store) GetPosition(ctx context.Context, id roster.PositionID) (*roster.StaffPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + positionColumns + positionJoins + " WHERE p.id = ?"
	positions, err := s.queryPositions(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, scheduling.ErrNotFound
	}
	return &positions[0], nil
}

// PeersOf returns the people a peer-mentor position oversees.
func (s *Store) PeersOf(ctx context.Context, position roster.PositionID) ([]roster.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.email, u.privileged
		FROM position_peers pp
		JOIN people u ON u.id = pp.person_id
		WHERE pp.position_id = ?
		ORDER BY u.last_name, u.first_name
	`, position)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []roster.Person
	for rows.Next() {
		var p roster.Person
		var privileged int
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &privileged); err != nil {
			return nil, err
		}
		p.Privileged = privileged != 0
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

// TutorCoursesOf returns the courses a tutoring position covers.
func (s *Store) TutorCoursesOf(ctx context.Context, position roster.PositionID) ([]roster.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.department, c.number, c.name
		FROM position_tutor_courses tc
		JOIN courses c ON c.id = tc.course_id
		WHERE tc.position_id = ?
		ORDER BY c.department, c.number
	`, position)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []roster.Course
	for rows.Next() {
		var c roster.Course
		if err := rows.Scan(&c.ID, &c.Department, &c.Number, &c.Name); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (s *Store) queryPositions(ctx context.Context, query string, args ...any) ([]roster.StaffPosition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []roster.StaffPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Hydrate SI/GT section meetings; recurring generation needs them.
	for i := range positions {
		if positions[i].AssignedSection == nil {
			continue
		}
		meetings, err := s.meetingsOf(ctx, positions[i].AssignedSection.ID)
		if err != nil {
			return nil, err
		}
		positions[i].AssignedSection.Meetings = meetings
	}
	return positions, nil
}

func (s *Store) meetingsOf(ctx context.Context, section roster.SectionID) ([]roster.ClassMeeting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location, day, start_seconds, duration_seconds
		FROM class_meetings WHERE section_id = ? ORDER BY day, start_seconds
	`, section)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []roster.ClassMeeting
	for rows.Next() {
		var m roster.ClassMeeting
		var day, startSec, durSec int
		if err := rows.Scan(&m.Location, &day, &startSec, &durSec); err != nil {
			return nil, err
		}
		m.Section = section
		m.Day = time.Weekday(day)
		m.StartTime = time.Duration(startSec) * time.Second
		m.Duration = time.Duration(durSec) * time.Second
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (roster.StaffPosition, error) {
	var (
		p          roster.StaffPosition
		rate       string
		privileged int

		secID, secSemester, secFaculty      sql.NullString
		courseID, courseDept, courseNum, cn sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.Semester, &p.Kind, &rate,
		&p.Person.ID, &p.Person.FirstName, &p.Person.LastName, &p.Person.Email, &privileged,
		&secID, &secSemester, &secFaculty,
		&courseID, &courseDept, &courseNum, &cn,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan position: %w", err)
	}

	p.Person.Privileged = privileged != 0
	p.HourlyRate, err = decimal.NewFromString(rate)
	if err != nil {
		return p, fmt.Errorf("bad hourly rate %q: %w", rate, err)
	}

	if secID.Valid {
		p.AssignedSection = &roster.CourseSection{
			ID:       roster.SectionID(secID.String),
			Semester: secSemester.String,
			Faculty:  secFaculty.String,
			Course: roster.Course{
				ID:         roster.CourseID(courseID.String),
				Department: courseDept.String,
				Number:     courseNum.String,
				Name:       cn.String,
			},
		}
	}
	return p, nil
}

// =============================================================================
// SHIFT STORE (scheduling.ShiftStore interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateShift inserts a shift.
func (s *Store) CreateShift(ctx context.Context, shift scheduling.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertShift(ctx, s.db, shift)
}

// CreateShifts inserts many shifts atomically. Either all land or none.
func (s *Store) CreateShifts(ctx context.Context, shifts []scheduling.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, shift := range shifts {
		if err := s.insertShift(ctx, tx, shift); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertShift(ctx context.Context, db execer, shift scheduling.Shift) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO shifts
		(id, position_id, start, duration_seconds, location, kind,
		 attended, signed, reason, late, late_at, deleted, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		shift.ID,
		shift.Position.ID,
		fmtTime(shift.Start),
		int(shift.Duration/time.Second),
		shift.Location,
		shift.Kind,
		boolInt(shift.Attended),
		boolInt(shift.Signed),
		shift.Reason,
		boolInt(shift.Late),
		nullTime(shift.LateAt),
		boolInt(shift.Deleted),
		shift.Document,
		fmtTime(shift.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

func (s *Store) saveShift(ctx context.Context, db execer, shift scheduling.Shift) error {
	res, err := db.ExecContext(ctx, `
		UPDATE shifts SET
			position_id = ?, start = ?, duration_seconds = ?, location = ?, kind = ?,
			attended = ?, signed = ?, reason = ?, late = ?, late_at = ?,
			deleted = ?, document = ?
		WHERE id = ?
	`,
		shift.Position.ID,
		fmtTime(shift.Start),
		int(shift.Duration/time.Second),
		shift.Location,
		shift.Kind,
		boolInt(shift.Attended),
		boolInt(shift.Signed),
		shift.Reason,
		boolInt(shift.Late),
		nullTime(shift.LateAt),
		boolInt(shift.Deleted),
		shift.Document,
		shift.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

// UpdateShift overwrites an existing shift.
func (s *Store) UpdateShift(ctx context.Context, shift scheduling.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveShift(ctx, s.db, shift)
}

const shiftColumns = `
	sh.id, sh.start, sh.duration_seconds, sh.location, sh.kind,
	sh.attended, sh.signed, sh.reason, sh.late, sh.late_at,
	sh.deleted, sh.document, sh.created_at,
` + positionColumns

const shiftJoins = `
	FROM shifts sh
	JOIN positions p ON p.id = sh.position_id
	JOIN people u ON u.id = p.person_id
	LEFT JOIN sections sec ON sec.id = p.section_id
	LEFT JOIN courses c ON c.id = sec.course_id
`

// GetShift returns a shift by primary key, deleted or not.
func (s *Store) GetShift(ctx context.Context, id scheduling.ShiftID) (*scheduling.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+shiftColumns+shiftJoins+" WHERE sh.id = ?", id)
	shift, err := s.scanShift(row)
	if err == sql.ErrNoRows {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// Shifts returns shifts matching the filter, ordered by start.
func (s *Store) Shifts(ctx context.Context, f scheduling.ShiftFilter) ([]scheduling.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any

	switch f.Visibility {
	case scheduling.VisibleOnly:
		where = append(where, "sh.deleted = 0")
	case scheduling.DeletedOnly:
		where = append(where, "sh.deleted = 1")
	case scheduling.VisibleAndDeleted:
		// no clause
	}
	if f.Semester != "" {
		where = append(where, "p.semester = ?")
		args = append(args, f.Semester)
	}
	if f.Person != "" {
		where = append(where, "p.person_id = ?")
		args = append(args, f.Person)
	}
	if f.Position != "" {
		where = append(where, "sh.position_id = ?")
		args = append(args, f.Position)
	}
	if f.Kind != "" {
		where = append(where, "sh.kind = ?")
		args = append(args, f.Kind)
	}
	if f.Signed != nil {
		where = append(where, "sh.signed = ?")
		args = append(args, boolInt(*f.Signed))
	}
	if f.Attended != nil {
		where = append(where, "sh.attended = ?")
		args = append(args, boolInt(*f.Attended))
	}
	if f.Late != nil {
		where = append(where, "sh.late = ?")
		args = append(args, boolInt(*f.Late))
	}
	if f.StartFrom != nil {
		where = append(where, "sh.start >= ?")
		args = append(args, fmtTime(*f.StartFrom))
	}
	if f.StartTo != nil {
		where = append(where, "sh.start < ?")
		args = append(args, fmtTime(*f.StartTo))
	}
	if f.LateFrom != nil {
		where = append(where, "sh.late_at IS NOT NULL AND sh.late_at >= ?")
		args = append(args, fmtTime(*f.LateFrom))
	}
	if f.LateTo != nil {
		where = append(where, "sh.late_at IS NOT NULL AND sh.late_at < ?")
		args = append(args, fmtTime(*f.LateTo))
	}

	query := "SELECT " + shiftColumns + shiftJoins
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sh.start ASC, sh.created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []scheduling.Shift
	for rows.Next() {
		shift, err := s.scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// PurgeClassShifts hard-deletes every Class shift in the semester.
func (s *Store) PurgeClassShifts(ctx context.Context, semester string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM shifts WHERE kind = ? AND position_id IN (
			SELECT id FROM positions WHERE semester = ?
		)
	`, scheduling.KindClass, semester)
	if err != nil {
		return 0, fmt.Errorf("failed to purge class shifts: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) scanShift(row rowScanner) (scheduling.Shift, error) {
	var (
		shift scheduling.Shift

		start, createdAt string
		durSec           int
		attended, signed int
		late, deleted    int
		lateAt           sql.NullString

		rate       string
		privileged int

		secID, secSemester, secFaculty      sql.NullString
		courseID, courseDept, courseNum, cn sql.NullString
	)

	err := row.Scan(
		&shift.ID, &start, &durSec, &shift.Location, &shift.Kind,
		&attended, &signed, &shift.Reason, &late, &lateAt,
		&deleted, &shift.Document, &createdAt,
		&shift.Position.ID, &shift.Position.Semester, &shift.Position.Kind, &rate,
		&shift.Position.Person.ID, &shift.Position.Person.FirstName,
		&shift.Position.Person.LastName, &shift.Position.Person.Email, &privileged,
		&secID, &secSemester, &secFaculty,
		&courseID, &courseDept, &courseNum, &cn,
	)
	if err != nil {
		return shift, err
	}

	shift.Start = s.parseTime(start)
	shift.Duration = time.Duration(durSec) * time.Second
	shift.Attended = attended != 0
	shift.Signed = signed != 0
	shift.Late = late != 0
	shift.Deleted = deleted != 0
	shift.CreatedAt = s.parseTime(createdAt)
	if lateAt.Valid {
		t := s.parseTime(lateAt.String)
		shift.LateAt = &t
	}

	shift.Position.Person.Privileged = privileged != 0
	shift.Position.HourlyRate, err = decimal.NewFromString(rate)
	if err != nil {
		return shift, fmt.Errorf("bad hourly rate %q: %w", rate, err)
	}
	if secID.Valid {
		shift.Position.AssignedSection = &roster.CourseSection{
			ID:       roster.SectionID(secID.String),
			Semester: secSemester.String,
			Faculty:  secFaculty.String,
			Course: roster.Course{
				ID:         roster.CourseID(courseID.String),
				Department: courseDept.String,
				Number:     courseNum.String,
				Name:       cn.String,
			},
		}
	}
	return shift, nil
}

// =============================================================================
// CHANGE REQUEST STORE (scheduling.RequestStore interface)
// =============================================================================

// CreateRequest inserts a change request.
func (s *Store) CreateRequest(ctx context.Context, r scheduling.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests
		(id, shift_to_update, reason, state, is_drop,
		 new_position_id, new_start, new_duration_seconds, new_location, new_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		nullShiftID(r.ShiftToUpdate),
		r.Reason,
		r.State,
		boolInt(r.IsDrop),
		r.NewPosition.ID,
		fmtTime(r.NewStart),
		int(r.NewDuration/time.Second),
		r.NewLocation,
		r.NewKind,
		fmtTime(r.Created),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

const requestColumns = `
	r.id, r.shift_to_update, r.reason, r.state, r.is_drop,
	r.new_start, r.new_duration_seconds, r.new_location, r.new_kind, r.created_at,
` + positionColumns

const requestJoins = `
	FROM requests r
	JOIN positions p ON p.id = r.new_position_id
	JOIN people u ON u.id = p.person_id
	LEFT JOIN sections sec ON sec.id = p.section_id
	LEFT JOIN courses c ON c.id = sec.course_id
`

// GetRequest returns a request by primary key.
func (s *Store) GetRequest(ctx context.Context, id scheduling.RequestID) (*scheduling.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+requestColumns+requestJoins+" WHERE r.id = ?", id)
	r, err := s.scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequest overwrites an existing request.
func (s *Store) UpdateRequest(ctx context.Context, r scheduling.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveRequest(ctx, s.db, r)
}

func (s *Store) saveRequest(ctx context.Context, db execer, r scheduling.ChangeRequest) error {
	res, err := db.ExecContext(ctx, `
		UPDATE requests SET
			shift_to_update = ?, reason = ?, state = ?, is_drop = ?,
			new_position_id = ?, new_start = ?, new_duration_seconds = ?,
			new_location = ?, new_kind = ?
		WHERE id = ?
	`,
		nullShiftID(r.ShiftToUpdate),
		r.Reason,
		r.State,
		boolInt(r.IsDrop),
		r.NewPosition.ID,
		fmtTime(r.NewStart),
		int(r.NewDuration/time.Second),
		r.NewLocation,
		r.NewKind,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

// Requests returns requests matching the filter, ordered by proposed start.
func (s *Store) Requests(ctx context.Context, f scheduling.RequestFilter) ([]scheduling.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any

	if f.State != "" {
		where = append(where, "r.state = ?")
		args = append(args, f.State)
	}
	if f.Person != "" {
		where = append(where, "p.person_id = ?")
		args = append(args, f.Person)
	}
	if f.PositionKind != "" {
		where = append(where, "p.kind = ?")
		args = append(args, f.PositionKind)
	}
	if f.Drop != nil {
		where = append(where, "r.is_drop = ?")
		args = append(args, boolInt(*f.Drop))
	}

	query := "SELECT " + requestColumns + requestJoins
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.new_start ASC, r.created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []scheduling.ChangeRequest
	for rows.Next() {
		r, err := s.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// ApplyApproval persists the approved request and its shift atomically.
// A drop approval updates the target (now soft-deleted); an edit approval
// updates it in place; a new-shift approval inserts it.
func (s *Store) ApplyApproval(ctx context.Context, r scheduling.ChangeRequest, shift scheduling.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.ShiftToUpdate != nil {
		err = s.saveShift(ctx, tx, shift)
	} else {
		err = s.insertShift(ctx, tx, shift)
	}
	if err != nil {
		return err
	}
	if err := s.saveRequest(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) scanRequest(row rowScanner) (scheduling.ChangeRequest, error) {
	var (
		r scheduling.ChangeRequest

		target            sql.NullString
		isDrop            int
		newStart, created string
		newDurSec         int

		rate       string
		privileged int

		secID, secSemester, secFaculty      sql.NullString
		courseID, courseDept, courseNum, cn sql.NullString
	)

	err := row.Scan(
		&r.ID, &target, &r.Reason, &r.State, &isDrop,
		&newStart, &newDurSec, &r.NewLocation, &r.NewKind, &created,
		&r.NewPosition.ID, &r.NewPosition.Semester, &r.NewPosition.Kind, &rate,
		&r.NewPosition.Person.ID, &r.NewPosition.Person.FirstName,
		&r.NewPosition.Person.LastName, &r.NewPosition.Person.Email, &privileged,
		&secID, &secSemester, &secFaculty,
		&courseID, &courseDept, &courseNum, &cn,
	)
	if err != nil {
		return r, err
	}

	if target.Valid {
		id := scheduling.ShiftID(target.String)
		r.ShiftToUpdate = &id
	}
	r.IsDrop = isDrop != 0
	r.NewStart = s.parseTime(newStart)
	r.NewDuration = time.Duration(newDurSec) * time.Second
	r.Created = s.parseTime(created)

	r.NewPosition.Person.Privileged = privileged != 0
	r.NewPosition.HourlyRate, err = decimal.NewFromString(rate)
	if err != nil {
		return r, fmt.Errorf("bad hourly rate %q: %w", rate, err)
	}
	if secID.Valid {
		r.NewPosition.AssignedSection = &roster.CourseSection{
			ID:       roster.SectionID(secID.String),
			Semester: secSemester.String,
			Faculty:  secFaculty.String,
			Course: roster.Course{
				ID:         roster.CourseID(courseID.String),
				Department: courseDept.String,
				Number:     courseNum.String,
				Name:       cn.String,
			},
		}
	}
	return r, nil
}

// =============================================================================
// PUNCH STORE (scheduling.PunchStore interface)
// =============================================================================

// OpenPunch records a clock-in. The UNIQUE index on position_id turns a
// double clock-in into ErrAlreadyPunchedIn.
func (s *Store) OpenPunch(ctx context.Context, p scheduling.PunchedIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO punches (id, position_id, start) VALUES (?, ?, ?)",
		p.ID, p.Position.ID, fmtTime(p.Start))
	if err != nil {
		if isUniqueConstraintError(err) {
			return scheduling.ErrAlreadyPunchedIn
		}
		return fmt.Errorf("failed to open punch: %w", err)
	}
	return nil
}

// GetPunch returns the open punch for a position, or ErrNotFound.
func (s *Store) GetPunch(ctx context.Context, position roster.PositionID) (*scheduling.PunchedIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p scheduling.PunchedIn
	var start string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, start FROM punches WHERE position_id = ?", position,
	).Scan(&p.ID, &start)
	if err == sql.ErrNoRows {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Start = s.parseTime(start)

	pos, err := s.getPositionLocked(ctx, position)
	if err != nil {
		return nil, err
	}
	p.Position = *pos
	return &p, nil
}

// getPositionLocked is GetPosition without re-acquiring the lock.
func (s *Store) getPositionLocked(ctx context.Context, id roster.PositionID) (*roster.StaffPosition, error) {
	query := "SELECT " + positionColumns + positionJoins + " WHERE p.id = ?"
	positions, err := s.queryPositions(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, scheduling.ErrNotFound
	}
	return &positions[0], nil
}

// ClosePunch removes the punch and creates its shift atomically.
func (s *Store) ClosePunch(ctx context.Context, id scheduling.PunchID, shift scheduling.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM punches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to close punch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return scheduling.ErrNotFound
	}
	if err := s.insertShift(ctx, tx, shift); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// PAYROLL CHECK STORE (payroll.Store interface)
// =============================================================================

// GetCheck returns a person's check for a pay week, or ErrNotFound.
func (s *Store) GetCheck(ctx context.Context, person roster.PersonID, weekStart time.Time) (*payroll.PayrollCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getCheckLocked(ctx, person, weekStart)
}

func (s *Store) getCheckLocked(ctx context.Context, person roster.PersonID, weekStart time.Time) (*payroll.PayrollCheck, error) {
	var approved int
	var payJSON, addPayJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT approved, pay_details_json, additional_pay_details_json
		FROM payroll_checks WHERE person_id = ? AND week_start = ?
	`, person, fmtDate(weekStart)).Scan(&approved, &payJSON, &addPayJSON)
	if err == sql.ErrNoRows {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	check := &payroll.PayrollCheck{
		WeekStart: weekStart,
		Approved:  approved != 0,
	}
	person2, err := s.getPersonLocked(ctx, person)
	if err != nil {
		return nil, err
	}
	check.Person = *person2
	if check.PayDetails, err = parseBuckets(payJSON); err != nil {
		return nil, err
	}
	if check.AdditionalPayDetails, err = parseBuckets(addPayJSON); err != nil {
		return nil, err
	}
	return check, nil
}

// GetPerson returns a staff member by primary key.
func (s *Store) GetPerson(ctx context.Context, id roster.PersonID) (*roster.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getPersonLocked(ctx, id)
}

func (s *Store) getPersonLocked(ctx context.Context, id roster.PersonID) (*roster.Person, error) {
	var p roster.Person
	var privileged int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, email, privileged FROM people WHERE id = ?", id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &privileged)
	if err == sql.ErrNoRows {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Privileged = privileged != 0
	return &p, nil
}

// SaveCheck upserts a check.
func (s *Store) SaveCheck(ctx context.Context, c payroll.PayrollCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveCheck(ctx, s.db, c)
}

func (s *Store) saveCheck(ctx context.Context, db execer, c payroll.PayrollCheck) error {
	payJSON, err := marshalBuckets(c.PayDetails)
	if err != nil {
		return err
	}
	addJSON, err := marshalBuckets(c.AdditionalPayDetails)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO payroll_checks (person_id, week_start, approved, pay_details_json, additional_pay_details_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(person_id, week_start) DO UPDATE SET
			approved = excluded.approved,
			pay_details_json = excluded.pay_details_json,
			additional_pay_details_json = excluded.additional_pay_details_json
	`, c.Person.ID, fmtDate(c.WeekStart), boolInt(c.Approved), payJSON, addJSON)
	if err != nil {
		return fmt.Errorf("failed to save payroll check: %w", err)
	}
	return nil
}

// PurgeChecks drops the whole ledger, ahead of a rebuild.
func (s *Store) PurgeChecks(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM payroll_checks")
	return err
}

// ApplySignOff persists a sign-off atomically: the signed shift, the
// synthesized preparation shift (if any), and the updated check.
func (s *Store) ApplySignOff(ctx context.Context, signed scheduling.Shift, prep *scheduling.Shift, check payroll.PayrollCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.saveShift(ctx, tx, signed); err != nil {
		return err
	}
	if prep != nil {
		if err := s.insertShift(ctx, tx, *prep); err != nil {
			return err
		}
	}
	if err := s.saveCheck(ctx, tx, check); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

// Rate buckets persist as {"15.00": ["0","2.75",...]}: canonical
// two-decimal rate keys, decimal strings for the seven day slots.
func marshalBuckets(buckets []payroll.RateHours) (string, error) {
	out := make(map[string][7]string, len(buckets))
	for _, b := range buckets {
		var days [7]string
		for i, h := range b.Hours {
			days[i] = h.String()
		}
		out[payroll.RateKey(b.Rate)] = days
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pay buckets: %w", err)
	}
	return string(data), nil
}

func parseBuckets(data string) ([]payroll.RateHours, error) {
	if data == "" {
		return nil, nil
	}
	var raw map[string][7]string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse pay buckets: %w", err)
	}

	var buckets []payroll.RateHours
	for key, days := range raw {
		rate, err := decimal.NewFromString(key)
		if err != nil {
			return nil, fmt.Errorf("bad rate key %q: %w", key, err)
		}
		b := payroll.RateHours{Rate: rate}
		for i, d := range days {
			h, err := decimal.NewFromString(d)
			if err != nil {
				return nil, fmt.Errorf("bad hour value %q: %w", d, err)
			}
			b.Hours[i] = h
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *Store) parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339, v)
	return t.In(s.loc)
}

const dateLayout = "2006-01-02"

func fmtDate(t time.Time) string {
	return t.Format(dateLayout)
}

func (s *Store) parseDate(v string) time.Time {
	t, _ := time.ParseInLocation(dateLayout, v, s.loc)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func nullShiftID(id *scheduling.ShiftID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
