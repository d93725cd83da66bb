/*
scheduler.go - Overdue sign-off sweeper

PURPOSE:
  Periodically scans for attended shifts that were never signed off
  before their pay week closed and logs a per-person summary so
  supervisors can chase them before payroll runs.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A shift is overdue once the pay week it was worked in has ended
  - Purely advisory: the sweep never mutates shifts; lateness itself
    is recorded at sign-off time

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewSignOffSweeper(store, loc)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - payroll/aggregator.go: Sign-off and late detection
  - payroll/week.go: Pay week boundaries
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/scheduling"
	"github.com/lrcstaff/shift-engine/store/sqlite"
)

// SignOffSweeper reports shifts whose sign-off window has closed.
type SignOffSweeper struct {
	Store         *sqlite.Store
	Loc           *time.Location
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSignOffSweeper creates a new sweeper.
func NewSignOffSweeper(store *sqlite.Store, loc *time.Location) *SignOffSweeper {
	return &SignOffSweeper{
		Store:         store,
		Loc:           loc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (s *SignOffSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Sweeper] Started with check interval: %v", s.CheckInterval)
}

// Stop stops the sweeper.
func (s *SignOffSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (s *SignOffSweeper) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *SignOffSweeper) sweep() {
	ctx := context.Background()
	now := time.Now().In(s.Loc)

	// Everything before the current pay week is past its due end.
	cutoff := payroll.WeekOf(now, s.Loc).Start

	sem, err := s.Store.ActiveSemester(ctx)
	if err != nil {
		log.Printf("[Sweeper] Error loading active semester: %v", err)
		return
	}
	if sem == nil {
		return
	}

	signed := false
	overdue, err := s.Store.Shifts(ctx, scheduling.ShiftFilter{
		Semester: sem.Name,
		Signed:   &signed,
		StartTo:  &cutoff,
	})
	if err != nil {
		log.Printf("[Sweeper] Error listing unsigned shifts: %v", err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	byPerson := map[string]int{}
	for _, shift := range overdue {
		byPerson[shift.Position.Person.Name()]++
	}
	for name, count := range byPerson {
		log.Printf("[Sweeper] %s has %d shift(s) past the sign-off window", name, count)
	}
	log.Printf("[Sweeper] %d unsigned shift(s) past their pay week in %s", len(overdue), sem.Name)
}

// RunNow triggers an immediate sweep (for testing/admin).
func (s *SignOffSweeper) RunNow() {
	s.sweep()
}
