/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/shifts/*       Shift CRUD, bulk input, documents, drop requests
  /api/requests/*     Change request workflow
  /api/payroll/*      Sign-off, reports, check approval
  /api/punch/*        Punch clock
  /api/admin/*        Calendar-wide day operations, payroll rebuild
  /api/semesters/*    Semester + roster administration
  /api/scenarios/*    Demo scenario loading (dev/demo only)

SECURITY NOTE:
  No authentication middleware. The caller identifies via X-Person-ID;
  an SSO reverse proxy is expected to set it in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Person-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShiftsOnDate)
			r.Post("/", h.CreateShift)
			r.Post("/bulk", h.BulkCreateShifts)
			r.Post("/recurring", h.GenerateRecurring)
			r.Get("/{id}", h.GetShift)
			r.Get("/{id}/document", h.GetShiftDocument)
			r.Post("/{id}/drop", h.SubmitDrop)
		})

		// Change request routes
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.SubmitRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/deny", h.DenyRequest)
			r.Post("/{id}/pending", h.HoldRequest)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/sign", h.SignShift)
			r.Post("/approve", h.ApproveCheck)
			r.Get("/weekly/{offset}", h.WeeklyReport)
			r.Get("/people/{id}", h.PersonPayroll)
		})

		// Punch clock routes
		r.Route("/punch", func(r chi.Router) {
			r.Post("/in", h.PunchIn)
			r.Post("/out", h.PunchOut)
			r.Get("/{position}", h.GetPunch)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/redo-class-shifts", h.RedoClassShifts)
			r.Post("/drop-date", h.DropDate)
			r.Post("/move-date", h.MoveDate)
			r.Post("/swap-dates", h.SwapDates)
			r.Post("/payroll/rebuild", h.RebuildPayroll)
		})

		// Roster administration routes
		r.Route("/semesters", func(r chi.Router) {
			r.Post("/", h.SaveSemester)
			r.Get("/active", h.GetActiveSemester)
		})
		// Demo scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		r.Post("/people", h.SavePerson)
		r.Post("/positions", h.SavePosition)
		r.Post("/courses", h.SaveCourse)
		r.Post("/sections", h.SaveSection)
	})

	return r
}
