/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment variables)
  2. Resolve the operating timezone
  3. Initialize SQLite store
  4. Wire scheduling, workflow, payroll, documents, notifications
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  All config comes from the environment (see config/config.go):
  LRC_ADDR, LRC_DB_PATH, LRC_TIMEZONE, LRC_DOCUMENT_ROOT,
  LRC_LEAD_TIME_ENABLED, LRC_LEAD_TIME_WINDOW,
  SENDGRID_API_KEY, LRC_FROM_EMAIL, LRC_SUPERVISOR_EMAILS.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  LRC_DB_PATH=./data/lrc.db ./server

  # Run on a different port
  LRC_ADDR=:3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lrcstaff/shift-engine/api"
	"github.com/lrcstaff/shift-engine/config"
	"github.com/lrcstaff/shift-engine/docs"
	"github.com/lrcstaff/shift-engine/notify"
	"github.com/lrcstaff/shift-engine/payroll"
	"github.com/lrcstaff/shift-engine/scheduling"
	"github.com/lrcstaff/shift-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve timezone %q: %v", cfg.Timezone, err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath, loc)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire domain services
	resolver := scheduling.NewResolver(loc)
	shifts := scheduling.NewShiftService(store, resolver)

	var notifier scheduling.Notifier
	if cfg.SendGridKey != "" {
		notifier = notify.NewSendGrid(cfg.SendGridKey, cfg.FromEmail, cfg.SupervisorEmails, nil)
	} else {
		notifier = notify.NewConsole(nil)
	}
	workflow := scheduling.NewWorkflow(store, notifier, scheduling.LeadTimePolicy{
		Enabled: cfg.LeadTimeEnabled,
		Window:  cfg.LeadTimeWindow,
	})

	aggregator := payroll.NewAggregator(store, loc)
	reporter := payroll.NewReporter(store, loc)
	documents := docs.NewFS(cfg.DocumentRoot, store)

	// HTTP layer
	handler := api.NewHandler(store, shifts, workflow, aggregator, reporter, documents, loc)
	router := api.NewRouter(handler)

	// Background sweep for shifts that missed their sign-off window
	sweeper := api.NewSignOffSweeper(store, loc)
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
