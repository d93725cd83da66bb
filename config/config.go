/*
Package config loads server configuration from the environment, with an
optional .env file for development.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server binary needs to start.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string

	// DBPath is the SQLite database path, ":memory:" for ephemeral runs.
	DBPath string

	// Timezone is the center's local timezone; every pay week and
	// calendar date is interpreted in it.
	Timezone string

	// DocumentRoot is the directory shift attachments are served from.
	DocumentRoot string

	// LeadTimeEnabled turns on the change-request lead-time restriction.
	LeadTimeEnabled bool
	// LeadTimeWindow is how far ahead of a shift changes lock, when the
	// restriction is enabled.
	LeadTimeWindow time.Duration

	// SendGridKey enables email notifications when non-empty.
	SendGridKey      string
	FromEmail        string
	SupervisorEmails []string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:         getenv("LRC_ADDR", ":8080"),
		DBPath:       getenv("LRC_DB_PATH", "./lrc.db"),
		Timezone:     getenv("LRC_TIMEZONE", "America/New_York"),
		DocumentRoot: getenv("LRC_DOCUMENT_ROOT", "./documents"),
		SendGridKey:  os.Getenv("SENDGRID_API_KEY"),
		FromEmail:    getenv("LRC_FROM_EMAIL", "no-reply@lrc.local"),
	}

	if v := os.Getenv("LRC_LEAD_TIME_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("bad LRC_LEAD_TIME_ENABLED %q: %w", v, err)
		}
		cfg.LeadTimeEnabled = enabled
	}
	cfg.LeadTimeWindow = 7 * 24 * time.Hour
	if v := os.Getenv("LRC_LEAD_TIME_WINDOW"); v != "" {
		window, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("bad LRC_LEAD_TIME_WINDOW %q: %w", v, err)
		}
		cfg.LeadTimeWindow = window
	}
	if v := os.Getenv("LRC_SUPERVISOR_EMAILS"); v != "" {
		cfg.SupervisorEmails = splitComma(v)
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitComma(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
