// Package config loads environment driven configuration for the clinic
// service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the clinic
// service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	TenantTimezone  *time.Location
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load parses configuration values from the current process environment. A
// .env file in the working directory is read first when present; real
// environment variables win over file entries.
//
// The loader applies defaults for optional fields while validating provided
// values, and reports every offending variable in one pass.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:clinic.db?_foreign_keys=on",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CLINIC_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CLINIC_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CLINIC_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	// Quota months are evaluated in the tenant's local calendar, so the zone
	// must resolve even when no tenant override exists yet.
	timezone := strings.TrimSpace(os.Getenv("CLINIC_TENANT_TIMEZONE"))
	if timezone == "" {
		timezone = "America/Sao_Paulo"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		invalid = append(invalid, "CLINIC_TENANT_TIMEZONE")
	} else {
		cfg.TenantTimezone = location
	}

	if level := strings.TrimSpace(os.Getenv("CLINIC_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "CLINIC_LOG_LEVEL")
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("CLINIC_SHUTDOWN_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "CLINIC_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
