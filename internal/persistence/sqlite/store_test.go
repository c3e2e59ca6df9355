package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
)

// openTestStore opens a fresh temp-file database with the full schema
// applied. The file lives in t.TempDir so it is removed automatically.
func openTestStore(t *testing.T) *ConnectionPool {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	pool, err := NewConnectionPool(dbPath)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
	})

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}
	return pool
}

func testTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-08-01T09:00:00Z")
	if err != nil {
		t.Fatalf("Failed to parse test time: %v", err)
	}
	return ts
}

func mustDate(t *testing.T, value string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(value)
	if err != nil {
		t.Fatalf("Failed to parse date %q: %v", value, err)
	}
	return d
}

func mustTimeOfDay(t *testing.T, value string) calendar.TimeOfDay {
	t.Helper()
	tod, err := calendar.ParseTimeOfDay(value)
	if err != nil {
		t.Fatalf("Failed to parse time %q: %v", value, err)
	}
	return tod
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool := openTestStore(t)

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	var applied int
	err := pool.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied)
	if err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if applied != len(migrations) {
		t.Errorf("Expected %d applied migrations, got %d", len(migrations), applied)
	}
}
