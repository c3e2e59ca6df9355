package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/clinic-manager/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary migrated
// SQLite database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool          *sqlite.ConnectionPool
	Patients      *sqlite.PatientRepository
	Professionals *sqlite.ProfessionalRepository
	Appointments  *sqlite.AppointmentRepository
	Attendance    *sqlite.AttendanceRepository
	Payments      *sqlite.PaymentRepository
	Subscriptions *sqlite.SubscriptionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	dsn := "file:" + filepath.Join(dir, "clinic.db") + "?_foreign_keys=on"

	pool, err := sqlite.NewConnectionPool(dsn)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:          pool,
		Patients:      sqlite.NewPatientRepository(pool),
		Professionals: sqlite.NewProfessionalRepository(pool),
		Appointments:  sqlite.NewAppointmentRepository(pool),
		Attendance:    sqlite.NewAttendanceRepository(pool),
		Payments:      sqlite.NewPaymentRepository(pool),
		Subscriptions: sqlite.NewSubscriptionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
