package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migrationStep is one versioned schema change applied in sequence.
type migrationStep struct {
	Version     string
	Description string
	SQL         string
}

var migrations = []migrationStep{
	{
		Version:     "001",
		Description: "create patient and professional rosters",
		SQL: `
			CREATE TABLE patients (
				id         TEXT PRIMARY KEY,
				tenant_id  TEXT NOT NULL,
				name       TEXT NOT NULL,
				email      TEXT NOT NULL DEFAULT '',
				phone      TEXT NOT NULL DEFAULT '',
				notes      TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
			CREATE INDEX idx_patients_tenant ON patients(tenant_id);

			CREATE TABLE professionals (
				id         TEXT PRIMARY KEY,
				tenant_id  TEXT NOT NULL,
				name       TEXT NOT NULL,
				specialty  TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
			CREATE INDEX idx_professionals_tenant ON professionals(tenant_id);
		`,
	},
	{
		Version:     "002",
		Description: "create appointment instances",
		SQL: `
			CREATE TABLE appointments (
				id               TEXT PRIMARY KEY,
				tenant_id        TEXT NOT NULL,
				patient_id       TEXT NOT NULL,
				professional_id  TEXT NOT NULL,
				date             TEXT NOT NULL,
				start_time       TEXT NOT NULL,
				duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
				status           TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled')),
				notes            TEXT NOT NULL DEFAULT '',
				created_at       TEXT NOT NULL,
				updated_at       TEXT NOT NULL,
				UNIQUE (tenant_id, professional_id, date, start_time),
				UNIQUE (tenant_id, patient_id, date, start_time)
			);
			CREATE INDEX idx_appointments_tenant_date ON appointments(tenant_id, date);
			CREATE INDEX idx_appointments_patient ON appointments(tenant_id, patient_id, date);
		`,
	},
	{
		Version:     "003",
		Description: "create payment ledger and recurring charges",
		SQL: `
			CREATE TABLE payments (
				id             TEXT PRIMARY KEY,
				tenant_id      TEXT NOT NULL,
				patient_id     TEXT NOT NULL,
				amount_cents   INTEGER NOT NULL CHECK (amount_cents >= 0),
				discount_cents INTEGER NOT NULL DEFAULT 0 CHECK (discount_cents >= 0 AND discount_cents <= amount_cents),
				method         TEXT NOT NULL DEFAULT '',
				status         TEXT NOT NULL CHECK (status IN ('paid', 'pending', 'cancelled', 'overdue', 'refunded')),
				payment_date   TEXT NOT NULL,
				paid_at        TEXT,
				is_recurring   INTEGER NOT NULL DEFAULT 0,
				created_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL
			);
			CREATE INDEX idx_payments_patient ON payments(tenant_id, patient_id);

			CREATE TABLE recurring_charges (
				id           TEXT PRIMARY KEY,
				tenant_id    TEXT NOT NULL,
				patient_id   TEXT NOT NULL,
				amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
				method       TEXT NOT NULL DEFAULT '',
				day_of_month INTEGER NOT NULL CHECK (day_of_month BETWEEN 1 AND 31),
				unit         TEXT NOT NULL DEFAULT 'month',
				interval     INTEGER NOT NULL DEFAULT 1 CHECK (interval > 0),
				created_at   TEXT NOT NULL
			);
			CREATE INDEX idx_recurring_charges_patient ON recurring_charges(tenant_id, patient_id);
		`,
	},
	{
		Version:     "004",
		Description: "create attendance ledger keyed by patient and session date",
		SQL: `
			CREATE TABLE attendance_records (
				id           TEXT PRIMARY KEY,
				tenant_id    TEXT NOT NULL,
				patient_id   TEXT NOT NULL,
				session_date TEXT NOT NULL,
				status       TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late', 'cancelled')),
				notes        TEXT NOT NULL DEFAULT '',
				payment_id   TEXT,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL,
				UNIQUE (tenant_id, patient_id, session_date)
			);
		`,
	},
	{
		Version:     "005",
		Description: "create tenant subscriptions, one row per tenant",
		SQL: `
			CREATE TABLE subscriptions (
				id                   TEXT PRIMARY KEY,
				tenant_id            TEXT NOT NULL UNIQUE,
				plan_tier            TEXT NOT NULL,
				status               TEXT NOT NULL CHECK (status IN ('active', 'canceled', 'expired')),
				billing_cycle        TEXT NOT NULL CHECK (billing_cycle IN ('monthly', 'lifetime')),
				current_period_start TEXT NOT NULL,
				current_period_end   TEXT,
				cancel_at_period_end INTEGER NOT NULL DEFAULT 0,
				created_at           TEXT NOT NULL,
				updated_at           TEXT NOT NULL
			);
		`,
	},
}

// Migrate applies all pending schema migrations in sequential order. Each
// migration runs inside its own transaction together with the bookkeeping
// insert, so a failed step leaves the schema at the previous version.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	applied := make(map[string]struct{})
	rows, err := cp.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to read applied versions: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan applied version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate applied versions: %w", err)
	}
	rows.Close()

	for _, step := range migrations {
		if _, ok := applied[step.Version]; ok {
			continue
		}
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
				return fmt.Errorf("migration %s (%s) failed: %w", step.Version, step.Description, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				step.Version, time.Now().UTC().Format(time.RFC3339))
			if err != nil {
				return fmt.Errorf("failed to record migration %s: %w", step.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
