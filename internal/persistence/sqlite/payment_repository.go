package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/clinic-manager/internal/persistence"
)

// PaymentRepository implements persistence.PaymentLedger using SQLite.
type PaymentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPaymentRepository creates a new SQLite payment repository.
func NewPaymentRepository(pool *ConnectionPool) *PaymentRepository {
	return &PaymentRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreatePayment inserts a new ledger entry. The discount ceiling is enforced
// by a CHECK constraint as well, so a bad write fails even if the caller
// skipped validation.
func (r *PaymentRepository) CreatePayment(ctx context.Context, payment persistence.Payment) (persistence.Payment, error) {
	if payment.ID == "" || payment.TenantID == "" || payment.PatientID == "" {
		return persistence.Payment{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO payments (id, tenant_id, patient_id, amount_cents, discount_cents, method, status, payment_date, paid_at, is_recurring, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		payment.ID,
		payment.TenantID,
		payment.PatientID,
		payment.AmountCents,
		payment.DiscountCents,
		payment.Method,
		string(payment.Status),
		encodeDate(payment.PaymentDate),
		encodeNullTimestamp(payment.PaidAt),
		payment.IsRecurring,
		encodeTimestamp(payment.CreatedAt),
		encodeTimestamp(payment.UpdatedAt),
	)
	if err != nil {
		return persistence.Payment{}, r.mapper.MapError(err)
	}
	return payment, nil
}

// MarkPaid transitions a payment to paid and records when.
func (r *PaymentRepository) MarkPaid(ctx context.Context, tenantID, id string, paidAt time.Time) error {
	if tenantID == "" || id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE payments SET status = ?, paid_at = ?, updated_at = ? WHERE tenant_id = ? AND id = ?",
		string(persistence.PaymentPaid),
		encodeTimestamp(paidAt),
		encodeTimestamp(paidAt),
		tenantID, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetPayment retrieves a ledger entry by ID within the tenant's scope.
func (r *PaymentRepository) GetPayment(ctx context.Context, tenantID, id string) (persistence.Payment, error) {
	if tenantID == "" || id == "" {
		return persistence.Payment{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, tenant_id, patient_id, amount_cents, discount_cents, method, status, payment_date, paid_at, is_recurring, created_at, updated_at
		FROM payments
		WHERE tenant_id = ? AND id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, tenantID, id)
	payment, err := scanPayment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Payment{}, persistence.ErrNotFound
		}
		return persistence.Payment{}, r.mapper.MapError(err)
	}
	return payment, nil
}

// ListPaymentsForPatient lists a patient's ledger entries, newest first.
func (r *PaymentRepository) ListPaymentsForPatient(ctx context.Context, tenantID, patientID string) ([]persistence.Payment, error) {
	query := `
		SELECT id, tenant_id, patient_id, amount_cents, discount_cents, method, status, payment_date, paid_at, is_recurring, created_at, updated_at
		FROM payments
		WHERE tenant_id = ? AND patient_id = ?
		ORDER BY payment_date DESC, id ASC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, tenantID, patientID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var payments []persistence.Payment
	for rows.Next() {
		payment, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return payments, nil
}

// ScheduleRecurring registers a monthly charge on a fixed day of month.
func (r *PaymentRepository) ScheduleRecurring(ctx context.Context, charge persistence.RecurringCharge) (persistence.RecurringCharge, error) {
	if charge.ID == "" || charge.TenantID == "" || charge.PatientID == "" {
		return persistence.RecurringCharge{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO recurring_charges (id, tenant_id, patient_id, amount_cents, method, day_of_month, unit, interval, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		charge.ID,
		charge.TenantID,
		charge.PatientID,
		charge.AmountCents,
		charge.Method,
		charge.DayOfMonth,
		charge.Unit,
		charge.Interval,
		encodeTimestamp(charge.CreatedAt),
	)
	if err != nil {
		return persistence.RecurringCharge{}, r.mapper.MapError(err)
	}
	return charge, nil
}

func scanPayment(scan func(dest ...any) error) (persistence.Payment, error) {
	var payment persistence.Payment
	var dateStr, statusStr, createdAtStr, updatedAtStr string
	var paidAt sql.NullString

	err := scan(
		&payment.ID,
		&payment.TenantID,
		&payment.PatientID,
		&payment.AmountCents,
		&payment.DiscountCents,
		&payment.Method,
		&statusStr,
		&dateStr,
		&paidAt,
		&payment.IsRecurring,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Payment{}, err
	}

	payment.Status = persistence.PaymentStatus(statusStr)
	if payment.PaymentDate, err = decodeDate(dateStr); err != nil {
		return persistence.Payment{}, fmt.Errorf("failed to parse payment_date: %w", err)
	}
	if payment.PaidAt, err = decodeNullTimestamp(paidAt); err != nil {
		return persistence.Payment{}, fmt.Errorf("failed to parse paid_at: %w", err)
	}
	if payment.CreatedAt, err = decodeTimestamp(createdAtStr); err != nil {
		return persistence.Payment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if payment.UpdatedAt, err = decodeTimestamp(updatedAtStr); err != nil {
		return persistence.Payment{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return payment, nil
}
