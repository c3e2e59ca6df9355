package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
)

// AppointmentRepository implements persistence.AppointmentRepository using
// SQLite.
type AppointmentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewAppointmentRepository creates a new SQLite appointment repository.
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// InsertBatch persists appointment instances in order inside one transaction.
// Before each insert it counts the tenant's appointments in the instance's
// calendar month, so instances inserted earlier in the same batch count
// against later ones. An instance is rejected, not the whole batch, when the
// monthly ceiling is reached or when the slot collides with an existing
// booking. The returned BatchResult always accounts for every input instance.
func (r *AppointmentRepository) InsertBatch(ctx context.Context, tenantID string, appointments []persistence.Appointment, monthlyLimit *int) (persistence.BatchResult, error) {
	if tenantID == "" {
		return persistence.BatchResult{}, persistence.ErrConstraintViolation
	}

	var result persistence.BatchResult

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, appointment := range appointments {
			if appointment.ID == "" || appointment.TenantID != tenantID {
				return persistence.ErrConstraintViolation
			}

			if monthlyLimit != nil {
				count, err := countInMonthTx(ctx, tx, tenantID, appointment.Date)
				if err != nil {
					return r.mapper.MapError(err)
				}
				if count >= *monthlyLimit {
					result.Rejected = append(result.Rejected, persistence.RejectedAppointment{
						Appointment: appointment,
						Reason:      persistence.RejectQuota,
					})
					continue
				}
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO appointments (id, tenant_id, patient_id, professional_id, date, start_time, duration_minutes, status, notes, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				appointment.ID,
				appointment.TenantID,
				appointment.PatientID,
				appointment.ProfessionalID,
				encodeDate(appointment.Date),
				encodeTimeOfDay(appointment.StartTime),
				appointment.DurationMinutes,
				string(appointment.Status),
				appointment.Notes,
				encodeTimestamp(appointment.CreatedAt),
				encodeTimestamp(appointment.UpdatedAt),
			)
			if err != nil {
				if r.mapper.IsDuplicate(err) {
					result.Rejected = append(result.Rejected, persistence.RejectedAppointment{
						Appointment: appointment,
						Reason:      persistence.RejectConflict,
					})
					continue
				}
				return r.mapper.MapError(err)
			}

			result.Inserted = append(result.Inserted, appointment)
		}
		return nil
	})
	if err != nil {
		return persistence.BatchResult{}, err
	}
	return result, nil
}

// GetAppointment retrieves an appointment by ID within the tenant's scope.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, tenantID, id string) (persistence.Appointment, error) {
	if tenantID == "" || id == "" {
		return persistence.Appointment{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, tenant_id, patient_id, professional_id, date, start_time, duration_minutes, status, notes, created_at, updated_at
		FROM appointments
		WHERE tenant_id = ? AND id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, tenantID, id)
	appointment, err := scanAppointment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Appointment{}, persistence.ErrNotFound
		}
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	return appointment, nil
}

// UpdateAppointmentStatus transitions a single appointment to a new status.
func (r *AppointmentRepository) UpdateAppointmentStatus(ctx context.Context, tenantID, id string, status persistence.AppointmentStatus, updatedAt time.Time) error {
	if tenantID == "" || id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE appointments SET status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?",
		string(status), encodeTimestamp(updatedAt), tenantID, id)
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

// DeleteAppointment removes a single appointment instance. Other instances
// from the same recurrence request are unaffected.
func (r *AppointmentRepository) DeleteAppointment(ctx context.Context, tenantID, id string) error {
	if tenantID == "" || id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM appointments WHERE tenant_id = ? AND id = ?", tenantID, id)
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

// ListAppointments lists a tenant's appointments matching the filter, ordered
// by date then start time.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, tenantID string, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	query := `
		SELECT id, tenant_id, patient_id, professional_id, date, start_time, duration_minutes, status, notes, created_at, updated_at
		FROM appointments
		WHERE tenant_id = ?
	`
	args := []any{tenantID}

	var conditions []string
	if filter.PatientID != "" {
		conditions = append(conditions, "patient_id = ?")
		args = append(args, filter.PatientID)
	}
	if filter.ProfessionalID != "" {
		conditions = append(conditions, "professional_id = ?")
		args = append(args, filter.ProfessionalID)
	}
	if filter.From != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, encodeDate(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, encodeDate(*filter.To))
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var appointments []persistence.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return appointments, nil
}

// CountInMonth counts the tenant's appointments dated within the calendar
// month containing ref.
func (r *AppointmentRepository) CountInMonth(ctx context.Context, tenantID string, ref calendar.Date) (int, error) {
	first, next := calendar.MonthBounds(ref)

	var count int
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM appointments WHERE tenant_id = ? AND date >= ? AND date < ?",
		tenantID, encodeDate(first), encodeDate(next)).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// HasAppointmentOn reports whether the patient has any instance on the given
// date, regardless of status.
func (r *AppointmentRepository) HasAppointmentOn(ctx context.Context, tenantID, patientID string, date calendar.Date) (bool, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM appointments WHERE tenant_id = ? AND patient_id = ? AND date = ?",
		tenantID, patientID, encodeDate(date)).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return count > 0, nil
}

func countInMonthTx(ctx context.Context, tx *sql.Tx, tenantID string, ref calendar.Date) (int, error) {
	first, next := calendar.MonthBounds(ref)

	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM appointments WHERE tenant_id = ? AND date >= ? AND date < ?",
		tenantID, encodeDate(first), encodeDate(next)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanAppointment(scan func(dest ...any) error) (persistence.Appointment, error) {
	var appointment persistence.Appointment
	var dateStr, startTimeStr, statusStr, createdAtStr, updatedAtStr string

	err := scan(
		&appointment.ID,
		&appointment.TenantID,
		&appointment.PatientID,
		&appointment.ProfessionalID,
		&dateStr,
		&startTimeStr,
		&appointment.DurationMinutes,
		&statusStr,
		&appointment.Notes,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Appointment{}, err
	}

	if appointment.Date, err = decodeDate(dateStr); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if appointment.StartTime, err = decodeTimeOfDay(startTimeStr); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	appointment.Status = persistence.AppointmentStatus(statusStr)
	if appointment.CreatedAt, err = decodeTimestamp(createdAtStr); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if appointment.UpdatedAt, err = decodeTimestamp(updatedAtStr); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return appointment, nil
}
