package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
)

// AttendanceRepository implements persistence.AttendanceRepository using
// SQLite.
type AttendanceRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewAttendanceRepository creates a new SQLite attendance repository.
func NewAttendanceRepository(pool *ConnectionPool) *AttendanceRepository {
	return &AttendanceRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// UpsertAttendance inserts or updates the record keyed by (tenant, patient,
// session date) in a single statement. The UNIQUE index arbitrates concurrent
// double-submission, so at most one row ever exists per key. The stored row
// is read back so the caller sees the surviving ID and timestamps.
func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, record persistence.AttendanceRecord) (persistence.AttendanceRecord, error) {
	if record.ID == "" || record.TenantID == "" || record.PatientID == "" {
		return persistence.AttendanceRecord{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO attendance_records (id, tenant_id, patient_id, session_date, status, notes, payment_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, patient_id, session_date) DO UPDATE SET
			status = excluded.status,
			notes = excluded.notes,
			payment_id = COALESCE(excluded.payment_id, attendance_records.payment_id),
			updated_at = excluded.updated_at
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		record.ID,
		record.TenantID,
		record.PatientID,
		encodeDate(record.SessionDate),
		string(record.Status),
		record.Notes,
		encodeNullString(record.PaymentID),
		encodeTimestamp(record.CreatedAt),
		encodeTimestamp(record.UpdatedAt),
	)
	if err != nil {
		return persistence.AttendanceRecord{}, r.mapper.MapError(err)
	}

	return r.GetAttendance(ctx, record.TenantID, record.PatientID, record.SessionDate)
}

// GetAttendance retrieves the record for one patient and session date.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, tenantID, patientID string, date calendar.Date) (persistence.AttendanceRecord, error) {
	if tenantID == "" || patientID == "" {
		return persistence.AttendanceRecord{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, tenant_id, patient_id, session_date, status, notes, payment_id, created_at, updated_at
		FROM attendance_records
		WHERE tenant_id = ? AND patient_id = ? AND session_date = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, tenantID, patientID, encodeDate(date))
	record, err := scanAttendanceRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AttendanceRecord{}, persistence.ErrNotFound
		}
		return persistence.AttendanceRecord{}, r.mapper.MapError(err)
	}
	return record, nil
}

// ListAttendanceForPatient lists a patient's attendance history, newest
// session first.
func (r *AttendanceRepository) ListAttendanceForPatient(ctx context.Context, tenantID, patientID string) ([]persistence.AttendanceRecord, error) {
	query := `
		SELECT id, tenant_id, patient_id, session_date, status, notes, payment_id, created_at, updated_at
		FROM attendance_records
		WHERE tenant_id = ? AND patient_id = ?
		ORDER BY session_date DESC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, tenantID, patientID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var records []persistence.AttendanceRecord
	for rows.Next() {
		record, err := scanAttendanceRecord(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return records, nil
}

func scanAttendanceRecord(scan func(dest ...any) error) (persistence.AttendanceRecord, error) {
	var record persistence.AttendanceRecord
	var dateStr, statusStr, createdAtStr, updatedAtStr string
	var paymentID sql.NullString

	err := scan(
		&record.ID,
		&record.TenantID,
		&record.PatientID,
		&dateStr,
		&statusStr,
		&record.Notes,
		&paymentID,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.AttendanceRecord{}, err
	}

	if record.SessionDate, err = decodeDate(dateStr); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse session_date: %w", err)
	}
	record.Status = persistence.AttendanceStatus(statusStr)
	record.PaymentID = decodeNullString(paymentID)
	if record.CreatedAt, err = decodeTimestamp(createdAtStr); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if record.UpdatedAt, err = decodeTimestamp(updatedAtStr); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return record, nil
}
