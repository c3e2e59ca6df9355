package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/clinic-manager/internal/persistence"
)

// PatientRepository implements persistence.PatientRepository using SQLite.
type PatientRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPatientRepository creates a new SQLite patient repository.
func NewPatientRepository(pool *ConnectionPool) *PatientRepository {
	return &PatientRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreatePatient inserts a new patient record.
func (r *PatientRepository) CreatePatient(ctx context.Context, patient persistence.Patient) error {
	if patient.ID == "" || patient.TenantID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO patients (id, tenant_id, name, email, phone, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		patient.ID,
		patient.TenantID,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.Notes,
		encodeTimestamp(patient.CreatedAt),
		encodeTimestamp(patient.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdatePatient updates an existing patient record in place.
func (r *PatientRepository) UpdatePatient(ctx context.Context, patient persistence.Patient) error {
	if patient.ID == "" || patient.TenantID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE patients
		SET name = ?, email = ?, phone = ?, notes = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.Notes,
		encodeTimestamp(patient.UpdatedAt),
		patient.TenantID,
		patient.ID,
	)
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

// GetPatient retrieves a patient by ID within the tenant's scope.
func (r *PatientRepository) GetPatient(ctx context.Context, tenantID, id string) (persistence.Patient, error) {
	if tenantID == "" || id == "" {
		return persistence.Patient{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, tenant_id, name, email, phone, notes, created_at, updated_at
		FROM patients
		WHERE tenant_id = ? AND id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, tenantID, id)
	patient, err := scanPatient(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Patient{}, persistence.ErrNotFound
		}
		return persistence.Patient{}, r.mapper.MapError(err)
	}
	return patient, nil
}

// ListPatients lists all of a tenant's patients ordered by name.
func (r *PatientRepository) ListPatients(ctx context.Context, tenantID string) ([]persistence.Patient, error) {
	query := `
		SELECT id, tenant_id, name, email, phone, notes, created_at, updated_at
		FROM patients
		WHERE tenant_id = ?
		ORDER BY name ASC, id ASC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var patients []persistence.Patient
	for rows.Next() {
		patient, err := scanPatient(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return patients, nil
}

// DeletePatient removes a patient record. Appointments and attendance entries
// referencing the patient are left untouched.
func (r *PatientRepository) DeletePatient(ctx context.Context, tenantID, id string) error {
	if tenantID == "" || id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM patients WHERE tenant_id = ? AND id = ?", tenantID, id)
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

// CountPatients counts the tenant's patient records.
func (r *PatientRepository) CountPatients(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM patients WHERE tenant_id = ?", tenantID).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

func scanPatient(scan func(dest ...any) error) (persistence.Patient, error) {
	var patient persistence.Patient
	var createdAtStr, updatedAtStr string

	err := scan(
		&patient.ID,
		&patient.TenantID,
		&patient.Name,
		&patient.Email,
		&patient.Phone,
		&patient.Notes,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Patient{}, err
	}

	if patient.CreatedAt, err = decodeTimestamp(createdAtStr); err != nil {
		return persistence.Patient{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if patient.UpdatedAt, err = decodeTimestamp(updatedAtStr); err != nil {
		return persistence.Patient{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return patient, nil
}
