package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/clinic-manager/internal/persistence"
)

// ProfessionalRepository implements persistence.ProfessionalRepository using
// SQLite.
type ProfessionalRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewProfessionalRepository creates a new SQLite professional repository.
func NewProfessionalRepository(pool *ConnectionPool) *ProfessionalRepository {
	return &ProfessionalRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateProfessional inserts a new professional record.
func (r *ProfessionalRepository) CreateProfessional(ctx context.Context, professional persistence.Professional) error {
	if professional.ID == "" || professional.TenantID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO professionals (id, tenant_id, name, specialty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		professional.ID,
		professional.TenantID,
		professional.Name,
		professional.Specialty,
		encodeTimestamp(professional.CreatedAt),
		encodeTimestamp(professional.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateProfessional updates an existing professional record in place.
func (r *ProfessionalRepository) UpdateProfessional(ctx context.Context, professional persistence.Professional) error {
	if professional.ID == "" || professional.TenantID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE professionals
		SET name = ?, specialty = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		professional.Name,
		professional.Specialty,
		encodeTimestamp(professional.UpdatedAt),
		professional.TenantID,
		professional.ID,
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

// GetProfessional retrieves a professional by ID within the tenant's scope.
func (r *ProfessionalRepository) GetProfessional(ctx context.Context, tenantID, id string) (persistence.Professional, error) {
	if tenantID == "" || id == "" {
		return persistence.Professional{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, tenant_id, name, specialty, created_at, updated_at
		FROM professionals
		WHERE tenant_id = ? AND id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, tenantID, id)
	professional, err := scanProfessional(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Professional{}, persistence.ErrNotFound
		}
		return persistence.Professional{}, r.mapper.MapError(err)
	}
	return professional, nil
}

// ListProfessionals lists all of a tenant's professionals ordered by name.
func (r *ProfessionalRepository) ListProfessionals(ctx context.Context, tenantID string) ([]persistence.Professional, error) {
	query := `
		SELECT id, tenant_id, name, specialty, created_at, updated_at
		FROM professionals
		WHERE tenant_id = ?
		ORDER BY name ASC, id ASC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var professionals []persistence.Professional
	for rows.Next() {
		professional, err := scanProfessional(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		professionals = append(professionals, professional)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return professionals, nil
}

// DeleteProfessional removes a professional record.
func (r *ProfessionalRepository) DeleteProfessional(ctx context.Context, tenantID, id string) error {
	if tenantID == "" || id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM professionals WHERE tenant_id = ? AND id = ?", tenantID, id)
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

// CountProfessionals counts the tenant's professional records.
func (r *ProfessionalRepository) CountProfessionals(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM professionals WHERE tenant_id = ?", tenantID).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

func scanProfessional(scan func(dest ...any) error) (persistence.Professional, error) {
	var professional persistence.Professional
	var createdAtStr, updatedAtStr string

	err := scan(
		&professional.ID,
		&professional.TenantID,
		&professional.Name,
		&professional.Specialty,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Professional{}, err
	}

	if professional.CreatedAt, err = decodeTimestamp(createdAtStr); err != nil {
		return persistence.Professional{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if professional.UpdatedAt, err = decodeTimestamp(updatedAtStr); err != nil {
		return persistence.Professional{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return professional, nil
}
