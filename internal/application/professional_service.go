package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/catalog"
	"github.com/example/clinic-manager/internal/persistence"
	"github.com/example/clinic-manager/internal/quota"
)

// ProfessionalRepository captures the persistence operations needed by the
// service.
type ProfessionalRepository interface {
	CreateProfessional(ctx context.Context, professional persistence.Professional) error
	UpdateProfessional(ctx context.Context, professional persistence.Professional) error
	GetProfessional(ctx context.Context, tenantID, id string) (persistence.Professional, error)
	ListProfessionals(ctx context.Context, tenantID string) ([]persistence.Professional, error)
	DeleteProfessional(ctx context.Context, tenantID, id string) error
	CountProfessionals(ctx context.Context, tenantID string) (int, error)
}

// ProfessionalService orchestrates validation, quota enforcement and
// persistence for professional records.
type ProfessionalService struct {
	professionals ProfessionalRepository
	plans         *PlanResolver
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewProfessionalService constructs a professional service with the provided
// dependencies.
func NewProfessionalService(professionals ProfessionalRepository, plans *PlanResolver, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProfessionalService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProfessionalService{
		professionals: professionals,
		plans:         plans,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *ProfessionalService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfessionalService", operation, attrs...)
}

// CreateProfessional validates input, checks the tenant's professional quota
// and persists a new record.
func (s *ProfessionalService) CreateProfessional(ctx context.Context, tenantID string, input ProfessionalInput) (professional persistence.Professional, err error) {
	if s == nil {
		err = fmt.Errorf("ProfessionalService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateProfessional", "tenant_id", tenantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create professional", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("professional_id", professional.ID).InfoContext(ctx, "professional created")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(tenantID) == "" {
		vErr.add("tenant_id", "tenant is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var count int
	count, err = s.professionals.CountProfessionals(ctx, tenantID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	plan, ok, planErr := s.plans.ActivePlan(ctx, tenantID, s.now())
	if planErr != nil {
		err = mapRepoError(planErr)
		return
	}

	var decision quota.Decision
	if !ok {
		decision = quota.DenyAll(catalog.ResourceProfessionals, count)
	} else {
		decision = quota.Check(plan, catalog.ResourceProfessionals, count)
	}
	if !decision.Allowed {
		err = &QuotaError{
			Resource:     decision.Resource,
			Limit:        decision.Limit,
			CurrentCount: decision.CurrentCount,
		}
		return
	}

	now := s.now()
	professional = persistence.Professional{
		ID:        s.idGenerator(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(input.Name),
		Specialty: strings.TrimSpace(input.Specialty),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = s.professionals.CreateProfessional(ctx, professional); err != nil {
		err = mapRepoError(err)
		professional = persistence.Professional{}
		return
	}
	return
}

// UpdateProfessional validates input and updates an existing record.
func (s *ProfessionalService) UpdateProfessional(ctx context.Context, tenantID, professionalID string, input ProfessionalInput) (professional persistence.Professional, err error) {
	if s == nil {
		err = fmt.Errorf("ProfessionalService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfessional", "tenant_id", tenantID, "professional_id", professionalID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update professional", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "professional updated")
	}()

	if strings.TrimSpace(input.Name) == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		err = vErr
		return
	}

	var existing persistence.Professional
	existing, err = s.professionals.GetProfessional(ctx, tenantID, professionalID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Specialty = strings.TrimSpace(input.Specialty)
	existing.UpdatedAt = s.now()

	if err = s.professionals.UpdateProfessional(ctx, existing); err != nil {
		err = mapRepoError(err)
		return
	}
	professional = existing
	return
}

// GetProfessional retrieves a single professional record.
func (s *ProfessionalService) GetProfessional(ctx context.Context, tenantID, professionalID string) (persistence.Professional, error) {
	if s == nil {
		return persistence.Professional{}, fmt.Errorf("ProfessionalService is nil")
	}
	professional, err := s.professionals.GetProfessional(ctx, tenantID, professionalID)
	if err != nil {
		return persistence.Professional{}, mapRepoError(err)
	}
	return professional, nil
}

// ListProfessionals lists the tenant's professionals.
func (s *ProfessionalService) ListProfessionals(ctx context.Context, tenantID string) ([]persistence.Professional, error) {
	if s == nil {
		return nil, fmt.Errorf("ProfessionalService is nil")
	}
	professionals, err := s.professionals.ListProfessionals(ctx, tenantID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return professionals, nil
}

// DeleteProfessional removes a professional record. Existing appointment
// instances referencing it stay valid.
func (s *ProfessionalService) DeleteProfessional(ctx context.Context, tenantID, professionalID string) error {
	if s == nil {
		return fmt.Errorf("ProfessionalService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteProfessional", "tenant_id", tenantID, "professional_id", professionalID)
	if err := s.professionals.DeleteProfessional(ctx, tenantID, professionalID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete professional", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "professional deleted")
	return nil
}
