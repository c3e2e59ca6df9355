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

// PatientRepository captures the persistence operations needed by the service.
type PatientRepository interface {
	CreatePatient(ctx context.Context, patient persistence.Patient) error
	UpdatePatient(ctx context.Context, patient persistence.Patient) error
	GetPatient(ctx context.Context, tenantID, id string) (persistence.Patient, error)
	ListPatients(ctx context.Context, tenantID string) ([]persistence.Patient, error)
	DeletePatient(ctx context.Context, tenantID, id string) error
	CountPatients(ctx context.Context, tenantID string) (int, error)
}

// PatientService orchestrates validation, quota enforcement and persistence
// for patient records.
type PatientService struct {
	patients    PatientRepository
	plans       *PlanResolver
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPatientService constructs a patient service with the provided
// dependencies.
func NewPatientService(patients PatientRepository, plans *PlanResolver, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PatientService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PatientService{
		patients:    patients,
		plans:       plans,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PatientService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PatientService", operation, attrs...)
}

// CreatePatient validates input, checks the tenant's patient quota and
// persists a new record.
func (s *PatientService) CreatePatient(ctx context.Context, tenantID string, input PatientInput) (patient persistence.Patient, err error) {
	if s == nil {
		err = fmt.Errorf("PatientService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreatePatient", "tenant_id", tenantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create patient", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("patient_id", patient.ID).InfoContext(ctx, "patient created")
	}()

	vErr := validatePatientInput(tenantID, input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.checkQuota(ctx, tenantID); err != nil {
		return
	}

	now := s.now()
	patient = persistence.Patient{
		ID:        s.idGenerator(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Notes:     strings.TrimSpace(input.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = s.patients.CreatePatient(ctx, patient); err != nil {
		err = mapRepoError(err)
		patient = persistence.Patient{}
		return
	}
	return
}

func (s *PatientService) checkQuota(ctx context.Context, tenantID string) error {
	count, err := s.patients.CountPatients(ctx, tenantID)
	if err != nil {
		return mapRepoError(err)
	}

	plan, ok, err := s.plans.ActivePlan(ctx, tenantID, s.now())
	if err != nil {
		return mapRepoError(err)
	}

	var decision quota.Decision
	if !ok {
		decision = quota.DenyAll(catalog.ResourcePatients, count)
	} else {
		decision = quota.Check(plan, catalog.ResourcePatients, count)
	}
	if !decision.Allowed {
		return &QuotaError{
			Resource:     decision.Resource,
			Limit:        decision.Limit,
			CurrentCount: decision.CurrentCount,
		}
	}
	return nil
}

// UpdatePatient validates input and updates an existing record. Quota is not
// consulted: editing does not create capacity.
func (s *PatientService) UpdatePatient(ctx context.Context, tenantID, patientID string, input PatientInput) (patient persistence.Patient, err error) {
	if s == nil {
		err = fmt.Errorf("PatientService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdatePatient", "tenant_id", tenantID, "patient_id", patientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update patient", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "patient updated")
	}()

	vErr := validatePatientInput(tenantID, input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing persistence.Patient
	existing, err = s.patients.GetPatient(ctx, tenantID, patientID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Email = strings.TrimSpace(input.Email)
	existing.Phone = strings.TrimSpace(input.Phone)
	existing.Notes = strings.TrimSpace(input.Notes)
	existing.UpdatedAt = s.now()

	if err = s.patients.UpdatePatient(ctx, existing); err != nil {
		err = mapRepoError(err)
		return
	}
	patient = existing
	return
}

// GetPatient retrieves a single patient record.
func (s *PatientService) GetPatient(ctx context.Context, tenantID, patientID string) (persistence.Patient, error) {
	if s == nil {
		return persistence.Patient{}, fmt.Errorf("PatientService is nil")
	}
	patient, err := s.patients.GetPatient(ctx, tenantID, patientID)
	if err != nil {
		return persistence.Patient{}, mapRepoError(err)
	}
	return patient, nil
}

// ListPatients lists the tenant's patients.
func (s *PatientService) ListPatients(ctx context.Context, tenantID string) ([]persistence.Patient, error) {
	if s == nil {
		return nil, fmt.Errorf("PatientService is nil")
	}
	patients, err := s.patients.ListPatients(ctx, tenantID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return patients, nil
}

// DeletePatient removes a patient record. Already materialized appointment
// instances for the patient stay valid and must be cancelled individually.
func (s *PatientService) DeletePatient(ctx context.Context, tenantID, patientID string) error {
	if s == nil {
		return fmt.Errorf("PatientService is nil")
	}

	logger := s.loggerWith(ctx, "DeletePatient", "tenant_id", tenantID, "patient_id", patientID)
	if err := s.patients.DeletePatient(ctx, tenantID, patientID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete patient", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "patient deleted")
	return nil
}

func validatePatientInput(tenantID string, input PatientInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(tenantID) == "" {
		vErr.add("tenant_id", "tenant is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if email := strings.TrimSpace(input.Email); email != "" && !strings.Contains(email, "@") {
		vErr.add("email", "email is invalid")
	}
	return vErr
}
