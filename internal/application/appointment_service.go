package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/catalog"
	"github.com/example/clinic-manager/internal/persistence"
	"github.com/example/clinic-manager/internal/quota"
	"github.com/example/clinic-manager/internal/recurrence"
)

// AppointmentStore captures the persistence operations needed by the service.
type AppointmentStore interface {
	InsertBatch(ctx context.Context, tenantID string, appointments []persistence.Appointment, monthlyLimit *int) (persistence.BatchResult, error)
	GetAppointment(ctx context.Context, tenantID, id string) (persistence.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, tenantID, id string, status persistence.AppointmentStatus, updatedAt time.Time) error
	DeleteAppointment(ctx context.Context, tenantID, id string) error
	ListAppointments(ctx context.Context, tenantID string, filter persistence.AppointmentFilter) ([]persistence.Appointment, error)
	CountInMonth(ctx context.Context, tenantID string, ref calendar.Date) (int, error)
}

// AppointmentService books one-off and recurring appointments under the
// tenant's plan ceiling and manages the lifecycle of materialized instances.
type AppointmentService struct {
	appointments AppointmentStore
	engine       *recurrence.Engine
	plans        *PlanResolver
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAppointmentService constructs an appointment service with the provided
// dependencies.
func NewAppointmentService(appointments AppointmentStore, plans *PlanResolver, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AppointmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		appointments: appointments,
		engine:       recurrence.NewEngine(),
		plans:        plans,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AppointmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AppointmentService", operation, attrs...)
}

// CreateAppointment books the instances described by the input. A recurrence
// rule is expanded first; every resulting instance is then checked against
// the tenant's monthly ceiling and persisted inside one store transaction, so
// a concurrent request cannot jointly exceed the limit.
//
// The outcome always accounts for every requested instance. On a partial
// outcome the error is a *PartialBatchError carrying both lists; when the
// quota rejects the whole request the error is a *QuotaError.
func (s *AppointmentService) CreateAppointment(ctx context.Context, tenantID string, input AppointmentInput) (result ScheduleResult, err error) {
	if s == nil {
		err = fmt.Errorf("AppointmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateAppointment",
		"tenant_id", tenantID,
		"patient_id", input.PatientID,
		"recurrence", string(input.Recurrence.Type),
	)
	defer func() {
		if err != nil && ErrorKind(err) != "partial_batch" {
			logger.ErrorContext(ctx, "failed to create appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("created", len(result.Created), "rejected", len(result.Rejected)).
			InfoContext(ctx, "appointments booked")
	}()

	vErr := validateAppointmentInput(tenantID, input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	instances, expandErr := s.engine.Expand(recurrence.Template{
		PatientID:       input.PatientID,
		ProfessionalID:  input.ProfessionalID,
		Date:            input.Date,
		Time:            input.StartTime,
		DurationMinutes: input.DurationMinutes,
		Notes:           strings.TrimSpace(input.Notes),
	}, input.Recurrence)
	if expandErr != nil {
		err = mapRecurrenceError(expandErr)
		return
	}

	plan, active, planErr := s.plans.ActivePlan(ctx, tenantID, s.now())
	if planErr != nil {
		err = mapRepoError(planErr)
		return
	}
	if !active {
		var count int
		count, err = s.appointments.CountInMonth(ctx, tenantID, input.Date)
		if err != nil {
			err = mapRepoError(err)
			return
		}
		decision := quota.DenyAll(catalog.ResourceAppointmentsPerMonth, count)
		err = &QuotaError{
			Resource:     decision.Resource,
			Limit:        decision.Limit,
			CurrentCount: decision.CurrentCount,
		}
		return
	}

	limit := plan.LimitFor(catalog.ResourceAppointmentsPerMonth)

	now := s.now()
	batch := make([]persistence.Appointment, 0, len(instances))
	for _, instance := range instances {
		batch = append(batch, persistence.Appointment{
			ID:              s.idGenerator(),
			TenantID:        tenantID,
			PatientID:       instance.PatientID,
			ProfessionalID:  instance.ProfessionalID,
			Date:            instance.Date,
			StartTime:       instance.Time,
			DurationMinutes: instance.DurationMinutes,
			Status:          persistence.AppointmentScheduled,
			Notes:           instance.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	batchResult, err := s.appointments.InsertBatch(ctx, tenantID, batch, limit.Ptr())
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result = ScheduleResult{Created: batchResult.Inserted, Rejected: batchResult.Rejected}
	if len(result.Rejected) == 0 {
		return
	}

	if len(result.Created) == 0 && allQuotaRejections(result.Rejected) {
		err = &QuotaError{
			Resource:     catalog.ResourceAppointmentsPerMonth,
			Limit:        limit,
			CurrentCount: limit.Value(),
		}
		return
	}

	err = &PartialBatchError{Created: result.Created, Rejected: result.Rejected}
	return
}

// UpdateAppointmentStatus transitions one instance; siblings from the same
// recurrence request are untouched.
func (s *AppointmentService) UpdateAppointmentStatus(ctx context.Context, tenantID, appointmentID string, status persistence.AppointmentStatus) error {
	if s == nil {
		return fmt.Errorf("AppointmentService is nil")
	}

	logger := s.loggerWith(ctx, "UpdateAppointmentStatus",
		"tenant_id", tenantID,
		"appointment_id", appointmentID,
		"status", string(status),
	)

	if !status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be scheduled, completed or cancelled")
		logger.ErrorContext(ctx, "failed to update appointment", "error", vErr, "error_kind", ErrorKind(vErr))
		return vErr
	}

	if err := s.appointments.UpdateAppointmentStatus(ctx, tenantID, appointmentID, status, s.now()); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to update appointment", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "appointment status updated")
	return nil
}

// GetAppointment retrieves a single instance.
func (s *AppointmentService) GetAppointment(ctx context.Context, tenantID, appointmentID string) (persistence.Appointment, error) {
	if s == nil {
		return persistence.Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	appointment, err := s.appointments.GetAppointment(ctx, tenantID, appointmentID)
	if err != nil {
		return persistence.Appointment{}, mapRepoError(err)
	}
	return appointment, nil
}

// DeleteAppointment removes one instance without touching its siblings.
func (s *AppointmentService) DeleteAppointment(ctx context.Context, tenantID, appointmentID string) error {
	if s == nil {
		return fmt.Errorf("AppointmentService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteAppointment", "tenant_id", tenantID, "appointment_id", appointmentID)
	if err := s.appointments.DeleteAppointment(ctx, tenantID, appointmentID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete appointment", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "appointment deleted")
	return nil
}

// ListAppointments lists instances matching the params. A period preset (day,
// week, month) resolves the range from the reference date.
func (s *AppointmentService) ListAppointments(ctx context.Context, tenantID string, params ListAppointmentsParams) ([]persistence.Appointment, error) {
	if s == nil {
		return nil, fmt.Errorf("AppointmentService is nil")
	}

	filter := persistence.AppointmentFilter{
		PatientID:      params.PatientID,
		ProfessionalID: params.ProfessionalID,
		From:           params.From,
		To:             params.To,
	}

	if params.Period != "" {
		ref := params.Reference
		if ref.IsZero() {
			ref = calendar.DateOf(s.now())
		}
		from, to, err := periodRange(params.Period, ref)
		if err != nil {
			return nil, err
		}
		filter.From = &from
		filter.To = &to
	}

	appointments, err := s.appointments.ListAppointments(ctx, tenantID, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return appointments, nil
}

func periodRange(period Period, ref calendar.Date) (from, to calendar.Date, err error) {
	switch period {
	case PeriodDay:
		return ref, ref, nil
	case PeriodWeek:
		first, next := calendar.WeekBounds(ref)
		return first, next.AddDays(-1), nil
	case PeriodMonth:
		first, next := calendar.MonthBounds(ref)
		return first, next.AddDays(-1), nil
	default:
		vErr := &ValidationError{}
		vErr.add("period", "period must be day, week or month")
		return calendar.Date{}, calendar.Date{}, vErr
	}
}

func validateAppointmentInput(tenantID string, input AppointmentInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(tenantID) == "" {
		vErr.add("tenant_id", "tenant is required")
	}
	if strings.TrimSpace(input.PatientID) == "" {
		vErr.add("patient_id", "patient is required")
	}
	if strings.TrimSpace(input.ProfessionalID) == "" {
		vErr.add("professional_id", "professional is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if input.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	return vErr
}

func mapRecurrenceError(err error) error {
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrEmptyWeekdays):
		vErr.add("recurrence.weekdays", "weekly recurrence requires at least one weekday")
	case errors.Is(err, recurrence.ErrInvalidCount):
		vErr.add("recurrence.count", "occurrence count must be positive")
	case errors.Is(err, recurrence.ErrInvalidRuleType):
		vErr.add("recurrence.type", "recurrence type must be none, daily, weekly or monthly")
	case errors.Is(err, recurrence.ErrMissingDate):
		vErr.add("date", "date is required")
	default:
		return err
	}
	return vErr
}

func allQuotaRejections(rejected []persistence.RejectedAppointment) bool {
	for _, r := range rejected {
		if r.Reason != persistence.RejectQuota {
			return false
		}
	}
	return true
}
