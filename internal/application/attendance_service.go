package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
)

// AttendanceStore captures the attendance ledger operations needed by the
// service.
type AttendanceStore interface {
	UpsertAttendance(ctx context.Context, record persistence.AttendanceRecord) (persistence.AttendanceRecord, error)
	GetAttendance(ctx context.Context, tenantID, patientID string, date calendar.Date) (persistence.AttendanceRecord, error)
	ListAttendanceForPatient(ctx context.Context, tenantID, patientID string) ([]persistence.AttendanceRecord, error)
}

// PaymentLedger is the slice of the payment oracle the service drives.
type PaymentLedger interface {
	CreatePayment(ctx context.Context, payment persistence.Payment) (persistence.Payment, error)
	GetPayment(ctx context.Context, tenantID, id string) (persistence.Payment, error)
	ScheduleRecurring(ctx context.Context, charge persistence.RecurringCharge) (persistence.RecurringCharge, error)
}

// ScheduleChecker answers whether a patient has a booked session on a date.
type ScheduleChecker interface {
	HasAppointmentOn(ctx context.Context, tenantID, patientID string, date calendar.Date) (bool, error)
}

// AttendanceService maintains the per-session attendance ledger and its
// optional payment linkage.
type AttendanceService struct {
	attendance  AttendanceStore
	payments    PaymentLedger
	schedule    ScheduleChecker
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttendanceService constructs an attendance service with the provided
// dependencies.
func NewAttendanceService(attendance AttendanceStore, payments PaymentLedger, schedule ScheduleChecker, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		attendance:  attendance,
		payments:    payments,
		schedule:    schedule,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// RecordAttendance inserts or edits the single record for (patient, session
// date). A fresh record requires a booked appointment on that date; an edit
// of an existing record does not re-check the schedule.
//
// A payment is created and linked only when the status is present and the
// amount is positive. Editing to a non-present status leaves a previously
// linked payment untouched.
func (s *AttendanceService) RecordAttendance(ctx context.Context, tenantID string, input AttendanceInput) (record persistence.AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RecordAttendance",
		"tenant_id", tenantID,
		"patient_id", input.PatientID,
		"session_date", input.SessionDate.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", record.ID, "status", string(record.Status)).
			InfoContext(ctx, "attendance recorded")
	}()

	status := input.Status
	if status == "" {
		status = persistence.AttendancePresent
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(tenantID) == "" {
		vErr.add("tenant_id", "tenant is required")
	}
	if strings.TrimSpace(input.PatientID) == "" {
		vErr.add("patient_id", "patient is required")
	}
	if input.SessionDate.IsZero() {
		vErr.add("session_date", "session date is required")
	}
	if !status.Valid() {
		vErr.add("status", "status must be present, absent, late or cancelled")
	}
	if input.Payment != nil && input.Payment.DiscountCents < 0 {
		vErr.add("payment.discount_cents", "discount must not be negative")
	}
	if input.Payment != nil && (input.Payment.DayOfMonth < 0 || input.Payment.DayOfMonth > 31) {
		vErr.add("payment.day_of_month", "day of month must be between 1 and 31")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if input.Payment != nil && input.Payment.DiscountCents > input.Payment.AmountCents {
		err = fmt.Errorf("%w: discount %d exceeds amount %d",
			ErrInvariantViolation, input.Payment.DiscountCents, input.Payment.AmountCents)
		return
	}

	_, getErr := s.attendance.GetAttendance(ctx, tenantID, input.PatientID, input.SessionDate)
	isFresh := false
	if getErr != nil {
		if !errors.Is(getErr, persistence.ErrNotFound) {
			err = mapRepoError(getErr)
			return
		}
		isFresh = true
	}
	if isFresh {
		var scheduled bool
		scheduled, err = s.schedule.HasAppointmentOn(ctx, tenantID, input.PatientID, input.SessionDate)
		if err != nil {
			err = mapRepoError(err)
			return
		}
		if !scheduled {
			err = ErrInvalidDate
			return
		}
	}

	var paymentID *string
	if status == persistence.AttendancePresent && input.Payment != nil && input.Payment.AmountCents > 0 {
		var payment persistence.Payment
		payment, err = s.createPayment(ctx, tenantID, input)
		if err != nil {
			return
		}
		paymentID = &payment.ID
	}

	now := s.now()
	record, err = s.attendance.UpsertAttendance(ctx, persistence.AttendanceRecord{
		ID:          s.idGenerator(),
		TenantID:    tenantID,
		PatientID:   input.PatientID,
		SessionDate: input.SessionDate,
		Status:      status,
		Notes:       strings.TrimSpace(input.Notes),
		PaymentID:   paymentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		err = mapRepoError(err)
		record = persistence.AttendanceRecord{}
		return
	}
	return
}

func (s *AttendanceService) createPayment(ctx context.Context, tenantID string, input AttendanceInput) (persistence.Payment, error) {
	now := s.now()
	payment, err := s.payments.CreatePayment(ctx, persistence.Payment{
		ID:            s.idGenerator(),
		TenantID:      tenantID,
		PatientID:     input.PatientID,
		AmountCents:   input.Payment.AmountCents,
		DiscountCents: input.Payment.DiscountCents,
		Method:        strings.TrimSpace(input.Payment.Method),
		Status:        persistence.PaymentPaid,
		PaymentDate:   input.SessionDate,
		PaidAt:        &now,
		IsRecurring:   input.Payment.IsRecurring,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return persistence.Payment{}, mapRepoError(err)
	}

	if input.Payment.IsRecurring {
		dayOfMonth := input.Payment.DayOfMonth
		if dayOfMonth == 0 {
			dayOfMonth = input.SessionDate.Day
		}
		_, err = s.payments.ScheduleRecurring(ctx, persistence.RecurringCharge{
			ID:          s.idGenerator(),
			TenantID:    tenantID,
			PatientID:   input.PatientID,
			AmountCents: input.Payment.AmountCents,
			Method:      strings.TrimSpace(input.Payment.Method),
			DayOfMonth:  dayOfMonth,
			Unit:        "month",
			Interval:    1,
			CreatedAt:   now,
		})
		if err != nil {
			return persistence.Payment{}, mapRepoError(err)
		}
	}
	return payment, nil
}

// GetAttendance retrieves the record for one patient and session date.
func (s *AttendanceService) GetAttendance(ctx context.Context, tenantID, patientID string, date calendar.Date) (persistence.AttendanceRecord, error) {
	if s == nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("AttendanceService is nil")
	}
	record, err := s.attendance.GetAttendance(ctx, tenantID, patientID, date)
	if err != nil {
		return persistence.AttendanceRecord{}, mapRepoError(err)
	}
	return record, nil
}

// ListAttendance returns a patient's attendance history, newest first.
func (s *AttendanceService) ListAttendance(ctx context.Context, tenantID, patientID string) ([]persistence.AttendanceRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendanceService is nil")
	}
	records, err := s.attendance.ListAttendanceForPatient(ctx, tenantID, patientID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return records, nil
}

// PatientStats aggregates a patient's ledger: attendance rate over all
// recorded sessions, paid session count, and absences (absent plus
// cancelled).
func (s *AttendanceService) PatientStats(ctx context.Context, tenantID, patientID string) (PatientStats, error) {
	if s == nil {
		return PatientStats{}, fmt.Errorf("AttendanceService is nil")
	}

	records, err := s.attendance.ListAttendanceForPatient(ctx, tenantID, patientID)
	if err != nil {
		return PatientStats{}, mapRepoError(err)
	}

	stats := PatientStats{TotalSessions: len(records)}
	for _, record := range records {
		switch record.Status {
		case persistence.AttendancePresent:
			stats.PresentCount++
		case persistence.AttendanceAbsent, persistence.AttendanceCancelled:
			stats.Absences++
		}
		if record.PaymentID == nil {
			continue
		}
		payment, payErr := s.payments.GetPayment(ctx, tenantID, *record.PaymentID)
		if payErr != nil {
			if errors.Is(payErr, persistence.ErrNotFound) {
				continue
			}
			return PatientStats{}, mapRepoError(payErr)
		}
		if payment.Status == persistence.PaymentPaid {
			stats.PaidCount++
		}
	}
	if stats.TotalSessions > 0 {
		stats.AttendanceRate = float64(stats.PresentCount) / float64(stats.TotalSessions) * 100
	}
	return stats, nil
}
