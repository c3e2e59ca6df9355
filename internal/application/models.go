package application

import (
	"time"

	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
	"github.com/example/clinic-manager/internal/recurrence"
)

// PatientInput carries the caller-editable fields of a patient record.
type PatientInput struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// ProfessionalInput carries the caller-editable fields of a professional
// record.
type ProfessionalInput struct {
	Name      string
	Specialty string
}

// AppointmentInput describes a booking request. A zero Recurrence (or type
// none) books a single instance.
type AppointmentInput struct {
	PatientID       string
	ProfessionalID  string
	Date            calendar.Date
	StartTime       calendar.TimeOfDay
	DurationMinutes int
	Notes           string
	Recurrence      recurrence.Rule
}

// ScheduleResult reports the full outcome of a booking request. Rejected is
// populated instance by instance; a partially satisfied recurrence is a
// normal outcome, not a hidden one.
type ScheduleResult struct {
	Created  []persistence.Appointment
	Rejected []persistence.RejectedAppointment
}

// Period is a list preset resolved against a reference date.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ListAppointmentsParams narrows an appointment listing. Period presets take
// precedence over the explicit range when both are set.
type ListAppointmentsParams struct {
	PatientID      string
	ProfessionalID string
	Period         Period
	Reference      calendar.Date
	From           *calendar.Date
	To             *calendar.Date
}

// PaymentInput is the optional payment sub-record of an attendance entry.
type PaymentInput struct {
	AmountCents   int
	DiscountCents int
	Method        string
	IsRecurring   bool
	// DayOfMonth fixes the charge day for recurring payments; zero means the
	// session date's day-of-month.
	DayOfMonth int
}

// AttendanceInput describes one attendance submission.
type AttendanceInput struct {
	PatientID   string
	SessionDate calendar.Date
	Status      persistence.AttendanceStatus
	Notes       string
	Payment     *PaymentInput
}

// PatientStats aggregates a patient's attendance history.
type PatientStats struct {
	TotalSessions  int
	PresentCount   int
	Absences       int
	PaidCount      int
	AttendanceRate float64
}

// CheckoutCompletion is the event received when a tenant finishes checkout.
// Payment provider internals stay outside; only the outcome crosses in.
type CheckoutCompletion struct {
	TenantID     string
	PlanTier     string
	BillingCycle persistence.BillingCycle
}

// UsageSummary reports a tenant's consumption against its plan ceilings.
type UsageSummary struct {
	PlanTier          string
	SubscriptionState persistence.SubscriptionStatus
	PeriodEnd         *time.Time
	Patients          ResourceUsage
	Professionals     ResourceUsage
	AppointmentsMonth ResourceUsage
}

// ResourceUsage is one row of a usage summary. Limit is nil for unlimited.
type ResourceUsage struct {
	Used  int
	Limit *int
}
