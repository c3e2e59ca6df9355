package persistence

import (
	"context"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
)

// PatientRepository exposes CRUD operations for patient records.
type PatientRepository interface {
	CreatePatient(ctx context.Context, patient Patient) error
	UpdatePatient(ctx context.Context, patient Patient) error
	GetPatient(ctx context.Context, tenantID, id string) (Patient, error)
	ListPatients(ctx context.Context, tenantID string) ([]Patient, error)
	DeletePatient(ctx context.Context, tenantID, id string) error
	CountPatients(ctx context.Context, tenantID string) (int, error)
}

// ProfessionalRepository exposes CRUD operations for professional records.
type ProfessionalRepository interface {
	CreateProfessional(ctx context.Context, professional Professional) error
	UpdateProfessional(ctx context.Context, professional Professional) error
	GetProfessional(ctx context.Context, tenantID, id string) (Professional, error)
	ListProfessionals(ctx context.Context, tenantID string) ([]Professional, error)
	DeleteProfessional(ctx context.Context, tenantID, id string) error
	CountProfessionals(ctx context.Context, tenantID string) (int, error)
}

// AppointmentFilter narrows appointment queries.
type AppointmentFilter struct {
	PatientID      string
	ProfessionalID string
	From           *calendar.Date
	To             *calendar.Date
}

// RejectReason labels why a batch instance was not persisted.
type RejectReason string

const (
	// RejectQuota indicates the tenant's monthly appointment ceiling was
	// reached before this instance.
	RejectQuota RejectReason = "quota_exceeded"
	// RejectConflict indicates the patient or professional already has an
	// appointment at the same date and start time.
	RejectConflict RejectReason = "conflict"
)

// RejectedAppointment pairs a failed instance with the reason it failed.
type RejectedAppointment struct {
	Appointment Appointment
	Reason      RejectReason
}

// BatchResult reports the exact outcome of a bulk insert: which instances
// were persisted and which were rejected. Neither list is ever silently
// truncated.
type BatchResult struct {
	Inserted []Appointment
	Rejected []RejectedAppointment
}

// AppointmentRepository stores materialized appointment instances.
type AppointmentRepository interface {
	// InsertBatch persists the instances in order inside one transaction.
	// For each instance it re-counts the tenant's appointments in that
	// instance's calendar month, including ones inserted earlier in the
	// same batch, and rejects the instance with RejectQuota once the count
	// reaches monthlyLimit (nil meaning unlimited). Instances colliding
	// with an existing booking are rejected with RejectConflict. The
	// count-then-insert runs under the same transaction so concurrent
	// requests cannot jointly exceed the ceiling.
	InsertBatch(ctx context.Context, tenantID string, appointments []Appointment, monthlyLimit *int) (BatchResult, error)
	GetAppointment(ctx context.Context, tenantID, id string) (Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, tenantID, id string, status AppointmentStatus, updatedAt time.Time) error
	DeleteAppointment(ctx context.Context, tenantID, id string) error
	ListAppointments(ctx context.Context, tenantID string, filter AppointmentFilter) ([]Appointment, error)
	// CountInMonth counts the tenant's appointments dated within the
	// calendar month containing ref.
	CountInMonth(ctx context.Context, tenantID string, ref calendar.Date) (int, error)
	// HasAppointmentOn reports whether the patient has any instance on the
	// given date, regardless of status.
	HasAppointmentOn(ctx context.Context, tenantID, patientID string, date calendar.Date) (bool, error)
}

// AttendanceRepository stores the attendance ledger.
type AttendanceRepository interface {
	// UpsertAttendance inserts or updates the single record keyed by
	// (tenant, patient, session date). The write is atomic at the store
	// level so concurrent double-submission cannot produce duplicates.
	UpsertAttendance(ctx context.Context, record AttendanceRecord) (AttendanceRecord, error)
	GetAttendance(ctx context.Context, tenantID, patientID string, date calendar.Date) (AttendanceRecord, error)
	ListAttendanceForPatient(ctx context.Context, tenantID, patientID string) ([]AttendanceRecord, error)
}

// PaymentLedger is the external payment oracle: the engine creates and links
// payment records through it but does not own their lifecycle.
type PaymentLedger interface {
	CreatePayment(ctx context.Context, payment Payment) (Payment, error)
	MarkPaid(ctx context.Context, tenantID, id string, paidAt time.Time) error
	GetPayment(ctx context.Context, tenantID, id string) (Payment, error)
	ListPaymentsForPatient(ctx context.Context, tenantID, patientID string) ([]Payment, error)
	// ScheduleRecurring registers a monthly charge on a fixed day of month,
	// independent of any appointment series.
	ScheduleRecurring(ctx context.Context, charge RecurringCharge) (RecurringCharge, error)
}

// SubscriptionRepository stores tenant subscription state, one row per
// tenant.
type SubscriptionRepository interface {
	GetSubscription(ctx context.Context, tenantID string) (Subscription, error)
	// PutSubscription inserts the tenant's subscription or updates it in
	// place; a second row for the same tenant is a constraint violation.
	PutSubscription(ctx context.Context, subscription Subscription) (Subscription, error)
}
