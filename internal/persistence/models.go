package persistence

import (
	"time"

	"github.com/example/clinic-manager/internal/calendar"
)

// Patient represents a clinic client record. All records are scoped to the
// owning tenant.
type Patient struct {
	ID        string
	TenantID  string
	Name      string
	Email     string
	Phone     string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Professional represents a practitioner who delivers sessions.
type Professional struct {
	ID        string
	TenantID  string
	Name      string
	Specialty string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentStatus enumerates the lifecycle states of an appointment
// instance.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether the status is a supported value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled:
		return true
	default:
		return false
	}
}

// Appointment is one materialized calendar instance. Instances produced from
// the same recurrence request share no foreign relationship; each lives and
// dies independently.
type Appointment struct {
	ID              string
	TenantID        string
	PatientID       string
	ProfessionalID  string
	Date            calendar.Date
	StartTime       calendar.TimeOfDay
	DurationMinutes int
	Status          AppointmentStatus
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AttendanceStatus enumerates per-session attendance outcomes.
type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "present"
	AttendanceAbsent    AttendanceStatus = "absent"
	AttendanceLate      AttendanceStatus = "late"
	AttendanceCancelled AttendanceStatus = "cancelled"
)

// Valid reports whether the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceCancelled:
		return true
	default:
		return false
	}
}

// AttendanceRecord tracks one patient's attendance for one session date. At
// most one record exists per (tenant, patient, date); writes upsert on that
// key.
type AttendanceRecord struct {
	ID          string
	TenantID    string
	PatientID   string
	SessionDate calendar.Date
	Status      AttendanceStatus
	Notes       string
	PaymentID   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PaymentStatus enumerates ledger payment states.
type PaymentStatus string

const (
	PaymentPaid      PaymentStatus = "paid"
	PaymentPending   PaymentStatus = "pending"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether the status is a supported value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPending, PaymentCancelled, PaymentOverdue, PaymentRefunded:
		return true
	default:
		return false
	}
}

// Payment is one ledger entry. Amounts are integer cents; Discount never
// exceeds Amount.
type Payment struct {
	ID            string
	TenantID      string
	PatientID     string
	AmountCents   int
	DiscountCents int
	Method        string
	Status        PaymentStatus
	PaymentDate   calendar.Date
	PaidAt        *time.Time
	IsRecurring   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecurringCharge schedules a monthly charge on a fixed day of month. It is
// independent from appointment recurrence: a recurring payment is not tied
// to a recurring appointment series.
type RecurringCharge struct {
	ID          string
	TenantID    string
	PatientID   string
	AmountCents int
	Method      string
	DayOfMonth  int
	Unit        string
	Interval    int
	CreatedAt   time.Time
}

// SubscriptionStatus enumerates tenant subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// BillingCycle enumerates how a plan is billed.
type BillingCycle string

const (
	// BillingMonthly renews every month; the period end advances on renewal.
	BillingMonthly BillingCycle = "monthly"
	// BillingLifetime is a one-time purchase with no period end.
	BillingLifetime BillingCycle = "lifetime"
)

// Subscription is a tenant's current plan state. One row per tenant, updated
// in place on upgrade or downgrade.
type Subscription struct {
	ID                 string
	TenantID           string
	PlanTier           string
	Status             SubscriptionStatus
	BillingCycle       BillingCycle
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
