// Package testfixtures provides deterministic builders shared by tests across
// the module: a controllable clock, a sequential identifier generator, record
// fixtures and a migrated SQLite harness.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/clinic-manager/internal/application"
	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
)

var (
	patientCounter      uint64
	professionalCounter uint64
	appointmentCounter  uint64
	subscriptionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the civil date of ReferenceTime.
func ReferenceDate() calendar.Date {
	return calendar.DateOf(referenceTime)
}

// ---------------------------- Patient fixtures ----------------------------

// PatientFixture represents a deterministic patient record.
type PatientFixture struct {
	ID        string
	TenantID  string
	Name      string
	Email     string
	Phone     string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PatientOption configures the generated patient fixture.
type PatientOption func(*PatientFixture)

// NewPatientFixture returns a deterministic patient fixture with optional
// overrides.
func NewPatientFixture(opts ...PatientOption) PatientFixture {
	idx := atomic.AddUint64(&patientCounter, 1)
	id := fmt.Sprintf("patient-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := PatientFixture{
		ID:        id,
		TenantID:  "tenant-001",
		Name:      fmt.Sprintf("Patient %03d", idx),
		Email:     fmt.Sprintf("%s@example.com", id),
		Phone:     fmt.Sprintf("+55 11 9%04d-%04d", idx, idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPatientID overrides the generated patient ID.
func WithPatientID(id string) PatientOption {
	return func(f *PatientFixture) {
		f.ID = id
	}
}

// WithPatientTenant sets the owning tenant.
func WithPatientTenant(tenantID string) PatientOption {
	return func(f *PatientFixture) {
		f.TenantID = tenantID
	}
}

// WithPatientName overrides the generated name.
func WithPatientName(name string) PatientOption {
	return func(f *PatientFixture) {
		f.Name = name
	}
}

// WithPatientNotes sets the notes field.
func WithPatientNotes(notes string) PatientOption {
	return func(f *PatientFixture) {
		f.Notes = notes
	}
}

// Persistence returns the fixture as a persistence.Patient value.
func (f PatientFixture) Persistence() persistence.Patient {
	return persistence.Patient{
		ID:        f.ID,
		TenantID:  f.TenantID,
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.PatientInput.
func (f PatientFixture) Input() application.PatientInput {
	return application.PatientInput{
		Name:  f.Name,
		Email: f.Email,
		Phone: f.Phone,
		Notes: f.Notes,
	}
}

// -------------------------- Professional fixtures -------------------------

// ProfessionalFixture represents a deterministic practitioner record.
type ProfessionalFixture struct {
	ID        string
	TenantID  string
	Name      string
	Specialty string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfessionalOption configures the generated professional fixture.
type ProfessionalOption func(*ProfessionalFixture)

// NewProfessionalFixture returns a deterministic professional fixture with
// optional overrides.
func NewProfessionalFixture(opts ...ProfessionalOption) ProfessionalFixture {
	idx := atomic.AddUint64(&professionalCounter, 1)
	id := fmt.Sprintf("professional-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ProfessionalFixture{
		ID:        id,
		TenantID:  "tenant-001",
		Name:      fmt.Sprintf("Dr. %03d", idx),
		Specialty: "psychology",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProfessionalID overrides the generated professional ID.
func WithProfessionalID(id string) ProfessionalOption {
	return func(f *ProfessionalFixture) {
		f.ID = id
	}
}

// WithProfessionalTenant sets the owning tenant.
func WithProfessionalTenant(tenantID string) ProfessionalOption {
	return func(f *ProfessionalFixture) {
		f.TenantID = tenantID
	}
}

// WithProfessionalSpecialty overrides the generated specialty.
func WithProfessionalSpecialty(specialty string) ProfessionalOption {
	return func(f *ProfessionalFixture) {
		f.Specialty = specialty
	}
}

// Persistence returns the fixture as a persistence.Professional value.
func (f ProfessionalFixture) Persistence() persistence.Professional {
	return persistence.Professional{
		ID:        f.ID,
		TenantID:  f.TenantID,
		Name:      f.Name,
		Specialty: f.Specialty,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ProfessionalInput.
func (f ProfessionalFixture) Input() application.ProfessionalInput {
	return application.ProfessionalInput{
		Name:      f.Name,
		Specialty: f.Specialty,
	}
}

// -------------------------- Appointment fixtures --------------------------

// AppointmentFixture represents a deterministic appointment instance.
type AppointmentFixture struct {
	ID              string
	TenantID        string
	PatientID       string
	ProfessionalID  string
	Date            calendar.Date
	StartTime       calendar.TimeOfDay
	DurationMinutes int
	Status          persistence.AppointmentStatus
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns a deterministic appointment fixture with
// optional overrides. Successive fixtures land on successive days at distinct
// start times, so they never collide on the booking keys.
func NewAppointmentFixture(opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	id := fmt.Sprintf("appointment-%03d", idx)
	fixture := AppointmentFixture{
		ID:              id,
		TenantID:        "tenant-001",
		PatientID:       fmt.Sprintf("patient-%03d", idx),
		ProfessionalID:  "professional-001",
		Date:            ReferenceDate().AddDays(int(idx % 28)),
		StartTime:       calendar.TimeOfDay{Hour: 8 + int(idx%10), Minute: 0},
		DurationMinutes: 50,
		Status:          persistence.AppointmentScheduled,
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAppointmentID overrides the generated appointment ID.
func WithAppointmentID(id string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ID = id
	}
}

// WithAppointmentTenant sets the owning tenant.
func WithAppointmentTenant(tenantID string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.TenantID = tenantID
	}
}

// WithAppointmentPatient sets the patient ID.
func WithAppointmentPatient(patientID string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.PatientID = patientID
	}
}

// WithAppointmentProfessional sets the professional ID.
func WithAppointmentProfessional(professionalID string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ProfessionalID = professionalID
	}
}

// WithAppointmentDate sets the session date.
func WithAppointmentDate(date calendar.Date) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Date = date
	}
}

// WithAppointmentStart sets the start time.
func WithAppointmentStart(start calendar.TimeOfDay) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.StartTime = start
	}
}

// WithAppointmentStatus sets the lifecycle status.
func WithAppointmentStatus(status persistence.AppointmentStatus) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.Appointment value.
func (f AppointmentFixture) Persistence() persistence.Appointment {
	return persistence.Appointment{
		ID:              f.ID,
		TenantID:        f.TenantID,
		PatientID:       f.PatientID,
		ProfessionalID:  f.ProfessionalID,
		Date:            f.Date,
		StartTime:       f.StartTime,
		DurationMinutes: f.DurationMinutes,
		Status:          f.Status,
		Notes:           f.Notes,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Input returns the fixture as a single-instance application booking input.
func (f AppointmentFixture) Input() application.AppointmentInput {
	return application.AppointmentInput{
		PatientID:       f.PatientID,
		ProfessionalID:  f.ProfessionalID,
		Date:            f.Date,
		StartTime:       f.StartTime,
		DurationMinutes: f.DurationMinutes,
		Notes:           f.Notes,
	}
}

// -------------------------- Subscription fixtures -------------------------

// SubscriptionFixture represents a deterministic tenant subscription.
type SubscriptionFixture struct {
	ID                 string
	TenantID           string
	PlanTier           string
	Status             persistence.SubscriptionStatus
	BillingCycle       persistence.BillingCycle
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SubscriptionOption configures the generated subscription fixture.
type SubscriptionOption func(*SubscriptionFixture)

// NewSubscriptionFixture returns an active monthly basic subscription whose
// period covers ReferenceTime, with optional overrides.
func NewSubscriptionFixture(opts ...SubscriptionOption) SubscriptionFixture {
	idx := atomic.AddUint64(&subscriptionCounter, 1)
	periodEnd := referenceTime.AddDate(0, 1, 0)
	fixture := SubscriptionFixture{
		ID:                 fmt.Sprintf("subscription-%03d", idx),
		TenantID:           "tenant-001",
		PlanTier:           "basic",
		Status:             persistence.SubscriptionActive,
		BillingCycle:       persistence.BillingMonthly,
		CurrentPeriodStart: referenceTime,
		CurrentPeriodEnd:   &periodEnd,
		CreatedAt:          referenceTime,
		UpdatedAt:          referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSubscriptionTenant sets the owning tenant.
func WithSubscriptionTenant(tenantID string) SubscriptionOption {
	return func(f *SubscriptionFixture) {
		f.TenantID = tenantID
	}
}

// WithSubscriptionTier sets the plan tier.
func WithSubscriptionTier(tier string) SubscriptionOption {
	return func(f *SubscriptionFixture) {
		f.PlanTier = tier
	}
}

// WithSubscriptionStatus sets the subscription status.
func WithSubscriptionStatus(status persistence.SubscriptionStatus) SubscriptionOption {
	return func(f *SubscriptionFixture) {
		f.Status = status
	}
}

// WithSubscriptionLifetime switches to the lifetime billing cycle and clears
// the period end.
func WithSubscriptionLifetime() SubscriptionOption {
	return func(f *SubscriptionFixture) {
		f.BillingCycle = persistence.BillingLifetime
		f.CurrentPeriodEnd = nil
	}
}

// WithSubscriptionPeriodEnd sets the period end timestamp.
func WithSubscriptionPeriodEnd(t time.Time) SubscriptionOption {
	return func(f *SubscriptionFixture) {
		end := t
		f.CurrentPeriodEnd = &end
	}
}

// WithSubscriptionCancelPending marks the subscription as cancelling at
// period end.
func WithSubscriptionCancelPending() SubscriptionOption {
	return func(f *SubscriptionFixture) {
		f.CancelAtPeriodEnd = true
	}
}

// Persistence returns the fixture as a persistence.Subscription value.
func (f SubscriptionFixture) Persistence() persistence.Subscription {
	var end *time.Time
	if f.CurrentPeriodEnd != nil {
		t := *f.CurrentPeriodEnd
		end = &t
	}
	return persistence.Subscription{
		ID:                 f.ID,
		TenantID:           f.TenantID,
		PlanTier:           f.PlanTier,
		Status:             f.Status,
		BillingCycle:       f.BillingCycle,
		CurrentPeriodStart: f.CurrentPeriodStart,
		CurrentPeriodEnd:   end,
		CancelAtPeriodEnd:  f.CancelAtPeriodEnd,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}
