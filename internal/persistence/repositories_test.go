package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
	"github.com/example/clinic-manager/internal/testfixtures"
)

func newPersistencePatient(opts ...testfixtures.PatientOption) persistence.Patient {
	return testfixtures.NewPatientFixture(opts...).Persistence()
}

func newPersistenceProfessional(opts ...testfixtures.ProfessionalOption) persistence.Professional {
	return testfixtures.NewProfessionalFixture(opts...).Persistence()
}

func newPersistenceAppointment(opts ...testfixtures.AppointmentOption) persistence.Appointment {
	return testfixtures.NewAppointmentFixture(opts...).Persistence()
}

func newPersistenceSubscription(opts ...testfixtures.SubscriptionOption) persistence.Subscription {
	return testfixtures.NewSubscriptionFixture(opts...).Persistence()
}

func TestPatientRepositoryTenantIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	defer harness.Close()

	mine := newPersistencePatient(testfixtures.WithPatientTenant("tenant-a"))
	other := newPersistencePatient(testfixtures.WithPatientTenant("tenant-b"))
	for _, p := range []persistence.Patient{mine, other} {
		if err := harness.Patients.CreatePatient(ctx, p); err != nil {
			t.Fatalf("CreatePatient(%s) failed: %v", p.ID, err)
		}
	}

	listed, err := harness.Patients.ListPatients(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != mine.ID {
		t.Fatalf("expected only tenant-a patients, got %#v", listed)
	}

	if _, err := harness.Patients.GetPatient(ctx, "tenant-a", other.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound across tenants, got %v", err)
	}

	count, err := harness.Patients.CountPatients(ctx, "tenant-b")
	if err != nil {
		t.Fatalf("CountPatients failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected tenant-b count 1, got %d", count)
	}
}

func TestProfessionalRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	defer harness.Close()

	professional := newPersistenceProfessional(
		testfixtures.WithProfessionalTenant("tenant-pro"),
		testfixtures.WithProfessionalSpecialty("physiotherapy"),
	)
	if err := harness.Professionals.CreateProfessional(ctx, professional); err != nil {
		t.Fatalf("CreateProfessional failed: %v", err)
	}

	professional.Specialty = "nutrition"
	professional.UpdatedAt = professional.UpdatedAt.Add(time.Hour)
	if err := harness.Professionals.UpdateProfessional(ctx, professional); err != nil {
		t.Fatalf("UpdateProfessional failed: %v", err)
	}

	fetched, err := harness.Professionals.GetProfessional(ctx, "tenant-pro", professional.ID)
	if err != nil {
		t.Fatalf("GetProfessional failed: %v", err)
	}
	if fetched.Specialty != "nutrition" {
		t.Fatalf("expected updated specialty, got %#v", fetched)
	}

	if err := harness.Professionals.DeleteProfessional(ctx, "tenant-pro", professional.ID); err != nil {
		t.Fatalf("DeleteProfessional failed: %v", err)
	}
	if err := harness.Professionals.DeleteProfessional(ctx, "tenant-pro", professional.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}
}

func TestAppointmentRepositoryBatchAccounting(t *testing.T) {
	t.Parallel()

	t.Run("stops inserting once the monthly ceiling is reached", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		defer harness.Close()

		date := testfixtures.ReferenceDate()
		batch := []persistence.Appointment{
			newPersistenceAppointment(
				testfixtures.WithAppointmentTenant("tenant-cap"),
				testfixtures.WithAppointmentDate(date),
				testfixtures.WithAppointmentStart(calendar.TimeOfDay{Hour: 9}),
			),
			newPersistenceAppointment(
				testfixtures.WithAppointmentTenant("tenant-cap"),
				testfixtures.WithAppointmentDate(date.AddDays(7)),
				testfixtures.WithAppointmentStart(calendar.TimeOfDay{Hour: 9}),
			),
		}

		limit := 1
		result, err := harness.Appointments.InsertBatch(ctx, "tenant-cap", batch, &limit)
		if err != nil {
			t.Fatalf("InsertBatch failed: %v", err)
		}
		if len(result.Inserted) != 1 || result.Inserted[0].ID != batch[0].ID {
			t.Fatalf("expected first instance inserted, got %#v", result.Inserted)
		}
		if len(result.Rejected) != 1 || result.Rejected[0].Reason != persistence.RejectQuota {
			t.Fatalf("expected quota rejection, got %#v", result.Rejected)
		}

		count, err := harness.Appointments.CountInMonth(ctx, "tenant-cap", date)
		if err != nil {
			t.Fatalf("CountInMonth failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 stored appointment, got %d", count)
		}
	})

	t.Run("rejects instances colliding with an existing booking", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		defer harness.Close()

		existing := newPersistenceAppointment(testfixtures.WithAppointmentTenant("tenant-busy"))
		if _, err := harness.Appointments.InsertBatch(ctx, "tenant-busy", []persistence.Appointment{existing}, nil); err != nil {
			t.Fatalf("seed InsertBatch failed: %v", err)
		}

		duplicate := newPersistenceAppointment(
			testfixtures.WithAppointmentTenant("tenant-busy"),
			testfixtures.WithAppointmentPatient(existing.PatientID),
			testfixtures.WithAppointmentDate(existing.Date),
			testfixtures.WithAppointmentStart(existing.StartTime),
		)
		result, err := harness.Appointments.InsertBatch(ctx, "tenant-busy", []persistence.Appointment{duplicate}, nil)
		if err != nil {
			t.Fatalf("InsertBatch failed: %v", err)
		}
		if len(result.Inserted) != 0 {
			t.Fatalf("expected no inserts, got %#v", result.Inserted)
		}
		if len(result.Rejected) != 1 || result.Rejected[0].Reason != persistence.RejectConflict {
			t.Fatalf("expected conflict rejection, got %#v", result.Rejected)
		}

		present, err := harness.Appointments.HasAppointmentOn(ctx, "tenant-busy", existing.PatientID, existing.Date)
		if err != nil {
			t.Fatalf("HasAppointmentOn failed: %v", err)
		}
		if !present {
			t.Fatal("expected the seeded booking to remain visible")
		}
	})
}

func TestAttendanceUpsertKeepsOneRecordPerSessionDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	defer harness.Close()

	now := testfixtures.ReferenceTime()
	record := persistence.AttendanceRecord{
		ID:          "attendance-1",
		TenantID:    "tenant-att",
		PatientID:   "patient-att",
		SessionDate: testfixtures.ReferenceDate(),
		Status:      persistence.AttendanceAbsent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := harness.Attendance.UpsertAttendance(ctx, record)
	if err != nil {
		t.Fatalf("UpsertAttendance failed: %v", err)
	}

	payment, err := harness.Payments.CreatePayment(ctx, persistence.Payment{
		ID:          "payment-1",
		TenantID:    "tenant-att",
		PatientID:   "patient-att",
		AmountCents: 15000,
		Method:      "pix",
		Status:      persistence.PaymentPaid,
		PaymentDate: testfixtures.ReferenceDate(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	record.ID = "attendance-resubmitted"
	record.Status = persistence.AttendancePresent
	record.PaymentID = &payment.ID
	record.UpdatedAt = now.Add(time.Hour)
	if _, err := harness.Attendance.UpsertAttendance(ctx, record); err != nil {
		t.Fatalf("UpsertAttendance update failed: %v", err)
	}

	records, err := harness.Attendance.ListAttendanceForPatient(ctx, "tenant-att", "patient-att")
	if err != nil {
		t.Fatalf("ListAttendanceForPatient failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected single record after resubmission, got %#v", records)
	}
	got := records[0]
	if got.ID != stored.ID {
		t.Fatalf("expected the original row updated in place, got %#v", got)
	}
	if got.Status != persistence.AttendancePresent || got.PaymentID == nil || *got.PaymentID != payment.ID {
		t.Fatalf("expected present status linked to %s, got %#v", payment.ID, got)
	}
}

func TestSubscriptionRepositoryUpsertsInPlace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	defer harness.Close()

	initial := newPersistenceSubscription(testfixtures.WithSubscriptionTenant("tenant-sub"))
	if _, err := harness.Subscriptions.PutSubscription(ctx, initial); err != nil {
		t.Fatalf("PutSubscription failed: %v", err)
	}

	upgraded := newPersistenceSubscription(
		testfixtures.WithSubscriptionTenant("tenant-sub"),
		testfixtures.WithSubscriptionTier("master"),
		testfixtures.WithSubscriptionLifetime(),
	)
	stored, err := harness.Subscriptions.PutSubscription(ctx, upgraded)
	if err != nil {
		t.Fatalf("PutSubscription upgrade failed: %v", err)
	}
	if stored.PlanTier != "master" || stored.CurrentPeriodEnd != nil {
		t.Fatalf("expected lifetime master plan, got %#v", stored)
	}

	fetched, err := harness.Subscriptions.GetSubscription(ctx, "tenant-sub")
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if fetched.PlanTier != "master" || fetched.BillingCycle != persistence.BillingLifetime {
		t.Fatalf("expected the single row replaced in place, got %#v", fetched)
	}

	if _, err := harness.Subscriptions.GetSubscription(ctx, "tenant-unknown"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}
}
