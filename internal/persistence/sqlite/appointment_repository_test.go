package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/clinic-manager/internal/persistence"
)

func testAppointment(t *testing.T, id, date, start string) persistence.Appointment {
	t.Helper()
	now := testTime(t)
	return persistence.Appointment{
		ID:              id,
		TenantID:        "tenant1",
		PatientID:       "patient1",
		ProfessionalID:  "prof1",
		Date:            mustDate(t, date),
		StartTime:       mustTimeOfDay(t, start),
		DurationMinutes: 50,
		Status:          persistence.AppointmentScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestAppointmentRepository_InsertBatch_Unlimited(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	batch := []persistence.Appointment{
		testAppointment(t, "appt1", "2026-08-03", "10:00"),
		testAppointment(t, "appt2", "2026-08-10", "10:00"),
		testAppointment(t, "appt3", "2026-08-17", "10:00"),
	}

	result, err := repo.InsertBatch(ctx, "tenant1", batch, nil)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if len(result.Inserted) != 3 {
		t.Errorf("Expected 3 inserted, got %d", len(result.Inserted))
	}
	if len(result.Rejected) != 0 {
		t.Errorf("Expected 0 rejected, got %d", len(result.Rejected))
	}

	count, err := repo.CountInMonth(ctx, "tenant1", mustDate(t, "2026-08-15"))
	if err != nil {
		t.Fatalf("CountInMonth failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected month count 3, got %d", count)
	}
}

func TestAppointmentRepository_InsertBatch_QuotaCountsEarlierInserts(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	// Pre-fill the month to 3 of 5.
	var prefill []persistence.Appointment
	for i := 0; i < 3; i++ {
		prefill = append(prefill, testAppointment(t,
			fmt.Sprintf("seed%d", i), fmt.Sprintf("2026-08-0%d", i+1), "08:00"))
	}
	if _, err := repo.InsertBatch(ctx, "tenant1", prefill, nil); err != nil {
		t.Fatalf("Prefill failed: %v", err)
	}

	// A batch of 5 against a limit of 5: only 2 slots remain, and the 2
	// accepted instances must count against the ones after them.
	var batch []persistence.Appointment
	for i := 0; i < 5; i++ {
		batch = append(batch, testAppointment(t,
			fmt.Sprintf("appt%d", i), fmt.Sprintf("2026-08-1%d", i), "10:00"))
	}

	limit := 5
	result, err := repo.InsertBatch(ctx, "tenant1", batch, &limit)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if len(result.Inserted) != 2 {
		t.Fatalf("Expected 2 inserted, got %d", len(result.Inserted))
	}
	if len(result.Rejected) != 3 {
		t.Fatalf("Expected 3 rejected, got %d", len(result.Rejected))
	}
	if result.Inserted[0].ID != "appt0" || result.Inserted[1].ID != "appt1" {
		t.Errorf("Expected the first two instances to be inserted, got %s and %s",
			result.Inserted[0].ID, result.Inserted[1].ID)
	}
	for _, rejected := range result.Rejected {
		if rejected.Reason != persistence.RejectQuota {
			t.Errorf("Expected reason %s, got %s", persistence.RejectQuota, rejected.Reason)
		}
	}

	count, err := repo.CountInMonth(ctx, "tenant1", mustDate(t, "2026-08-01"))
	if err != nil {
		t.Fatalf("CountInMonth failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected month count at the ceiling of 5, got %d", count)
	}
}

func TestAppointmentRepository_InsertBatch_QuotaPerMonth(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	// Two instances in August, two in September, limit 2 per month: all four
	// fit because the count is scoped to each instance's own month.
	batch := []persistence.Appointment{
		testAppointment(t, "aug1", "2026-08-24", "10:00"),
		testAppointment(t, "aug2", "2026-08-31", "10:00"),
		testAppointment(t, "sep1", "2026-09-07", "10:00"),
		testAppointment(t, "sep2", "2026-09-14", "10:00"),
	}

	limit := 2
	result, err := repo.InsertBatch(ctx, "tenant1", batch, &limit)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if len(result.Inserted) != 4 {
		t.Errorf("Expected 4 inserted across two months, got %d", len(result.Inserted))
	}
	if len(result.Rejected) != 0 {
		t.Errorf("Expected 0 rejected, got %d", len(result.Rejected))
	}
}

func TestAppointmentRepository_InsertBatch_ConflictRejected(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	first := testAppointment(t, "appt1", "2026-08-03", "10:00")
	if _, err := repo.InsertBatch(ctx, "tenant1", []persistence.Appointment{first}, nil); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	// Same professional, same date and start time.
	clash := testAppointment(t, "appt2", "2026-08-03", "10:00")
	clash.PatientID = "patient2"
	ok := testAppointment(t, "appt3", "2026-08-03", "11:00")
	ok.PatientID = "patient2"

	result, err := repo.InsertBatch(ctx, "tenant1", []persistence.Appointment{clash, ok}, nil)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if len(result.Inserted) != 1 || result.Inserted[0].ID != "appt3" {
		t.Fatalf("Expected only appt3 inserted, got %+v", result.Inserted)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("Expected 1 rejected, got %d", len(result.Rejected))
	}
	if result.Rejected[0].Reason != persistence.RejectConflict {
		t.Errorf("Expected reason %s, got %s", persistence.RejectConflict, result.Rejected[0].Reason)
	}
	if result.Rejected[0].Appointment.ID != "appt2" {
		t.Errorf("Expected appt2 rejected, got %s", result.Rejected[0].Appointment.ID)
	}
}

func TestAppointmentRepository_InsertBatch_TenantIsolation(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	other := testAppointment(t, "other1", "2026-08-03", "10:00")
	other.TenantID = "tenant2"
	if _, err := repo.InsertBatch(ctx, "tenant2", []persistence.Appointment{other}, nil); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	// tenant1's quota ignores tenant2's bookings, and the identical slot does
	// not conflict across tenants.
	mine := testAppointment(t, "mine1", "2026-08-03", "10:00")
	limit := 1
	result, err := repo.InsertBatch(ctx, "tenant1", []persistence.Appointment{mine}, &limit)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if len(result.Inserted) != 1 {
		t.Fatalf("Expected 1 inserted, got %d rejected=%d", len(result.Inserted), len(result.Rejected))
	}
}

func TestAppointmentRepository_CountInMonth_Bounds(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	batch := []persistence.Appointment{
		testAppointment(t, "jul", "2026-07-31", "10:00"),
		testAppointment(t, "aug1", "2026-08-01", "10:00"),
		testAppointment(t, "aug2", "2026-08-31", "10:00"),
		testAppointment(t, "sep", "2026-09-01", "10:00"),
	}
	if _, err := repo.InsertBatch(ctx, "tenant1", batch, nil); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	count, err := repo.CountInMonth(ctx, "tenant1", mustDate(t, "2026-08-15"))
	if err != nil {
		t.Fatalf("CountInMonth failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 appointments in August, got %d", count)
	}
}

func TestAppointmentRepository_UpdateStatusAndDelete(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	appt := testAppointment(t, "appt1", "2026-08-03", "10:00")
	if _, err := repo.InsertBatch(ctx, "tenant1", []persistence.Appointment{appt}, nil); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	updatedAt := testTime(t).Add(time.Hour)
	if err := repo.UpdateAppointmentStatus(ctx, "tenant1", "appt1", persistence.AppointmentCompleted, updatedAt); err != nil {
		t.Fatalf("UpdateAppointmentStatus failed: %v", err)
	}

	got, err := repo.GetAppointment(ctx, "tenant1", "appt1")
	if err != nil {
		t.Fatalf("GetAppointment failed: %v", err)
	}
	if got.Status != persistence.AppointmentCompleted {
		t.Errorf("Expected status completed, got %s", got.Status)
	}
	if !got.UpdatedAt.Equal(updatedAt) {
		t.Errorf("Expected updated_at %v, got %v", updatedAt, got.UpdatedAt)
	}

	if err := repo.DeleteAppointment(ctx, "tenant1", "appt1"); err != nil {
		t.Fatalf("DeleteAppointment failed: %v", err)
	}
	if _, err := repo.GetAppointment(ctx, "tenant1", "appt1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteAppointment(ctx, "tenant1", "appt1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAppointmentRepository_ListAppointments_Filter(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	a := testAppointment(t, "appt1", "2026-08-03", "10:00")
	b := testAppointment(t, "appt2", "2026-08-10", "10:00")
	b.PatientID = "patient2"
	c := testAppointment(t, "appt3", "2026-09-07", "10:00")
	if _, err := repo.InsertBatch(ctx, "tenant1", []persistence.Appointment{a, b, c}, nil); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	from := mustDate(t, "2026-08-01")
	to := mustDate(t, "2026-08-31")
	got, err := repo.ListAppointments(ctx, "tenant1", persistence.AppointmentFilter{
		PatientID: "patient1",
		From:      &from,
		To:        &to,
	})
	if err != nil {
		t.Fatalf("ListAppointments failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "appt1" {
		t.Fatalf("Expected only appt1, got %+v", got)
	}
}

func TestAppointmentRepository_HasAppointmentOn(t *testing.T) {
	pool := openTestStore(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	appt := testAppointment(t, "appt1", "2026-08-03", "10:00")
	if _, err := repo.InsertBatch(ctx, "tenant1", []persistence.Appointment{appt}, nil); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	has, err := repo.HasAppointmentOn(ctx, "tenant1", "patient1", mustDate(t, "2026-08-03"))
	if err != nil {
		t.Fatalf("HasAppointmentOn failed: %v", err)
	}
	if !has {
		t.Error("Expected an appointment on 2026-08-03")
	}

	has, err = repo.HasAppointmentOn(ctx, "tenant1", "patient1", mustDate(t, "2026-08-04"))
	if err != nil {
		t.Fatalf("HasAppointmentOn failed: %v", err)
	}
	if has {
		t.Error("Expected no appointment on 2026-08-04")
	}
}
