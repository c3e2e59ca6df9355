package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/clinic-manager/internal/persistence"
)

func testPatient(t *testing.T, id, name string) persistence.Patient {
	t.Helper()
	now := testTime(t)
	return persistence.Patient{
		ID:        id,
		TenantID:  "tenant1",
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPatientRepository_CreateAndGet(t *testing.T) {
	pool := openTestStore(t)
	repo := NewPatientRepository(pool)
	ctx := context.Background()

	if err := repo.CreatePatient(ctx, testPatient(t, "p1", "ana")); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	got, err := repo.GetPatient(ctx, "tenant1", "p1")
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if got.Name != "ana" || got.Email != "ana@example.com" {
		t.Errorf("Unexpected patient: %+v", got)
	}
}

func TestPatientRepository_DuplicateIDRejected(t *testing.T) {
	pool := openTestStore(t)
	repo := NewPatientRepository(pool)
	ctx := context.Background()

	if err := repo.CreatePatient(ctx, testPatient(t, "p1", "ana")); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	err := repo.CreatePatient(ctx, testPatient(t, "p1", "bruna"))
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestPatientRepository_GetPatient_WrongTenant(t *testing.T) {
	pool := openTestStore(t)
	repo := NewPatientRepository(pool)
	ctx := context.Background()

	if err := repo.CreatePatient(ctx, testPatient(t, "p1", "ana")); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	_, err := repo.GetPatient(ctx, "tenant2", "p1")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound across tenants, got %v", err)
	}
}

func TestPatientRepository_UpdatePatient(t *testing.T) {
	pool := openTestStore(t)
	repo := NewPatientRepository(pool)
	ctx := context.Background()

	patient := testPatient(t, "p1", "ana")
	if err := repo.CreatePatient(ctx, patient); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	patient.Phone = "+55 11 99999-0000"
	patient.Notes = "prefers mornings"
	if err := repo.UpdatePatient(ctx, patient); err != nil {
		t.Fatalf("UpdatePatient failed: %v", err)
	}

	got, err := repo.GetPatient(ctx, "tenant1", "p1")
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if got.Phone != "+55 11 99999-0000" || got.Notes != "prefers mornings" {
		t.Errorf("Unexpected patient after update: %+v", got)
	}
}

func TestPatientRepository_UpdatePatient_NotFound(t *testing.T) {
	pool := openTestStore(t)
	repo := NewPatientRepository(pool)
	ctx := context.Background()

	err := repo.UpdatePatient(ctx, testPatient(t, "missing", "ana"))
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPatientRepository_ListAndCount(t *testing.T) {
	pool := openTestStore(t)
	repo := NewPatientRepository(pool)
	ctx := context.Background()

	names := []string{"carla", "ana", "bruna"}
	for i, name := range names {
		if err := repo.CreatePatient(ctx, testPatient(t, "p"+string(rune('1'+i)), name)); err != nil {
			t.Fatalf("CreatePatient failed: %v", err)
		}
	}
	other := testPatient(t, "px", "zoe")
	other.TenantID = "tenant2"
	if err := repo.CreatePatient(ctx, other); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	patients, err := repo.ListPatients(ctx, "tenant1")
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if len(patients) != 3 {
		t.Fatalf("Expected 3 patients, got %d", len(patients))
	}
	if patients[0].Name != "ana" || patients[2].Name != "carla" {
		t.Errorf("Expected name ordering, got %s .. %s", patients[0].Name, patients[2].Name)
	}

	count, err := repo.CountPatients(ctx, "tenant1")
	if err != nil {
		t.Fatalf("CountPatients failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}

func TestPatientRepository_DeletePatient(t *testing.T) {
	pool := openTestStore(t)
	repo := NewPatientRepository(pool)
	ctx := context.Background()

	if err := repo.CreatePatient(ctx, testPatient(t, "p1", "ana")); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	if err := repo.DeletePatient(ctx, "tenant1", "p1"); err != nil {
		t.Fatalf("DeletePatient failed: %v", err)
	}
	if err := repo.DeletePatient(ctx, "tenant1", "p1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}
