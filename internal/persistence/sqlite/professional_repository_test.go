package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/clinic-manager/internal/persistence"
)

func TestProfessionalRepository_CRUD(t *testing.T) {
	pool := openTestStore(t)
	repo := NewProfessionalRepository(pool)
	ctx := context.Background()

	now := testTime(t)
	professional := persistence.Professional{
		ID:        "prof1",
		TenantID:  "tenant1",
		Name:      "Dr. Silva",
		Specialty: "speech therapy",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateProfessional(ctx, professional); err != nil {
		t.Fatalf("CreateProfessional failed: %v", err)
	}

	got, err := repo.GetProfessional(ctx, "tenant1", "prof1")
	if err != nil {
		t.Fatalf("GetProfessional failed: %v", err)
	}
	if got.Specialty != "speech therapy" {
		t.Errorf("Unexpected professional: %+v", got)
	}

	professional.Specialty = "occupational therapy"
	if err := repo.UpdateProfessional(ctx, professional); err != nil {
		t.Fatalf("UpdateProfessional failed: %v", err)
	}
	got, err = repo.GetProfessional(ctx, "tenant1", "prof1")
	if err != nil {
		t.Fatalf("GetProfessional failed: %v", err)
	}
	if got.Specialty != "occupational therapy" {
		t.Errorf("Expected updated specialty, got %s", got.Specialty)
	}

	count, err := repo.CountProfessionals(ctx, "tenant1")
	if err != nil {
		t.Fatalf("CountProfessionals failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}

	if err := repo.DeleteProfessional(ctx, "tenant1", "prof1"); err != nil {
		t.Fatalf("DeleteProfessional failed: %v", err)
	}
	if _, err := repo.GetProfessional(ctx, "tenant1", "prof1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestProfessionalRepository_CountScopedToTenant(t *testing.T) {
	pool := openTestStore(t)
	repo := NewProfessionalRepository(pool)
	ctx := context.Background()

	now := testTime(t)
	for i, tenant := range []string{"tenant1", "tenant1", "tenant2"} {
		professional := persistence.Professional{
			ID:        "prof" + string(rune('1'+i)),
			TenantID:  tenant,
			Name:      "Dr. Example",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreateProfessional(ctx, professional); err != nil {
			t.Fatalf("CreateProfessional failed: %v", err)
		}
	}

	count, err := repo.CountProfessionals(ctx, "tenant1")
	if err != nil {
		t.Fatalf("CountProfessionals failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2 for tenant1, got %d", count)
	}
}
