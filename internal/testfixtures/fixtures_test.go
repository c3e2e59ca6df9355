package testfixtures

import (
	"context"
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("Expected reference time, got %v", clock.Now())
	}

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(ReferenceTime().Add(90 * time.Minute)) {
		t.Errorf("Unexpected advanced time: %v", updated)
	}
	if !clock.Now().Equal(updated) {
		t.Errorf("Now should track the advanced time, got %v", clock.Now())
	}
}

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("patient")
	if got := gen.Next(); got != "patient-1" {
		t.Errorf("Expected patient-1, got %q", got)
	}
	if got := gen.Next(); got != "patient-2" {
		t.Errorf("Expected patient-2, got %q", got)
	}

	gen.SetCounter(41)
	if got := gen.Next(); got != "patient-42" {
		t.Errorf("Expected patient-42 after reset, got %q", got)
	}
}

func TestFixturesAreDistinct(t *testing.T) {
	first := NewPatientFixture()
	second := NewPatientFixture()
	if first.ID == second.ID {
		t.Errorf("Expected distinct patient IDs, both %q", first.ID)
	}

	a := NewAppointmentFixture()
	b := NewAppointmentFixture()
	if a.ID == b.ID {
		t.Errorf("Expected distinct appointment IDs, both %q", a.ID)
	}
	if a.Date == b.Date && a.StartTime == b.StartTime {
		t.Error("Consecutive appointment fixtures should not collide on booking keys")
	}
}

func TestSQLiteHarness_RoundTrip(t *testing.T) {
	harness := NewSQLiteHarness(t)

	fixture := NewPatientFixture(WithPatientTenant("tenant-rt"))
	if err := harness.Patients.CreatePatient(context.Background(), fixture.Persistence()); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	stored, err := harness.Patients.GetPatient(context.Background(), "tenant-rt", fixture.ID)
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if stored.Name != fixture.Name {
		t.Errorf("Expected %q, got %q", fixture.Name, stored.Name)
	}
}
