package application

import (
	"errors"
	"fmt"

	"github.com/example/clinic-manager/internal/catalog"
	"github.com/example/clinic-manager/internal/persistence"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing
	// resource.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidDate is returned when attendance is recorded for a date the
	// patient has no scheduled appointment on and no existing record for.
	ErrInvalidDate = errors.New("application: no session on that date")
	// ErrInvariantViolation is returned when a write would break a ledger
	// invariant, such as a discount exceeding the payment amount.
	ErrInvariantViolation = errors.New("application: invariant violation")
	// ErrNoActiveSubscription is returned when an operation needs a plan and
	// the tenant has none in force.
	ErrNoActiveSubscription = errors.New("application: no active subscription")
)

// QuotaError reports a denied resource creation together with the plan limit
// that caused it, so callers can surface an upgrade prompt.
type QuotaError struct {
	Resource     catalog.Resource
	Limit        catalog.Limit
	CurrentCount int
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("quota exceeded for %s: %d of %s used", e.Resource, e.CurrentCount, e.Limit)
}

// PartialBatchError reports a bulk appointment request that only partially
// succeeded. Both lists are always populated; no rejected instance is ever
// silently dropped.
type PartialBatchError struct {
	Created  []persistence.Appointment
	Rejected []persistence.RejectedAppointment
}

// Error implements the error interface.
func (e *PartialBatchError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%d of %d appointments created", len(e.Created), len(e.Created)+len(e.Rejected))
}

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// mapRepoError translates persistence sentinels into application sentinels.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	return err
}
