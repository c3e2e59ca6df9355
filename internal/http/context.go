package http

import "context"

type contextKey string

const (
	tenantIDContextKey       contextKey = "tenant_id"
	patientIDContextKey      contextKey = "patient_id"
	professionalIDContextKey contextKey = "professional_id"
	appointmentIDContextKey  contextKey = "appointment_id"
)

// ContextWithTenantID returns a derived context carrying the resolved tenant.
func ContextWithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDContextKey, tenantID)
}

// TenantIDFromContext extracts the tenant identifier from context if available.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantIDContextKey).(string)
	return id, ok
}

// ContextWithPatientID injects the patient identifier resolved from the
// request path.
func ContextWithPatientID(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, patientIDContextKey, patientID)
}

// PatientIDFromContext extracts a patient identifier previously associated
// with the context.
func PatientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(patientIDContextKey).(string)
	return id, ok
}

// ContextWithProfessionalID injects the professional identifier resolved from
// the request path.
func ContextWithProfessionalID(ctx context.Context, professionalID string) context.Context {
	return context.WithValue(ctx, professionalIDContextKey, professionalID)
}

// ProfessionalIDFromContext extracts a professional identifier previously
// associated with the context.
func ProfessionalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(professionalIDContextKey).(string)
	return id, ok
}

// ContextWithAppointmentID injects the appointment identifier resolved from
// the request path.
func ContextWithAppointmentID(ctx context.Context, appointmentID string) context.Context {
	return context.WithValue(ctx, appointmentIDContextKey, appointmentID)
}

// AppointmentIDFromContext extracts an appointment identifier previously
// associated with the context.
func AppointmentIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(appointmentIDContextKey).(string)
	return id, ok
}
