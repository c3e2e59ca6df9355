// Package http provides HTTP handlers and middleware for the clinic API.
//
// Every request carries the owning tenant in the `X-Tenant-ID` header;
// authentication happens upstream and the header is trusted here. The router
// exposes the following endpoints:
//   - GET /patients, POST /patients, GET /patients/{id}, PUT /patients/{id},
//     DELETE /patients/{id}: patient roster endpoints exchanging the
//     `patientDTO` payload defined in patient_handler.go. Creation is subject
//     to the plan's patient ceiling.
//   - GET /professionals, POST /professionals, GET /professionals/{id},
//     PUT /professionals/{id}, DELETE /professionals/{id}: practitioner
//     roster endpoints exchanging the `professionalDTO` payload defined in
//     professional_handler.go.
//   - POST /appointments: books a single instance or a recurrence expansion.
//     Returns 201 when every instance was persisted, 207 with both the
//     created and rejected lists on a partial outcome, and 422 with a quota
//     payload when the monthly ceiling rejects the whole request.
//   - GET /appointments: lists instances filtered by patient_id,
//     professional_id and either a period preset (period=day|week|month plus
//     an optional reference date) or an explicit from/to range.
//   - GET /appointments/{id}, DELETE /appointments/{id},
//     PUT /appointments/{id}/status: single-instance lifecycle endpoints.
//   - POST /attendance: inserts or edits the attendance entry for one patient
//     and session date, optionally creating a linked payment.
//   - GET /patients/{id}/attendance, GET /patients/{id}/stats: a patient's
//     attendance history and its aggregated statistics.
//   - POST /billing/checkout-completed: applies a finished checkout to the
//     tenant's subscription. GET /subscription, GET /subscription/usage,
//     POST /subscription/cancel, POST /subscription/reactivate: subscription
//     state and usage endpoints backing the upgrade prompt.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
