package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/application"
	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
	"github.com/example/clinic-manager/internal/recurrence"
)

type appointmentService interface {
	CreateAppointment(ctx context.Context, tenantID string, input application.AppointmentInput) (application.ScheduleResult, error)
	UpdateAppointmentStatus(ctx context.Context, tenantID, appointmentID string, status persistence.AppointmentStatus) error
	GetAppointment(ctx context.Context, tenantID, appointmentID string) (persistence.Appointment, error)
	DeleteAppointment(ctx context.Context, tenantID, appointmentID string) error
	ListAppointments(ctx context.Context, tenantID string, params application.ListAppointmentsParams) ([]persistence.Appointment, error)
}

type AppointmentHandler struct {
	service   appointmentService
	responder responder
	logger    *slog.Logger
}

func NewAppointmentHandler(service appointmentService, logger *slog.Logger) *AppointmentHandler {
	base := defaultLogger(logger)
	return &AppointmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AppointmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AppointmentHandler", operation, attrs...)
}

// Create books one instance or a whole recurrence expansion. A fully
// satisfied request returns 201; a partially satisfied one returns 207 with
// both the created and the rejected instances, so no outcome is hidden.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "tenant_id", tenantID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode appointment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "tenant_id", tenantID, "patient_id", req.PatientID)

	input, vErr := req.toInput()
	if vErr != nil {
		logger.ErrorContext(r.Context(), "appointment request rejected", "error", vErr, "error_kind", application.ErrorKind(vErr))
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	result, err := h.service.CreateAppointment(r.Context(), tenantID, input)
	if err != nil {
		var pErr *application.PartialBatchError
		if errors.As(err, &pErr) {
			logger.With("created", len(pErr.Created), "rejected", len(pErr.Rejected)).
				InfoContext(r.Context(), "appointments partially booked")
			h.responder.writeJSON(r.Context(), w, http.StatusMultiStatus, scheduleResponse{
				Created:  toAppointmentDTOs(pErr.Created),
				Rejected: toRejectedDTOs(pErr.Rejected),
			})
			return
		}
		logger.ErrorContext(r.Context(), "appointment booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("created", len(result.Created)).InfoContext(r.Context(), "appointments booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{
		Created:  toAppointmentDTOs(result.Created),
		Rejected: toRejectedDTOs(result.Rejected),
	})
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := AppointmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAppointmentID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	appointment, err := h.service.GetAppointment(r.Context(), tenantID, appointmentID)
	if err != nil {
		h.log(r.Context(), "Get", "tenant_id", tenantID, "appointment_id", appointmentID).ErrorContext(r.Context(), "appointment lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Appointment: toAppointmentDTO(appointment)})
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := AppointmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.log(r.Context(), "UpdateStatus", "error_kind", "bad_request").ErrorContext(r.Context(), "missing appointment id for status update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAppointmentID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateStatus", "tenant_id", tenantID, "appointment_id", appointmentID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode status update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateStatus", "tenant_id", tenantID, "appointment_id", appointmentID, "status", req.Status)

	if err := h.service.UpdateAppointmentStatus(r.Context(), tenantID, appointmentID, persistence.AppointmentStatus(req.Status)); err != nil {
		logger.ErrorContext(r.Context(), "appointment status update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment status updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := AppointmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing appointment id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAppointmentID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "tenant_id", tenantID, "appointment_id", appointmentID)
	if err := h.service.DeleteAppointment(r.Context(), tenantID, appointmentID); err != nil {
		logger.ErrorContext(r.Context(), "appointment delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List filters by patient, professional and either a period preset (day,
// week, month around a reference date) or an explicit from/to range.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "List", "tenant_id", tenantID)

	params, vErr := listParamsFromQuery(r)
	if vErr != nil {
		logger.ErrorContext(r.Context(), "appointment list rejected", "error", vErr, "error_kind", application.ErrorKind(vErr))
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	appointments, err := h.service.ListAppointments(r.Context(), tenantID, params)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(appointments)).InfoContext(r.Context(), "appointments listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAppointmentsResponse{Appointments: toAppointmentDTOs(appointments)})
}

func listParamsFromQuery(r *http.Request) (application.ListAppointmentsParams, error) {
	query := r.URL.Query()
	params := application.ListAppointmentsParams{
		PatientID:      strings.TrimSpace(query.Get("patient_id")),
		ProfessionalID: strings.TrimSpace(query.Get("professional_id")),
		Period:         application.Period(strings.TrimSpace(query.Get("period"))),
	}

	fieldErrors := make(map[string]string)
	if raw := strings.TrimSpace(query.Get("reference")); raw != "" {
		ref, err := calendar.ParseDate(raw)
		if err != nil {
			fieldErrors["reference"] = "reference must be a YYYY-MM-DD date"
		} else {
			params.Reference = ref
		}
	}
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		from, err := calendar.ParseDate(raw)
		if err != nil {
			fieldErrors["from"] = "from must be a YYYY-MM-DD date"
		} else {
			params.From = &from
		}
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		to, err := calendar.ParseDate(raw)
		if err != nil {
			fieldErrors["to"] = "to must be a YYYY-MM-DD date"
		} else {
			params.To = &to
		}
	}
	if len(fieldErrors) > 0 {
		return application.ListAppointmentsParams{}, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return params, nil
}

type appointmentRequest struct {
	PatientID       string             `json:"patient_id"`
	ProfessionalID  string             `json:"professional_id"`
	Date            string             `json:"date"`
	StartTime       string             `json:"start_time"`
	DurationMinutes int                `json:"duration_minutes"`
	Notes           string             `json:"notes"`
	Recurrence      *recurrenceRequest `json:"recurrence"`
}

type recurrenceRequest struct {
	Type     string   `json:"type"`
	Weekdays []string `json:"weekdays"`
	Count    int      `json:"count"`
}

func (r appointmentRequest) toInput() (application.AppointmentInput, error) {
	fieldErrors := make(map[string]string)

	input := application.AppointmentInput{
		PatientID:       strings.TrimSpace(r.PatientID),
		ProfessionalID:  strings.TrimSpace(r.ProfessionalID),
		DurationMinutes: r.DurationMinutes,
		Notes:           strings.TrimSpace(r.Notes),
	}

	if raw := strings.TrimSpace(r.Date); raw != "" {
		date, err := calendar.ParseDate(raw)
		if err != nil {
			fieldErrors["date"] = "date must be a YYYY-MM-DD date"
		} else {
			input.Date = date
		}
	}
	if raw := strings.TrimSpace(r.StartTime); raw != "" {
		start, err := calendar.ParseTimeOfDay(raw)
		if err != nil {
			fieldErrors["start_time"] = "start_time must be a HH:MM time"
		} else {
			input.StartTime = start
		}
	}

	if r.Recurrence != nil {
		rule := recurrence.Rule{
			Type:  recurrence.RuleType(strings.TrimSpace(r.Recurrence.Type)),
			Count: r.Recurrence.Count,
		}
		for _, name := range r.Recurrence.Weekdays {
			weekday, ok := parseWeekday(name)
			if !ok {
				fieldErrors["recurrence.weekdays"] = "unknown weekday: " + name
				break
			}
			rule.Weekdays = append(rule.Weekdays, weekday)
		}
		input.Recurrence = rule
	}

	if len(fieldErrors) > 0 {
		return application.AppointmentInput{}, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return input, nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	default:
		return time.Sunday, false
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type scheduleResponse struct {
	Created  []appointmentDTO         `json:"created"`
	Rejected []rejectedAppointmentDTO `json:"rejected,omitempty"`
}

type appointmentResponse struct {
	Appointment appointmentDTO `json:"appointment"`
}

type listAppointmentsResponse struct {
	Appointments []appointmentDTO `json:"appointments"`
}

type appointmentDTO struct {
	ID              string `json:"id"`
	PatientID       string `json:"patient_id"`
	ProfessionalID  string `json:"professional_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type rejectedAppointmentDTO struct {
	Appointment appointmentDTO `json:"appointment"`
	Reason      string         `json:"reason"`
}

func toAppointmentDTO(appointment persistence.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:              appointment.ID,
		PatientID:       appointment.PatientID,
		ProfessionalID:  appointment.ProfessionalID,
		Date:            appointment.Date.String(),
		StartTime:       appointment.StartTime.String(),
		DurationMinutes: appointment.DurationMinutes,
		Status:          string(appointment.Status),
		Notes:           appointment.Notes,
		CreatedAt:       appointment.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       appointment.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toAppointmentDTOs(appointments []persistence.Appointment) []appointmentDTO {
	if len(appointments) == 0 {
		return nil
	}
	out := make([]appointmentDTO, 0, len(appointments))
	for _, appointment := range appointments {
		out = append(out, toAppointmentDTO(appointment))
	}
	return out
}

func toRejectedDTOs(rejected []persistence.RejectedAppointment) []rejectedAppointmentDTO {
	if len(rejected) == 0 {
		return nil
	}
	out := make([]rejectedAppointmentDTO, 0, len(rejected))
	for _, r := range rejected {
		out = append(out, rejectedAppointmentDTO{
			Appointment: toAppointmentDTO(r.Appointment),
			Reason:      string(r.Reason),
		})
	}
	return out
}
