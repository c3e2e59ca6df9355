package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/application"
	"github.com/example/clinic-manager/internal/persistence"
)

type patientService interface {
	CreatePatient(ctx context.Context, tenantID string, input application.PatientInput) (persistence.Patient, error)
	UpdatePatient(ctx context.Context, tenantID, patientID string, input application.PatientInput) (persistence.Patient, error)
	GetPatient(ctx context.Context, tenantID, patientID string) (persistence.Patient, error)
	ListPatients(ctx context.Context, tenantID string) ([]persistence.Patient, error)
	DeletePatient(ctx context.Context, tenantID, patientID string) error
}

type PatientHandler struct {
	service   patientService
	responder responder
	logger    *slog.Logger
}

func NewPatientHandler(service patientService, logger *slog.Logger) *PatientHandler {
	base := defaultLogger(logger)
	return &PatientHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PatientHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PatientHandler", operation, attrs...)
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "tenant_id", tenantID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode patient request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "tenant_id", tenantID)

	patient, err := h.service.CreatePatient(r.Context(), tenantID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "patient creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("patient_id", patient.ID).InfoContext(r.Context(), "patient created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, patientResponse{Patient: toPatientDTO(patient)})
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	patientID, ok := PatientIDFromContext(r.Context())
	if !ok || strings.TrimSpace(patientID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing patient id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPatientID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "tenant_id", tenantID, "patient_id", patientID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode patient update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "tenant_id", tenantID, "patient_id", patientID)

	patient, err := h.service.UpdatePatient(r.Context(), tenantID, patientID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "patient update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "patient updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, patientResponse{Patient: toPatientDTO(patient)})
}

func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	patientID, ok := PatientIDFromContext(r.Context())
	if !ok || strings.TrimSpace(patientID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPatientID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	patient, err := h.service.GetPatient(r.Context(), tenantID, patientID)
	if err != nil {
		h.log(r.Context(), "Get", "tenant_id", tenantID, "patient_id", patientID).ErrorContext(r.Context(), "patient lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, patientResponse{Patient: toPatientDTO(patient)})
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "List", "tenant_id", tenantID)

	patients, err := h.service.ListPatients(r.Context(), tenantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "patient list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(patients)).InfoContext(r.Context(), "patients listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPatientsResponse{Patients: toPatientDTOs(patients)})
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	patientID, ok := PatientIDFromContext(r.Context())
	if !ok || strings.TrimSpace(patientID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing patient id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPatientID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "tenant_id", tenantID, "patient_id", patientID)
	if err := h.service.DeletePatient(r.Context(), tenantID, patientID); err != nil {
		logger.ErrorContext(r.Context(), "patient delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "patient deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type patientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (r patientRequest) toInput() application.PatientInput {
	return application.PatientInput{
		Name:  strings.TrimSpace(r.Name),
		Email: strings.TrimSpace(r.Email),
		Phone: strings.TrimSpace(r.Phone),
		Notes: strings.TrimSpace(r.Notes),
	}
}

type patientResponse struct {
	Patient patientDTO `json:"patient"`
}

type listPatientsResponse struct {
	Patients []patientDTO `json:"patients"`
}

type patientDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toPatientDTO(patient persistence.Patient) patientDTO {
	return patientDTO{
		ID:        patient.ID,
		Name:      patient.Name,
		Email:     patient.Email,
		Phone:     patient.Phone,
		Notes:     patient.Notes,
		CreatedAt: patient.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: patient.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toPatientDTOs(patients []persistence.Patient) []patientDTO {
	if len(patients) == 0 {
		return nil
	}
	out := make([]patientDTO, 0, len(patients))
	for _, patient := range patients {
		out = append(out, toPatientDTO(patient))
	}
	return out
}
