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

type professionalService interface {
	CreateProfessional(ctx context.Context, tenantID string, input application.ProfessionalInput) (persistence.Professional, error)
	UpdateProfessional(ctx context.Context, tenantID, professionalID string, input application.ProfessionalInput) (persistence.Professional, error)
	GetProfessional(ctx context.Context, tenantID, professionalID string) (persistence.Professional, error)
	ListProfessionals(ctx context.Context, tenantID string) ([]persistence.Professional, error)
	DeleteProfessional(ctx context.Context, tenantID, professionalID string) error
}

type ProfessionalHandler struct {
	service   professionalService
	responder responder
	logger    *slog.Logger
}

func NewProfessionalHandler(service professionalService, logger *slog.Logger) *ProfessionalHandler {
	base := defaultLogger(logger)
	return &ProfessionalHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProfessionalHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProfessionalHandler", operation, attrs...)
}

func (h *ProfessionalHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	var req professionalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "tenant_id", tenantID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode professional request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "tenant_id", tenantID)

	professional, err := h.service.CreateProfessional(r.Context(), tenantID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "professional creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("professional_id", professional.ID).InfoContext(r.Context(), "professional created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, professionalResponse{Professional: toProfessionalDTO(professional)})
}

func (h *ProfessionalHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	professionalID, ok := ProfessionalIDFromContext(r.Context())
	if !ok || strings.TrimSpace(professionalID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing professional id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProfessionalID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	var req professionalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "tenant_id", tenantID, "professional_id", professionalID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode professional update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "tenant_id", tenantID, "professional_id", professionalID)

	professional, err := h.service.UpdateProfessional(r.Context(), tenantID, professionalID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "professional update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "professional updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, professionalResponse{Professional: toProfessionalDTO(professional)})
}

func (h *ProfessionalHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	professionalID, ok := ProfessionalIDFromContext(r.Context())
	if !ok || strings.TrimSpace(professionalID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProfessionalID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	professional, err := h.service.GetProfessional(r.Context(), tenantID, professionalID)
	if err != nil {
		h.log(r.Context(), "Get", "tenant_id", tenantID, "professional_id", professionalID).ErrorContext(r.Context(), "professional lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, professionalResponse{Professional: toProfessionalDTO(professional)})
}

func (h *ProfessionalHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "List", "tenant_id", tenantID)

	professionals, err := h.service.ListProfessionals(r.Context(), tenantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "professional list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(professionals)).InfoContext(r.Context(), "professionals listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProfessionalsResponse{Professionals: toProfessionalDTOs(professionals)})
}

func (h *ProfessionalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	professionalID, ok := ProfessionalIDFromContext(r.Context())
	if !ok || strings.TrimSpace(professionalID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing professional id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProfessionalID)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "tenant_id", tenantID, "professional_id", professionalID)
	if err := h.service.DeleteProfessional(r.Context(), tenantID, professionalID); err != nil {
		logger.ErrorContext(r.Context(), "professional delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "professional deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type professionalRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

func (r professionalRequest) toInput() application.ProfessionalInput {
	return application.ProfessionalInput{
		Name:      strings.TrimSpace(r.Name),
		Specialty: strings.TrimSpace(r.Specialty),
	}
}

type professionalResponse struct {
	Professional professionalDTO `json:"professional"`
}

type listProfessionalsResponse struct {
	Professionals []professionalDTO `json:"professionals"`
}

type professionalDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toProfessionalDTO(professional persistence.Professional) professionalDTO {
	return professionalDTO{
		ID:        professional.ID,
		Name:      professional.Name,
		Specialty: professional.Specialty,
		CreatedAt: professional.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: professional.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toProfessionalDTOs(professionals []persistence.Professional) []professionalDTO {
	if len(professionals) == 0 {
		return nil
	}
	out := make([]professionalDTO, 0, len(professionals))
	for _, professional := range professionals {
		out = append(out, toProfessionalDTO(professional))
	}
	return out
}
