package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/application"
	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/persistence"
)

type attendanceService interface {
	RecordAttendance(ctx context.Context, tenantID string, input application.AttendanceInput) (persistence.AttendanceRecord, error)
	ListAttendance(ctx context.Context, tenantID, patientID string) ([]persistence.AttendanceRecord, error)
	PatientStats(ctx context.Context, tenantID, patientID string) (application.PatientStats, error)
}

type AttendanceHandler struct {
	service   attendanceService
	responder responder
	logger    *slog.Logger
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	base := defaultLogger(logger)
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

// Record inserts or edits the attendance entry for one patient and session
// date. The same endpoint serves both; the ledger keeps one row per date.
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Record", "tenant_id", tenantID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode attendance request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Record", "tenant_id", tenantID, "patient_id", req.PatientID)

	input, vErr := req.toInput()
	if vErr != nil {
		logger.ErrorContext(r.Context(), "attendance request rejected", "error", vErr, "error_kind", application.ErrorKind(vErr))
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	record, err := h.service.RecordAttendance(r.Context(), tenantID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance recording failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("record_id", record.ID).InfoContext(r.Context(), "attendance recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{Record: toAttendanceDTO(record)})
}

// History lists a patient's attendance entries, newest session first.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "History", "tenant_id", tenantID, "patient_id", patientID)

	records, err := h.service.ListAttendance(r.Context(), tenantID, patientID)
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance history failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(records)).InfoContext(r.Context(), "attendance listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceHistoryResponse{Records: toAttendanceDTOs(records)})
}

// Stats aggregates a patient's ledger into attendance rate, paid sessions and
// absences.
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Stats", "tenant_id", tenantID, "patient_id", patientID)

	stats, err := h.service.PatientStats(r.Context(), tenantID, patientID)
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, patientStatsDTO{
		TotalSessions:  stats.TotalSessions,
		PresentCount:   stats.PresentCount,
		Absences:       stats.Absences,
		PaidCount:      stats.PaidCount,
		AttendanceRate: stats.AttendanceRate,
	})
}

type attendanceRequest struct {
	PatientID   string          `json:"patient_id"`
	SessionDate string          `json:"session_date"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes"`
	Payment     *paymentRequest `json:"payment"`
}

type paymentRequest struct {
	AmountCents   int    `json:"amount_cents"`
	DiscountCents int    `json:"discount_cents"`
	Method        string `json:"method"`
	IsRecurring   bool   `json:"is_recurring"`
	DayOfMonth    int    `json:"day_of_month"`
}

func (r attendanceRequest) toInput() (application.AttendanceInput, error) {
	input := application.AttendanceInput{
		PatientID: strings.TrimSpace(r.PatientID),
		Status:    persistence.AttendanceStatus(strings.TrimSpace(r.Status)),
		Notes:     strings.TrimSpace(r.Notes),
	}

	if raw := strings.TrimSpace(r.SessionDate); raw != "" {
		date, err := calendar.ParseDate(raw)
		if err != nil {
			return application.AttendanceInput{}, &application.ValidationError{
				FieldErrors: map[string]string{"session_date": "session_date must be a YYYY-MM-DD date"},
			}
		}
		input.SessionDate = date
	}

	if r.Payment != nil {
		input.Payment = &application.PaymentInput{
			AmountCents:   r.Payment.AmountCents,
			DiscountCents: r.Payment.DiscountCents,
			Method:        strings.TrimSpace(r.Payment.Method),
			IsRecurring:   r.Payment.IsRecurring,
			DayOfMonth:    r.Payment.DayOfMonth,
		}
	}
	return input, nil
}

type attendanceResponse struct {
	Record attendanceDTO `json:"record"`
}

type attendanceHistoryResponse struct {
	Records []attendanceDTO `json:"records"`
}

type attendanceDTO struct {
	ID          string  `json:"id"`
	PatientID   string  `json:"patient_id"`
	SessionDate string  `json:"session_date"`
	Status      string  `json:"status"`
	Notes       string  `json:"notes,omitempty"`
	PaymentID   *string `json:"payment_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type patientStatsDTO struct {
	TotalSessions  int     `json:"total_sessions"`
	PresentCount   int     `json:"present_count"`
	Absences       int     `json:"absences"`
	PaidCount      int     `json:"paid_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

func toAttendanceDTO(record persistence.AttendanceRecord) attendanceDTO {
	return attendanceDTO{
		ID:          record.ID,
		PatientID:   record.PatientID,
		SessionDate: record.SessionDate.String(),
		Status:      string(record.Status),
		Notes:       record.Notes,
		PaymentID:   record.PaymentID,
		CreatedAt:   record.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toAttendanceDTOs(records []persistence.AttendanceRecord) []attendanceDTO {
	if len(records) == 0 {
		return nil
	}
	out := make([]attendanceDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toAttendanceDTO(record))
	}
	return out
}
