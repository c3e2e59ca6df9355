package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/clinic-manager/internal/application"
)

var (
	errBadRequestBody        = errors.New("invalid request body")
	errInvalidPatientID      = errors.New("invalid patient id")
	errInvalidProfessionalID = errors.New("invalid professional id")
	errInvalidAppointmentID  = errors.New("invalid appointment id")
	errMissingTenant         = errors.New("the X-Tenant-ID header is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application sentinels to HTTP responses. A quota
// denial carries the plan ceiling so clients can render an upgrade prompt.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var qErr *application.QuotaError
	if errors.As(err, &qErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "QUOTA_EXCEEDED",
			Message:   "plan limit reached for " + string(qErr.Resource) + "; upgrade the plan to continue",
			Quota: &quotaPayload{
				Resource: string(qErr.Resource),
				Limit:    qErr.Limit.Ptr(),
				Used:     qErr.CurrentCount,
			},
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  vErr.FieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the resource already exists"})
	case errors.Is(err, application.ErrInvalidDate):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "NO_SESSION_ON_DATE",
			Message:   "the patient has no scheduled session on that date",
		})
	case errors.Is(err, application.ErrInvariantViolation):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: "the request violates a ledger constraint"})
	case errors.Is(err, application.ErrNoActiveSubscription):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "NO_ACTIVE_SUBSCRIPTION",
			Message:   "the subscription period has ended; complete a new checkout to continue",
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Quota     *quotaPayload     `json:"quota,omitempty"`
}

// quotaPayload reports the ceiling behind a quota denial. Limit is null for
// the unlimited tier, which can only appear here through the usage surface.
type quotaPayload struct {
	Resource string `json:"resource"`
	Limit    *int   `json:"limit"`
	Used     int    `json:"used"`
}
