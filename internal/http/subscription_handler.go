package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/application"
	"github.com/example/clinic-manager/internal/catalog"
	"github.com/example/clinic-manager/internal/persistence"
)

type subscriptionService interface {
	ApplyCheckoutCompletion(ctx context.Context, event application.CheckoutCompletion) (persistence.Subscription, error)
	Cancel(ctx context.Context, tenantID string) (persistence.Subscription, error)
	Reactivate(ctx context.Context, tenantID string) (persistence.Subscription, error)
	CurrentPlan(ctx context.Context, tenantID string) (catalog.Plan, bool, error)
	Usage(ctx context.Context, tenantID string) (application.UsageSummary, error)
}

type SubscriptionHandler struct {
	service   subscriptionService
	responder responder
	logger    *slog.Logger
}

func NewSubscriptionHandler(service subscriptionService, logger *slog.Logger) *SubscriptionHandler {
	base := defaultLogger(logger)
	return &SubscriptionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SubscriptionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SubscriptionHandler", operation, attrs...)
}

// CheckoutCompleted receives the payment provider's checkout outcome. The
// tenant may come from the event body or, for same-session checkouts, the
// tenant header.
func (h *SubscriptionHandler) CheckoutCompleted(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CheckoutCompleted", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode checkout event", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" {
		tenantID, _ = TenantIDFromContext(r.Context())
	}

	logger := h.log(r.Context(), "CheckoutCompleted", "tenant_id", tenantID, "plan_tier", req.PlanTier)

	subscription, err := h.service.ApplyCheckoutCompletion(r.Context(), application.CheckoutCompletion{
		TenantID:     tenantID,
		PlanTier:     strings.TrimSpace(req.PlanTier),
		BillingCycle: persistence.BillingCycle(strings.TrimSpace(req.BillingCycle)),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "checkout application failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("subscription_id", subscription.ID).InfoContext(r.Context(), "checkout applied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, subscriptionResponse{Subscription: toSubscriptionDTO(subscription)})
}

// Cancel schedules the tenant's subscription to lapse at period end.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "tenant_id", tenantID)

	subscription, err := h.service.Cancel(r.Context(), tenantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "subscription cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "subscription cancellation scheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, subscriptionResponse{Subscription: toSubscriptionDTO(subscription)})
}

// Reactivate clears a pending cancellation while the period still runs.
func (h *SubscriptionHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "Reactivate", "tenant_id", tenantID)

	subscription, err := h.service.Reactivate(r.Context(), tenantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "subscription reactivate failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "subscription reactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, subscriptionResponse{Subscription: toSubscriptionDTO(subscription)})
}

// CurrentPlan reports the plan the tenant's quota checks run against.
func (h *SubscriptionHandler) CurrentPlan(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "CurrentPlan", "tenant_id", tenantID)

	plan, active, err := h.service.CurrentPlan(r.Context(), tenantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "plan lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := currentPlanResponse{Active: active}
	if active {
		dto := toPlanDTO(plan)
		resp.Plan = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Usage reports the tenant's consumption against its plan ceilings.
func (h *SubscriptionHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tenantID, _ := TenantIDFromContext(r.Context())
	logger := h.log(r.Context(), "Usage", "tenant_id", tenantID)

	summary, err := h.service.Usage(r.Context(), tenantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "usage summary failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUsageDTO(summary))
}

type checkoutRequest struct {
	TenantID     string `json:"tenant_id"`
	PlanTier     string `json:"plan_tier"`
	BillingCycle string `json:"billing_cycle"`
}

type subscriptionResponse struct {
	Subscription subscriptionDTO `json:"subscription"`
}

type subscriptionDTO struct {
	ID                 string  `json:"id"`
	PlanTier           string  `json:"plan_tier"`
	Status             string  `json:"status"`
	BillingCycle       string  `json:"billing_cycle"`
	CurrentPeriodStart string  `json:"current_period_start"`
	CurrentPeriodEnd   *string `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool    `json:"cancel_at_period_end"`
}

func toSubscriptionDTO(subscription persistence.Subscription) subscriptionDTO {
	dto := subscriptionDTO{
		ID:                 subscription.ID,
		PlanTier:           subscription.PlanTier,
		Status:             string(subscription.Status),
		BillingCycle:       string(subscription.BillingCycle),
		CurrentPeriodStart: subscription.CurrentPeriodStart.UTC().Format(time.RFC3339Nano),
		CancelAtPeriodEnd:  subscription.CancelAtPeriodEnd,
	}
	if subscription.CurrentPeriodEnd != nil {
		end := subscription.CurrentPeriodEnd.UTC().Format(time.RFC3339Nano)
		dto.CurrentPeriodEnd = &end
	}
	return dto
}

type currentPlanResponse struct {
	Active bool     `json:"active"`
	Plan   *planDTO `json:"plan,omitempty"`
}

type planDTO struct {
	Tier                    string `json:"tier"`
	PriceCents              int    `json:"price_cents"`
	MaxPatients             *int   `json:"max_patients"`
	MaxProfessionals        *int   `json:"max_professionals"`
	MaxAppointmentsPerMonth *int   `json:"max_appointments_per_month"`
	AIAssistantEnabled      bool   `json:"ai_assistant_enabled"`
	Support                 string `json:"support"`
}

func toPlanDTO(plan catalog.Plan) planDTO {
	return planDTO{
		Tier:                    string(plan.Tier),
		PriceCents:              plan.PriceCents,
		MaxPatients:             plan.MaxPatients.Ptr(),
		MaxProfessionals:        plan.MaxProfessionals.Ptr(),
		MaxAppointmentsPerMonth: plan.MaxAppointmentsPerMonth.Ptr(),
		AIAssistantEnabled:      plan.AIAssistantEnabled,
		Support:                 string(plan.Support),
	}
}

type usageResponse struct {
	PlanTier          string           `json:"plan_tier"`
	SubscriptionState string           `json:"subscription_state"`
	PeriodEnd         *string          `json:"period_end,omitempty"`
	Patients          resourceUsageDTO `json:"patients"`
	Professionals     resourceUsageDTO `json:"professionals"`
	AppointmentsMonth resourceUsageDTO `json:"appointments_month"`
}

type resourceUsageDTO struct {
	Used  int  `json:"used"`
	Limit *int `json:"limit"`
}

func toUsageDTO(summary application.UsageSummary) usageResponse {
	resp := usageResponse{
		PlanTier:          summary.PlanTier,
		SubscriptionState: string(summary.SubscriptionState),
		Patients:          resourceUsageDTO{Used: summary.Patients.Used, Limit: summary.Patients.Limit},
		Professionals:     resourceUsageDTO{Used: summary.Professionals.Used, Limit: summary.Professionals.Limit},
		AppointmentsMonth: resourceUsageDTO{Used: summary.AppointmentsMonth.Used, Limit: summary.AppointmentsMonth.Limit},
	}
	if summary.PeriodEnd != nil {
		end := summary.PeriodEnd.UTC().Format(time.RFC3339Nano)
		resp.PeriodEnd = &end
	}
	return resp
}
