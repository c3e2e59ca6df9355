package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/catalog"
	"github.com/example/clinic-manager/internal/persistence"
	"github.com/example/clinic-manager/internal/quota"
)

// SubscriptionStore captures the subscription persistence operations needed
// by the service.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, tenantID string) (persistence.Subscription, error)
	PutSubscription(ctx context.Context, subscription persistence.Subscription) (persistence.Subscription, error)
}

// UsageCounters reads the tenant's current consumption for the usage summary.
type UsageCounters interface {
	CountPatients(ctx context.Context, tenantID string) (int, error)
	CountProfessionals(ctx context.Context, tenantID string) (int, error)
	CountInMonth(ctx context.Context, tenantID string, ref calendar.Date) (int, error)
}

// SubscriptionService tracks each tenant's plan state from checkout events
// and exposes the usage summary consumed by the upsell surface.
type SubscriptionService struct {
	subscriptions SubscriptionStore
	usage         UsageCounters
	location      *time.Location
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewSubscriptionService constructs a subscription service with the provided
// dependencies. location determines the tenant-local calendar month used for
// the appointment usage row.
func NewSubscriptionService(subscriptions SubscriptionStore, usage UsageCounters, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SubscriptionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &SubscriptionService{
		subscriptions: subscriptions,
		usage:         usage,
		location:      location,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *SubscriptionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SubscriptionService", operation, attrs...)
}

// ApplyCheckoutCompletion records a finished checkout. The first completion
// creates the tenant's subscription; later ones update it in place, which is
// how upgrades and downgrades land. The store keeps at most one row per
// tenant.
func (s *SubscriptionService) ApplyCheckoutCompletion(ctx context.Context, event CheckoutCompletion) (subscription persistence.Subscription, err error) {
	if s == nil {
		err = fmt.Errorf("SubscriptionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ApplyCheckoutCompletion",
		"tenant_id", event.TenantID,
		"plan_tier", event.PlanTier,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to apply checkout", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("subscription_id", subscription.ID).InfoContext(ctx, "checkout applied")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(event.TenantID) == "" {
		vErr.add("tenant_id", "tenant is required")
	}
	tier := catalog.Tier(event.PlanTier)
	if !tier.Valid() {
		vErr.add("plan_tier", "plan tier must be basic, premium or master")
	}
	cycle := event.BillingCycle
	if cycle == "" {
		cycle = persistence.BillingMonthly
	}
	if cycle != persistence.BillingMonthly && cycle != persistence.BillingLifetime {
		vErr.add("billing_cycle", "billing cycle must be monthly or lifetime")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	var periodEnd *time.Time
	if cycle == persistence.BillingMonthly {
		end := now.AddDate(0, 1, 0)
		periodEnd = &end
	}

	subscription, err = s.subscriptions.PutSubscription(ctx, persistence.Subscription{
		ID:                 s.idGenerator(),
		TenantID:           event.TenantID,
		PlanTier:           string(tier),
		Status:             persistence.SubscriptionActive,
		BillingCycle:       cycle,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		CancelAtPeriodEnd:  false,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// Cancel schedules the subscription to lapse at the end of the current
// period. Access is retained until then.
func (s *SubscriptionService) Cancel(ctx context.Context, tenantID string) (subscription persistence.Subscription, err error) {
	if s == nil {
		err = fmt.Errorf("SubscriptionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Cancel", "tenant_id", tenantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel subscription", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "subscription cancellation scheduled")
	}()

	var existing persistence.Subscription
	existing, err = s.subscriptions.GetSubscription(ctx, tenantID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	existing.CancelAtPeriodEnd = true
	existing.UpdatedAt = s.now()
	subscription, err = s.subscriptions.PutSubscription(ctx, existing)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// Reactivate clears a pending cancellation while the current period is still
// running. After the period has lapsed the subscription cannot be revived;
// the tenant must complete a new checkout.
func (s *SubscriptionService) Reactivate(ctx context.Context, tenantID string) (subscription persistence.Subscription, err error) {
	if s == nil {
		err = fmt.Errorf("SubscriptionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Reactivate", "tenant_id", tenantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reactivate subscription", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "subscription reactivated")
	}()

	var existing persistence.Subscription
	existing, err = s.subscriptions.GetSubscription(ctx, tenantID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.CurrentPeriodEnd != nil && !s.now().Before(*existing.CurrentPeriodEnd) {
		err = ErrNoActiveSubscription
		return
	}

	existing.CancelAtPeriodEnd = false
	existing.Status = persistence.SubscriptionActive
	existing.UpdatedAt = s.now()
	subscription, err = s.subscriptions.PutSubscription(ctx, existing)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// CurrentPlan resolves the plan the quota path consumes. ok is false when the
// tenant has no subscription in force.
func (s *SubscriptionService) CurrentPlan(ctx context.Context, tenantID string) (catalog.Plan, bool, error) {
	if s == nil {
		return catalog.Plan{}, false, fmt.Errorf("SubscriptionService is nil")
	}
	resolver := NewPlanResolver(s.subscriptions)
	return resolver.ActivePlan(ctx, tenantID, s.now())
}

// Usage reports the tenant's consumption against its plan ceilings. The
// appointment row counts the tenant-local current calendar month.
func (s *SubscriptionService) Usage(ctx context.Context, tenantID string) (summary UsageSummary, err error) {
	if s == nil {
		err = fmt.Errorf("SubscriptionService is nil")
		return
	}

	subscription, subErr := s.subscriptions.GetSubscription(ctx, tenantID)
	if subErr != nil && !errors.Is(subErr, persistence.ErrNotFound) {
		err = mapRepoError(subErr)
		return
	}

	plan, active, planErr := s.CurrentPlan(ctx, tenantID)
	if planErr != nil {
		err = mapRepoError(planErr)
		return
	}

	patients, err := s.usage.CountPatients(ctx, tenantID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	professionals, err := s.usage.CountProfessionals(ctx, tenantID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	today := calendar.Today(s.now, s.location)
	appointments, err := s.usage.CountInMonth(ctx, tenantID, today)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	summary = UsageSummary{
		PlanTier:          subscription.PlanTier,
		SubscriptionState: subscription.Status,
		PeriodEnd:         subscription.CurrentPeriodEnd,
		Patients:          usageRow(plan, active, catalog.ResourcePatients, patients),
		Professionals:     usageRow(plan, active, catalog.ResourceProfessionals, professionals),
		AppointmentsMonth: usageRow(plan, active, catalog.ResourceAppointmentsPerMonth, appointments),
	}
	if !active {
		summary.SubscriptionState = persistence.SubscriptionExpired
	}
	return
}

func usageRow(plan catalog.Plan, active bool, resource catalog.Resource, used int) ResourceUsage {
	if !active {
		decision := quota.DenyAll(resource, used)
		return ResourceUsage{Used: used, Limit: decision.Limit.Ptr()}
	}
	return ResourceUsage{Used: used, Limit: plan.LimitFor(resource).Ptr()}
}
