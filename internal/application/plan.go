package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/clinic-manager/internal/catalog"
	"github.com/example/clinic-manager/internal/persistence"
)

// SubscriptionReader is the slice of the subscription store the quota path
// needs.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, tenantID string) (persistence.Subscription, error)
}

// PlanResolver turns a tenant's stored subscription into the catalog plan the
// quota guard consumes.
type PlanResolver struct {
	subscriptions SubscriptionReader
}

// NewPlanResolver constructs a plan resolver over the subscription store.
func NewPlanResolver(subscriptions SubscriptionReader) *PlanResolver {
	return &PlanResolver{subscriptions: subscriptions}
}

// ActivePlan resolves the tenant's plan at the given instant. A missing,
// expired or lapsed subscription yields ok=false: the tenant may keep reading
// its data but cannot create new resources until it checks out again.
//
// A cancelled subscription stays in force until its period end; only crossing
// the period end removes access.
func (r *PlanResolver) ActivePlan(ctx context.Context, tenantID string, at time.Time) (catalog.Plan, bool, error) {
	if r == nil || r.subscriptions == nil {
		return catalog.Plan{}, false, nil
	}

	subscription, err := r.subscriptions.GetSubscription(ctx, tenantID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return catalog.Plan{}, false, nil
		}
		return catalog.Plan{}, false, err
	}

	if !subscriptionInForce(subscription, at) {
		return catalog.Plan{}, false, nil
	}
	return catalog.PlanFor(catalog.Tier(subscription.PlanTier)), true, nil
}

func subscriptionInForce(subscription persistence.Subscription, at time.Time) bool {
	switch subscription.Status {
	case persistence.SubscriptionActive, persistence.SubscriptionCanceled:
	default:
		return false
	}
	if subscription.Status == persistence.SubscriptionCanceled && !subscription.CancelAtPeriodEnd {
		// Cancelled outright, not merely scheduled to lapse.
		return false
	}
	if subscription.CurrentPeriodEnd != nil && !at.Before(*subscription.CurrentPeriodEnd) {
		return false
	}
	return true
}
