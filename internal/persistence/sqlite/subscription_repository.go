package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/clinic-manager/internal/persistence"
)

// SubscriptionRepository implements persistence.SubscriptionRepository using
// SQLite.
type SubscriptionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewSubscriptionRepository creates a new SQLite subscription repository.
func NewSubscriptionRepository(pool *ConnectionPool) *SubscriptionRepository {
	return &SubscriptionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// GetSubscription retrieves the tenant's subscription row.
func (r *SubscriptionRepository) GetSubscription(ctx context.Context, tenantID string) (persistence.Subscription, error) {
	if tenantID == "" {
		return persistence.Subscription{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, tenant_id, plan_tier, status, billing_cycle, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at
		FROM subscriptions
		WHERE tenant_id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, tenantID)
	subscription, err := scanSubscription(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Subscription{}, persistence.ErrNotFound
		}
		return persistence.Subscription{}, r.mapper.MapError(err)
	}
	return subscription, nil
}

// PutSubscription inserts the tenant's subscription or updates it in place.
// The UNIQUE constraint on tenant_id guarantees repeated checkouts never
// create a second row; the original row's ID and created_at survive updates.
func (r *SubscriptionRepository) PutSubscription(ctx context.Context, subscription persistence.Subscription) (persistence.Subscription, error) {
	if subscription.ID == "" || subscription.TenantID == "" {
		return persistence.Subscription{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO subscriptions (id, tenant_id, plan_tier, status, billing_cycle, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			plan_tier = excluded.plan_tier,
			status = excluded.status,
			billing_cycle = excluded.billing_cycle,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			updated_at = excluded.updated_at
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		subscription.ID,
		subscription.TenantID,
		subscription.PlanTier,
		string(subscription.Status),
		string(subscription.BillingCycle),
		encodeTimestamp(subscription.CurrentPeriodStart),
		encodeNullTimestamp(subscription.CurrentPeriodEnd),
		subscription.CancelAtPeriodEnd,
		encodeTimestamp(subscription.CreatedAt),
		encodeTimestamp(subscription.UpdatedAt),
	)
	if err != nil {
		return persistence.Subscription{}, r.mapper.MapError(err)
	}

	return r.GetSubscription(ctx, subscription.TenantID)
}

func scanSubscription(scan func(dest ...any) error) (persistence.Subscription, error) {
	var subscription persistence.Subscription
	var statusStr, cycleStr, periodStartStr, createdAtStr, updatedAtStr string
	var periodEnd sql.NullString

	err := scan(
		&subscription.ID,
		&subscription.TenantID,
		&subscription.PlanTier,
		&statusStr,
		&cycleStr,
		&periodStartStr,
		&periodEnd,
		&subscription.CancelAtPeriodEnd,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Subscription{}, err
	}

	subscription.Status = persistence.SubscriptionStatus(statusStr)
	subscription.BillingCycle = persistence.BillingCycle(cycleStr)
	if subscription.CurrentPeriodStart, err = decodeTimestamp(periodStartStr); err != nil {
		return persistence.Subscription{}, fmt.Errorf("failed to parse current_period_start: %w", err)
	}
	if subscription.CurrentPeriodEnd, err = decodeNullTimestamp(periodEnd); err != nil {
		return persistence.Subscription{}, fmt.Errorf("failed to parse current_period_end: %w", err)
	}
	if subscription.CreatedAt, err = decodeTimestamp(createdAtStr); err != nil {
		return persistence.Subscription{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if subscription.UpdatedAt, err = decodeTimestamp(updatedAtStr); err != nil {
		return persistence.Subscription{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return subscription, nil
}
