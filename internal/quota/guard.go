// Package quota decides whether a tenant may create another resource under
// its subscription plan. A check is local, synchronous and side-effect free:
// the caller reads the current count, the guard compares it against the plan
// ceiling and returns a decision. A denial is an answer, not an error; the
// caller decides how to surface it (typically an upsell prompt).
//
// For appointments the count must cover only the tenant-local current
// calendar month, matching the billing period; all-time counts would starve
// long-lived tenants. Callers are responsible for evaluating the count read
// and the subsequent write inside one store transaction so two concurrent
// requests cannot both pass the same check.
package quota

import "github.com/example/clinic-manager/internal/catalog"

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed      bool
	Resource     catalog.Resource
	Limit        catalog.Limit
	CurrentCount int
}

// Remaining returns how many more resources may be created and whether that
// number is finite. Unlimited plans report ok=false.
func (d Decision) Remaining() (int, bool) {
	if d.Limit.IsUnlimited() {
		return 0, false
	}
	remaining := d.Limit.Value() - d.CurrentCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Check compares the current count against the plan's ceiling for the given
// resource. Creation is allowed while the count is strictly below the limit:
// with a limit of 5, the fifth creation (count 4) passes and the sixth
// (count 5) is denied.
func Check(plan catalog.Plan, resource catalog.Resource, currentCount int) Decision {
	limit := plan.LimitFor(resource)
	if limit.IsUnlimited() {
		return Decision{Allowed: true, Resource: resource, Limit: limit, CurrentCount: currentCount}
	}
	return Decision{
		Allowed:      currentCount < limit.Value(),
		Resource:     resource,
		Limit:        limit,
		CurrentCount: currentCount,
	}
}

// DenyAll returns the decision used when a tenant has no active subscription:
// every resource kind reports a zero ceiling.
func DenyAll(resource catalog.Resource, currentCount int) Decision {
	return Decision{
		Allowed:      false,
		Resource:     resource,
		Limit:        catalog.LimitOf(0),
		CurrentCount: currentCount,
	}
}
