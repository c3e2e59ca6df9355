// Package catalog holds the static subscription plan configuration: per-tier
// resource ceilings, pricing and feature flags. The data never changes at
// runtime; the quota guard reads it to decide whether a tenant may create
// another resource.
package catalog

import "fmt"

// Tier identifies a subscription plan level.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierMaster  Tier = "master"
)

// Valid reports whether the tier is a known plan level.
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierPremium, TierMaster:
		return true
	default:
		return false
	}
}

// Resource identifies a quota-governed resource kind.
type Resource string

const (
	ResourcePatients             Resource = "patients"
	ResourceProfessionals        Resource = "professionals"
	ResourceAppointmentsPerMonth Resource = "appointments_per_month"
)

// SupportTier labels the support channel included with a plan.
type SupportTier string

const (
	SupportStandard SupportTier = "standard"
	SupportPriority SupportTier = "priority"
	SupportDedicated SupportTier = "dedicated"
)

// Limit is a resource ceiling that is either a non-negative integer or the
// unlimited sentinel.
type Limit struct {
	value     int
	unlimited bool
}

// LimitOf returns a bounded limit.
func LimitOf(n int) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{value: n}
}

// Unlimited returns the unlimited sentinel.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether the limit is the unlimited sentinel.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the numeric ceiling. It is meaningless for unlimited limits;
// callers must check IsUnlimited first.
func (l Limit) Value() int {
	return l.value
}

// Ptr returns the ceiling as a nullable integer, nil meaning unlimited. This
// matches how the record store encodes limits (NULL columns on the master
// tier).
func (l Limit) Ptr() *int {
	if l.unlimited {
		return nil
	}
	v := l.value
	return &v
}

// String renders the limit for logs and API payloads.
func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", l.value)
}

// Plan is one static catalog entry.
type Plan struct {
	Tier                    Tier
	PriceCents              int
	MaxPatients             Limit
	MaxProfessionals        Limit
	MaxAppointmentsPerMonth Limit
	AIAssistantEnabled      bool
	Support                 SupportTier
}

// LimitFor returns the plan's ceiling for the given resource kind. Unknown
// resource kinds report a zero limit, which denies creation.
func (p Plan) LimitFor(resource Resource) Limit {
	switch resource {
	case ResourcePatients:
		return p.MaxPatients
	case ResourceProfessionals:
		return p.MaxProfessionals
	case ResourceAppointmentsPerMonth:
		return p.MaxAppointmentsPerMonth
	default:
		return LimitOf(0)
	}
}

var plans = map[Tier]Plan{
	TierBasic: {
		Tier:                    TierBasic,
		PriceCents:              3990,
		MaxPatients:             LimitOf(75),
		MaxProfessionals:        LimitOf(7),
		MaxAppointmentsPerMonth: LimitOf(50),
		AIAssistantEnabled:      false,
		Support:                 SupportStandard,
	},
	TierPremium: {
		Tier:                    TierPremium,
		PriceCents:              8990,
		MaxPatients:             LimitOf(500),
		MaxProfessionals:        LimitOf(50),
		MaxAppointmentsPerMonth: LimitOf(500),
		AIAssistantEnabled:      true,
		Support:                 SupportPriority,
	},
	TierMaster: {
		Tier:                    TierMaster,
		PriceCents:              14990,
		MaxPatients:             Unlimited(),
		MaxProfessionals:        Unlimited(),
		MaxAppointmentsPerMonth: Unlimited(),
		AIAssistantEnabled:      true,
		Support:                 SupportDedicated,
	},
}

// PlanFor returns the catalog entry for a tier. Unknown tiers resolve to the
// basic plan, the most restrictive paid tier, so a corrupt subscription row
// can never grant unlimited usage.
func PlanFor(tier Tier) Plan {
	if plan, ok := plans[tier]; ok {
		return plan
	}
	return plans[TierBasic]
}

// Plans returns every catalog entry keyed by tier. The returned map is a
// copy; mutating it does not affect the catalog.
func Plans() map[Tier]Plan {
	out := make(map[Tier]Plan, len(plans))
	for tier, plan := range plans {
		out[tier] = plan
	}
	return out
}
