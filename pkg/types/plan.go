package types

import "time"

type PlanType string

const (
	PlanTypeMonthlyPremium PlanType = "monthly_premium"
	PlanTypeAnnualPremium  PlanType = "annual_premium"
)

func (p PlanType) Valid() bool {
	return p == PlanTypeMonthlyPremium || p == PlanTypeAnnualPremium
}

// Duration returns the entitlement length granted by one paid order of this plan.
func (p PlanType) Duration() time.Duration {
	switch p {
	case PlanTypeMonthlyPremium:
		return 30 * 24 * time.Hour
	case PlanTypeAnnualPremium:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// Recurring reports whether the plan renews automatically. Only the monthly
// plan is sold as recurring.
func (p PlanType) Recurring() bool {
	return p == PlanTypeMonthlyPremium
}

// Plan is a sellable plan as configured (price in minor currency units).
type Plan struct {
	PlanType    PlanType `json:"plan_type" mapstructure:"plan_type"`
	Amount      int64    `json:"amount" mapstructure:"amount"`
	Currency    string   `json:"currency" mapstructure:"currency"`
	Description string   `json:"description" mapstructure:"description"`
}
