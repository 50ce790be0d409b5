package models

import (
	"github.com/nclex311/billing/pkg/types"
	"time"
)

// User carries the subscription aspect of the account. Identity fields are
// owned by the main application; this service writes only the subscription
// columns, and only through the subscription service.
type User struct {
	ID                 string                   `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email              string                   `gorm:"column:email;type:varchar(255);not null;uniqueIndex:unique_users_email" json:"email"`
	FullName           string                   `gorm:"column:full_name;type:varchar(255)" json:"full_name"`
	SubscriptionStatus types.SubscriptionStatus `gorm:"column:subscription_status;type:varchar(16);not null;default:'free'" json:"subscription_status"`
	SubscriptionPlan   *types.PlanType          `gorm:"column:subscription_plan;type:varchar(32);default:null" json:"subscription_plan"`
	// StartedAt/ExpiresAt bound the current premium window.
	SubscriptionStartedAt *time.Time `gorm:"column:subscription_started_at;default:null" json:"subscription_started_at"`
	SubscriptionExpiresAt *time.Time `gorm:"column:subscription_expires_at;default:null" json:"subscription_expires_at"`
	// AutoRenew is meaningful for the recurring (monthly) plan only.
	AutoRenew bool      `gorm:"column:auto_renew;not null;default:false" json:"auto_renew"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// PremiumActive reports whether the user holds a live premium entitlement at t.
func (u *User) PremiumActive(t time.Time) bool {
	return u != nil &&
		u.SubscriptionStatus == types.SubscriptionStatusPremium &&
		u.SubscriptionExpiresAt != nil &&
		u.SubscriptionExpiresAt.After(t)
}

// SubscriptionState is a point-in-time snapshot of the subscription columns,
// stored in subscription_log before/after fields.
type SubscriptionState struct {
	Status    types.SubscriptionStatus `json:"status"`
	Plan      *types.PlanType          `json:"plan"`
	StartedAt *time.Time               `json:"started_at"`
	ExpiresAt *time.Time               `json:"expires_at"`
	AutoRenew bool                     `json:"auto_renew"`
}

// Subscription snapshots the user's current subscription columns.
func (u *User) Subscription() *SubscriptionState {
	if u == nil {
		return nil
	}
	return &SubscriptionState{
		Status:    u.SubscriptionStatus,
		Plan:      u.SubscriptionPlan,
		StartedAt: u.SubscriptionStartedAt,
		ExpiresAt: u.SubscriptionExpiresAt,
		AutoRenew: u.AutoRenew,
	}
}
