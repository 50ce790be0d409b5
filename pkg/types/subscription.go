package types

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusFree      SubscriptionStatus = "free"
	SubscriptionStatusPremium   SubscriptionStatus = "premium"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonPurchase SubscriptionChangeReason = "purchase"
	SubscriptionChangeReasonRefund   SubscriptionChangeReason = "refund"
	SubscriptionChangeReasonExpiry   SubscriptionChangeReason = "expiry"
)

type UserSubscriptionInfo struct {
	Status    SubscriptionStatus `json:"status"`
	Plan      *PlanType          `json:"plan"`
	StartedAt *time.Time         `json:"started_at"`
	ExpiresAt *time.Time         `json:"expires_at"`
	AutoRenew bool               `json:"auto_renew"`
}
