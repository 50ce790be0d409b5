package models

import (
	"github.com/nclex311/billing/pkg/types"
	"time"
)

// Order is one attempt to purchase a subscription plan. The id is generated
// by the checkout service and immutable; rows are never deleted.
type Order struct {
	ID       string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID   string            `gorm:"column:user_id;type:varchar(64);not null;index:idx_orders_user_id_created_at,priority:1" json:"user_id"`
	Amount   int64             `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency string            `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status   types.OrderStatus `gorm:"column:status;type:varchar(16);not null;index:idx_orders_status" json:"status"`
	PlanType types.PlanType    `gorm:"column:plan_type;type:varchar(32);not null" json:"plan_type"`
	// IsRecurring mirrors PlanType.Recurring at creation time.
	IsRecurring bool `gorm:"column:is_recurring;not null;default:false" json:"is_recurring"`
	// ExternalInvoiceID/URL are opaque gateway references for the hosted invoice.
	ExternalInvoiceID  string `gorm:"column:external_invoice_id;type:varchar(128)" json:"external_invoice_id"`
	ExternalInvoiceURL string `gorm:"column:external_invoice_url;type:text" json:"external_invoice_url"`
	// Settlement fields, populated by the webhook pipeline.
	PaymentMethod string     `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	PaidAmount    *int64     `gorm:"column:paid_amount;type:bigint;default:null" json:"paid_amount"`
	PaidAt        *time.Time `gorm:"column:paid_at;default:null" json:"paid_at"`
	// ExpiresAt is the hosted invoice validity end, used by the pending sweep.
	ExpiresAt   *time.Time `gorm:"column:expires_at;default:null" json:"expires_at"`
	FailureCode string     `gorm:"column:failure_code;type:varchar(64)" json:"failure_code"`
	CreatedAt   time.Time  `gorm:"index:idx_orders_user_id_created_at,priority:2,sort:desc" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
