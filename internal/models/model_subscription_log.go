package models

import (
	"github.com/nclex311/billing/pkg/types"
	"time"

	"gorm.io/datatypes"
)

// SubscriptionLog records every subscription mutation.
// Use case: troubleshooting and refund audits.
type SubscriptionLog struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);index:idx_sub_log_user_id_id,priority:1;not null" json:"user_id"`
	// OrderID is the order that caused the change, empty for the expiry sweep.
	OrderID string `gorm:"column:order_id;type:uuid;default:null" json:"order_id"`
	// Reason is the change reason.
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	// Before stores the subscription state before the change in JSON format.
	Before datatypes.JSONType[*SubscriptionState] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	// After stores the subscription state after the change in JSON format.
	After datatypes.JSONType[*SubscriptionState] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	// Extra stores additional context such as trigger source.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time         `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
