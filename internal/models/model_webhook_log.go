package models

import (
	"github.com/nclex311/billing/pkg/types"
	"time"
)

// WebhookLog is the delivery ledger. WebhookID is the gateway event id and the
// idempotency key: a row is inserted with processed=false before any handling
// runs, flipped to processed=true exactly once on success, and never deleted.
type WebhookLog struct {
	ID        string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	WebhookID string                 `gorm:"column:webhook_id;type:varchar(128);not null;uniqueIndex:unique_webhook_id" json:"webhook_id"`
	EventType types.WebhookEventType `gorm:"column:event_type;type:varchar(64);not null" json:"event_type"`
	// RawPayload keeps the delivery body verbatim for audit and replay.
	RawPayload  string     `gorm:"column:raw_payload;type:text" json:"raw_payload"`
	Processed   bool       `gorm:"column:processed;not null;default:false" json:"processed"`
	ProcessedAt *time.Time `gorm:"column:processed_at;default:null" json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_log"
}
