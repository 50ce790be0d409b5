package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	types "github.com/nclex311/billing/pkg/types"
)

// InvoiceEvent is the decoded webhook body. Only the fields this pipeline
// consumes are declared; everything else stays in the ledger's raw payload.
type InvoiceEvent struct {
	ID            string     `json:"id"`
	ExternalID    string     `json:"external_id"`
	Status        string     `json:"status"`
	PaidAmount    *int64     `json:"paid_amount,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	FailureCode   string     `json:"failure_code,omitempty"`
}

// ParseInvoiceEvent decodes raw into a typed event. The structural gate runs
// first, so a returned event always carries its identifiers and a status from
// the closed set; raw maps never travel past this function.
func ParseInvoiceEvent(raw []byte) (*InvoiceEvent, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !ValidatePayload(decoded) {
		return nil, fmt.Errorf("%w: missing identifiers or unrecognized status", ErrInvalidPayload)
	}
	var ev InvoiceEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &ev, nil
}

// ValidatePayload reports whether a decoded JSON value has the shape of an
// invoice callback: an object whose id, external_id and status are non-empty
// strings, with status in the closed set the gateway emits. Shape legality
// only, never authorization. Total over any input, including nil.
func ValidatePayload(payload any) bool {
	obj, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	if stringField(obj, "id") == "" || stringField(obj, "external_id") == "" {
		return false
	}
	switch stringField(obj, "status") {
	case types.InvoiceStatusPending, types.InvoiceStatusPaid, types.InvoiceStatusExpired, types.InvoiceStatusFailed:
		return true
	default:
		return false
	}
}

// ExtractEventID returns the gateway event id from a decoded JSON value, or
// "" when the field is absent or not a string.
func ExtractEventID(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	return stringField(obj, "id")
}

// ExtractOrderRef returns the order id the gateway echoes back in
// external_id, or "" when the field is absent or not a string.
func ExtractOrderRef(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	return stringField(obj, "external_id")
}

func stringField(obj map[string]any, key string) string {
	v, _ := obj[key].(string)
	return v
}

// MapStatusToEventType classifies a status string for the ledger and logs.
// Total and case-sensitive: anything unrecognized classifies as pending
// rather than erroring, since the result carries no authorization meaning.
func MapStatusToEventType(status string) types.WebhookEventType {
	switch status {
	case types.InvoiceStatusPaid:
		return types.WebhookEventInvoicePaid
	case types.InvoiceStatusExpired:
		return types.WebhookEventInvoiceExpired
	case types.InvoiceStatusFailed:
		return types.WebhookEventInvoiceFailed
	default:
		return types.WebhookEventInvoicePending
	}
}
