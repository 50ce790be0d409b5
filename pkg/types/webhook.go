package types

// Invoice status strings as the gateway sends them. Matching is case-sensitive.
const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPaid    = "PAID"
	InvoiceStatusExpired = "EXPIRED"
	InvoiceStatusFailed  = "FAILED"
)

// WebhookEventType classifies a delivery for the ledger and logs. It carries
// no authorization meaning.
type WebhookEventType string

const (
	WebhookEventInvoicePending WebhookEventType = "invoice.pending"
	WebhookEventInvoicePaid    WebhookEventType = "invoice.paid"
	WebhookEventInvoiceExpired WebhookEventType = "invoice.expired"
	WebhookEventInvoiceFailed  WebhookEventType = "invoice.failed"
)
