package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/webhooklog"
	"github.com/nclex311/billing/internal/platform/mail"
	models "github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/logctx"
	types "github.com/nclex311/billing/pkg/types"

	"go.uber.org/zap"
)

// Verifier authenticates a delivery from its transport headers and raw body.
type Verifier interface {
	Verify(token, signature string, raw []byte) bool
}

// Ledger is the delivery deduplication store.
type Ledger interface {
	IsProcessed(ctx context.Context, webhookID string) (bool, error)
	Create(ctx context.Context, entry *models.WebhookLog) error
	MarkProcessed(ctx context.Context, webhookID string) error
	GetByWebhookID(ctx context.Context, webhookID string) (*models.WebhookLog, error)
}

// OrderStore resolves and transitions order rows.
type OrderStore interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	Update(ctx context.Context, orderID string, fields map[string]any) (*models.Order, error)
}

// Entitlements grants subscription state for paid orders.
type Entitlements interface {
	Grant(ctx context.Context, userID string, plan types.PlanType, expiresAt time.Time, autoRenew bool, orderID string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Result is what a settled delivery reports back to the HTTP layer.
type Result struct {
	WebhookID string                 `json:"webhook_id"`
	EventType types.WebhookEventType `json:"event_type"`
	// Duplicate is true when the delivery was short-circuited because the
	// event id was already recorded.
	Duplicate bool `json:"duplicate"`
}

// Processor is the handler-facing contract.
type Processor interface {
	Process(ctx context.Context, token, signature string, raw []byte) (*Result, error)
}

// Service drives one delivery through verify, validate, dedupe, order
// transition and side effects. Expected rejections come back as the typed
// errors in this package; anything else is a transient fault the gateway
// should retry.
type Service struct {
	verifier Verifier
	ledger   Ledger
	orders   OrderStore
	ents     Entitlements
	mailer   mail.Sender
	log      *zap.SugaredLogger
}

var _ Processor = (*Service)(nil)

func New(verifier Verifier, ledger Ledger, orders OrderStore, ents Entitlements, mailer mail.Sender, log *zap.SugaredLogger) *Service {
	return &Service{
		verifier: verifier,
		ledger:   ledger,
		orders:   orders,
		ents:     ents,
		mailer:   mailer,
		log:      log,
	}
}

// Process handles one delivery. The raw body must be the exact bytes received
// on the wire since the signature binds to them.
func (s *Service) Process(ctx context.Context, token, signature string, raw []byte) (*Result, error) {
	log := logctx.FromCtx(ctx, s.log)

	if !s.verifier.Verify(token, signature, raw) {
		return nil, ErrVerificationFailed
	}

	ev, err := ParseInvoiceEvent(raw)
	if err != nil {
		return nil, err
	}

	webhookID := ev.ID
	orderID := ev.ExternalID
	eventType := MapStatusToEventType(ev.Status)

	processed, err := s.ledger.IsProcessed(ctx, webhookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check delivery ledger: %w", err)
	}
	if processed {
		log.Infow("webhook already processed", "webhook_id", webhookID)
		return &Result{WebhookID: webhookID, EventType: eventType, Duplicate: true}, nil
	}

	err = s.ledger.Create(ctx, &models.WebhookLog{
		WebhookID:  webhookID,
		EventType:  eventType,
		RawPayload: string(raw),
	})
	if err != nil {
		if !errors.Is(err, webhooklog.ErrDuplicateDelivery) {
			return nil, fmt.Errorf("failed to record delivery: %w", err)
		}
		// Lost the insert race. A settled row means this is a replay; an
		// unsettled row was left by an attempt that failed before marking,
		// so this delivery resumes its work.
		existing, lerr := s.ledger.GetByWebhookID(ctx, webhookID)
		if lerr != nil {
			return nil, fmt.Errorf("failed to load delivery ledger row: %w", lerr)
		}
		if existing.Processed {
			log.Infow("duplicate webhook delivery", "webhook_id", webhookID)
			return &Result{WebhookID: webhookID, EventType: eventType, Duplicate: true}, nil
		}
		log.Infow("resuming unsettled webhook delivery", "webhook_id", webhookID)
	}

	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			// Redelivery will never make the order appear, so stop the
			// gateway's retries before reporting the miss.
			if mErr := s.ledger.MarkProcessed(ctx, webhookID); mErr != nil {
				log.Errorw("failed to settle ledger for unknown order", "webhook_id", webhookID, "error", mErr)
			}
			log.Warnw("webhook references unknown order", "webhook_id", webhookID, "order_id", orderID)
			return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
		}
		return nil, fmt.Errorf("failed to resolve order: %w", err)
	}

	if err := s.apply(ctx, ev, ord); err != nil {
		// Ledger row stays unprocessed so the gateway's retry redoes the
		// order transition.
		return nil, err
	}

	if err := s.ledger.MarkProcessed(ctx, webhookID); err != nil {
		return nil, fmt.Errorf("failed to mark delivery processed: %w", err)
	}

	log.Infow("webhook processed", "webhook_id", webhookID, "order_id", ord.ID, "status", ev.Status)
	return &Result{WebhookID: webhookID, EventType: eventType}, nil
}

// apply runs the status-specific order transition. PAID is the only branch
// with side effects beyond the order row.
func (s *Service) apply(ctx context.Context, ev *InvoiceEvent, ord *models.Order) error {
	switch ev.Status {
	case types.InvoiceStatusPaid:
		return s.applyPaid(ctx, ev, ord)
	case types.InvoiceStatusExpired:
		_, err := s.orders.Update(ctx, ord.ID, map[string]any{
			"status": types.OrderStatusExpired,
		})
		if err != nil {
			return fmt.Errorf("failed to mark order expired: %w", err)
		}
		return nil
	case types.InvoiceStatusFailed:
		_, err := s.orders.Update(ctx, ord.ID, map[string]any{
			"status":       types.OrderStatusFailed,
			"failure_code": ev.FailureCode,
		})
		if err != nil {
			return fmt.Errorf("failed to mark order failed: %w", err)
		}
		return nil
	default:
		// The validator constrains the enum, so only PENDING lands here.
		// Nothing to apply; the delivery is still settled in the ledger.
		logctx.FromCtx(ctx, s.log).Infow("no order transition for status", "status", ev.Status, "order_id", ord.ID)
		return nil
	}
}

func (s *Service) applyPaid(ctx context.Context, ev *InvoiceEvent, ord *models.Order) error {
	now := time.Now()

	paidAt := ev.PaidAt
	if paidAt == nil {
		paidAt = &now
	}
	paidAmount := ev.PaidAmount
	if paidAmount == nil {
		paidAmount = &ord.Amount
	}

	updated, err := s.orders.Update(ctx, ord.ID, map[string]any{
		"status":         types.OrderStatusPaid,
		"paid_amount":    paidAmount,
		"paid_at":        paidAt,
		"payment_method": ev.PaymentMethod,
	})
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	expiresAt := now.Add(ord.PlanType.Duration())
	if err := s.ents.Grant(ctx, ord.UserID, ord.PlanType, expiresAt, ord.PlanType.Recurring(), ord.ID); err != nil {
		return fmt.Errorf("failed to grant entitlement: %w", err)
	}

	s.sendConfirmation(ctx, updated)
	return nil
}

// sendConfirmation is best-effort: a dropped email never affects the already
// committed order and entitlement state.
func (s *Service) sendConfirmation(ctx context.Context, ord *models.Order) {
	log := logctx.FromCtx(ctx, s.log)

	user, err := s.ents.GetUser(ctx, ord.UserID)
	if err != nil {
		log.Errorw("failed to load user for confirmation email", "order_id", ord.ID, "user_id", ord.UserID, "error", err)
		return
	}

	msg := &mail.Message{
		To:      user.Email,
		Subject: "Your NCLEX 311 premium access is active",
		Body: fmt.Sprintf(
			"Hi,\r\n\r\nWe received your payment for order %s (%s). Your premium access is now active.\r\n\r\nThe NCLEX 311 team",
			ord.ID, ord.PlanType,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Errorw("failed to send confirmation email", "order_id", ord.ID, "error", err)
	}
}
