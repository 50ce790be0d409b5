package checkout

import (
	"context"
	"fmt"

	"github.com/nclex311/billing/internal/platform/xendit"
	models "github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/config"
	"github.com/nclex311/billing/pkg/logctx"
	"github.com/nclex311/billing/pkg/tool"
	types "github.com/nclex311/billing/pkg/types"

	"go.uber.org/zap"
)

// InvoiceCreator is the gateway call that produces a hosted invoice.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req *xendit.CreateInvoiceRequest) (*xendit.Invoice, error)
}

// OrderCreator persists the new pending order.
type OrderCreator interface {
	Create(ctx context.Context, o *models.Order) error
}

// UserProvisioner guarantees the user row the webhook will later grant against.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, userID, email string) (*models.User, error)
}

// Result is what the checkout endpoint returns: the pending order plus the
// hosted invoice URL the client redirects to.
type Result struct {
	Order      *models.Order `json:"order"`
	InvoiceURL string        `json:"invoice_url"`
}

// Creator is the checkout surface consumed by the HTTP layer.
type Creator interface {
	CreateCheckout(ctx context.Context, userID, email string, planType types.PlanType) (*Result, error)
}

type Service struct {
	cfg     *config.Config
	gateway InvoiceCreator
	orders  OrderCreator
	users   UserProvisioner
	log     *zap.SugaredLogger
}

var _ Creator = (*Service)(nil)

func New(cfg *config.Config, gateway InvoiceCreator, orders OrderCreator, users UserProvisioner, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, gateway: gateway, orders: orders, users: users, log: log}
}

// CreateCheckout opens one purchase attempt: it provisions the user row,
// creates the hosted invoice with the order id as the external reference, and
// persists the order in pending state carrying the invoice references.
func (s *Service) CreateCheckout(ctx context.Context, userID, email string, planType types.PlanType) (*Result, error) {
	plan := s.cfg.GetPlanByType(planType)
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, planType)
	}

	user, err := s.users.EnsureUser(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	orderID := tool.GenerateUUIDV7()
	inv, err := s.gateway.CreateInvoice(ctx, &xendit.CreateInvoiceRequest{
		ExternalID:         orderID,
		Amount:             plan.Amount,
		Currency:           plan.Currency,
		Description:        plan.Description,
		PayerEmail:         user.Email,
		InvoiceDuration:    s.cfg.Gateway.InvoiceDuration,
		SuccessRedirectURL: s.cfg.Gateway.SuccessRedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway invoice: %w", err)
	}

	ord := &models.Order{
		ID:                 orderID,
		UserID:             user.ID,
		Amount:             plan.Amount,
		Currency:           plan.Currency,
		Status:             types.OrderStatusPending,
		PlanType:           plan.PlanType,
		IsRecurring:        plan.PlanType.Recurring(),
		ExternalInvoiceID:  inv.ID,
		ExternalInvoiceURL: inv.InvoiceURL,
		ExpiresAt:          inv.ExpiryDate,
	}
	if err := s.orders.Create(ctx, ord); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("checkout created",
		"order_id", ord.ID, "user_id", user.ID, "plan", plan.PlanType, "invoice_id", inv.ID)

	return &Result{Order: ord, InvoiceURL: inv.InvoiceURL}, nil
}
