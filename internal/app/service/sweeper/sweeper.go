package sweeper

import (
	"context"
	"time"

	"github.com/nclex311/billing/internal/platform/xendit"
	models "github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/config"

	"go.uber.org/zap"
)

// OrderExpirer flips stale pending orders and reports which rows it touched.
type OrderExpirer interface {
	ExpireStale(ctx context.Context, now time.Time, pendingTTL time.Duration) ([]*models.Order, error)
}

// SubscriptionExpirer retires premium windows that have lapsed.
type SubscriptionExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int, error)
}

// InvoiceExpirer closes the hosted invoice so the gateway stops accepting
// payment for an order this side already gave up on.
type InvoiceExpirer interface {
	ExpireInvoice(ctx context.Context, invoiceID string) (*xendit.Invoice, error)
}

// Sweeper periodically expires stale pending orders and lapsed subscriptions.
// It is the out-of-band cleanup for invoices whose EXPIRED webhook never
// arrived; the webhook pipeline stays the primary settlement path.
type Sweeper struct {
	cfg     *config.Config
	orders  OrderExpirer
	subs    SubscriptionExpirer
	gateway InvoiceExpirer
	log     *zap.SugaredLogger

	stop chan struct{}
	done chan struct{}
}

func New(cfg *config.Config, orders OrderExpirer, subs SubscriptionExpirer, gateway InvoiceExpirer, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		cfg:     cfg,
		orders:  orders,
		subs:    subs,
		gateway: gateway,
		log:     log,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Sweep runs one pass. Gateway calls are best-effort; the local state change
// already happened and the invoice dies on its own expiry anyway.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	stale, err := s.orders.ExpireStale(ctx, now, s.cfg.Sweep.PendingTTL)
	if err != nil {
		s.log.Errorw("failed to expire stale orders", "error", err)
	}
	for _, o := range stale {
		if o.ExternalInvoiceID == "" {
			continue
		}
		if _, err := s.gateway.ExpireInvoice(ctx, o.ExternalInvoiceID); err != nil {
			s.log.Warnw("failed to expire gateway invoice",
				"order_id", o.ID, "invoice_id", o.ExternalInvoiceID, "error", err)
		}
	}

	lapsed, err := s.subs.ExpireLapsed(ctx, now)
	if err != nil {
		s.log.Errorw("failed to expire lapsed subscriptions", "error", err)
		return
	}

	if len(stale) > 0 || lapsed > 0 {
		s.log.Infow("sweep finished", "stale_orders", len(stale), "lapsed_subscriptions", lapsed)
	}
}

func (s *Sweeper) run(interval time.Duration) {
	defer close(s.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			s.Sweep(ctx, now)
			cancel()
		}
	}
}
