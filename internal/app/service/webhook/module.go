package webhook

import (
	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/subscription"
	"github.com/nclex311/billing/internal/app/service/webhooklog"
	"github.com/nclex311/billing/internal/platform/mail"
	"github.com/nclex311/billing/internal/platform/xendit"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(func(
		verifier *xendit.CallbackVerifier,
		ledger *webhooklog.Service,
		orders *order.Service,
		subs *subscription.Service,
		mailer mail.Sender,
		log *zap.SugaredLogger,
	) *Service {
		return New(verifier, ledger, orders, subs, mailer, log)
	}),
)
