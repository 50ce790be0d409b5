package checkout

import (
	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/subscription"
	"github.com/nclex311/billing/internal/platform/xendit"
	"github.com/nclex311/billing/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(func(
		cfg *config.Config,
		gateway *xendit.Client,
		orders *order.Service,
		subs *subscription.Service,
		log *zap.SugaredLogger,
	) *Service {
		return New(cfg, gateway, orders, subs, log)
	}),
)
