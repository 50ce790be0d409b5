package sweeper

import (
	"context"

	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/subscription"
	"github.com/nclex311/billing/internal/platform/xendit"
	"github.com/nclex311/billing/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func registerSweeper(lc fx.Lifecycle, s *Sweeper, cfg *config.Config, log *zap.SugaredLogger) {
	interval := cfg.Sweep.Interval
	if interval <= 0 {
		log.Infow("pending sweep disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("pending sweep started", "interval", interval)
			go s.run(interval)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

var Module = fx.Options(
	fx.Provide(func(
		cfg *config.Config,
		orders *order.Service,
		subs *subscription.Service,
		gateway *xendit.Client,
		log *zap.SugaredLogger,
	) *Sweeper {
		return New(cfg, orders, subs, gateway, log)
	}),
	fx.Invoke(registerSweeper),
)
