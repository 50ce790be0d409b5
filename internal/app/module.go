package app

import (
    "github.com/nclex311/billing/internal/app/api/server"
    "github.com/nclex311/billing/internal/app/service/checkout"
    "github.com/nclex311/billing/internal/app/service/order"
    "github.com/nclex311/billing/internal/app/service/statistics"
    "github.com/nclex311/billing/internal/app/service/subscription"
    "github.com/nclex311/billing/internal/app/service/sweeper"
    "github.com/nclex311/billing/internal/app/service/webhook"
    "github.com/nclex311/billing/internal/app/service/webhooklog"
    "github.com/nclex311/billing/internal/platform/db"
    "github.com/nclex311/billing/internal/platform/mail"
    "github.com/nclex311/billing/internal/platform/xendit"
    "github.com/nclex311/billing/pkg/config"
    "github.com/nclex311/billing/pkg/logger"
	"time"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
    logger.Module,
    config.Module,
    db.Module,
    xendit.Module,
    mail.Module,
    server.Module,
    webhooklog.Module,
    order.Module,
    subscription.Module,
    webhook.Module,
    checkout.Module,
    statistics.Module,
    sweeper.Module,
)
