package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nclex311/billing/docs"
	"github.com/nclex311/billing/internal/app/api/handlers"
	"github.com/nclex311/billing/internal/app/service/checkout"
	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/statistics"
	subsvc "github.com/nclex311/billing/internal/app/service/subscription"
	"github.com/nclex311/billing/internal/app/service/webhook"
	cfgpkg "github.com/nclex311/billing/pkg/config"

	mw "github.com/nclex311/billing/internal/app/api/middleware"

	metrics "github.com/nclex311/billing/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(r *gin.Engine, log *zap.SugaredLogger, proc *webhook.Service, co *checkout.Service, subs *subsvc.Service, orders *order.Service, stats *statistics.Service, cfg *cfgpkg.Config) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Gateway callbacks authenticate with the callback token, not a user JWT.
	pay := r.Group("/api/v1/payments")
	pay.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterWebhookRoutes(pay, proc, log)

	// Authenticated user APIs
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AuthMiddleware(cfg))
	handlers.RegisterBillingRoutes(apiV1.Group("/billing"), co, subs, orders, log)

	// Admin billing APIs
	admin := apiV1.Group("/admin/billing")
	admin.Use(mw.RequireAdmin())
	handlers.RegisterAdminBillingRoutes(admin, orders, stats, subs, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
