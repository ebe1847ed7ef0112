package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cursopassei/checkout/docs"
	"github.com/cursopassei/checkout/internal/app/api/handlers"
	mw "github.com/cursopassei/checkout/internal/app/api/middleware"
	"github.com/cursopassei/checkout/internal/app/service/checkout"
	"github.com/cursopassei/checkout/internal/app/service/ledger"
	"github.com/cursopassei/checkout/internal/app/service/reconcile"
	"github.com/cursopassei/checkout/internal/app/service/statistics"
	cfgpkg "github.com/cursopassei/checkout/pkg/config"
	"github.com/cursopassei/checkout/pkg/jwtauth"
	metrics "github.com/cursopassei/checkout/pkg/metrics"

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

func registerRoutes(r *gin.Engine, log *zap.SugaredLogger, cfg *cfgpkg.Config, jwtMgr *jwtauth.Manager, chk *checkout.Service, rec *reconcile.Service, led *ledger.Service, stats *statistics.Service) {
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

	// Storefront checkout + polling APIs
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterCheckoutRoutes(apiV1, chk, rec, log)

	// Asaas webhook ingest (sender-gated inside the handler)
	handlers.RegisterWebhookRoutes(apiV1.Group("/webhook"), rec, cfg, log)

	// Admin APIs behind JWT auth
	admin := apiV1.Group("/admin")
	admin.Use(mw.AdminAuthMiddleware(jwtMgr))
	handlers.RegisterAdminRoutes(admin, led, stats, chk, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
