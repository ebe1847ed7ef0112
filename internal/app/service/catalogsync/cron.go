package catalogsync

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cursopassei/checkout/internal/platform/themembers"
	cfgpkg "github.com/cursopassei/checkout/pkg/config"
)

func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// registerCron schedules the periodic catalog sync. The schedule uses
// seconds precision and comes from configuration.
func registerCron(lc fx.Lifecycle, cfg *cfgpkg.Config, svc *Service, log *zap.SugaredLogger) error {
	if !cfg.CatalogSync.Enabled {
		log.Infow("catalog sync disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(cfg.CatalogSync.Schedule, func() {
		if _, err := svc.SyncProducts(context.Background()); err != nil {
			log.Errorw("scheduled catalog sync failed", "err", err)
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting catalog sync scheduler", "schedule", cfg.CatalogSync.Schedule)
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

// Module exposes the catalog sync service and its scheduler via Fx.
var Module = fx.Options(
	fx.Provide(func(c *themembers.Client) Catalog { return c }),
	fx.Provide(NewService),
	fx.Invoke(registerCron),
)
