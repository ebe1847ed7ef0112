package reconcile

import (
	"go.uber.org/fx"

	"github.com/cursopassei/checkout/internal/app/service/access"
	"github.com/cursopassei/checkout/internal/platform/asaas"
)

// Module exposes the reconciliation service via Fx.
var Module = fx.Options(
	fx.Provide(func(c *asaas.Client) PaymentReader { return c }),
	fx.Provide(func(s *access.Service) Granter { return s }),
	fx.Provide(NewService),
)
