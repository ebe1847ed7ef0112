package checkout

import (
	"go.uber.org/fx"

	"github.com/cursopassei/checkout/internal/platform/asaas"
)

// Module exposes the checkout service via Fx.
var Module = fx.Options(
	fx.Provide(func(c *asaas.Client) Gateway { return c }),
	fx.Provide(NewService),
)
