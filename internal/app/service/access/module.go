package access

import (
	"go.uber.org/fx"

	"github.com/cursopassei/checkout/internal/platform/themembers"
	"github.com/cursopassei/checkout/pkg/mailer"
)

// Module exposes the access-grant service via Fx.
var Module = fx.Options(
	fx.Provide(func(c *themembers.Client) MembershipAPI { return c }),
	fx.Provide(func(m *mailer.Mailer) AccessMailer { return m }),
	fx.Provide(NewService),
)
