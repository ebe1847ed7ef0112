package app

import (
	"time"

	"github.com/cursopassei/checkout/internal/app/api/server"
	"github.com/cursopassei/checkout/internal/app/service/access"
	"github.com/cursopassei/checkout/internal/app/service/catalogsync"
	"github.com/cursopassei/checkout/internal/app/service/checkout"
	"github.com/cursopassei/checkout/internal/app/service/ledger"
	"github.com/cursopassei/checkout/internal/app/service/reconcile"
	"github.com/cursopassei/checkout/internal/app/service/statistics"
	"github.com/cursopassei/checkout/internal/platform/asaas"
	"github.com/cursopassei/checkout/internal/platform/db"
	"github.com/cursopassei/checkout/internal/platform/themembers"
	"github.com/cursopassei/checkout/pkg/config"
	"github.com/cursopassei/checkout/pkg/jwtauth"
	"github.com/cursopassei/checkout/pkg/logger"
	"github.com/cursopassei/checkout/pkg/mailer"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

func newJWTManager(cfg *config.Config) *jwtauth.Manager {
	return jwtauth.NewManager(cfg.AdminJWTSecret)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	asaas.Module,
	themembers.Module,
	mailer.Module,
	access.Module,
	checkout.Module,
	reconcile.Module,
	catalogsync.Module,
	ledger.Module,
	statistics.Module,
	fx.Provide(newJWTManager),
	server.Module,
)
