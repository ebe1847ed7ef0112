package reconcile

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cursopassei/checkout/internal/app/service/access"
	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/internal/platform/asaas"
	"github.com/cursopassei/checkout/pkg/config"
)

// Granter is the slice of the access service reconciliation needs.
type Granter interface {
	GrantAccessIfNeeded(ctx context.Context, sale *models.Sale) (*access.GrantResult, error)
}

// PaymentReader fetches the live payment state from the gateway.
type PaymentReader interface {
	GetPayment(ctx context.Context, paymentID string) (*asaas.Payment, error)
}

// Service converges local sale state with the gateway, from two
// directions: inbound webhooks and storefront polling. Both paths end
// in the same conditional paid transition, so they can race safely.
type Service struct {
	db        *gorm.DB
	gateway   PaymentReader
	granter   Granter
	accessURL string
	log       *zap.SugaredLogger
}

func NewService(db *gorm.DB, gateway PaymentReader, granter Granter, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{
		db:        db,
		gateway:   gateway,
		granter:   granter,
		accessURL: cfg.TheMembers.AccessURL,
		log:       log,
	}
}

// markSalePaid transitions the sale to paid only if it is not paid
// already. The conditional UPDATE makes the webhook and polling paths
// converge without double-transitioning.
func (s *Service) markSalePaid(ctx context.Context, saleID, asaasPaymentID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND status <> ?", saleID, "paid").
		Updates(map[string]any{
			"status":           "paid",
			"asaas_payment_id": asaasPaymentID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
