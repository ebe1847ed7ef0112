package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/pkg/logctx"
	"github.com/cursopassei/checkout/pkg/types"
)

var (
	ErrSaleNotFound   = errors.New("sale not found")
	ErrSaleNotCharged = errors.New("sale has no gateway payment")
	ErrGatewayConsult = errors.New("failed to consult gateway")
)

// Buyer is the purchaser block in a status response.
type Buyer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	CpfCnpj string `json:"cpf_cnpj"`
}

// WhatsappGroup is one purchased course's community link.
type WhatsappGroup struct {
	CourseTitle  string `json:"course_title"`
	WhatsappLink string `json:"whatsapp_link"`
}

// MembershipInfo echoes the access state to the success page.
type MembershipInfo struct {
	AccessGranted  bool    `json:"access_granted"`
	SubscriptionID *string `json:"subscription_id"`
	AccessURL      string  `json:"access_url"`
	Password       string  `json:"password"`
}

// StatusResponse is the polling payload the storefront renders while
// waiting for (and after) payment.
type StatusResponse struct {
	SaleID         string          `json:"sale_id"`
	AsaasPaymentID string          `json:"asaas_payment_id"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	Value          float64         `json:"value"`
	IsPaid         bool            `json:"is_paid"`
	Buyer          Buyer           `json:"buyer"`
	WhatsappGroups []WhatsappGroup `json:"whatsapp_groups"`
	TheMembers     MembershipInfo  `json:"themembers"`
}

// GetPaymentStatus consults the gateway for a sale's charge and, when
// the gateway already settled it, applies the same paid transition and
// access grant the webhook path would. This covers lost webhooks.
func (s *Service) GetPaymentStatus(ctx context.Context, saleID string) (*StatusResponse, error) {
	log := logctx.FromCtx(ctx, s.log)

	var sale models.Sale
	if err := s.db.WithContext(ctx).Preload("Course").First(&sale, "id = ?", saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}

	paymentID, err := s.resolvePaymentID(ctx, &sale)
	if err != nil {
		return nil, err
	}

	gw, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		log.Errorw("gateway status consult failed", "sale_id", sale.ID, "payment_id", paymentID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayConsult, err)
	}

	status := types.PaymentStatus(gw.Status)
	if err := s.syncLocalPayment(ctx, paymentID, status); err != nil {
		log.Warnw("local payment sync failed", "payment_id", paymentID, "err", err)
	}

	if status.Paid() {
		if _, err := s.markSalePaid(ctx, sale.ID, paymentID); err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Preload("Course").First(&sale, "id = ?", sale.ID).Error; err != nil {
			return nil, err
		}
		if _, err := s.granter.GrantAccessIfNeeded(ctx, &sale); err != nil {
			log.Errorw("access grant failed during polling", "sale_id", sale.ID, "err", err)
		}
	}

	return s.buildStatusResponse(ctx, &sale, paymentID, status)
}

// resolvePaymentID uses the sale's stored gateway id, recovering it
// from the payment mirror when the sale predates the link.
func (s *Service) resolvePaymentID(ctx context.Context, sale *models.Sale) (string, error) {
	if sale.AsaasPaymentID != nil && *sale.AsaasPaymentID != "" {
		return *sale.AsaasPaymentID, nil
	}

	var payment models.AsaasPayment
	err := s.db.WithContext(ctx).
		Where("sale_id = ?", sale.ID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSaleNotCharged
		}
		return "", err
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Update("asaas_payment_id", payment.AsaasID).Error; err != nil {
		return "", err
	}
	sale.AsaasPaymentID = &payment.AsaasID
	return payment.AsaasID, nil
}

func (s *Service) syncLocalPayment(ctx context.Context, asaasID string, status types.PaymentStatus) error {
	return s.db.WithContext(ctx).
		Model(&models.AsaasPayment{}).
		Where("asaas_id = ? AND status <> ?", asaasID, status).
		Update("status", status).Error
}

func (s *Service) buildStatusResponse(ctx context.Context, sale *models.Sale, paymentID string, status types.PaymentStatus) (*StatusResponse, error) {
	value, _ := sale.Price.Float64()
	resp := &StatusResponse{
		SaleID:         sale.ID,
		AsaasPaymentID: paymentID,
		Status:         string(status),
		PaymentMethod:  string(sale.PaymentMethod),
		Value:          value,
		IsPaid:         sale.Status == types.SaleStatusPaid || status.Paid(),
		Buyer: Buyer{
			Name:  sale.StudentName,
			Email: sale.Email,
			Phone: sale.Phone,
		},
		WhatsappGroups: []WhatsappGroup{},
		TheMembers: MembershipInfo{
			AccessGranted:  sale.TheMembersAccessGranted,
			SubscriptionID: sale.TheMembersSubscriptionID,
			AccessURL:      s.accessURL,
		},
	}
	if sale.CpfCnpj != nil {
		resp.Buyer.CpfCnpj = *sale.CpfCnpj
	}
	if sale.TheMembersTempPassword != nil {
		resp.TheMembers.Password = *sale.TheMembersTempPassword
	}

	// Community links for every course in the checkout group.
	for _, course := range s.groupCourses(ctx, sale) {
		if course.WhatsappGroupLink != nil && *course.WhatsappGroupLink != "" {
			resp.WhatsappGroups = append(resp.WhatsappGroups, WhatsappGroup{
				CourseTitle:  course.Title,
				WhatsappLink: *course.WhatsappGroupLink,
			})
		}
	}
	return resp, nil
}

// groupCourses returns the sale's course plus every cart sibling's.
func (s *Service) groupCourses(ctx context.Context, sale *models.Sale) []models.Course {
	var courses []models.Course
	if sale.Course != nil {
		courses = append(courses, *sale.Course)
	}
	if sale.AsaasPaymentID == nil || *sale.AsaasPaymentID == "" {
		return courses
	}

	var siblings []models.Sale
	if err := s.db.WithContext(ctx).
		Preload("Course").
		Where("asaas_payment_id = ? AND id <> ?", *sale.AsaasPaymentID, sale.ID).
		Find(&siblings).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("failed to load cart siblings", "sale_id", sale.ID, "err", err)
		return courses
	}
	for i := range siblings {
		if siblings[i].Course != nil {
			courses = append(courses, *siblings[i].Course)
		}
	}
	return courses
}

func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
