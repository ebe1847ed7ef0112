package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/internal/platform/asaas"
	"github.com/cursopassei/checkout/pkg/tool"
	"github.com/cursopassei/checkout/pkg/types"
)

type stubGateway struct {
	bookURL   string
	createErr error
}

func (g *stubGateway) EnsureCustomer(_ context.Context, _ asaas.CustomerRequest) (*asaas.Customer, error) {
	return &asaas.Customer{ID: "cus_1"}, nil
}

func (g *stubGateway) CreatePayment(_ context.Context, _ asaas.PaymentRequest) (*asaas.Payment, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &asaas.Payment{ID: "pay_new", BillingType: "PIX", Status: "PENDING"}, nil
}

func (g *stubGateway) GetPixQRCode(_ context.Context, _ string) (*asaas.PixQRCode, error) {
	return &asaas.PixQRCode{EncodedImage: "img", Payload: "00020126"}, nil
}

func (g *stubGateway) GetInstallmentBookURL(_ context.Context, _ string) (string, error) {
	return g.bookURL, nil
}

func (g *stubGateway) CancelPayment(_ context.Context, _ string) (*asaas.Payment, error) {
	panic("not used")
}

func (g *stubGateway) RefundPayment(_ context.Context, _ string, _ asaas.RefundRequest) (*asaas.Payment, error) {
	panic("not used")
}

func newTestService(g Gateway) *Service {
	return NewService(nil, g, zap.NewNop().Sugar())
}

func TestApplyInstallmentPlan_RoundsToCents(t *testing.T) {
	sale := &models.Sale{
		Price:         decimal.NewFromInt(120),
		PaymentMethod: types.PaymentMethodBankSlipInstallments,
	}
	applyInstallmentPlan(sale, 3, 12)

	require.Equal(t, 3, *sale.BankSlipInstallmentCount)
	require.Equal(t, "40", sale.BankSlipInstallmentValue.String())

	sale = &models.Sale{
		Price:         decimal.NewFromInt(100),
		PaymentMethod: types.PaymentMethodBankSlipInstallments,
	}
	applyInstallmentPlan(sale, 3, 12)

	require.Equal(t, "33.33", sale.BankSlipInstallmentValue.String())
}

func TestApplyInstallmentPlan_CountFallbacks(t *testing.T) {
	// Requested count wins.
	sale := &models.Sale{Price: decimal.NewFromInt(100), PaymentMethod: types.PaymentMethodBankSlipInstallments}
	applyInstallmentPlan(sale, 6, 12)
	require.Equal(t, 6, *sale.BankSlipInstallmentCount)

	// No request: course cap.
	sale = &models.Sale{Price: decimal.NewFromInt(100), PaymentMethod: types.PaymentMethodBankSlipInstallments}
	applyInstallmentPlan(sale, 0, 10)
	require.Equal(t, 10, *sale.BankSlipInstallmentCount)

	// Neither: default.
	sale = &models.Sale{Price: decimal.NewFromInt(100), PaymentMethod: types.PaymentMethodBankSlipInstallments}
	applyInstallmentPlan(sale, 0, 0)
	require.Equal(t, defaultInstallments, *sale.BankSlipInstallmentCount)
}

func TestApplyInstallmentPlan_OnlyForInstallmentBoleto(t *testing.T) {
	sale := &models.Sale{Price: decimal.NewFromInt(100), PaymentMethod: types.PaymentMethodPix}
	applyInstallmentPlan(sale, 3, 12)
	require.Nil(t, sale.BankSlipInstallmentCount)
	require.Nil(t, sale.BankSlipInstallmentValue)
}

func TestCheckout_RejectsInvalidMethod(t *testing.T) {
	svc := newTestService(&stubGateway{})

	_, err := svc.Checkout(context.Background(), &Request{
		CourseID:      "c1",
		StudentName:   "Maria",
		Email:         "maria@example.com",
		Phone:         "11",
		PaymentMethod: "paypal",
	})
	require.ErrorIs(t, err, ErrInvalidMethod)
}

func TestCheckoutCart_RejectsEmptyCart(t *testing.T) {
	svc := newTestService(&stubGateway{})

	_, err := svc.CheckoutCart(context.Background(), &CartRequest{
		StudentName:   "Maria",
		Email:         "maria@example.com",
		Phone:         "11",
		PaymentMethod: types.PaymentMethodPix,
	})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestBuildResponse_Pix(t *testing.T) {
	svc := newTestService(&stubGateway{})
	payment := &models.AsaasPayment{
		AsaasID:     "pay_1",
		PaymentType: "PIX",
		Status:      types.PaymentStatusPending,
		Value:       decimal.NewFromFloat(99.9),
		PixQrCode:   "base64image",
		PixCode:     "00020126...",
	}

	resp := svc.buildResponse(context.Background(), types.PaymentMethodPix, payment, 1)

	require.True(t, resp.Success)
	require.Equal(t, "pay_1", resp.AsaasPaymentID)
	require.Equal(t, "base64image", resp.PixQrCode)
	require.Equal(t, "00020126...", resp.PixCode)
	require.Empty(t, resp.RedirectURL)
	require.Equal(t, "Pagamento PIX criado. Escaneie o QR Code para pagar.", resp.Message)
}

func TestBuildResponse_PixCartMessageCountsCourses(t *testing.T) {
	svc := newTestService(&stubGateway{})
	payment := &models.AsaasPayment{AsaasID: "pay_1", Value: decimal.NewFromInt(10)}

	resp := svc.buildResponse(context.Background(), types.PaymentMethodPix, payment, 3)

	require.Contains(t, resp.Message, "3 cursos")
}

func TestBuildResponse_CreditCardPrefersInvoiceURL(t *testing.T) {
	svc := newTestService(&stubGateway{})
	payment := &models.AsaasPayment{
		AsaasID:        "pay_1",
		Value:          decimal.NewFromInt(10),
		InvoiceURL:     "https://asaas/invoice",
		PaymentLinkURL: "https://asaas/link",
	}

	resp := svc.buildResponse(context.Background(), types.PaymentMethodCreditCard, payment, 1)
	require.Equal(t, "https://asaas/invoice", resp.RedirectURL)

	payment.InvoiceURL = ""
	resp = svc.buildResponse(context.Background(), types.PaymentMethodCreditCard, payment, 1)
	require.Equal(t, "https://asaas/link", resp.RedirectURL)
}

func TestBuildResponse_BankSlipURLChain(t *testing.T) {
	svc := newTestService(&stubGateway{})
	payment := &models.AsaasPayment{
		AsaasID:        "pay_1",
		Value:          decimal.NewFromInt(10),
		BankSlipURL:    "https://asaas/slip",
		InvoiceURL:     "https://asaas/invoice",
		PaymentLinkURL: "https://asaas/link",
	}

	resp := svc.buildResponse(context.Background(), types.PaymentMethodBankSlip, payment, 1)
	require.Equal(t, "https://asaas/slip", resp.RedirectURL)

	payment.BankSlipURL = ""
	resp = svc.buildResponse(context.Background(), types.PaymentMethodBankSlip, payment, 1)
	require.Equal(t, "https://asaas/invoice", resp.RedirectURL)
}

func TestBuildResponse_InstallmentsPreferCarne(t *testing.T) {
	svc := newTestService(&stubGateway{bookURL: "https://asaas/carne"})
	installmentID := "ins_1"
	payment := &models.AsaasPayment{
		AsaasID:       "pay_1",
		Value:         decimal.NewFromInt(10),
		BankSlipURL:   "https://asaas/slip",
		InstallmentID: &installmentID,
	}

	resp := svc.buildResponse(context.Background(), types.PaymentMethodBankSlipInstallments, payment, 1)

	require.Equal(t, "ins_1", resp.InstallmentID)
	require.Equal(t, "https://asaas/carne", resp.RedirectURL)
	require.Contains(t, resp.Message, "Carnê")
}

func TestBuildResponse_InstallmentsFallBackToSlip(t *testing.T) {
	svc := newTestService(&stubGateway{})
	payment := &models.AsaasPayment{
		AsaasID:     "pay_1",
		Value:       decimal.NewFromInt(10),
		BankSlipURL: "https://asaas/slip",
	}

	resp := svc.buildResponse(context.Background(), types.PaymentMethodBankSlipInstallments, payment, 1)

	require.Empty(t, resp.InstallmentID)
	require.Equal(t, "https://asaas/slip", resp.RedirectURL)
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "a", firstNonEmpty("", "a", "b"))
	require.Equal(t, "", firstNonEmpty("", ""))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Course{}, &models.Sale{}, &models.AsaasPayment{}))
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, title string, price int64) *models.Course {
	t.Helper()
	c := &models.Course{
		ID:       tool.GenerateUUIDV7(),
		Title:    title,
		Price:    decimal.NewFromInt(price),
		Status:   models.CourseStatusActive,
		AllowPix: true,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func cartRequestFor(courses ...*models.Course) *CartRequest {
	req := &CartRequest{
		StudentName:   "Maria Silva",
		Email:         "maria@example.com",
		Phone:         "(11) 98765-4321",
		PaymentMethod: types.PaymentMethodPix,
	}
	for _, c := range courses {
		req.Courses = append(req.Courses, CartItem{CourseID: c.ID, Price: c.Price})
	}
	return req
}

func TestCheckoutCart_ChargesOnePaymentForAllSales(t *testing.T) {
	db := openTestDB(t)
	courseA := seedCourse(t, db, "Curso A", 100)
	courseB := seedCourse(t, db, "Curso B", 50)

	svc := NewService(db, &stubGateway{}, zap.NewNop().Sugar())

	resp, err := svc.CheckoutCart(context.Background(), cartRequestFor(courseA, courseB))
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.CartSaleID)
	require.Len(t, resp.RelatedSales, 1)
	require.Equal(t, 2, resp.CoursesCount)
	require.Equal(t, "pay_new", resp.AsaasPaymentID)

	// Main sale carries the cart total, the sibling its own price, and
	// both hang off the single gateway charge.
	var main, sibling models.Sale
	require.NoError(t, db.First(&main, "id = ?", resp.CartSaleID).Error)
	require.NoError(t, db.First(&sibling, "id = ?", resp.RelatedSales[0]).Error)
	require.True(t, main.Price.Equal(decimal.NewFromInt(150)))
	require.True(t, sibling.Price.Equal(decimal.NewFromInt(50)))
	require.Equal(t, "pay_new", *main.AsaasPaymentID)
	require.Equal(t, "pay_new", *sibling.AsaasPaymentID)

	var paymentCount int64
	require.NoError(t, db.Model(&models.AsaasPayment{}).Count(&paymentCount).Error)
	require.EqualValues(t, 1, paymentCount)
}

func TestCheckoutCart_GatewayFailureRollsBackAllSales(t *testing.T) {
	db := openTestDB(t)
	courseA := seedCourse(t, db, "Curso A", 100)
	courseB := seedCourse(t, db, "Curso B", 50)

	svc := NewService(db, &stubGateway{createErr: errors.New("asaas down")}, zap.NewNop().Sugar())

	_, err := svc.CheckoutCart(context.Background(), cartRequestFor(courseA, courseB))
	require.ErrorIs(t, err, ErrGateway)

	var saleCount int64
	require.NoError(t, db.Model(&models.Sale{}).Count(&saleCount).Error)
	require.EqualValues(t, 0, saleCount)
}
