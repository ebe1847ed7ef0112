package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/internal/platform/asaas"
	"github.com/cursopassei/checkout/pkg/logctx"
	"github.com/cursopassei/checkout/pkg/tool"
	"github.com/cursopassei/checkout/pkg/types"
)

var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrMethodNotAllowed = errors.New("payment method not allowed for this course")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrEmptyCart        = errors.New("cart has no courses")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrGateway          = errors.New("failed to create payment on gateway")
)

// paymentDueDays is how far in the future new charges are due.
const paymentDueDays = 7

// defaultInstallments is used when neither the request nor the course
// sets an installment count for installment boleto.
const defaultInstallments = 2

// Gateway is the slice of the Asaas client the checkout flow needs.
type Gateway interface {
	EnsureCustomer(ctx context.Context, req asaas.CustomerRequest) (*asaas.Customer, error)
	CreatePayment(ctx context.Context, req asaas.PaymentRequest) (*asaas.Payment, error)
	GetPixQRCode(ctx context.Context, paymentID string) (*asaas.PixQRCode, error)
	GetInstallmentBookURL(ctx context.Context, installmentID string) (string, error)
	CancelPayment(ctx context.Context, paymentID string) (*asaas.Payment, error)
	RefundPayment(ctx context.Context, paymentID string, req asaas.RefundRequest) (*asaas.Payment, error)
}

// Service orchestrates sale creation and gateway charging.
type Service struct {
	db      *gorm.DB
	gateway Gateway
	log     *zap.SugaredLogger
}

func NewService(db *gorm.DB, gateway Gateway, log *zap.SugaredLogger) *Service {
	return &Service{db: db, gateway: gateway, log: log}
}

// Request is a single-course checkout.
type Request struct {
	CourseID         string              `json:"course_id" binding:"required"`
	StudentName      string              `json:"student_name" binding:"required"`
	Email            string              `json:"email" binding:"required,email"`
	Phone            string              `json:"phone" binding:"required"`
	CpfCnpj          string              `json:"cpf_cnpj"`
	PaymentMethod    types.PaymentMethod `json:"payment_method"`
	InstallmentCount int                 `json:"installment_count"`
}

// CartItem is one course in a cart checkout. Price is the price shown
// to the buyer at cart time.
type CartItem struct {
	CourseID string          `json:"id" binding:"required"`
	Price    decimal.Decimal `json:"price" binding:"required"`
}

// CartRequest is a multi-course checkout charged as one payment.
type CartRequest struct {
	Courses          []CartItem          `json:"courses" binding:"required"`
	StudentName      string              `json:"student_name" binding:"required"`
	Email            string              `json:"email" binding:"required,email"`
	Phone            string              `json:"phone" binding:"required"`
	CpfCnpj          string              `json:"cpf_cnpj"`
	PaymentMethod    types.PaymentMethod `json:"payment_method"`
	InstallmentCount int                 `json:"installment_count"`
}

// Response is what the storefront needs to move the buyer to payment.
type Response struct {
	Success        bool     `json:"success"`
	SaleID         string   `json:"sale_id,omitempty"`
	CartSaleID     string   `json:"cart_sale_id,omitempty"`
	RelatedSales   []string `json:"related_sales,omitempty"`
	AsaasPaymentID string   `json:"asaas_payment_id"`
	PaymentType    string   `json:"payment_type"`
	Status         string   `json:"status"`
	Value          float64  `json:"value"`
	DueDate        string   `json:"due_date"`
	CoursesCount   int      `json:"courses_count,omitempty"`
	RedirectURL    string   `json:"redirect_url,omitempty"`
	PixQrCode      string   `json:"pix_qr_code,omitempty"`
	PixCode        string   `json:"pix_code,omitempty"`
	InstallmentID  string   `json:"installment_id,omitempty"`
	Message        string   `json:"message"`
}

// Checkout creates a pending sale for one course and charges it on
// the gateway. The sale is deleted again if the gateway call fails.
func (s *Service) Checkout(ctx context.Context, req *Request) (*Response, error) {
	if req.PaymentMethod == "" {
		req.PaymentMethod = types.PaymentMethodPix
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidMethod
	}

	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", req.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	if !course.AllowsMethod(req.PaymentMethod) {
		return nil, ErrMethodNotAllowed
	}

	sale := &models.Sale{
		ID:            tool.GenerateUUIDV7(),
		StudentName:   req.StudentName,
		Email:         req.Email,
		Phone:         req.Phone,
		CourseID:      &course.ID,
		Course:        &course,
		Price:         course.Price,
		PaymentMethod: req.PaymentMethod,
		Status:        types.SaleStatusPending,
	}
	if req.CpfCnpj != "" {
		sale.CpfCnpj = &req.CpfCnpj
	}
	applyInstallmentPlan(sale, req.InstallmentCount, course.MaxBoletoInstallments)

	if err := s.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	payment, err := s.chargeSale(ctx, sale, fmt.Sprintf("Curso: %s", course.Title))
	if err != nil {
		// Roll the pending sale back so a failed gateway call leaves
		// no ledger entry behind.
		if delErr := s.db.WithContext(ctx).Delete(&models.Sale{}, "id = ?", sale.ID).Error; delErr != nil {
			logctx.FromCtx(ctx, s.log).Errorw("rollback sale failed", "sale_id", sale.ID, "err", delErr)
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Update("asaas_payment_id", payment.AsaasID).Error; err != nil {
		return nil, fmt.Errorf("link sale to payment: %w", err)
	}

	resp := s.buildResponse(ctx, sale.PaymentMethod, payment, 1)
	resp.SaleID = sale.ID
	return resp, nil
}

// CheckoutCart creates a main sale for the full cart amount plus one
// sibling sale per extra course, then charges the total as a single
// payment. Every created sale is deleted when the gateway call fails.
func (s *Service) CheckoutCart(ctx context.Context, req *CartRequest) (*Response, error) {
	if req.PaymentMethod == "" {
		req.PaymentMethod = types.PaymentMethodPix
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidMethod
	}
	if len(req.Courses) == 0 {
		return nil, ErrEmptyCart
	}

	courses := make([]models.Course, 0, len(req.Courses))
	total := decimal.Zero
	for _, item := range req.Courses {
		var course models.Course
		if err := s.db.WithContext(ctx).First(&course, "id = ?", item.CourseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCourseNotFound
			}
			return nil, fmt.Errorf("load course: %w", err)
		}
		if !course.AllowsMethod(req.PaymentMethod) {
			return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, course.Title)
		}
		courses = append(courses, course)
		total = total.Add(item.Price)
	}

	// The smallest per-course cap bounds the whole cart.
	maxInstallments := courses[0].MaxBoletoInstallments
	for _, c := range courses[1:] {
		if c.MaxBoletoInstallments < maxInstallments {
			maxInstallments = c.MaxBoletoInstallments
		}
	}

	mainCourse := courses[0]
	mainSale := &models.Sale{
		ID:            tool.GenerateUUIDV7(),
		StudentName:   req.StudentName,
		Email:         req.Email,
		Phone:         req.Phone,
		CourseID:      &mainCourse.ID,
		Course:        &mainCourse,
		Price:         total,
		PaymentMethod: req.PaymentMethod,
		Status:        types.SaleStatusPending,
	}
	if req.CpfCnpj != "" {
		mainSale.CpfCnpj = &req.CpfCnpj
	}
	applyInstallmentPlan(mainSale, req.InstallmentCount, maxInstallments)

	if err := s.db.WithContext(ctx).Create(mainSale).Error; err != nil {
		return nil, fmt.Errorf("create cart sale: %w", err)
	}

	// Sibling sales track the extra courses at their individual
	// prices, grouped under a synthetic id until the gateway assigns
	// the real one.
	groupID := fmt.Sprintf("cart_%s", mainSale.ID)
	siblings := make([]*models.Sale, 0, len(courses)-1)
	for i := range courses[1:] {
		course := courses[i+1]
		sibling := &models.Sale{
			ID:             tool.GenerateUUIDV7(),
			StudentName:    req.StudentName,
			Email:          req.Email,
			Phone:          req.Phone,
			CourseID:       &course.ID,
			Course:         &course,
			Price:          course.Price,
			PaymentMethod:  req.PaymentMethod,
			Status:         types.SaleStatusPending,
			AsaasPaymentID: &groupID,
		}
		if req.CpfCnpj != "" {
			sibling.CpfCnpj = &req.CpfCnpj
		}
		if err := s.db.WithContext(ctx).Create(sibling).Error; err != nil {
			s.rollbackSales(ctx, mainSale, siblings)
			return nil, fmt.Errorf("create cart sibling sale: %w", err)
		}
		siblings = append(siblings, sibling)
	}

	description := mainCourse.Title
	if len(courses) > 1 {
		description = fmt.Sprintf("Carrinho: %s + %d outros", mainCourse.Title, len(courses)-1)
	}

	payment, err := s.chargeSale(ctx, mainSale, description)
	if err != nil {
		s.rollbackSales(ctx, mainSale, siblings)
		return nil, err
	}

	saleIDs := []string{mainSale.ID}
	for _, sib := range siblings {
		saleIDs = append(saleIDs, sib.ID)
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id IN ?", saleIDs).
		Update("asaas_payment_id", payment.AsaasID).Error; err != nil {
		return nil, fmt.Errorf("link cart sales to payment: %w", err)
	}

	resp := s.buildResponse(ctx, mainSale.PaymentMethod, payment, len(courses))
	resp.CartSaleID = mainSale.ID
	for _, sib := range siblings {
		resp.RelatedSales = append(resp.RelatedSales, sib.ID)
	}
	resp.CoursesCount = len(courses)
	return resp, nil
}

func (s *Service) rollbackSales(ctx context.Context, main *models.Sale, siblings []*models.Sale) {
	ids := []string{main.ID}
	for _, sib := range siblings {
		ids = append(ids, sib.ID)
	}
	if err := s.db.WithContext(ctx).Delete(&models.Sale{}, "id IN ?", ids).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("rollback cart sales failed", "sale_ids", ids, "err", err)
	}
}

// applyInstallmentPlan fills the installment fields for installment
// boleto: requested count, else the course cap, else the default, and
// the per-installment value rounded to cents.
func applyInstallmentPlan(sale *models.Sale, requested, courseMax int) {
	if sale.PaymentMethod != types.PaymentMethodBankSlipInstallments {
		return
	}
	count := requested
	if count <= 0 {
		count = courseMax
	}
	if count <= 0 {
		count = defaultInstallments
	}
	value := sale.Price.DivRound(decimal.NewFromInt(int64(count)), 2)
	sale.BankSlipInstallmentCount = &count
	sale.BankSlipInstallmentValue = &value
}

// chargeSale creates the customer and the charge on the gateway and
// persists the local payment mirror.
func (s *Service) chargeSale(ctx context.Context, sale *models.Sale, description string) (*models.AsaasPayment, error) {
	log := logctx.FromCtx(ctx, s.log)

	cpfCnpj := ""
	if sale.CpfCnpj != nil {
		cpfCnpj = *sale.CpfCnpj
	}
	customer, err := s.gateway.EnsureCustomer(ctx, asaas.CustomerRequest{
		Name:              sale.StudentName,
		Email:             sale.Email,
		CpfCnpj:           cpfCnpj,
		ExternalReference: sale.ID,
	})
	if err != nil {
		log.Errorw("gateway customer failed", "sale_id", sale.ID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	dueDate := time.Now().AddDate(0, 0, paymentDueDays)
	price, _ := sale.Price.Float64()
	payReq := asaas.PaymentRequest{
		Customer:            customer.ID,
		BillingType:         sale.PaymentMethod.BillingType(),
		Value:               price,
		DueDate:             dueDate.Format(time.DateOnly),
		Description:         description,
		ExternalReference:   sale.ID,
		NotificationEnabled: true,
		PaymentLink:         true,
	}
	if sale.PaymentMethod == types.PaymentMethodBankSlipInstallments && sale.BankSlipInstallmentCount != nil {
		payReq.InstallmentCount = *sale.BankSlipInstallmentCount
		payReq.InstallmentValue, _ = sale.BankSlipInstallmentValue.Float64()
	}

	payment, err := s.gateway.CreatePayment(ctx, payReq)
	if err != nil {
		log.Errorw("gateway payment failed", "sale_id", sale.ID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	record := &models.AsaasPayment{
		ID:              tool.GenerateUUIDV7(),
		SaleID:          sale.ID,
		AsaasID:         payment.ID,
		AsaasCustomerID: customer.ID,
		PaymentType:     payment.BillingType,
		Status:          types.PaymentStatus(payment.Status),
		Value:           sale.Price,
		DueDate:         dueDate,
		Description:     payReq.Description,
		CustomerName:    sale.StudentName,
		CustomerEmail:   sale.Email,
		CustomerCpfCnpj: cpfCnpj,
		BankSlipURL:     payment.BankSlipURL,
		InvoiceURL:      payment.InvoiceURL,
		PaymentLinkURL:  payment.PaymentLink,
	}

	if sale.PaymentMethod == types.PaymentMethodPix {
		// The QR code lives behind a second call; a failure here is
		// tolerable since the invoice URL still works.
		if qr, qrErr := s.gateway.GetPixQRCode(ctx, payment.ID); qrErr != nil {
			log.Warnw("pix qr code fetch failed", "payment_id", payment.ID, "err", qrErr)
		} else {
			record.PixQrCode = qr.EncodedImage
			record.PixCode = qr.Payload
		}
	}

	if sale.PaymentMethod == types.PaymentMethodBankSlipInstallments {
		if payment.Installment != "" {
			record.InstallmentID = &payment.Installment
		}
		record.InstallmentCount = sale.BankSlipInstallmentCount
		record.InstallmentValue = sale.BankSlipInstallmentValue
	}

	// A retried checkout can race itself on the unique asaas_id; the
	// first insert wins and the duplicate is a no-op.
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "asaas_id"}}, DoNothing: true}).
		Create(record).Error; err != nil {
		return nil, fmt.Errorf("persist payment: %w", err)
	}
	return record, nil
}

// buildResponse shapes the storefront payload per payment method: PIX
// exposes the QR code, cards redirect to the gateway invoice, boleto
// links the slip (or the carnê for installments).
func (s *Service) buildResponse(ctx context.Context, method types.PaymentMethod, payment *models.AsaasPayment, coursesCount int) *Response {
	value, _ := payment.Value.Float64()
	resp := &Response{
		Success:        true,
		AsaasPaymentID: payment.AsaasID,
		PaymentType:    payment.PaymentType,
		Status:         string(payment.Status),
		Value:          value,
		DueDate:        payment.DueDate.Format(time.DateOnly),
	}

	switch method {
	case types.PaymentMethodPix:
		resp.PixQrCode = payment.PixQrCode
		resp.PixCode = payment.PixCode
		if coursesCount > 1 {
			resp.Message = fmt.Sprintf("Pagamento PIX criado para %d cursos. Escaneie o QR Code para pagar.", coursesCount)
		} else {
			resp.Message = "Pagamento PIX criado. Escaneie o QR Code para pagar."
		}
	case types.PaymentMethodCreditCard:
		resp.RedirectURL = firstNonEmpty(payment.InvoiceURL, payment.PaymentLinkURL)
		if coursesCount > 1 {
			resp.Message = fmt.Sprintf("Redirecionando para checkout do cartão de crédito para %d cursos.", coursesCount)
		} else {
			resp.Message = "Redirecionando para checkout do cartão de crédito."
		}
	case types.PaymentMethodBankSlip, types.PaymentMethodBankSlipInstallments:
		resp.RedirectURL = firstNonEmpty(payment.BankSlipURL, payment.InvoiceURL, payment.PaymentLinkURL)
		resp.Message = "Boleto gerado. Clique para imprimir e pagar."
		if method == types.PaymentMethodBankSlipInstallments {
			resp.Message = "Carnê gerado no Asaas. Acesse o link para os boletos."
			if payment.InstallmentID != nil {
				resp.InstallmentID = *payment.InstallmentID
				if book, err := s.gateway.GetInstallmentBookURL(ctx, *payment.InstallmentID); err == nil && book != "" {
					resp.RedirectURL = book
				}
			}
		}
	}
	return resp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CancelPayment cancels the gateway charge and marks the local
// payment and its sales as cancelled.
func (s *Service) CancelPayment(ctx context.Context, asaasID string) error {
	var payment models.AsaasPayment
	if err := s.db.WithContext(ctx).First(&payment, "asaas_id = ?", asaasID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}
	if _, err := s.gateway.CancelPayment(ctx, asaasID); err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if err := s.db.WithContext(ctx).
		Model(&models.AsaasPayment{}).
		Where("asaas_id = ?", asaasID).
		Update("status", types.PaymentStatusRefunded).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("asaas_payment_id = ?", asaasID).
		Update("status", types.SaleStatusCancelled).Error
}

// RefundPayment refunds the gateway charge and marks the local
// payment and its sales as refunded.
func (s *Service) RefundPayment(ctx context.Context, asaasID string, value float64, description string) error {
	var payment models.AsaasPayment
	if err := s.db.WithContext(ctx).First(&payment, "asaas_id = ?", asaasID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}
	if _, err := s.gateway.RefundPayment(ctx, asaasID, asaas.RefundRequest{Value: value, Description: description}); err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if err := s.db.WithContext(ctx).
		Model(&models.AsaasPayment{}).
		Where("asaas_id = ?", asaasID).
		Update("status", types.PaymentStatusRefunded).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("asaas_payment_id = ?", asaasID).
		Update("status", types.SaleStatusRefunded).Error
}
