package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cursopassei/checkout/pkg/types"
)

// AsaasPayment mirrors one gateway charge. It is the local read model
// of the Asaas payment object, one row per charge (a cart checkout has
// one row shared by several sales).
type AsaasPayment struct {
	ID     string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	SaleID string `gorm:"column:sale_id;type:uuid;not null;uniqueIndex:unique_asaas_payment_sale_id" json:"sale_id"`
	Sale   *Sale  `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"sale,omitempty"`

	AsaasID         string `gorm:"column:asaas_id;type:varchar(100);not null;uniqueIndex:unique_asaas_payment_asaas_id" json:"asaas_id"`
	AsaasCustomerID string `gorm:"column:asaas_customer_id;type:varchar(100);not null" json:"asaas_customer_id"`

	// PaymentType is the Asaas billingType (PIX, CREDIT_CARD, BOLETO).
	PaymentType string              `gorm:"column:payment_type;type:varchar(20);not null" json:"payment_type"`
	Status      types.PaymentStatus `gorm:"column:status;type:varchar(50);not null;default:'PENDING';index:idx_asaas_payment_status" json:"status"`
	Value       decimal.Decimal     `gorm:"column:value;type:numeric(10,2);not null" json:"value"`
	DueDate     time.Time           `gorm:"column:due_date;type:date;not null" json:"due_date"`
	PaymentDate *time.Time          `gorm:"column:payment_date" json:"payment_date"`
	Description string              `gorm:"column:description;type:text" json:"description"`

	CustomerName    string `gorm:"column:customer_name;type:varchar(200);not null" json:"customer_name"`
	CustomerEmail   string `gorm:"column:customer_email;type:varchar(254);not null" json:"customer_email"`
	CustomerCpfCnpj string `gorm:"column:customer_cpf_cnpj;type:varchar(20)" json:"customer_cpf_cnpj"`

	// PixQrCode is the base64 QR image; PixCode is the copy-paste
	// payload shown next to it.
	PixQrCode      string `gorm:"column:pix_qr_code;type:text" json:"pix_qr_code"`
	PixCode        string `gorm:"column:pix_code;type:text" json:"pix_code"`
	BankSlipURL    string `gorm:"column:bank_slip_url;type:varchar(500)" json:"bank_slip_url"`
	InvoiceURL     string `gorm:"column:invoice_url;type:varchar(500)" json:"invoice_url"`
	PaymentLinkURL string `gorm:"column:payment_link_url;type:varchar(500)" json:"payment_link_url"`

	InstallmentID    *string          `gorm:"column:installment_id;type:varchar(100)" json:"installment_id"`
	InstallmentCount *int             `gorm:"column:installment_count" json:"installment_count"`
	InstallmentValue *decimal.Decimal `gorm:"column:installment_value;type:numeric(10,2)" json:"installment_value"`

	WebhookReceived bool `gorm:"column:webhook_received;not null;default:false" json:"webhook_received"`
	// LastWebhookUpdate is when the most recent webhook touched this row.
	LastWebhookUpdate *time.Time `gorm:"column:last_webhook_update" json:"last_webhook_update"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AsaasPayment) TableName() string { return "asaas_payment" }

func (p *AsaasPayment) IsPaid() bool {
	return p != nil && p.Status.Paid()
}

func (p *AsaasPayment) IsOverdue() bool {
	return p != nil && p.Status == types.PaymentStatusOverdue
}

func (p *AsaasPayment) IsPending() bool {
	return p != nil && p.Status == types.PaymentStatusPending
}
