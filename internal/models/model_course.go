package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cursopassei/checkout/pkg/types"
)

type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusInactive CourseStatus = "inactive"
	CourseStatusDraft    CourseStatus = "draft"
)

type Course struct {
	ID          string          `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Title       string          `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	Status      CourseStatus    `gorm:"column:status;type:varchar(20);not null;default:'draft'" json:"status"`

	WhatsappGroupLink *string `gorm:"column:whatsapp_group_link;type:varchar(500)" json:"whatsapp_group_link"`

	// TheMembersProductID is the legacy single-product link, used as a
	// fallback when no integration rows exist.
	TheMembersProductID *string `gorm:"column:themembers_product_id;type:varchar(100)" json:"themembers_product_id"`
	TheMembersLink      *string `gorm:"column:themembers_link;type:varchar(500)" json:"themembers_link"`

	AllowPix                bool `gorm:"column:allow_pix;not null;default:true" json:"allow_pix"`
	AllowCreditCard         bool `gorm:"column:allow_credit_card;not null;default:true" json:"allow_credit_card"`
	AllowBankSlip           bool `gorm:"column:allow_bank_slip;not null;default:true" json:"allow_bank_slip"`
	AllowBoletoInstallments bool `gorm:"column:allow_boleto_installments;not null;default:false" json:"allow_boleto_installments"`
	MaxBoletoInstallments   int  `gorm:"column:max_boleto_installments;not null;default:12" json:"max_boleto_installments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string { return "course" }

// AllowsMethod reports whether the course accepts the payment method.
func (c *Course) AllowsMethod(method types.PaymentMethod) bool {
	switch method {
	case types.PaymentMethodPix:
		return c.AllowPix
	case types.PaymentMethodCreditCard:
		return c.AllowCreditCard
	case types.PaymentMethodBankSlip:
		return c.AllowBankSlip
	case types.PaymentMethodBankSlipInstallments:
		return c.AllowBoletoInstallments
	default:
		return false
	}
}
