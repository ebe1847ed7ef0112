package types

// PaymentMethod is the checkout payment method chosen by the buyer.
type PaymentMethod string

const (
	PaymentMethodPix                  PaymentMethod = "pix"
	PaymentMethodCreditCard           PaymentMethod = "credit_card"
	PaymentMethodBankSlip             PaymentMethod = "bank_slip"
	PaymentMethodBankSlipInstallments PaymentMethod = "bank_slip_installments"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodBankSlip, PaymentMethodBankSlipInstallments:
		return true
	}
	return false
}

// BillingType maps the local method to the Asaas billingType value.
func (m PaymentMethod) BillingType() string {
	switch m {
	case PaymentMethodPix:
		return "PIX"
	case PaymentMethodCreditCard:
		return "CREDIT_CARD"
	case PaymentMethodBankSlip, PaymentMethodBankSlipInstallments:
		return "BOLETO"
	}
	return ""
}

// SaleStatus is the lifecycle state of a local sale.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// PaymentStatus mirrors the Asaas payment states tracked locally.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusReceived  PaymentStatus = "RECEIVED"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusOverdue   PaymentStatus = "OVERDUE"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Paid reports whether the gateway considers the payment settled.
func (s PaymentStatus) Paid() bool {
	return s == PaymentStatusReceived || s == PaymentStatusConfirmed
}
