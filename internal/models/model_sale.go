package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cursopassei/checkout/pkg/types"
)

// Sale is one course purchase by one student. Cart checkouts create
// several sales sharing the same AsaasPaymentID.
type Sale struct {
	ID          string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	StudentName string `gorm:"column:student_name;type:varchar(200);not null" json:"student_name"`
	Email       string `gorm:"column:email;type:varchar(254);not null;index:idx_sale_email" json:"email"`
	Phone       string `gorm:"column:phone;type:varchar(20);not null" json:"phone"`
	// CourseID is nullable so sales survive course deletion.
	CourseID *string `gorm:"column:course_id;type:uuid;index:idx_sale_course_id" json:"course_id"`
	Course   *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:SET NULL" json:"course,omitempty"`
	// CourseTitleSnapshot keeps the title readable after the course is gone.
	CourseTitleSnapshot *string `gorm:"column:course_title_snapshot;type:varchar(200)" json:"course_title_snapshot"`

	Price         decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	PaymentMethod types.PaymentMethod `gorm:"column:payment_method;type:varchar(30);not null" json:"payment_method"`
	Status        types.SaleStatus    `gorm:"column:status;type:varchar(20);not null;default:'pending';index:idx_sale_status" json:"status"`

	CpfCnpj *string `gorm:"column:cpf_cnpj;type:varchar(20)" json:"cpf_cnpj"`

	Address           *string `gorm:"column:address;type:text" json:"address"`
	AddressNumber     *string `gorm:"column:address_number;type:varchar(10)" json:"address_number"`
	AddressComplement *string `gorm:"column:address_complement;type:varchar(100)" json:"address_complement"`
	Neighborhood      *string `gorm:"column:neighborhood;type:varchar(100)" json:"neighborhood"`
	City              *string `gorm:"column:city;type:varchar(100)" json:"city"`
	State             *string `gorm:"column:state;type:varchar(2)" json:"state"`
	PostalCode        *string `gorm:"column:postal_code;type:varchar(10)" json:"postal_code"`

	// AsaasPaymentID groups cart sibling sales under one gateway charge.
	AsaasPaymentID *string `gorm:"column:asaas_payment_id;type:varchar(100);index:idx_sale_asaas_payment_id" json:"asaas_payment_id"`

	BankSlipInstallmentCount *int             `gorm:"column:bank_slip_installment_count" json:"bank_slip_installment_count"`
	BankSlipInstallmentValue *decimal.Decimal `gorm:"column:bank_slip_installment_value;type:numeric(10,2)" json:"bank_slip_installment_value"`

	TheMembersSubscriptionID *string `gorm:"column:themembers_subscription_id;type:varchar(100)" json:"themembers_subscription_id"`
	TheMembersAccessGranted  bool    `gorm:"column:themembers_access_granted;not null;default:false" json:"themembers_access_granted"`
	TheMembersTempPassword   *string `gorm:"column:themembers_temp_password;type:varchar(100)" json:"themembers_temp_password"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Sale) TableName() string { return "sale" }

// BeforeSave snapshots the course title once, on first save with a
// loaded course association.
func (s *Sale) BeforeSave(tx *gorm.DB) error {
	if s.Course != nil && s.CourseTitleSnapshot == nil && s.Course.Title != "" {
		title := s.Course.Title
		s.CourseTitleSnapshot = &title
	}
	return nil
}

// CourseTitle prefers the live course, then the snapshot.
func (s *Sale) CourseTitle() string {
	if s.Course != nil && s.Course.Title != "" {
		return s.Course.Title
	}
	if s.CourseTitleSnapshot != nil && *s.CourseTitleSnapshot != "" {
		return *s.CourseTitleSnapshot
	}
	return "Curso removido"
}

// FullAddress joins all present address parts with commas.
func (s *Sale) FullAddress() string {
	parts := make([]string, 0, 7)
	for _, p := range []*string{s.Address, s.AddressNumber, s.AddressComplement, s.Neighborhood, s.City, s.State, s.PostalCode} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, ", ")
}
