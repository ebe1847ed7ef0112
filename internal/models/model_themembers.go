package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TheMembersProduct is a product row mirrored from the TheMembers
// catalog by the periodic sync job.
type TheMembersProduct struct {
	ID          string          `gorm:"column:id;primary_key;type:uuid" json:"id"`
	ProductID   string          `gorm:"column:product_id;type:varchar(100);not null;uniqueIndex:unique_themembers_product_product_id" json:"product_id"`
	Title       string          `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Description *string         `gorm:"column:description;type:text" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	ImageURL    *string         `gorm:"column:image_url;type:varchar(500)" json:"image_url"`
	Status      string          `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastSync  *time.Time `gorm:"column:last_sync" json:"last_sync"`
}

func (TheMembersProduct) TableName() string { return "themembers_product" }

type IntegrationStatus string

const (
	IntegrationStatusPending  IntegrationStatus = "pending"
	IntegrationStatusActive   IntegrationStatus = "active"
	IntegrationStatusFailed   IntegrationStatus = "failed"
	IntegrationStatusDisabled IntegrationStatus = "disabled"
)

// TheMembersIntegration links one course to one TheMembers product.
// A course may map to several products (combo access).
type TheMembersIntegration struct {
	ID        string             `gorm:"column:id;primary_key;type:uuid" json:"id"`
	CourseID  string             `gorm:"column:course_id;type:uuid;not null;uniqueIndex:unique_themembers_integration_course_product,priority:1" json:"course_id"`
	Course    *Course            `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	ProductID string             `gorm:"column:product_id;type:uuid;not null;uniqueIndex:unique_themembers_integration_course_product,priority:2" json:"product_id"`
	Product   *TheMembersProduct `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Status    IntegrationStatus  `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`

	IntegrationDate time.Time  `gorm:"column:integration_date;autoCreateTime" json:"integration_date"`
	LastSync        *time.Time `gorm:"column:last_sync" json:"last_sync"`
	SyncErrors      *string    `gorm:"column:sync_errors;type:text" json:"sync_errors"`
}

func (TheMembersIntegration) TableName() string { return "themembers_integration" }

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// TheMembersSyncLog is one run of the catalog sync job.
type TheMembersSyncLog struct {
	ID       string     `gorm:"column:id;primary_key;type:uuid" json:"id"`
	SyncType string     `gorm:"column:sync_type;type:varchar(20);not null" json:"sync_type"`
	Status   SyncStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`

	ItemsProcessed int `gorm:"column:items_processed;not null;default:0" json:"items_processed"`
	ItemsSuccess   int `gorm:"column:items_success;not null;default:0" json:"items_success"`
	ItemsFailed    int `gorm:"column:items_failed;not null;default:0" json:"items_failed"`

	StartedAt       time.Time  `gorm:"column:started_at;autoCreateTime" json:"started_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at"`
	DurationSeconds *float64   `gorm:"column:duration_seconds" json:"duration_seconds"`

	Details *string `gorm:"column:details;type:text" json:"details"`
	Errors  *string `gorm:"column:errors;type:text" json:"errors"`
}

func (TheMembersSyncLog) TableName() string { return "themembers_sync_log" }
