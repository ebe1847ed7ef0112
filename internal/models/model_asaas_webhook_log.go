package models

import (
	"time"

	"gorm.io/datatypes"
)

// AsaasWebhookLog records every inbound webhook delivery. The unique
// webhook_id index is what makes ingestion idempotent under redelivery.
type AsaasWebhookLog struct {
	ID        string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	WebhookID string `gorm:"column:webhook_id;type:varchar(100);not null;uniqueIndex:unique_asaas_webhook_log_webhook_id" json:"webhook_id"`
	EventType string `gorm:"column:event_type;type:varchar(100);not null" json:"event_type"`
	PaymentID string `gorm:"column:payment_id;type:varchar(100);not null;index:idx_asaas_webhook_log_payment_id" json:"payment_id"`

	RawData datatypes.JSON `gorm:"column:raw_data;type:jsonb;not null" json:"raw_data"`

	Processed    bool       `gorm:"column:processed;not null;default:false" json:"processed"`
	ProcessedAt  *time.Time `gorm:"column:processed_at" json:"processed_at"`
	ErrorMessage string     `gorm:"column:error_message;type:text" json:"error_message"`

	ReceivedAt time.Time `gorm:"column:received_at;autoCreateTime" json:"received_at"`
}

func (AsaasWebhookLog) TableName() string { return "asaas_webhook_log" }
