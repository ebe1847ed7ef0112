package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/pkg/logctx"
	"github.com/cursopassei/checkout/pkg/tool"
	"github.com/cursopassei/checkout/pkg/types"
)

var ErrUnknownEvent = errors.New("unknown webhook event")

// WebhookPaymentData is the payment block inside an Asaas webhook.
type WebhookPaymentData struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Value  float64 `json:"value"`
}

// WebhookPayload is an inbound Asaas event notification.
type WebhookPayload struct {
	ID      string             `json:"id"`
	Event   string             `json:"event"`
	Payment WebhookPaymentData `json:"payment"`
}

func (p *WebhookPayload) Valid() bool {
	return p != nil && p.ID != "" && p.Event != "" && p.Payment.ID != ""
}

// ProcessWebhook ingests one webhook delivery. Redeliveries of the
// same webhook id are no-ops. The returned bool is true when the
// delivery was applied (or already had been).
func (s *Service) ProcessWebhook(ctx context.Context, payload *WebhookPayload) (bool, error) {
	log := logctx.FromCtx(ctx, s.log)

	event, ok := types.ParseWebhookEvent(payload.Event)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownEvent, payload.Event)
	}

	wlog, created, err := s.getOrCreateLog(ctx, payload)
	if err != nil {
		return false, err
	}
	if wlog == nil {
		// Concurrent duplicate of the same webhook id lost the insert
		// race; the winner handles it.
		return true, nil
	}
	if !created && wlog.Processed {
		return true, nil
	}

	var payment models.AsaasPayment
	if err := s.db.WithContext(ctx).First(&payment, "asaas_id = ?", payload.Payment.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.finishLog(ctx, wlog, fmt.Sprintf("payment %s not found locally", payload.Payment.ID))
			return false, nil
		}
		return false, err
	}

	if err := s.applyEvent(ctx, event, payload, &payment); err != nil {
		s.finishLog(ctx, wlog, err.Error())
		return false, err
	}

	s.finishLog(ctx, wlog, "")
	log.Infow("webhook processed", "webhook_id", payload.ID, "event", event, "payment_id", payload.Payment.ID)
	return true, nil
}

// getOrCreateLog returns the log row for this webhook id, creating it
// on first delivery. A nil row with nil error means a concurrent
// insert of the same id won.
func (s *Service) getOrCreateLog(ctx context.Context, payload *WebhookPayload) (wlog *models.AsaasWebhookLog, created bool, err error) {
	var existing models.AsaasWebhookLog
	err = s.db.WithContext(ctx).First(&existing, "webhook_id = ?", payload.ID).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	raw, _ := json.Marshal(payload)
	row := &models.AsaasWebhookLog{
		ID:        tool.GenerateUUIDV7(),
		WebhookID: payload.ID,
		EventType: payload.Event,
		PaymentID: payload.Payment.ID,
		RawData:   datatypes.JSON(raw),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		// The unique webhook_id index rejected a concurrent duplicate.
		logctx.FromCtx(ctx, s.log).Infow("duplicate webhook insert, treating as processed", "webhook_id", payload.ID, "err", err)
		return nil, false, nil
	}
	return row, true, nil
}

func (s *Service) finishLog(ctx context.Context, wlog *models.AsaasWebhookLog, errMsg string) {
	now := time.Now()
	wlog.Processed = true
	wlog.ProcessedAt = &now
	wlog.ErrorMessage = errMsg
	if err := s.db.WithContext(ctx).Save(wlog).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to update webhook log", "webhook_id", wlog.WebhookID, "err", err)
	}
}

// applyEvent updates the payment mirror and, for settling events,
// transitions the sale and grants access.
func (s *Service) applyEvent(ctx context.Context, event types.WebhookEvent, payload *WebhookPayload, payment *models.AsaasPayment) error {
	now := time.Now()
	payment.WebhookReceived = true
	payment.LastWebhookUpdate = &now

	switch event {
	case types.WebhookEventPaymentReceived:
		payment.Status = types.PaymentStatusReceived
		payment.PaymentDate = &now
	case types.WebhookEventPaymentConfirmed:
		payment.Status = types.PaymentStatusConfirmed
		payment.PaymentDate = &now
	case types.WebhookEventPaymentOverdue:
		payment.Status = types.PaymentStatusOverdue
	case types.WebhookEventPaymentDeleted:
		payment.Status = types.PaymentStatusRefunded
	case types.WebhookEventPaymentUpdated:
		if payload.Payment.Status != "" {
			payment.Status = types.PaymentStatus(payload.Payment.Status)
		}
		if payload.Payment.Value > 0 {
			payment.Value = decimalFromFloat(payload.Payment.Value)
		}
	}

	if err := s.db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	if !event.Settles() {
		return nil
	}

	if _, err := s.markSalePaid(ctx, payment.SaleID, payment.AsaasID); err != nil {
		return fmt.Errorf("mark sale paid: %w", err)
	}

	var sale models.Sale
	if err := s.db.WithContext(ctx).Preload("Course").First(&sale, "id = ?", payment.SaleID).Error; err != nil {
		return fmt.Errorf("reload sale: %w", err)
	}
	if _, err := s.granter.GrantAccessIfNeeded(ctx, &sale); err != nil {
		// The sale stays paid; granting retries on the next webhook
		// delivery or poll.
		logctx.FromCtx(ctx, s.log).Errorw("access grant failed", "sale_id", sale.ID, "err", err)
	}
	return nil
}
