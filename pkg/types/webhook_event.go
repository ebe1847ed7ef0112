package types

// WebhookEvent is an Asaas webhook event type. Only the events in the
// allow-list below are accepted; everything else is rejected at parse time.
type WebhookEvent string

const (
	WebhookEventPaymentReceived  WebhookEvent = "PAYMENT_RECEIVED"
	WebhookEventPaymentConfirmed WebhookEvent = "PAYMENT_CONFIRMED"
	WebhookEventPaymentOverdue   WebhookEvent = "PAYMENT_OVERDUE"
	WebhookEventPaymentDeleted   WebhookEvent = "PAYMENT_DELETED"
	WebhookEventPaymentUpdated   WebhookEvent = "PAYMENT_UPDATED"
)

// ParseWebhookEvent validates a raw event string against the allow-list.
func ParseWebhookEvent(raw string) (WebhookEvent, bool) {
	e := WebhookEvent(raw)
	switch e {
	case WebhookEventPaymentReceived,
		WebhookEventPaymentConfirmed,
		WebhookEventPaymentOverdue,
		WebhookEventPaymentDeleted,
		WebhookEventPaymentUpdated:
		return e, true
	}
	return "", false
}

// Settles reports whether the event marks the payment as paid and should
// trigger access granting.
func (e WebhookEvent) Settles() bool {
	return e == WebhookEventPaymentReceived || e == WebhookEventPaymentConfirmed
}
