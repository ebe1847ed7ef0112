package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWebhookEvent_AllowList(t *testing.T) {
	for _, raw := range []string{
		"PAYMENT_RECEIVED",
		"PAYMENT_CONFIRMED",
		"PAYMENT_OVERDUE",
		"PAYMENT_DELETED",
		"PAYMENT_UPDATED",
	} {
		e, ok := ParseWebhookEvent(raw)
		require.True(t, ok, raw)
		require.Equal(t, WebhookEvent(raw), e)
	}

	for _, raw := range []string{
		"",
		"PAYMENT_CREATED",
		"payment_received",
		"SUBSCRIPTION_CREATED",
	} {
		_, ok := ParseWebhookEvent(raw)
		require.False(t, ok, raw)
	}
}

func TestWebhookEvent_Settles(t *testing.T) {
	require.True(t, WebhookEventPaymentReceived.Settles())
	require.True(t, WebhookEventPaymentConfirmed.Settles())
	require.False(t, WebhookEventPaymentOverdue.Settles())
	require.False(t, WebhookEventPaymentDeleted.Settles())
	require.False(t, WebhookEventPaymentUpdated.Settles())
}
