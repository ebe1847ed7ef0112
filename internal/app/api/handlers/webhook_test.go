package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cursopassei/checkout/internal/app/service/reconcile"
	"github.com/cursopassei/checkout/pkg/config"
)

func newWebhookRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	svc := reconcile.NewService(nil, nil, nil, cfg, log)
	r := gin.New()
	r.POST("/api/v1/webhook/asaas", ApiAsaasWebhook(svc, cfg, log))
	return r
}

func webhookBody(t *testing.T, event string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "evt_1",
		"event":   event,
		"payment": map[string]any{"id": "pay_1", "status": "RECEIVED", "value": 100.0},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestApiAsaasWebhook_RejectsUnknownSender(t *testing.T) {
	r := newWebhookRouter(&config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/asaas", webhookBody(t, "PAYMENT_RECEIVED"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "curl/8.0")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApiAsaasWebhook_AcceptsAsaasUserAgentCaseInsensitive(t *testing.T) {
	r := newWebhookRouter(&config.Config{})

	// Invalid body so the handler stops right after the sender check.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/asaas", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Asaas-Webhook/1.0")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiAsaasWebhook_AcceptsAccessTokenHeader(t *testing.T) {
	cfg := &config.Config{}
	cfg.Asaas.WebhookToken = "hook-secret"
	r := newWebhookRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/asaas", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("asaas-access-token", "hook-secret")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiAsaasWebhook_RejectsWrongAccessToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Asaas.WebhookToken = "hook-secret"
	r := newWebhookRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/asaas", webhookBody(t, "PAYMENT_RECEIVED"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("asaas-access-token", "wrong")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApiAsaasWebhook_RejectsIncompletePayload(t *testing.T) {
	r := newWebhookRouter(&config.Config{})

	body, _ := json.Marshal(map[string]any{"id": "evt_1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/asaas", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "asaas")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiAsaasWebhook_RejectsUnknownEvent(t *testing.T) {
	r := newWebhookRouter(&config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/asaas", webhookBody(t, "SUBSCRIPTION_CREATED"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "asaas")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
