package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cursopassei/checkout/internal/app/service/reconcile"
	"github.com/cursopassei/checkout/pkg/config"
	"github.com/cursopassei/checkout/pkg/logctx"
	"github.com/cursopassei/checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// webhookSenderAllowed accepts requests whose User-Agent names Asaas,
// or that carry the configured asaas-access-token header.
func webhookSenderAllowed(c *gin.Context, cfg *config.Config) bool {
	if strings.Contains(strings.ToLower(c.GetHeader("User-Agent")), "asaas") {
		return true
	}
	token := cfg.Asaas.WebhookToken
	return token != "" && c.GetHeader("asaas-access-token") == token
}

// @Summary      Asaas Webhook
// @Description  Ingests Asaas payment event notifications. Redeliveries of the same webhook id are no-ops.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body reconcile.WebhookPayload true "Asaas webhook event"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/webhook/asaas [post]
// ApiAsaasWebhook handles Asaas payment notifications
func ApiAsaasWebhook(svc *reconcile.Service, cfg *config.Config, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logctx.FromGin(c, log)

		if !webhookSenderAllowed(c, cfg) {
			l.Warnw("webhook_asaas_unauthorized", "user_agent", c.GetHeader("User-Agent"))
			c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "unauthorized"))
			return
		}

		var payload reconcile.WebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if !payload.Valid() {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing webhook id, event or payment id"))
			return
		}

		l.Infow("webhook_asaas_received", "webhook_id", payload.ID, "event", payload.Event, "payment_id", payload.Payment.ID)

		processed, err := svc.ProcessWebhook(c.Request.Context(), &payload)
		if err != nil {
			if errors.Is(err, reconcile.ErrUnknownEvent) {
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			// Processing failures still answer 200 so Asaas does not
			// retry a delivery we already logged; the error lives in
			// the webhook log row.
			l.Errorw("webhook_asaas_handle_error", "webhook_id", payload.ID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		l.Infow("webhook_asaas_handled", "webhook_id", payload.ID, "processed", processed)
		c.JSON(http.StatusOK, response.OKT(map[string]bool{"processed": processed}))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, svc *reconcile.Service, cfg *config.Config, log *zap.SugaredLogger) {
	r.POST("/asaas", ApiAsaasWebhook(svc, cfg, log))
}
