package handlers

import (
	"errors"
	"net/http"

	"github.com/cursopassei/checkout/internal/app/service/checkout"
	"github.com/cursopassei/checkout/internal/app/service/ledger"
	"github.com/cursopassei/checkout/internal/app/service/statistics"
	"github.com/cursopassei/checkout/pkg/logctx"
	"github.com/cursopassei/checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @Summary      List Sales (Admin)
// @Description  Retrieves a paginated and filterable list of sales.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ledger.ScanRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListSales
// @Router       /api/v1/admin/list_sales [post]
func ApiListSales(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanSales(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Sales Grouped by Payment (Admin)
// @Description  Lists sales with cart siblings collapsed into one row per gateway payment.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ledger.ScanRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListGroupedSales
// @Router       /api/v1/admin/list_sales_grouped [post]
func ApiListSalesGrouped(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanSalesGrouped(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Gateway Payments (Admin)
// @Description  Retrieves a paginated and filterable list of gateway payment rows.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ledger.ScanRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/list_payments [post]
func ApiListPayments(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Webhook Logs (Admin)
// @Description  Retrieves a paginated and filterable list of webhook deliveries.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ledger.ScanRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListWebhookLogs
// @Router       /api/v1/admin/list_webhook_logs [post]
func ApiListWebhookLogs(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanWebhookLogs(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Sales Statistics (Admin)
// @Description  Retrieves paid-only sales aggregates for an N-day window.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statisticsRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespSalesStatistics
// @Router       /api/v1/admin/get_sales_statistics [post]
func ApiGetSalesStatistics(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statisticsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetSalesStatistics(c.Request.Context(), req.Days)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type statisticsRequest struct {
	Days int `json:"days"`
}

type cancelPaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type refundPaymentRequest struct {
	PaymentID   string  `json:"payment_id"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// @Summary      Cancel Payment (Admin)
// @Description  Cancels a pending gateway payment and marks its sales cancelled.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body cancelPaymentRequest true "Cancel payment request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/cancel_payment [post]
func ApiCancelPayment(svc *checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.PaymentID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing payment_id"))
			return
		}
		if err := svc.CancelPayment(c.Request.Context(), req.PaymentID); err != nil {
			logctx.FromGin(c, log).Errorw("admin_cancel_payment_failed", "payment_id", req.PaymentID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](errCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Refund Payment (Admin)
// @Description  Refunds a settled gateway payment and marks its sales refunded.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body refundPaymentRequest true "Refund payment request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/refund_payment [post]
func ApiRefundPayment(svc *checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refundPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.PaymentID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing payment_id"))
			return
		}
		if err := svc.RefundPayment(c.Request.Context(), req.PaymentID, req.Value, req.Description); err != nil {
			logctx.FromGin(c, log).Errorw("admin_refund_payment_failed", "payment_id", req.PaymentID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](errCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func errCode(err error) response.APIResponseCode {
	if errors.Is(err, checkout.ErrPaymentNotFound) {
		return response.APIResponseCodeNotFound
	}
	return response.APIResponseCodeError
}

func RegisterAdminRoutes(r gin.IRouter, led *ledger.Service, stats *statistics.Service, chk *checkout.Service, log *zap.SugaredLogger) {
	r.POST("/list_sales", ApiListSales(led))
	r.POST("/list_sales_grouped", ApiListSalesGrouped(led))
	r.POST("/list_payments", ApiListPayments(led))
	r.POST("/list_webhook_logs", ApiListWebhookLogs(led))
	r.POST("/get_sales_statistics", ApiGetSalesStatistics(stats))
	r.POST("/cancel_payment", ApiCancelPayment(chk, log))
	r.POST("/refund_payment", ApiRefundPayment(chk, log))
}
