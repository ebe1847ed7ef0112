package handlers

import (
	"errors"
	"net/http"

	"github.com/cursopassei/checkout/internal/app/service/checkout"
	"github.com/cursopassei/checkout/internal/app/service/reconcile"
	"github.com/cursopassei/checkout/pkg/logctx"
	"github.com/cursopassei/checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func checkoutErrorStatus(err error) (int, response.APIResponseCode) {
	switch {
	case errors.Is(err, checkout.ErrCourseNotFound):
		return http.StatusNotFound, response.APIResponseCodeNotFound
	case errors.Is(err, checkout.ErrInvalidMethod),
		errors.Is(err, checkout.ErrMethodNotAllowed),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, response.APIResponseCodeBadRequest
	default:
		return http.StatusInternalServerError, response.APIResponseCodeError
	}
}

// @Summary      Checkout
// @Description  Creates a sale for one course and a matching gateway charge.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.Request true "Checkout request"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/checkout [post]
func ApiCheckout(svc *checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.Checkout(c.Request.Context(), &req)
		if err != nil {
			status, code := checkoutErrorStatus(err)
			logctx.FromGin(c, log).Warnw("checkout_failed", "course_id", req.CourseID, "error", err.Error())
			c.JSON(status, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Cart Checkout
// @Description  Creates one sale per course in the cart, all charged as a single gateway payment.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.CartRequest true "Cart checkout request"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/checkout/cart [post]
func ApiCheckoutCart(svc *checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.CartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.CheckoutCart(c.Request.Context(), &req)
		if err != nil {
			status, code := checkoutErrorStatus(err)
			logctx.FromGin(c, log).Warnw("cart_checkout_failed", "courses", len(req.Courses), "error", err.Error())
			c.JSON(status, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Payment Status
// @Description  Polls the gateway for a sale's payment status. A settled payment is applied locally, including access granting.
// @Tags         Checkout
// @Produce      json
// @Param        sale_id path string true "Sale ID"
// @Success      200  {object}  handlers.RespPaymentStatus
// @Router       /api/v1/payments/{sale_id}/status [get]
func ApiPaymentStatus(svc *reconcile.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		saleID := c.Param("sale_id")

		res, err := svc.GetPaymentStatus(c.Request.Context(), saleID)
		if err != nil {
			switch {
			case errors.Is(err, reconcile.ErrSaleNotFound):
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			case errors.Is(err, reconcile.ErrSaleNotCharged):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				logctx.FromGin(c, log).Errorw("payment_status_failed", "sale_id", saleID, "error", err.Error())
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, svc *checkout.Service, rec *reconcile.Service, log *zap.SugaredLogger) {
	r.POST("/checkout", ApiCheckout(svc, log))
	r.POST("/checkout/cart", ApiCheckoutCart(svc, log))
	r.GET("/payments/:sale_id/status", ApiPaymentStatus(rec, log))
}
