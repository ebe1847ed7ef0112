package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	r := gin.New()

	RegisterHealthRoutes(r)
	apiV1 := r.Group("/api/v1")
	RegisterCheckoutRoutes(apiV1, nil, nil, log)
	RegisterAdminRoutes(apiV1.Group("/admin"), nil, nil, nil, log)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("GET /healthz"))
	require.True(t, contains("POST /api/v1/checkout"))
	require.True(t, contains("POST /api/v1/checkout/cart"))
	require.True(t, contains("GET /api/v1/payments/:sale_id/status"))
	require.True(t, contains("POST /api/v1/admin/list_sales"))
	require.True(t, contains("POST /api/v1/admin/list_sales_grouped"))
	require.True(t, contains("POST /api/v1/admin/list_payments"))
	require.True(t, contains("POST /api/v1/admin/list_webhook_logs"))
	require.True(t, contains("POST /api/v1/admin/get_sales_statistics"))
	require.True(t, contains("POST /api/v1/admin/cancel_payment"))
	require.True(t, contains("POST /api/v1/admin/refund_payment"))
}
