package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cursopassei/checkout/pkg/jwtauth"
)

func newAuthRouter(manager *jwtauth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminAuthMiddleware(manager))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString("adminSubject")})
	})
	return r
}

func TestAdminAuthMiddleware_RejectsMissingHeader(t *testing.T) {
	r := newAuthRouter(jwtauth.NewManager("secret"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_RejectsMalformedHeader(t *testing.T) {
	r := newAuthRouter(jwtauth.NewManager("secret"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_RejectsForeignToken(t *testing.T) {
	token, err := jwtauth.NewManager("other-secret").GenerateToken("admin@example.com", "admin")
	require.NoError(t, err)

	r := newAuthRouter(jwtauth.NewManager("secret"))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_AcceptsValidToken(t *testing.T) {
	manager := jwtauth.NewManager("secret")
	token, err := manager.GenerateToken("admin@example.com", "admin")
	require.NoError(t, err)

	r := newAuthRouter(manager)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "admin@example.com")
}
