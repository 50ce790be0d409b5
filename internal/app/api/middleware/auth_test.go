package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nclex311/billing/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func authConfig(secret string) *config.Config {
	return &config.Config{Auth: config.AuthConfig{JWTSecret: secret}}
}

func mintToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func memberClaims(userID string) *Claims {
	return &Claims{
		Email: "nurse@example.com",
		Role:  "member",
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(authConfig("sekrit")))

	var gotUserID, gotEmail, gotRole string
	r.GET("/me", func(c *gin.Context) {
		gotUserID = c.GetString(CtxUserID)
		gotEmail = c.GetString(CtxUserEmail)
		gotRole = c.GetString(CtxUserRole)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "sekrit", memberClaims("user_7")))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user_7", gotUserID)
	require.Equal(t, "nurse@example.com", gotEmail)
	require.Equal(t, "member", gotRole)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	gin.SetMode(gin.TestMode)

	expired := &Claims{StandardClaims: jwt.StandardClaims{
		Subject:   "user_7",
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}}
	noSubject := &Claims{StandardClaims: jwt.StandardClaims{
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}}

	tests := []struct {
		name   string
		secret string
		header string
	}{
		{name: "missing header", secret: "sekrit", header: ""},
		{name: "not bearer", secret: "sekrit", header: "Basic abc"},
		{name: "garbage token", secret: "sekrit", header: "Bearer not.a.token"},
		{name: "wrong secret", secret: "sekrit", header: "Bearer " + mintToken(t, "other", memberClaims("user_7"))},
		{name: "expired token", secret: "sekrit", header: "Bearer " + mintToken(t, "sekrit", expired)},
		{name: "missing subject", secret: "sekrit", header: "Bearer " + mintToken(t, "sekrit", noSubject)},
		{name: "no secret configured", secret: "", header: "Bearer " + mintToken(t, "sekrit", memberClaims("user_7"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AuthMiddleware(authConfig(tt.secret)))
			r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(role string) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) { c.Set(CtxUserRole, role) })
		r.Use(RequireAdmin())
		r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	w := httptest.NewRecorder()
	newRouter(RoleAdmin).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	newRouter("member").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}
