package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nclex311/billing/pkg/config"
	"github.com/nclex311/billing/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxUserRole  = "user_role"

	RoleAdmin = "admin"
)

// Claims is the session-token payload the main application signs. The
// subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

// AuthMiddleware verifies the Bearer token and exposes the caller's identity
// on both the gin context and the request context. An unset secret rejects
// every request rather than letting traffic through unverified.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	secret := cfg.Auth.JWTSecret
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "authentication not configured"))
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing bearer token"))
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid token"))
			return
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUserEmail, claims.Email)
		c.Set(CtxUserRole, claims.Role)

		ctx := context.WithValue(c.Request.Context(), CtxUserID, claims.Subject)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAdmin gates admin routes. Run it after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "admin role required"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
