package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"storefront/internal/auth"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// LoginHint tells clients where to obtain a token.
const LoginHint = "/auth/login"

type Mid struct {
	k *auth.Keys
}

func NewMid(k *auth.Keys) (*Mid, error) {
	if k == nil {
		return nil, errors.New("auth keys cannot be nil")
	}
	return &Mid{k: k}, nil
}

// Authentication validates the bearer token and stores its claims in the
// request context under auth.ClaimsKey.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		header := c.GetHeader("Authorization")
		scheme, tokenStr, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
			slog.Error("missing or malformed authorization header", slog.String(logkey.TraceID, traceId))
			abortUnauthorized(c, "Authentication required")
			return
		}

		claims, err := m.k.ValidateToken(tokenStr)
		if err != nil {
			slog.Error("token validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			abortUnauthorized(c, "Invalid or expired session")
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize wraps handler so it only runs for one of roles. The claims are
// re-read on every call.
func (m *Mid) Authorize(handler gin.HandlerFunc, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		claims, ok := ClaimsFrom(c)
		if !ok {
			slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !slices.Contains(roles, claims.Role) {
			slog.Error("role not allowed", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.UserID, claims.Subject), slog.String("Role", claims.Role))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have access to this page", "login": LoginHint})
			return
		}
		handler(c)
	}
}

// ClaimsFrom returns the claims Authentication stored for this request.
func ClaimsFrom(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="storefront"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "login": LoginHint})
}
