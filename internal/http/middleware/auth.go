package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/galliconnect/rideshare/internal/domain"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// TokenParser turns a bearer token into the authenticated caller.
type TokenParser interface {
	ParseToken(raw string) (domain.RequestContext, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer" token
// and stores the caller's id and role on the context.
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		rc, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Set(userIDKey, rc.UserID)
		c.Set(userRoleKey, rc.Role)
		c.Next()
	}
}

// Caller returns the identity stored by RequireAuth.
func Caller(c *gin.Context) (domain.RequestContext, bool) {
	id := c.GetInt64(userIDKey)
	role := c.GetString(userRoleKey)
	if id <= 0 || role == "" {
		return domain.RequestContext{}, false
	}
	return domain.RequestContext{UserID: id, Role: role}, true
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      message,
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c),
	})
}
