package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireRoles only lets through callers whose role, as set by RequireAuth,
// is one of allowedRoles.
//
//	r.POST("/add-driver-route", RequireAuth(p), RequireRoles("DRIVER"), handler)
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToUpper(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(userRoleKey)
		if role == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "no authenticated role on request")
			return
		}
		if _, ok := allowed[strings.ToUpper(strings.TrimSpace(role))]; !ok {
			abortJSON(c, http.StatusForbidden, "forbidden", "role not allowed for this endpoint")
			return
		}
		c.Next()
	}
}
