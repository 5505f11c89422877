package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	intdb "github.com/galliconnect/rideshare/internal/db"
	"github.com/galliconnect/rideshare/internal/http/middleware"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "rideshare backend running"})
}

// GET /api/db-check
func (h *Handler) DBCheck(c *gin.Context) {
	if h.DB == nil {
		respondError(c, http.StatusInternalServerError, "db_unavailable", "database not connected", nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		respondError(c, http.StatusInternalServerError, "db_unavailable", "database ping failed: "+err.Error(), nil)
		return
	}
	if !intdb.HasTable(ctx, h.DB, h.Dialect, "users") {
		respondError(c, http.StatusInternalServerError, "db_unmigrated", "users table missing; run migrations", nil)
		return
	}
	var count int
	if err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		respondError(c, http.StatusInternalServerError, "db_query_failed", "database query failed: "+err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "database connection OK",
		"driver":      string(h.Dialect),
		"users_in_db": count,
		"request_id":  middleware.GetRequestID(c),
	})
}

// GET /api/endpoints lists the registered routes.
func (h *Handler) Endpoints(c *gin.Context) {
	h.routerMu.RLock()
	r := h.router
	h.routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "router not ready", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
