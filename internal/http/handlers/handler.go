package handlers

import (
	"database/sql"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	intdb "github.com/galliconnect/rideshare/internal/db"
	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/http/middleware"
	"github.com/galliconnect/rideshare/internal/services"
)

// Handler holds the services behind the JSON API.
type Handler struct {
	Auth     services.AuthService
	Routes   services.RouteService
	Bookings services.BookingService
	Tickets  services.TicketService
	DB       *sql.DB
	Dialect  intdb.Dialect

	routerMu sync.RWMutex
	router   *gin.Engine
}

// SetRouter stores the active gin engine for /api/endpoints.
func (h *Handler) SetRouter(r *gin.Engine) {
	h.routerMu.Lock()
	defer h.routerMu.Unlock()
	h.router = r
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondDomainError(c, domain.ValidationError{Field: name, Msg: "must be a positive integer", Err: err})
		return 0, false
	}
	return id, true
}

func caller(c *gin.Context) (domain.RequestContext, bool) {
	rc, ok := middleware.Caller(c)
	if !ok {
		RespondDomainError(c, domain.UnauthorizedError{Msg: "authentication required"})
	}
	return rc, ok
}

// requireSelf allows the request only when the caller is the account named in the path.
func requireSelf(c *gin.Context, id int64) (domain.RequestContext, bool) {
	rc, ok := caller(c)
	if !ok {
		return rc, false
	}
	if rc.UserID != id {
		RespondDomainError(c, domain.ForbiddenError{Msg: "cannot act on another account"})
		return rc, false
	}
	return rc, true
}
