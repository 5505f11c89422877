package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/galliconnect/rideshare/internal/services"
)

type bookRouteRequest struct {
	Dates []string `json:"dates"`
	Seats int      `json:"seats"`
}

// POST /api/book-route/:driverId/:routeId
func (h *Handler) BookRoute(c *gin.Context) {
	driverID, ok := idParam(c, "driverId")
	if !ok {
		return
	}
	routeID, ok := idParam(c, "routeId")
	if !ok {
		return
	}
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req bookRouteRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	route, booking, err := h.Bookings.BookSeats(c.Request.Context(), services.BookSeatsInput{
		DriverID:    driverID,
		RouteID:     routeID,
		PassengerID: rc.UserID,
		Dates:       req.Dates,
		Seats:       req.Seats,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route, "booking": booking})
}

// GET /api/driver/:driverId/routes/:routeId/bookings
func (h *Handler) RouteBookings(c *gin.Context) {
	driverID, ok := idParam(c, "driverId")
	if !ok {
		return
	}
	routeID, ok := idParam(c, "routeId")
	if !ok {
		return
	}
	if _, ok := requireSelf(c, driverID); !ok {
		return
	}
	manifest, err := h.Bookings.RouteManifest(c.Request.Context(), driverID, routeID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, manifest)
}

// GET /api/passengers/:passengerId/bookings
func (h *Handler) PassengerBookings(c *gin.Context) {
	passengerID, ok := idParam(c, "passengerId")
	if !ok {
		return
	}
	if _, ok := requireSelf(c, passengerID); !ok {
		return
	}
	bookings, err := h.Bookings.PassengerBookings(c.Request.Context(), passengerID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /api/bookings/:reference/e-ticket
func (h *Handler) ETicket(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	ref := strings.TrimSpace(c.Param("reference"))
	pdf, filename, err := h.Tickets.GenerateETicket(c.Request.Context(), ref, rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
