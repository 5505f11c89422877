package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/services"
)

type createRouteRequest struct {
	DriverID      *int64            `json:"driver_id"`
	FromLocation  string            `json:"from_location"`
	ToLocation    string            `json:"to_location"`
	DepartureTime string            `json:"departure_time"`
	CostPerSeat   models.Money      `json:"cost_per_seat"`
	TotalSeats    int               `json:"total_seats"`
	ActiveDays    []models.DayInput `json:"active_days"`
}

// searchRequest uses pointers so that a missing field can be told apart from "".
type searchRequest struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// POST /api/add-driver-route
func (h *Handler) AddDriverRoute(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req createRouteRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	driverID := rc.UserID
	if req.DriverID != nil && *req.DriverID != rc.UserID {
		RespondDomainError(c, domain.ForbiddenError{Msg: "cannot create routes for another driver"})
		return
	}

	route, err := h.Routes.Create(c.Request.Context(), services.CreateRouteInput{
		DriverID:      driverID,
		FromLocation:  req.FromLocation,
		ToLocation:    req.ToLocation,
		DepartureTime: req.DepartureTime,
		CostPerSeat:   req.CostPerSeat,
		TotalSeats:    req.TotalSeats,
		ActiveDays:    req.ActiveDays,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

// GET /api/get-driver-routes/:driverId
func (h *Handler) GetDriverRoutes(c *gin.Context) {
	driverID, ok := idParam(c, "driverId")
	if !ok {
		return
	}
	routes, err := h.Routes.ListForDriver(c.Request.Context(), driverID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// PUT /api/update-driver-route/:driverId/:routeId
func (h *Handler) UpdateDriverRoute(c *gin.Context) {
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
	var req models.RouteUpdate
	if !BindJSONOrError(c, &req) {
		return
	}
	route, err := h.Routes.Update(c.Request.Context(), driverID, routeID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// DELETE /api/delete-driver-route/:driverId/:routeId
func (h *Handler) DeleteDriverRoute(c *gin.Context) {
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
	if err := h.Routes.Delete(c.Request.Context(), driverID, routeID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "route deleted"})
}

// POST /api/routes/search
func (h *Handler) SearchRoutes(c *gin.Context) {
	var req searchRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.From == nil || req.To == nil {
		RespondDomainError(c, domain.ValidationError{Msg: "both from and to are required"})
		return
	}
	routes, err := h.Routes.Search(c.Request.Context(), *req.From, *req.To)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}
