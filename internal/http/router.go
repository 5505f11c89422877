package api

import (
	"log/slog"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	intconfig "github.com/galliconnect/rideshare/internal/config"
	"github.com/galliconnect/rideshare/internal/domain"
	h "github.com/galliconnect/rideshare/internal/http/handlers"
	"github.com/galliconnect/rideshare/internal/http/middleware"
)

func NewRouter(env intconfig.Env, hd *h.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		slog.Warn("failed to set trusted proxies", "error", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":      "route not found",
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": middleware.GetRequestID(c),
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", hd.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/endpoints", hd.Endpoints)

		// Auth
		api.POST("/signup", hd.Signup)
		api.POST("/login", hd.Login)

		// Catalog (public reads)
		api.GET("/get-driver-routes/:driverId", hd.GetDriverRoutes)
		api.POST("/routes/search", hd.SearchRoutes)

		authed := api.Group("", middleware.RequireAuth(hd.Auth))

		driver := authed.Group("", middleware.RequireRoles(domain.RoleDriver))
		driver.POST("/add-driver-route", hd.AddDriverRoute)
		driver.PUT("/update-driver-route/:driverId/:routeId", hd.UpdateDriverRoute)
		driver.DELETE("/delete-driver-route/:driverId/:routeId", hd.DeleteDriverRoute)
		driver.GET("/driver/:driverId/routes/:routeId/bookings", hd.RouteBookings)

		passenger := authed.Group("", middleware.RequireRoles(domain.RolePassenger))
		passenger.POST("/book-route/:driverId/:routeId", hd.BookRoute)
		passenger.GET("/passengers/:passengerId/bookings", hd.PassengerBookings)

		authed.GET("/bookings/:reference/e-ticket", hd.ETicket)
	}

	hd.SetRouter(r)
	return r
}
