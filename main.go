package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	intconfig "github.com/galliconnect/rideshare/internal/config"
	intdb "github.com/galliconnect/rideshare/internal/db"
	router "github.com/galliconnect/rideshare/internal/http"
	"github.com/galliconnect/rideshare/internal/http/handlers"
	"github.com/galliconnect/rideshare/internal/repositories"
	"github.com/galliconnect/rideshare/internal/services"
	"github.com/galliconnect/rideshare/internal/utils"
)

func main() {
	env, err := intconfig.LoadEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	utils.SetupLogger(env.LogLevel)
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}
	if env.UsesDefaultSecret() {
		slog.Warn("JWT_SECRET not set; using the development default")
	}

	sqlDB, dialect, err := intconfig.OpenDB(context.Background(), env)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if env.AutoMigrate {
		if err := intdb.RunMigrations(sqlDB, dialect); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	users := repositories.UserRepository{DB: sqlDB}
	routes := repositories.RouteRepository{DB: sqlDB, Dialect: dialect}
	bookings := repositories.BookingRepository{DB: sqlDB}
	locks := services.NewRouteLocks()

	bookingSvc := services.BookingService{DB: sqlDB, Routes: routes, Bookings: bookings, Users: users, Locks: locks}
	hd := &handlers.Handler{
		Auth:     services.AuthService{Users: users, Secret: []byte(env.JWTSecret), TokenTTL: env.TokenTTL},
		Routes:   services.RouteService{DB: sqlDB, Routes: routes, Users: users, Locks: locks},
		Bookings: bookingSvc,
		Tickets:  services.TicketService{Bookings: bookingSvc},
		DB:       sqlDB,
		Dialect:  dialect,
	}

	r := router.NewRouter(env, hd)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		return
	}

	slog.Info("server stopped")
}
