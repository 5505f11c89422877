package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/repositories"
	"github.com/galliconnect/rideshare/internal/utils"
)

// RouteService is the route catalog: drivers publish, change and withdraw
// routes; passengers search them.
type RouteService struct {
	DB     *sql.DB
	Routes repositories.RouteRepository
	Users  repositories.UserRepository
	Locks  *RouteLocks
}

type CreateRouteInput struct {
	DriverID      int64
	FromLocation  string
	ToLocation    string
	DepartureTime string
	CostPerSeat   models.Money
	TotalSeats    int
	ActiveDays    []models.DayInput
}

// requireUser loads id and checks it holds role; anything else is reported
// as resource not found.
func requireUser(ctx context.Context, users repositories.UserRepository, id int64, role, resource string) (models.User, error) {
	if id <= 0 {
		return models.User{}, domain.ValidationError{Field: resource + "_id", Msg: "must be positive"}
	}
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.User{}, domain.NotFoundError{Resource: resource, Err: err}
		}
		return models.User{}, err
	}
	if u.Role != role {
		return models.User{}, domain.NotFoundError{Resource: resource}
	}
	return u, nil
}

func (s RouteService) lock(routeID int64) func() {
	if s.Locks == nil {
		return func() {}
	}
	return s.Locks.Lock(routeID)
}

func (s RouteService) Create(ctx context.Context, in CreateRouteInput) (models.Route, error) {
	driver, err := requireUser(ctx, s.Users, in.DriverID, domain.RoleDriver, "driver")
	if err != nil {
		return models.Route{}, err
	}

	rt := models.Route{
		DriverID:      driver.ID,
		DriverName:    driver.Name,
		FromLocation:  utils.NormalizeSpace(in.FromLocation),
		ToLocation:    utils.NormalizeSpace(in.ToLocation),
		DepartureTime: strings.TrimSpace(in.DepartureTime),
		CostPerSeat:   in.CostPerSeat,
		TotalSeats:    in.TotalSeats,
		Days:          models.BuildSchedule(in.ActiveDays, in.TotalSeats),
	}
	if err := rt.Validate(); err != nil {
		return models.Route{}, err
	}
	if err := s.Routes.Create(ctx, &rt); err != nil {
		return models.Route{}, err
	}
	utils.LogEvent(ctx, "routes", "create", fmt.Sprintf("route_id=%d driver_id=%d days=%d", rt.ID, rt.DriverID, len(rt.Days)))
	return rt, nil
}

func (s RouteService) ListForDriver(ctx context.Context, driverID int64) ([]models.Route, error) {
	if _, err := requireUser(ctx, s.Users, driverID, domain.RoleDriver, "driver"); err != nil {
		return nil, err
	}
	return s.Routes.ListByDriver(ctx, driverID)
}

// Update applies the present fields of u and re-validates the merged route.
func (s RouteService) Update(ctx context.Context, driverID, routeID int64, u models.RouteUpdate) (models.Route, error) {
	if _, err := requireUser(ctx, s.Users, driverID, domain.RoleDriver, "driver"); err != nil {
		return models.Route{}, err
	}
	if routeID <= 0 {
		return models.Route{}, domain.ValidationError{Field: "route_id", Msg: "must be positive"}
	}

	unlock := s.lock(routeID)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Route{}, fmt.Errorf("update route: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.Routes.LockForDriver(ctx, tx, driverID, routeID)
	if err != nil {
		return models.Route{}, err
	}
	if u.Empty() {
		return current, nil
	}

	next := u.Apply(current)
	if err := next.Validate(); err != nil {
		return models.Route{}, err
	}
	if err := s.Routes.Save(ctx, tx, next); err != nil {
		return models.Route{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Route{}, fmt.Errorf("update route: commit tx: %w", err)
	}
	utils.LogEvent(ctx, "routes", "update", fmt.Sprintf("route_id=%d driver_id=%d", routeID, driverID))
	return next, nil
}

func (s RouteService) Delete(ctx context.Context, driverID, routeID int64) error {
	if _, err := requireUser(ctx, s.Users, driverID, domain.RoleDriver, "driver"); err != nil {
		return err
	}
	if routeID <= 0 {
		return domain.ValidationError{Field: "route_id", Msg: "must be positive"}
	}

	unlock := s.lock(routeID)
	defer unlock()

	if err := s.Routes.SoftDelete(ctx, driverID, routeID); err != nil {
		return err
	}
	utils.LogEvent(ctx, "routes", "delete", fmt.Sprintf("route_id=%d driver_id=%d", routeID, driverID))
	return nil
}

// Search returns active routes whose origin and destination contain from and to.
func (s RouteService) Search(ctx context.Context, from, to string) ([]models.Route, error) {
	return s.Routes.Search(ctx, from, to)
}
