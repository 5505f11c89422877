package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/repositories"
	"github.com/galliconnect/rideshare/internal/utils"
)

// BookingService books seats on routes and answers booking queries.
type BookingService struct {
	DB       *sql.DB
	Routes   repositories.RouteRepository
	Bookings repositories.BookingRepository
	Users    repositories.UserRepository
	Locks    *RouteLocks
	NewRef   func() string
}

type BookSeatsInput struct {
	DriverID    int64
	RouteID     int64
	PassengerID int64
	Dates       []string
	Seats       int
}

func (s BookingService) newRef() string {
	if s.NewRef != nil {
		return s.NewRef()
	}
	return uuid.NewString()
}

// BookSeats reserves in.Seats on every requested date or on none of them.
// On success it returns the updated route and the booking summary.
func (s BookingService) BookSeats(ctx context.Context, in BookSeatsInput) (models.Route, models.BookingSummary, error) {
	if in.DriverID <= 0 {
		return models.Route{}, models.BookingSummary{}, domain.ValidationError{Field: "driver_id", Msg: "must be positive"}
	}
	if in.RouteID <= 0 {
		return models.Route{}, models.BookingSummary{}, domain.ValidationError{Field: "route_id", Msg: "must be positive"}
	}
	if in.Seats <= 0 {
		return models.Route{}, models.BookingSummary{}, domain.ValidationError{Field: "seats", Msg: "must be positive"}
	}
	dates, err := models.NormalizeDates(in.Dates)
	if err != nil {
		return models.Route{}, models.BookingSummary{}, err
	}
	passenger, err := requireUser(ctx, s.Users, in.PassengerID, domain.RolePassenger, "passenger")
	if err != nil {
		return models.Route{}, models.BookingSummary{}, err
	}

	if s.Locks != nil {
		unlock := s.Locks.Lock(in.RouteID)
		defer unlock()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Route{}, models.BookingSummary{}, fmt.Errorf("book seats: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rt, err := s.Routes.LockForDriver(ctx, tx, in.DriverID, in.RouteID)
	if err != nil {
		return models.Route{}, models.BookingSummary{}, err
	}
	before := rt.Days
	rt.Days = append(models.Schedule(nil), before...)
	if err := rt.ReserveSeats(dates, in.Seats); err != nil {
		utils.LogEvent(ctx, "booking", "reject", fmt.Sprintf("route_id=%d reason=%q", rt.ID, err.Error()))
		return models.Route{}, models.BookingSummary{}, err
	}
	total, err := utils.TotalFare(int64(rt.CostPerSeat), in.Seats, len(dates))
	if err != nil {
		return models.Route{}, models.BookingSummary{}, domain.ValidationError{Field: "seats", Msg: "total price too large", Err: err}
	}

	for _, date := range dates {
		ok, err := s.Routes.DecrementSeats(ctx, tx, rt.ID, date, in.Seats)
		if err != nil {
			return models.Route{}, models.BookingSummary{}, err
		}
		if !ok {
			// another writer got there first; the rollback undoes earlier dates
			day, _ := before.Find(date)
			return models.Route{}, models.BookingSummary{}, domain.InsufficientCapacityError{
				Date: date, Requested: in.Seats, Available: day.AvailableSeats,
			}
		}
	}

	ref := s.newRef()
	rows := make([]models.Booking, 0, len(dates))
	for _, date := range dates {
		rows = append(rows, models.Booking{
			Reference:   ref,
			PassengerID: passenger.ID,
			RouteID:     rt.ID,
			Date:        date,
			Seats:       in.Seats,
			CostPerSeat: rt.CostPerSeat,
		})
	}
	if err := s.Bookings.InsertAll(ctx, tx, rows); err != nil {
		return models.Route{}, models.BookingSummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Route{}, models.BookingSummary{}, fmt.Errorf("book seats: commit tx: %w", err)
	}

	summary := models.BookingSummary{
		Reference:     ref,
		RouteID:       rt.ID,
		DriverID:      rt.DriverID,
		DriverName:    rt.DriverName,
		PassengerID:   passenger.ID,
		PassengerName: passenger.Name,
		RouteInfo: models.RouteInfo{
			From:          rt.FromLocation,
			To:            rt.ToLocation,
			DepartureTime: rt.DepartureTime,
		},
		CostPerSeat: rt.CostPerSeat,
		Seats:       in.Seats,
		Dates:       dates,
		TotalPrice:  models.Money(total),
	}
	utils.LogEvent(ctx, "booking", "book", fmt.Sprintf("ref=%s route_id=%d passenger_id=%d seats=%d dates=%d",
		ref, rt.ID, passenger.ID, in.Seats, len(dates)))
	return rt, summary, nil
}

// RouteManifest lists passengers per date for one of the driver's routes,
// including routes that have since been deleted.
func (s BookingService) RouteManifest(ctx context.Context, driverID, routeID int64) (models.RouteManifest, error) {
	if _, err := requireUser(ctx, s.Users, driverID, domain.RoleDriver, "driver"); err != nil {
		return nil, err
	}
	if _, err := s.Routes.GetForDriverAnyState(ctx, driverID, routeID); err != nil {
		return nil, err
	}
	return s.Bookings.Manifest(ctx, routeID)
}

func (s BookingService) PassengerBookings(ctx context.Context, passengerID int64) ([]models.BookingSummary, error) {
	if _, err := requireUser(ctx, s.Users, passengerID, domain.RolePassenger, "passenger"); err != nil {
		return nil, err
	}
	return s.Bookings.ListByPassenger(ctx, passengerID)
}

// Summary returns the booking ref if viewer is its passenger or the route's driver.
func (s BookingService) Summary(ctx context.Context, ref string, viewer domain.RequestContext) (models.BookingSummary, error) {
	if ref == "" {
		return models.BookingSummary{}, domain.ValidationError{Field: "reference", Msg: "required"}
	}
	b, err := s.Bookings.GetSummary(ctx, ref)
	if err != nil {
		return models.BookingSummary{}, err
	}
	switch {
	case viewer.IsPassenger() && viewer.UserID == b.PassengerID:
	case viewer.IsDriver() && viewer.UserID == b.DriverID:
	default:
		return models.BookingSummary{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}
