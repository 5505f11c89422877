package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	intdb "github.com/galliconnect/rideshare/internal/db"
	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/utils"
)

const bookingSummarySelect = `
	SELECT b.booking_ref, b.route_id, r.driver_id, d.name, b.passenger_id, p.name,
	       r.from_location, r.to_location, r.departure_time,
	       b.cost_per_seat_cents, b.seats, b.trip_date
	FROM passenger_bookings b
	JOIN driver_routes r ON r.id = b.route_id
	JOIN users d ON d.id = r.driver_id
	JOIN users p ON p.id = b.passenger_id
`

type BookingRepository struct {
	DB *sql.DB
}

// InsertAll writes one row per booked date. q is the booking transaction.
func (r BookingRepository) InsertAll(ctx context.Context, q intdb.Querier, bookings []models.Booking) error {
	for i := range bookings {
		b := &bookings[i]
		res, err := q.ExecContext(ctx, `
			INSERT INTO passenger_bookings (booking_ref, passenger_id, route_id, trip_date, seats, cost_per_seat_cents)
			VALUES (?, ?, ?, ?, ?, ?)`,
			b.Reference, b.PassengerID, b.RouteID, b.Date, b.Seats, int64(b.CostPerSeat),
		)
		if err != nil {
			return fmt.Errorf("insert booking %s: %w", b.Date, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			b.ID = id
		}
	}
	return nil
}

// ListByPassenger returns the passenger's bookings, newest first.
func (r BookingRepository) ListByPassenger(ctx context.Context, passengerID int64) ([]models.BookingSummary, error) {
	rows, err := r.DB.QueryContext(ctx,
		bookingSummarySelect+` WHERE b.passenger_id = ? ORDER BY b.id DESC`, passengerID)
	if err != nil {
		return nil, fmt.Errorf("list passenger bookings: query: %w", err)
	}
	out, err := groupSummaries(rows)
	if err != nil {
		return nil, fmt.Errorf("list passenger bookings: %w", err)
	}
	return out, nil
}

// GetSummary returns the booking identified by ref.
func (r BookingRepository) GetSummary(ctx context.Context, ref string) (models.BookingSummary, error) {
	rows, err := r.DB.QueryContext(ctx,
		bookingSummarySelect+` WHERE b.booking_ref = ? ORDER BY b.id`, ref)
	if err != nil {
		return models.BookingSummary{}, fmt.Errorf("get booking: query: %w", err)
	}
	out, err := groupSummaries(rows)
	if err != nil {
		return models.BookingSummary{}, fmt.Errorf("get booking: %w", err)
	}
	if len(out) == 0 {
		return models.BookingSummary{}, domain.NotFoundError{Resource: "booking"}
	}
	return out[0], nil
}

// Manifest lists who is booked on each date of routeID.
func (r BookingRepository) Manifest(ctx context.Context, routeID int64) (models.RouteManifest, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT b.trip_date, p.name, b.seats
		FROM passenger_bookings b
		JOIN users p ON p.id = b.passenger_id
		WHERE b.route_id = ?
		ORDER BY b.trip_date, b.id`, routeID)
	if err != nil {
		return nil, fmt.Errorf("route manifest: query: %w", err)
	}
	defer rows.Close()

	manifest := models.RouteManifest{}
	for rows.Next() {
		var (
			date  string
			entry models.ManifestEntry
		)
		if err := rows.Scan(&date, &entry.PassengerName, &entry.Seats); err != nil {
			return nil, fmt.Errorf("route manifest: scan: %w", err)
		}
		manifest[date] = append(manifest[date], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route manifest: rows: %w", err)
	}
	return manifest, nil
}

// groupSummaries folds per-date rows into one summary per reference,
// in the order references first appear.
func groupSummaries(rows *sql.Rows) ([]models.BookingSummary, error) {
	defer rows.Close()

	out := make([]models.BookingSummary, 0, 8)
	byRef := make(map[string]int)
	for rows.Next() {
		var (
			s     models.BookingSummary
			cents int64
			date  string
		)
		if err := rows.Scan(&s.Reference, &s.RouteID, &s.DriverID, &s.DriverName, &s.PassengerID, &s.PassengerName,
			&s.RouteInfo.From, &s.RouteInfo.To, &s.RouteInfo.DepartureTime,
			&cents, &s.Seats, &date); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if i, ok := byRef[s.Reference]; ok {
			out[i].Dates = append(out[i].Dates, date)
			continue
		}
		s.CostPerSeat = models.Money(cents)
		s.Dates = []string{date}
		byRef[s.Reference] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking rows: %w", err)
	}

	for i := range out {
		sort.Strings(out[i].Dates)
		total, err := utils.TotalFare(int64(out[i].CostPerSeat), out[i].Seats, len(out[i].Dates))
		if err != nil {
			return nil, fmt.Errorf("booking %s total: %w", out[i].Reference, err)
		}
		out[i].TotalPrice = models.Money(total)
	}
	return out, nil
}
