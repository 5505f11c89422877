package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intdb "github.com/galliconnect/rideshare/internal/db"
	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/utils"
)

const routeSelect = `
	SELECT r.id, r.driver_id, u.name, r.from_location, r.to_location,
	       r.departure_time, r.cost_per_seat_cents, r.total_seats
	FROM driver_routes r
	JOIN users u ON u.id = r.driver_id
`

// RouteRepository stores driver routes and their day schedules (route_days rows).
// Deleted routes keep their rows with deleted_at set.
type RouteRepository struct {
	DB      *sql.DB
	Dialect intdb.Dialect
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(s rowScanner) (models.Route, error) {
	var (
		rt    models.Route
		cents int64
	)
	if err := s.Scan(&rt.ID, &rt.DriverID, &rt.DriverName, &rt.FromLocation, &rt.ToLocation,
		&rt.DepartureTime, &cents, &rt.TotalSeats); err != nil {
		return models.Route{}, err
	}
	rt.CostPerSeat = models.Money(cents)
	rt.Days = models.Schedule{}
	return rt, nil
}

// Create inserts rt with its schedule in one transaction and sets rt.ID.
func (r RouteRepository) Create(ctx context.Context, rt *models.Route) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create route: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO driver_routes (driver_id, from_location, to_location, departure_time, cost_per_seat_cents, total_seats)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rt.DriverID, rt.FromLocation, rt.ToLocation, rt.DepartureTime, int64(rt.CostPerSeat), rt.TotalSeats,
	)
	if err != nil {
		return fmt.Errorf("create route: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create route: last insert id: %w", err)
	}
	if err := insertDays(ctx, tx, id, rt.Days); err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create route: commit tx: %w", err)
	}
	rt.ID = id
	return nil
}

func insertDays(ctx context.Context, q intdb.Querier, routeID int64, days models.Schedule) error {
	for i, d := range days {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO route_days (route_id, trip_date, position, available_seats) VALUES (?, ?, ?, ?)`,
			routeID, d.Date, i, d.AvailableSeats,
		); err != nil {
			if intdb.IsDuplicateKey(err) {
				return domain.ValidationError{Field: "active_days", Msg: "duplicate date " + d.Date, Err: err}
			}
			return fmt.Errorf("insert day %s: %w", d.Date, err)
		}
	}
	return nil
}

// ListByDriver returns the driver's active routes in creation order.
func (r RouteRepository) ListByDriver(ctx context.Context, driverID int64) ([]models.Route, error) {
	rows, err := r.DB.QueryContext(ctx,
		routeSelect+` WHERE r.driver_id = ? AND r.deleted_at IS NULL ORDER BY r.id`, driverID)
	if err != nil {
		return nil, fmt.Errorf("list routes: query: %w", err)
	}
	routes, err := collectRoutes(rows)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	if err := r.attachDays(ctx, r.DB, routes, false); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// Search matches both substrings case-insensitively against active routes, in storage order.
func (r RouteRepository) Search(ctx context.Context, from, to string) ([]models.Route, error) {
	esc := utils.LikeEscapeChar
	rows, err := r.DB.QueryContext(ctx, routeSelect+`
		WHERE r.deleted_at IS NULL
		  AND `+r.Dialect.Lower("r.from_location")+` LIKE ? ESCAPE '`+esc+`'
		  AND `+r.Dialect.Lower("r.to_location")+` LIKE ? ESCAPE '`+esc+`'
		ORDER BY r.id`,
		utils.ContainsPattern(from), utils.ContainsPattern(to),
	)
	if err != nil {
		return nil, fmt.Errorf("search routes: query: %w", err)
	}
	routes, err := collectRoutes(rows)
	if err != nil {
		return nil, fmt.Errorf("search routes: %w", err)
	}
	if err := r.attachDays(ctx, r.DB, routes, false); err != nil {
		return nil, fmt.Errorf("search routes: %w", err)
	}
	return routes, nil
}

// GetForDriver returns an active route owned by driverID.
func (r RouteRepository) GetForDriver(ctx context.Context, driverID, routeID int64) (models.Route, error) {
	return r.getOne(ctx, r.DB, false, false, driverID, routeID)
}

// GetForDriverAnyState also returns soft-deleted routes, for booking history.
func (r RouteRepository) GetForDriverAnyState(ctx context.Context, driverID, routeID int64) (models.Route, error) {
	return r.getOne(ctx, r.DB, true, false, driverID, routeID)
}

// LockForDriver reads an active route inside tx, holding row locks on the
// route and its days until tx ends (MySQL).
func (r RouteRepository) LockForDriver(ctx context.Context, tx *sql.Tx, driverID, routeID int64) (models.Route, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM driver_routes WHERE id = ? AND driver_id = ? AND deleted_at IS NULL`+r.Dialect.ForUpdate(),
		routeID, driverID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Route{}, domain.NotFoundError{Resource: "route", Err: err}
		}
		return models.Route{}, fmt.Errorf("lock route: %w", err)
	}
	return r.getOne(ctx, tx, false, true, driverID, routeID)
}

func (r RouteRepository) getOne(ctx context.Context, q intdb.Querier, anyState, lock bool, driverID, routeID int64) (models.Route, error) {
	query := routeSelect + ` WHERE r.id = ? AND r.driver_id = ?`
	if !anyState {
		query += ` AND r.deleted_at IS NULL`
	}
	rt, err := scanRoute(q.QueryRowContext(ctx, query, routeID, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Route{}, domain.NotFoundError{Resource: "route", Err: err}
		}
		return models.Route{}, fmt.Errorf("get route: %w", err)
	}
	routes := []models.Route{rt}
	if err := r.attachDays(ctx, q, routes, lock); err != nil {
		return models.Route{}, fmt.Errorf("get route: %w", err)
	}
	return routes[0], nil
}

// Save writes rt's fields and replaces its schedule inside tx.
func (r RouteRepository) Save(ctx context.Context, tx *sql.Tx, rt models.Route) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE driver_routes
		SET from_location = ?, to_location = ?, departure_time = ?,
		    cost_per_seat_cents = ?, total_seats = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND driver_id = ?`,
		rt.FromLocation, rt.ToLocation, rt.DepartureTime, int64(rt.CostPerSeat), rt.TotalSeats,
		rt.ID, rt.DriverID,
	); err != nil {
		return fmt.Errorf("save route: update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM route_days WHERE route_id = ?`, rt.ID); err != nil {
		return fmt.Errorf("save route: clear days: %w", err)
	}
	if err := insertDays(ctx, tx, rt.ID, rt.Days); err != nil {
		return fmt.Errorf("save route: %w", err)
	}
	return nil
}

// DecrementSeats takes seats off one date only if at least that many are free.
// It reports false when the guarded update matched no row.
func (r RouteRepository) DecrementSeats(ctx context.Context, tx *sql.Tx, routeID int64, date string, seats int) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE route_days
		SET available_seats = available_seats - ?
		WHERE route_id = ? AND trip_date = ? AND available_seats >= ?`,
		seats, routeID, date, seats,
	)
	if err != nil {
		return false, fmt.Errorf("decrement seats %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement seats %s: rows affected: %w", date, err)
	}
	return n == 1, nil
}

// SoftDelete hides an active route from listings, search and booking.
func (r RouteRepository) SoftDelete(ctx context.Context, driverID, routeID int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE driver_routes SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = ? AND driver_id = ? AND deleted_at IS NULL`,
		routeID, driverID,
	)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete route: rows affected: %w", err)
	}
	if n == 0 {
		return domain.NotFoundError{Resource: "route"}
	}
	return nil
}

func collectRoutes(rows *sql.Rows) ([]models.Route, error) {
	defer rows.Close()
	routes := make([]models.Route, 0, 16)
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route rows: %w", err)
	}
	return routes, nil
}

// attachDays loads the schedules of routes in one query, keeping stored order.
func (r RouteRepository) attachDays(ctx context.Context, q intdb.Querier, routes []models.Route, lock bool) error {
	if len(routes) == 0 {
		return nil
	}
	byID := make(map[int64]int, len(routes))
	args := make([]any, 0, len(routes))
	for i, rt := range routes {
		byID[rt.ID] = i
		args = append(args, rt.ID)
	}

	query := `SELECT route_id, trip_date, available_seats FROM route_days WHERE route_id IN (` +
		intdb.Placeholders(len(args)) + `) ORDER BY route_id, position`
	if lock {
		query += r.Dialect.ForUpdate()
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load days: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			routeID int64
			day     models.DaySchedule
		)
		if err := rows.Scan(&routeID, &day.Date, &day.AvailableSeats); err != nil {
			return fmt.Errorf("scan day: %w", err)
		}
		day.Day = utils.WeekdayLabel(day.Date)
		if i, ok := byID[routeID]; ok {
			routes[i].Days = append(routes[i].Days, day)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("day rows: %w", err)
	}
	return nil
}
