package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	intdb "github.com/galliconnect/rideshare/internal/db"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/repositories"
)

type testStore struct {
	db       *sql.DB
	auth     AuthService
	routes   RouteService
	bookings BookingService
}

// newTestStore migrates a fresh SQLite file and wires the services over it.
func newTestStore(t *testing.T) testStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "rideshare.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := intdb.RunMigrations(db, intdb.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := repositories.UserRepository{DB: db}
	routeRepo := repositories.RouteRepository{DB: db, Dialect: intdb.SQLite}
	locks := NewRouteLocks()
	return testStore{
		db:     db,
		auth:   AuthService{Users: users, Secret: []byte("test-secret"), TokenTTL: time.Hour},
		routes: RouteService{DB: db, Routes: routeRepo, Users: users, Locks: locks},
		bookings: BookingService{
			DB:       db,
			Routes:   routeRepo,
			Bookings: repositories.BookingRepository{DB: db},
			Users:    users,
			Locks:    locks,
		},
	}
}

func (s testStore) signup(t *testing.T, name, email, role string) models.User {
	t.Helper()
	u, _, err := s.auth.Signup(context.Background(), SignupInput{Name: name, Email: email, Password: "secret", Role: role})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return u
}

func (s testStore) createRoute(t *testing.T, driverID int64, from, to string, totalSeats int, days ...models.DayInput) models.Route {
	t.Helper()
	rt, err := s.routes.Create(context.Background(), CreateRouteInput{
		DriverID:      driverID,
		FromLocation:  from,
		ToLocation:    to,
		DepartureTime: "08:00 AM",
		CostPerSeat:   5000,
		TotalSeats:    totalSeats,
		ActiveDays:    days,
	})
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	return rt
}

func day(date string, seats int) models.DayInput {
	return models.DayInput{Date: date, AvailableSeats: &seats}
}

func (s testStore) countBookings(t *testing.T) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM passenger_bookings`).Scan(&n); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	return n
}
