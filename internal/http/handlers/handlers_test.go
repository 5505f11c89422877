package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	intconfig "github.com/galliconnect/rideshare/internal/config"
	intdb "github.com/galliconnect/rideshare/internal/db"
	api "github.com/galliconnect/rideshare/internal/http"
	"github.com/galliconnect/rideshare/internal/http/handlers"
	"github.com/galliconnect/rideshare/internal/repositories"
	"github.com/galliconnect/rideshare/internal/services"
)

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := intdb.RunMigrations(sqlDB, intdb.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := repositories.UserRepository{DB: sqlDB}
	routes := repositories.RouteRepository{DB: sqlDB, Dialect: intdb.SQLite}
	locks := services.NewRouteLocks()
	bookingSvc := services.BookingService{
		DB: sqlDB, Routes: routes, Bookings: repositories.BookingRepository{DB: sqlDB}, Users: users, Locks: locks,
	}
	hd := &handlers.Handler{
		Auth:     services.AuthService{Users: users, Secret: []byte("test-secret"), TokenTTL: time.Hour},
		Routes:   services.RouteService{DB: sqlDB, Routes: routes, Users: users, Locks: locks},
		Bookings: bookingSvc,
		Tickets:  services.TicketService{Bookings: bookingSvc},
		DB:       sqlDB,
		Dialect:  intdb.SQLite,
	}
	return testAPI{t: t, engine: api.NewRouter(intconfig.Env{}, hd)}
}

func (a testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	Details   map[string]any `json:"details"`
}

type routeBody struct {
	ID          int64  `json:"id"`
	DriverID    int64  `json:"driver_id"`
	CostPerSeat string `json:"cost_per_seat"`
	ActiveDays  []struct {
		Date           string `json:"date"`
		Day            string `json:"day"`
		AvailableSeats int    `json:"available_seats"`
	} `json:"active_days"`
}

func (a testAPI) signup(name, email, role string) authResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/signup", "", map[string]string{
		"name": name, "email": email, "password": "secret", "role": role,
	})
	if w.Code != http.StatusCreated {
		a.t.Fatalf("signup status %d: %s", w.Code, w.Body.String())
	}
	return decode[authResponse](a.t, w)
}

func (a testAPI) addRoute(token string, body map[string]any) routeBody {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/add-driver-route", token, body)
	if w.Code != http.StatusCreated {
		a.t.Fatalf("add route status %d: %s", w.Code, w.Body.String())
	}
	return decode[routeBody](a.t, w)
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func berlinRoute() map[string]any {
	return map[string]any{
		"from_location":  "Berlin",
		"to_location":    "Punepur",
		"departure_time": "08:00 AM",
		"cost_per_seat":  50,
		"total_seats":    4,
		"active_days": []map[string]any{
			{"date": "2025-08-15", "available_seats": 3},
			{"date": "2025-08-16"},
		},
	}
}

func TestBookingFlow(t *testing.T) {
	a := newTestAPI(t)
	driver := a.signup("Ravi", "ravi@example.com", "DRIVER")
	passenger := a.signup("Asha", "asha@example.com", "PASSENGER")

	rt := a.addRoute(driver.Token, berlinRoute())
	if rt.DriverID != driver.User.ID || rt.CostPerSeat != "50.00" || len(rt.ActiveDays) != 2 {
		t.Fatalf("unexpected route %+v", rt)
	}
	if rt.ActiveDays[1].AvailableSeats != 4 || rt.ActiveDays[0].Day != "Fri" {
		t.Fatalf("unexpected schedule %+v", rt.ActiveDays)
	}

	w := a.do(http.MethodGet, "/api/get-driver-routes/"+id(driver.User.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	listed := decode[struct {
		Routes []routeBody `json:"routes"`
	}](t, w)
	if len(listed.Routes) != 1 || listed.Routes[0].ID != rt.ID {
		t.Fatalf("unexpected listing %s", w.Body.String())
	}

	w = a.do(http.MethodPost, "/api/routes/search", "", map[string]string{"from": "ber", "to": "pune"})
	if w.Code != http.StatusOK {
		t.Fatalf("search status %d", w.Code)
	}
	if found := decode[[]routeBody](t, w); len(found) != 1 {
		t.Fatalf("unexpected search result %s", w.Body.String())
	}

	bookPath := "/api/book-route/" + id(driver.User.ID) + "/" + id(rt.ID)
	w = a.do(http.MethodPost, bookPath, passenger.Token, map[string]any{"dates": []string{"2025-08-15", "2025-08-16"}, "seats": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("book status %d: %s", w.Code, w.Body.String())
	}
	booked := decode[struct {
		Route   routeBody `json:"route"`
		Booking struct {
			Reference  string   `json:"booking_id"`
			Dates      []string `json:"dates"`
			TotalPrice string   `json:"total_price"`
		} `json:"booking"`
	}](t, w)
	if booked.Route.ActiveDays[0].AvailableSeats != 1 || booked.Route.ActiveDays[1].AvailableSeats != 2 {
		t.Fatalf("unexpected seats after booking %+v", booked.Route.ActiveDays)
	}
	if booked.Booking.Reference == "" || booked.Booking.TotalPrice != "200.00" {
		t.Fatalf("unexpected booking %+v", booked.Booking)
	}

	w = a.do(http.MethodPost, bookPath, passenger.Token, map[string]any{"dates": []string{"2025-08-15"}, "seats": 2})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("overbooking status %d", w.Code)
	}
	eb := decode[errorBody](t, w)
	if eb.Code != "insufficient_capacity" || eb.Details["date"] != "2025-08-15" {
		t.Fatalf("unexpected error body %s", w.Body.String())
	}

	w = a.do(http.MethodGet, "/api/driver/"+id(driver.User.ID)+"/routes/"+id(rt.ID)+"/bookings", driver.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("manifest status %d", w.Code)
	}
	manifest := decode[map[string][]struct {
		PassengerName string `json:"passenger_name"`
		Seats         int    `json:"seats"`
	}](t, w)
	if len(manifest["2025-08-15"]) != 1 || manifest["2025-08-15"][0].PassengerName != "Asha" {
		t.Fatalf("unexpected manifest %s", w.Body.String())
	}

	w = a.do(http.MethodGet, "/api/passengers/"+id(passenger.User.ID)+"/bookings", passenger.Token, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), booked.Booking.Reference) {
		t.Fatalf("history status %d: %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodGet, "/api/bookings/"+booked.Booking.Reference+"/e-ticket", passenger.Token, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("e-ticket status %d type %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatalf("e-ticket body is not a PDF")
	}
	stranger := a.signup("Kiran", "kiran@example.com", "PASSENGER")
	w = a.do(http.MethodGet, "/api/bookings/"+booked.Booking.Reference+"/e-ticket", stranger.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("stranger e-ticket status %d", w.Code)
	}
}

func TestUpdateAndDeleteRoute(t *testing.T) {
	a := newTestAPI(t)
	driver := a.signup("Ravi", "ravi@example.com", "DRIVER")
	other := a.signup("Meena", "meena@example.com", "DRIVER")
	rt := a.addRoute(driver.Token, berlinRoute())
	path := id(driver.User.ID) + "/" + id(rt.ID)

	w := a.do(http.MethodPut, "/api/update-driver-route/"+path, driver.Token, map[string]any{"cost_per_seat": "65.5"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", w.Code, w.Body.String())
	}
	if got := decode[routeBody](t, w); got.CostPerSeat != "65.50" || len(got.ActiveDays) != 2 {
		t.Fatalf("unexpected update result %s", w.Body.String())
	}

	w = a.do(http.MethodPut, "/api/update-driver-route/"+path, driver.Token, map[string]any{"total_seats": 2})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid update status %d", w.Code)
	}

	w = a.do(http.MethodPut, "/api/update-driver-route/"+path, other.Token, map[string]any{"to_location": "X"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("other driver update status %d", w.Code)
	}

	w = a.do(http.MethodDelete, "/api/delete-driver-route/"+path, driver.Token, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "message") {
		t.Fatalf("delete status %d: %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodDelete, "/api/delete-driver-route/"+path, driver.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", w.Code)
	}
	w = a.do(http.MethodPost, "/api/routes/search", "", map[string]string{"from": "", "to": ""})
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("search after delete %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthErrors(t *testing.T) {
	a := newTestAPI(t)
	driver := a.signup("Ravi", "ravi@example.com", "DRIVER")
	passenger := a.signup("Asha", "asha@example.com", "PASSENGER")

	w := a.do(http.MethodPost, "/api/signup", "", map[string]string{"name": "R", "email": "ravi@example.com", "password": "x", "role": "DRIVER"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status %d", w.Code)
	}

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"ok", map[string]string{"email": "ravi@example.com", "password": "secret", "role": "DRIVER"}, http.StatusOK},
		{"missing", map[string]string{"email": "ravi@example.com"}, http.StatusBadRequest},
		{"no account", map[string]string{"email": "ravi@example.com", "password": "secret", "role": "PASSENGER"}, http.StatusNotFound},
		{"bad password", map[string]string{"email": "ravi@example.com", "password": "nope", "role": "DRIVER"}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if w := a.do(http.MethodPost, "/api/login", "", tc.body); w.Code != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.name, w.Code, tc.want)
		}
	}

	if w := a.do(http.MethodPost, "/api/add-driver-route", "", berlinRoute()); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status %d", w.Code)
	}
	if w := a.do(http.MethodPost, "/api/add-driver-route", "garbage", berlinRoute()); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status %d", w.Code)
	}
	if w := a.do(http.MethodPost, "/api/add-driver-route", passenger.Token, berlinRoute()); w.Code != http.StatusForbidden {
		t.Fatalf("passenger token status %d", w.Code)
	}
	body := berlinRoute()
	body["driver_id"] = driver.User.ID + 1
	if w := a.do(http.MethodPost, "/api/add-driver-route", driver.Token, body); w.Code != http.StatusForbidden {
		t.Fatalf("foreign driver_id status %d", w.Code)
	}
	if w := a.do(http.MethodPost, "/api/book-route/1/1", driver.Token, map[string]any{"dates": []string{"2025-08-15"}, "seats": 1}); w.Code != http.StatusForbidden {
		t.Fatalf("driver booking status %d", w.Code)
	}
	if w := a.do(http.MethodGet, "/api/passengers/"+id(passenger.User.ID+1)+"/bookings", passenger.Token, nil); w.Code != http.StatusForbidden {
		t.Fatalf("other passenger history status %d", w.Code)
	}
}

func TestRequestValidation(t *testing.T) {
	a := newTestAPI(t)
	driver := a.signup("Ravi", "ravi@example.com", "DRIVER")
	passenger := a.signup("Asha", "asha@example.com", "PASSENGER")
	rt := a.addRoute(driver.Token, berlinRoute())

	w := a.do(http.MethodPost, "/api/routes/search", "", map[string]string{"from": "ber"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing to status %d", w.Code)
	}
	if eb := decode[errorBody](t, w); eb.Code != "validation_error" || eb.RequestID == "" {
		t.Fatalf("unexpected error body %s", w.Body.String())
	}

	if w := a.do(http.MethodPost, "/api/routes/search", "", "{bad json"); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status %d", w.Code)
	}
	if w := a.do(http.MethodGet, "/api/get-driver-routes/abc", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id status %d", w.Code)
	}
	if w := a.do(http.MethodGet, "/api/get-driver-routes/"+id(passenger.User.ID), "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("passenger as driver status %d", w.Code)
	}

	bookPath := "/api/book-route/" + id(driver.User.ID) + "/" + id(rt.ID)
	if w := a.do(http.MethodPost, bookPath, passenger.Token, map[string]any{"dates": []string{}, "seats": 1}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty dates status %d", w.Code)
	}
	if w := a.do(http.MethodPost, bookPath, passenger.Token, map[string]any{"dates": []string{"2025-08-15"}, "seats": 0}); w.Code != http.StatusBadRequest {
		t.Fatalf("zero seats status %d", w.Code)
	}
	if w := a.do(http.MethodPost, "/api/book-route/"+id(driver.User.ID)+"/999", passenger.Token, map[string]any{"dates": []string{"2025-08-15"}, "seats": 1}); w.Code != http.StatusNotFound {
		t.Fatalf("missing route status %d", w.Code)
	}

	if w := a.do(http.MethodGet, "/api/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown path status %d", w.Code)
	}
}

func TestSystemEndpoints(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK || w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("health status %d", w.Code)
	}
	w = a.do(http.MethodGet, "/api/db-check", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"users_in_db":0`) {
		t.Fatalf("db-check %d: %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodGet, "/api/endpoints", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/book-route/:driverId/:routeId") {
		t.Fatalf("endpoints %d: %s", w.Code, w.Body.String())
	}
}

func TestRespondDomainErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	handlers.RespondDomainError(c, errors.New("dial tcp 10.0.0.1:3306: secret detail"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret detail") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}
}
