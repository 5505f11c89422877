package models

// Booking is one booked date of a booking request. All rows created by the
// same request share Reference.
type Booking struct {
	ID          int64
	Reference   string
	PassengerID int64
	RouteID     int64
	Date        string
	Seats       int
	CostPerSeat Money
}

// RouteInfo is the route summary shown on a passenger's booking.
type RouteInfo struct {
	From          string `json:"from"`
	To            string `json:"to"`
	DepartureTime string `json:"departure_time"`
}

// BookingSummary groups the rows of one booking request.
type BookingSummary struct {
	Reference     string    `json:"booking_id"`
	RouteID       int64     `json:"route_id"`
	DriverID      int64     `json:"driver_id"`
	DriverName    string    `json:"driver_name"`
	PassengerID   int64     `json:"passenger_id"`
	PassengerName string    `json:"passenger_name,omitempty"`
	RouteInfo     RouteInfo `json:"route_info"`
	CostPerSeat   Money     `json:"cost_per_seat"`
	Seats         int       `json:"seats"`
	Dates         []string  `json:"dates"`
	TotalPrice    Money     `json:"total_price"`
}

// ManifestEntry is one passenger's seats on a route date.
type ManifestEntry struct {
	PassengerName string `json:"passenger_name"`
	Seats         int    `json:"seats"`
}

// RouteManifest maps a YYYY-MM-DD date to the passengers booked on it.
type RouteManifest map[string][]ManifestEntry
