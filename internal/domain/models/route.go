package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/utils"
)

// DaySchedule is one operating date of a route and the seats still free on it.
type DaySchedule struct {
	Date           string `json:"date"`
	Day            string `json:"day"`
	AvailableSeats int    `json:"available_seats"`
}

// Schedule is a route's ordered list of operating dates. Dates are unique.
type Schedule []DaySchedule

// DayInput is a schedule entry as supplied by a driver; a nil AvailableSeats
// starts the day at the route's full capacity.
type DayInput struct {
	Date           string `json:"date"`
	AvailableSeats *int   `json:"available_seats"`
}

// UnmarshalJSON also accepts the camelCase "availableSeats" key sent by the web
// client. available_seats wins when both are present.
func (d *DayInput) UnmarshalJSON(b []byte) error {
	var raw struct {
		Date           string `json:"date"`
		AvailableSeats *int   `json:"available_seats"`
		CamelSeats     *int   `json:"availableSeats"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Date = raw.Date
	d.AvailableSeats = raw.AvailableSeats
	if d.AvailableSeats == nil {
		d.AvailableSeats = raw.CamelSeats
	}
	return nil
}

// BuildSchedule converts driver input into a Schedule, canonicalising dates and
// filling omitted seat counts with totalSeats. Call Validate on the result.
func BuildSchedule(in []DayInput, totalSeats int) Schedule {
	out := make(Schedule, 0, len(in))
	for _, d := range in {
		date := strings.TrimSpace(d.Date)
		if canonical, err := utils.NormalizeDate(date); err == nil {
			date = canonical
		}
		seats := totalSeats
		if d.AvailableSeats != nil {
			seats = *d.AvailableSeats
		}
		out = append(out, DaySchedule{
			Date:           date,
			Day:            utils.WeekdayLabel(date),
			AvailableSeats: seats,
		})
	}
	return out
}

func (s Schedule) index(date string) int {
	for i, d := range s {
		if d.Date == date {
			return i
		}
	}
	return -1
}

// Find returns the entry for date.
func (s Schedule) Find(date string) (DaySchedule, bool) {
	if i := s.index(date); i >= 0 {
		return s[i], true
	}
	return DaySchedule{}, false
}

// Validate checks date format, date uniqueness and 0 <= seats <= totalSeats.
func (s Schedule) Validate(totalSeats int) error {
	seen := make(map[string]struct{}, len(s))
	for i, d := range s {
		field := fmt.Sprintf("active_days[%d]", i)
		if _, err := utils.ParseDate(d.Date); err != nil {
			return domain.ValidationError{Field: field + ".date", Msg: "must be a YYYY-MM-DD date", Err: err}
		}
		if _, dup := seen[d.Date]; dup {
			return domain.ValidationError{Field: field + ".date", Msg: "duplicate date " + d.Date}
		}
		seen[d.Date] = struct{}{}
		if d.AvailableSeats < 0 || d.AvailableSeats > totalSeats {
			return domain.ValidationError{
				Field: field + ".available_seats",
				Msg:   fmt.Sprintf("must be between 0 and %d", totalSeats),
			}
		}
	}
	return nil
}

// Route is a driver's offering with its day schedule.
type Route struct {
	ID            int64    `json:"id"`
	DriverID      int64    `json:"driver_id"`
	DriverName    string   `json:"driver_name,omitempty"`
	FromLocation  string   `json:"from_location"`
	ToLocation    string   `json:"to_location"`
	DepartureTime string   `json:"departure_time"`
	CostPerSeat   Money    `json:"cost_per_seat"`
	TotalSeats    int      `json:"total_seats"`
	Days          Schedule `json:"active_days"`
}

// Validate checks the route's own fields and its schedule against TotalSeats.
func (r Route) Validate() error {
	if strings.TrimSpace(r.FromLocation) == "" {
		return domain.ValidationError{Field: "from_location", Msg: "required"}
	}
	if strings.TrimSpace(r.ToLocation) == "" {
		return domain.ValidationError{Field: "to_location", Msg: "required"}
	}
	if r.TotalSeats <= 0 {
		return domain.ValidationError{Field: "total_seats", Msg: "must be positive"}
	}
	if r.CostPerSeat < 0 {
		return domain.ValidationError{Field: "cost_per_seat", Msg: "must not be negative"}
	}
	return r.Days.Validate(r.TotalSeats)
}

// CheckCapacity verifies that every date runs and has at least seats free.
// dates must already be normalised (see NormalizeDates).
func (r Route) CheckCapacity(dates []string, seats int) error {
	for _, date := range dates {
		day, ok := r.Days.Find(date)
		if !ok {
			return domain.InsufficientCapacityError{Date: date, Requested: seats, Available: -1}
		}
		if day.AvailableSeats < seats {
			return domain.InsufficientCapacityError{Date: date, Requested: seats, Available: day.AvailableSeats}
		}
	}
	return nil
}

// ReserveSeats takes seats off every date, or off none of them when any date
// is short.
func (r *Route) ReserveSeats(dates []string, seats int) error {
	if seats <= 0 {
		return domain.ValidationError{Field: "seats", Msg: "must be positive"}
	}
	if err := r.CheckCapacity(dates, seats); err != nil {
		return err
	}
	for _, date := range dates {
		i := r.Days.index(date)
		r.Days[i].AvailableSeats -= seats
	}
	return nil
}

// RouteUpdate is a partial route update; only fields marked Set are applied.
type RouteUpdate struct {
	FromLocation  Optional[string]     `json:"from_location"`
	ToLocation    Optional[string]     `json:"to_location"`
	DepartureTime Optional[string]     `json:"departure_time"`
	CostPerSeat   Optional[Money]      `json:"cost_per_seat"`
	TotalSeats    Optional[int]        `json:"total_seats"`
	ActiveDays    Optional[[]DayInput] `json:"active_days"`
}

// Empty reports whether no field is present.
func (u RouteUpdate) Empty() bool {
	return !u.FromLocation.Set && !u.ToLocation.Set && !u.DepartureTime.Set &&
		!u.CostPerSeat.Set && !u.TotalSeats.Set && !u.ActiveDays.Set
}

// Apply returns a copy of r with the present fields replaced. A new
// active_days list replaces the whole schedule; omitted seat counts default to
// the (possibly updated) total seats.
func (u RouteUpdate) Apply(r Route) Route {
	out := r
	out.Days = append(Schedule(nil), r.Days...)
	if v, ok := u.FromLocation.Get(); ok {
		out.FromLocation = utils.NormalizeSpace(v)
	}
	if v, ok := u.ToLocation.Get(); ok {
		out.ToLocation = utils.NormalizeSpace(v)
	}
	if v, ok := u.DepartureTime.Get(); ok {
		out.DepartureTime = strings.TrimSpace(v)
	}
	if v, ok := u.CostPerSeat.Get(); ok {
		out.CostPerSeat = v
	}
	if v, ok := u.TotalSeats.Get(); ok {
		out.TotalSeats = v
	}
	if v, ok := u.ActiveDays.Get(); ok {
		out.Days = BuildSchedule(v, out.TotalSeats)
	}
	return out
}

// NormalizeDates canonicalises, de-duplicates and sorts requested booking dates.
func NormalizeDates(dates []string) ([]string, error) {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for i, d := range dates {
		canonical, err := utils.NormalizeDate(d)
		if err != nil {
			return nil, domain.ValidationError{Field: fmt.Sprintf("dates[%d]", i), Msg: "must be a YYYY-MM-DD date", Err: err}
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	if len(out) == 0 {
		return nil, domain.ValidationError{Field: "dates", Msg: "at least one date is required"}
	}
	sort.Strings(out)
	return out, nil
}
