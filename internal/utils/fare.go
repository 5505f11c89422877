package utils

import "math"

// TotalFare returns the price of a booking in cents: every seat is charged on every booked day.
// It fails with ErrAmountTooLarge when the product does not fit in int64.
func TotalFare(costPerSeat int64, seats, days int) (int64, error) {
	if seats <= 0 || days <= 0 || costPerSeat == 0 {
		return 0, nil
	}
	units := int64(seats) * int64(days)
	if units > math.MaxInt64/abs(costPerSeat) {
		return 0, ErrAmountTooLarge
	}
	return costPerSeat * units, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
