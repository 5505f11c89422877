package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrAmountTooLarge is returned when an amount does not fit in int64 cents.
var ErrAmountTooLarge = errors.New("amount too large")

// FormatCents renders an amount held in cents with two decimals, e.g. 5000 -> "50.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseCents parses a decimal amount ("50", "49.5", "49.99") into cents.
// More than two fractional digits is rejected rather than rounded.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid amount: empty")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	var units int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("invalid amount %q: %w", s, ErrAmountTooLarge)
		}
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		if v > (math.MaxInt64-99)/100 {
			return 0, fmt.Errorf("invalid amount %q: %w", s, ErrAmountTooLarge)
		}
		units = v
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)

	total := units*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
