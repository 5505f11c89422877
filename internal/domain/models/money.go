package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/galliconnect/rideshare/internal/utils"
)

// Money is a fixed-point amount in cents. It encodes as a "50.00" string and
// decodes from either a JSON number or a numeric string.
type Money int64

func (m Money) String() string { return utils.FormatCents(int64(m)) }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	raw := string(b)
	if len(b) >= 2 && b[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("money: %w", err)
		}
		raw = s
	}
	cents, err := utils.ParseCents(raw)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = Money(cents)
	return nil
}
