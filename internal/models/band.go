package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
)

// Band is an IELTS band score between 0.0 and 9.0 in steps of 0.5.
type Band float64

const (
	MinBand Band = 0
	MaxBand Band = 9
)

// Valid reports whether b lies on the half-band scale.
func (b Band) Valid() bool {
	f := float64(b)
	if math.IsNaN(f) || b < MinBand || b > MaxBand {
		return false
	}
	return math.Mod(f*2, 1) == 0
}

func (b Band) Ptr() *Band {
	return &b
}

func (b Band) String() string {
	return strconv.FormatFloat(float64(b), 'f', 1, 64)
}

// MarshalJSON always writes one decimal place, e.g. 7.0.
func (b Band) MarshalJSON() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b Band) Value() (driver.Value, error) {
	return float64(b), nil
}

func (b *Band) Scan(value interface{}) error {
	switch v := value.(type) {
	case float64:
		*b = Band(v)
	case float32:
		*b = Band(v)
	case int64:
		*b = Band(v)
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("failed to scan band %q: %w", v, err)
		}
		*b = Band(f)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("failed to scan band %q: %w", v, err)
		}
		*b = Band(f)
	default:
		return fmt.Errorf("cannot scan %T into band", value)
	}
	return nil
}
