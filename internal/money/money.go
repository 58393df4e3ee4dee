// Package money stores amounts as integer cents and speaks decimal numbers on
// the wire.
package money

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount in hundredths of the currency unit.
type Cents int64

// FromDecimal rounds d half away from zero to whole cents.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

// FromFloat converts a float amount such as 12.345 to cents (1235).
func FromFloat(f float64) Cents {
	return FromDecimal(decimal.NewFromFloat(f))
}

// Parse reads a decimal string such as "1234.5".
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Decimal returns the amount in currency units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float returns the amount in currency units.
func (c Cents) Float() float64 {
	return c.Decimal().InexactFloat64()
}

// String formats with exactly two decimals.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON writes a bare JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	data = bytes.Trim(data, `"`)
	if len(data) == 0 {
		*c = 0
		return nil
	}
	v, err := Parse(string(data))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Percent returns part/whole*100 rounded to two decimals, or 0 when whole is not positive.
func Percent(part, whole Cents) float64 {
	if whole <= 0 {
		return 0
	}
	p := part.Decimal().Div(whole.Decimal()).Mul(decimal.NewFromInt(100))
	return p.Round(2).InexactFloat64()
}
