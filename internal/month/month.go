// Package month handles calendar-month keys in "YYYY-MM" form.
package month

import (
	"fmt"
	"time"
)

const layout = "2006-01"

// Month is a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// Of returns the month containing t, in t's location.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Current is the month key of instant t. Keys are UTC months, so every
// process agrees on the month regardless of its time zone.
func Current(t time.Time) Month {
	return Of(t.UTC())
}

// Parse reads a "YYYY-MM" key.
func Parse(s string) (Month, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Of(t), nil
}

// String returns the "YYYY-MM" key.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// AddMonths moves n calendar months, never overflowing into a third month.
func (m Month) AddMonths(n int) Month {
	return Of(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// Prev is the calendar month before m.
func (m Month) Prev() Month {
	return m.AddMonths(-1)
}

// Next is the calendar month after m.
func (m Month) Next() Month {
	return m.AddMonths(1)
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Bounds returns the half-open date window [first day, first day of next month)
// as "YYYY-MM-DD" strings, matching how transaction dates are stored.
func (m Month) Bounds() (from, to string) {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	return start.Format(time.DateOnly), start.AddDate(0, 1, 0).Format(time.DateOnly)
}

// Range lists months from..to-1 in order, at most limit entries (the most recent ones).
func Range(from, to Month, limit int) []Month {
	var out []Month
	for m := from; m.Before(to); m = m.Next() {
		out = append(out, m)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// DaysIn returns the number of days in m.
func (m Month) DaysIn() int {
	// first of next month, minus one day
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
