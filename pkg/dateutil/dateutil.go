package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// MonthFormat is the layout used to read and write month keys ("1990-01").
const MonthFormat = "2006-01"

// Month is a calendar month key. The zero value is not a valid month.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth returns a normalized Month, so month 13 rolls into the next year.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// December returns the December month key of the given year.
func December(year int) Month { return Month{Year: year, Month: time.December} }

// ParseMonth parses "2006-01". A trailing day ("2006-01-02") is accepted and ignored.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(MonthFormat) && s[len(MonthFormat)] == '-' {
		s = s[:len(MonthFormat)]
	}
	t, err := time.Parse(MonthFormat, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return MonthOf(t), nil
}

// MustParseMonth is like ParseMonth but panics on error. Intended for tests and constants.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// IsZero reports whether m is the zero value.
func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// Time returns the first instant of the month in UTC.
func (m Month) Time() time.Time { return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC) }

// String formats the month as "2006-01".
func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// index is the number of months since year 0, giving months a total order.
func (m Month) index() int { return m.Year*12 + int(m.Month) - 1 }

// AddMonths returns the month n months after m (n may be negative).
func (m Month) AddMonths(n int) Month {
	i := m.index() + n
	return Month{Year: floorDiv(i, 12), Month: time.Month(i-floorDiv(i, 12)*12) + 1}
}

// Next returns the following month.
func (m Month) Next() Month { return m.AddMonths(1) }

// Prev returns the preceding month.
func (m Month) Prev() Month { return m.AddMonths(-1) }

// MonthsUntil returns the number of months from m to x (negative when x is before m).
func (m Month) MonthsUntil(x Month) int { return x.index() - m.index() }

// Before reports whether m is strictly before x.
func (m Month) Before(x Month) bool { return m.index() < x.index() }

// After reports whether m is strictly after x.
func (m Month) After(x Month) bool { return m.index() > x.index() }

// Compare returns -1, 0 or +1, suitable for slices.SortFunc.
func (m Month) Compare(x Month) int {
	switch {
	case m.Before(x):
		return -1
	case m.After(x):
		return 1
	default:
		return 0
	}
}

// Range returns every month from 'from' to 'to' inclusive. It is empty when to is before from.
func Range(from, to Month) []Month {
	n := from.MonthsUntil(to)
	if n < 0 {
		return nil
	}
	months := make([]Month, 0, n+1)
	for i := 0; i <= n; i++ {
		months = append(months, from.AddMonths(i))
	}
	return months
}

// MarshalText implements encoding.TextMarshaler. The zero month marshals as "".
func (m Month) MarshalText() ([]byte, error) {
	if m.IsZero() {
		return []byte{}, nil
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; "" reads back as the zero month.
func (m *Month) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
