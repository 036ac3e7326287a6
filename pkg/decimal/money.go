package decimal

import (
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is a currency amount in US dollars, kept at full precision and rounded only for display.
type Money struct {
	decimal.Decimal
}

// maxFormattable is the largest dollar amount whose cents fit in an int64.
var maxFormattable = decimal.New(9, 16)

// scales are the abbreviations used for very large balances, largest first.
var scales = []struct {
	suffix string
	factor decimal.Decimal
}{
	{"T", decimal.New(1, 12)},
	{"B", decimal.New(1, 9)},
	{"M", decimal.New(1, 6)},
}

// NewMoneyFromDecimal creates a new Money instance from a decimal.Decimal
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// Format renders the amount as US dollars with grouping, e.g. "$1,234.50".
func (m Money) Format() string {
	if m.Decimal.Abs().GreaterThan(maxFormattable) {
		return m.Scaled()
	}
	cents := m.Decimal.Shift(2).Round(0).IntPart()
	return gomoney.New(cents, gomoney.USD).Display()
}

// Scaled abbreviates large amounts to one decimal with a T, B or M suffix, e.g. "$1.6T".
// Amounts under a million use Format.
func (m Money) Scaled() string {
	abs := m.Decimal.Abs()
	for _, s := range scales {
		if abs.GreaterThanOrEqual(s.factor) {
			sign := ""
			if m.Decimal.IsNegative() {
				sign = "-"
			}
			return fmt.Sprintf("%s$%s%s", sign, abs.Div(s.factor).StringFixed(1), s.suffix)
		}
	}
	return m.Format()
}
