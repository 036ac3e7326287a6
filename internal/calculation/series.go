package calculation

import (
	"fmt"
	"math"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// levelScale bounds the digits carried by compounded levels. Repeated exact
// multiplication would otherwise grow the coefficient every month.
const levelScale = 10

// reserveUnit converts fund.csv reserves (millions) into currency units.
var reserveUnit = decimal.NewFromInt(1_000_000)

// validateSeries checks that a level series is non-empty with strictly increasing months.
func validateSeries(field string, s domain.Series) error {
	if len(s) == 0 {
		return &MisalignedSeriesError{Field: field, Reason: "empty"}
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Month.After(s[i-1].Month) {
			return &MisalignedSeriesError{Month: s[i].Month, Field: field, Reason: "out of order"}
		}
	}
	return nil
}

// ProjectSeries extends history through horizon by compounding the last observed value at
// monthlyRate: the k-th month after the last observation is last × (1+rate)^k. History is
// returned unchanged when it already reaches the horizon.
func ProjectSeries(field string, history domain.Series, monthlyRate decimal.Decimal, horizon dateutil.Month) (domain.Series, error) {
	if err := validateSeries(field, history); err != nil {
		return nil, err
	}
	last, _ := history.Last()
	steps := last.Month.MonthsUntil(horizon)
	if steps < 0 {
		steps = 0
	}

	out := make(domain.Series, len(history), len(history)+steps)
	copy(out, history)

	growth := decimal.NewFromInt(1).Add(monthlyRate)
	value := last.Value
	month := last.Month
	for k := 1; k <= steps; k++ {
		value = value.Mul(growth).Round(levelScale)
		month = month.Next()
		out = append(out, domain.SeriesPoint{Month: month, Value: value})
	}
	return out, nil
}

// MonthlyRate converts an annual growth rate to the equivalent monthly rate, (1+a)^(1/12) − 1.
func MonthlyRate(annual decimal.Decimal) (decimal.Decimal, error) {
	base := 1 + annual.InexactFloat64()
	if base <= 0 {
		return decimal.Zero, fmt.Errorf("annual rate %s is at or below -100%%", annual)
	}
	return decimal.NewFromFloat(math.Pow(base, 1.0/12) - 1), nil
}

// MarketReturns derives one-period-ahead returns from a price series: the return recorded at
// month t is price[t+1]/price[t] − 1. The final month has no following price and is omitted.
func MarketReturns(prices domain.Series) (domain.Series, error) {
	if err := validateSeries("market price", prices); err != nil {
		return nil, err
	}
	out := make(domain.Series, 0, len(prices)-1)
	one := decimal.NewFromInt(1)
	for t := 0; t+1 < len(prices); t++ {
		p := prices[t]
		if p.Value.IsZero() {
			return nil, &DegenerateInputError{Month: p.Month, Field: "market price"}
		}
		if prices[t+1].Month != p.Month.Next() {
			return nil, &MisalignedSeriesError{Month: p.Month.Next(), Field: "market price"}
		}
		out = append(out, domain.SeriesPoint{
			Month: p.Month,
			Value: prices[t+1].Value.Div(p.Value).Sub(one),
		})
	}
	return out, nil
}

// FundBalanceSeries turns yearly reserves (in millions) into a monthly balance series.
// Reserves reported for year Y are the balance at the end of that year, so they are placed at
// December of Y+1 and the months between Decembers are interpolated linearly.
func FundBalanceSeries(reserves []domain.YearlyAmount) (domain.Series, error) {
	if len(reserves) == 0 {
		return nil, &DataGapError{Series: "fund balance", Anchors: 0}
	}
	for i := 1; i < len(reserves); i++ {
		if reserves[i].Year <= reserves[i-1].Year {
			return nil, &MisalignedSeriesError{
				Month:  dateutil.December(reserves[i].Year + 1),
				Field:  "fund reserves",
				Reason: "out of order",
			}
		}
	}

	anchor := func(r domain.YearlyAmount) domain.SeriesPoint {
		return domain.SeriesPoint{Month: dateutil.December(r.Year + 1), Value: r.Amount.Mul(reserveUnit)}
	}

	out := domain.Series{anchor(reserves[0])}
	for i := 1; i < len(reserves); i++ {
		lo, hi := anchor(reserves[i-1]), anchor(reserves[i])
		span := lo.Month.MonthsUntil(hi.Month)
		step := hi.Value.Sub(lo.Value).Div(decimal.NewFromInt(int64(span)))
		for k := 1; k < span; k++ {
			out = append(out, domain.SeriesPoint{
				Month: lo.Month.AddMonths(k),
				Value: lo.Value.Add(step.Mul(decimal.NewFromInt(int64(k)))).Round(levelScale),
			})
		}
		out = append(out, hi)
	}
	return out, nil
}

// StartingBalanceAt returns the balance recorded for month.
func StartingBalanceAt(balances domain.Series, month dateutil.Month) (decimal.Decimal, error) {
	v, ok := balances.Lookup(month)
	if !ok {
		return decimal.Zero, &MisalignedSeriesError{Month: month, Field: "fund balance"}
	}
	return v, nil
}
