package calculation

import (
	"math"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/shopspring/decimal"
)

// ratio divides in float64 so that a zero denominator gives ±Inf or NaN instead of a panic.
func ratio(num, den decimal.Decimal) domain.Ratio {
	return domain.Ratio(num.InexactFloat64() / den.InexactFloat64())
}

func optionalRatio(num *decimal.Decimal, den decimal.Decimal) domain.Ratio {
	if num == nil {
		return domain.Ratio(math.NaN())
	}
	return ratio(*num, den)
}

// ApplyRatios fills the presentation ratios of a simulated model. Balances and
// contributions are not modified.
func ApplyRatios(model *domain.FundModel) {
	if model == nil {
		return
	}
	for i := range model.Rows {
		r := &model.Rows[i]
		r.FundRatio = optionalRatio(r.Real, r.Target)
		r.PrincipalRatio = optionalRatio(r.Principal, r.BAU)
		r.RealFundRatio = optionalRatio(r.Real, r.CPI.Mul(decimal.NewFromInt(r.Retirees)))
	}
}

// Summarize extracts the headline figures of a simulated model with ratios applied.
func Summarize(model *domain.FundModel) domain.SimulationSummary {
	var s domain.SimulationSummary
	if model == nil || len(model.Rows) == 0 {
		return s
	}
	first, last := model.Rows[0], model.Rows[len(model.Rows)-1]
	s.Start = first.Month
	s.End = last.Month
	s.Months = len(model.Rows)
	s.TargetWithdrawRate = model.TargetWithdrawRate
	s.EndingTarget = last.Target
	if first.Real != nil {
		s.StartingBalance = *first.Real
	}
	if last.Real != nil {
		s.EndingBalance = *last.Real
	}
	s.FirstFundRatio = first.FundRatio
	s.FinalFundRatio = last.FundRatio
	s.MinFundRatio = domain.Ratio(math.NaN())
	s.PeakPrincipalRatio = domain.Ratio(math.NaN())

	for _, r := range model.Rows {
		if r.Real != nil && r.Real.LessThan(r.Target) {
			s.MonthsBelowTarget++
		}
		if r.FundRatio.IsFinite() && (!s.MinFundRatio.IsFinite() || r.FundRatio < s.MinFundRatio) {
			s.MinFundRatio = r.FundRatio
			s.MinFundRatioMonth = r.Month
		}
		if r.PrincipalRatio.IsFinite() && (!s.PeakPrincipalRatio.IsFinite() || r.PrincipalRatio > s.PeakPrincipalRatio) {
			s.PeakPrincipalRatio = r.PrincipalRatio
			s.PeakPrincipalMonth = r.Month
		}
	}
	return s
}
