package output

import (
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/shopspring/decimal"
)

// YearlySnapshot is the fund state reported for one calendar year.
type YearlySnapshot struct {
	Year           int
	Workers        int64
	Retirees       int64
	Target         decimal.Decimal
	Real           *decimal.Decimal
	Principal      *decimal.Decimal
	FundRatio      domain.Ratio
	PrincipalRatio domain.Ratio
}

// YearlySnapshots picks the December row of each year, plus the final row when the
// window does not end in December. Extracted from the report layout for testability.
func YearlySnapshots(model *domain.FundModel) []YearlySnapshot {
	if model == nil {
		return nil
	}
	var out []YearlySnapshot
	for i, r := range model.Rows {
		if r.Month.Month != time.December && i != len(model.Rows)-1 {
			continue
		}
		out = append(out, YearlySnapshot{
			Year:           r.Month.Year,
			Workers:        r.Workers,
			Retirees:       r.Retirees,
			Target:         r.Target,
			Real:           r.Real,
			Principal:      r.Principal,
			FundRatio:      r.FundRatio,
			PrincipalRatio: r.PrincipalRatio,
		})
	}
	return out
}

// Recommendation is a one-line reading of the summary.
type Recommendation struct {
	Funded  bool
	Message string
}

// AnalyzeSummary reads the headline figures of a run.
func AnalyzeSummary(s domain.SimulationSummary) Recommendation {
	switch {
	case s.Months == 0:
		return Recommendation{Message: "No months were simulated."}
	case s.MonthsBelowTarget == 0:
		return Recommendation{Funded: true, Message: "The fund stays at or above target for the whole window."}
	case s.FinalFundRatio.IsFinite() && s.FinalFundRatio >= 1:
		return Recommendation{Funded: true, Message: "The fund dips below target but is fully funded by the end of the window."}
	default:
		return Recommendation{Message: "The fund ends the window below target; contributions keep repaying the shortfall."}
	}
}
