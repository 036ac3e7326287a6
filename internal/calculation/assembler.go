package calculation

import (
	"fmt"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// Policy holds the scalars that turn CPI and headcounts into distributions and contributions.
type Policy struct {
	DistributionMultiplier decimal.Decimal
	TargetWithdrawRate     decimal.Decimal
	RepaymentMonths        int
}

// PolicyFromConfig derives the policy from a configuration.
func PolicyFromConfig(cfg *domain.Configuration) Policy {
	return Policy{
		DistributionMultiplier: cfg.Policy.DistributionMultiplier,
		TargetWithdrawRate:     cfg.Assumptions.TargetWithdrawRate(),
		RepaymentMonths:        cfg.Policy.RepaymentTimelineMonths,
	}
}

// AssemblyInputs are the aligned series the fund model is joined from.
type AssemblyInputs struct {
	Returns         domain.Series
	Workforce       []domain.WorkforcePoint
	CPI             domain.Series
	StartingBalance decimal.Decimal
	Start           dateutil.Month
	End             dateutil.Month
}

// AssembleFundModel joins returns, headcounts and CPI on month over [Start, End] and computes
// the columns that do not depend on the simulated balance. Every window month needs CPI,
// workers and retirees; every month but the last also needs a return. Only the first row's
// Real is set.
func AssembleFundModel(policy Policy, in AssemblyInputs) (*domain.FundModel, error) {
	if in.End.Before(in.Start) {
		return nil, fmt.Errorf("simulation window ends (%s) before it starts (%s)", in.End, in.Start)
	}
	if policy.TargetWithdrawRate.IsZero() {
		return nil, &DegenerateInputError{Field: "target withdraw rate"}
	}

	workforce := make(map[dateutil.Month]domain.WorkforcePoint, len(in.Workforce))
	for _, w := range in.Workforce {
		workforce[w.Month] = w
	}

	months := dateutil.Range(in.Start, in.End)
	model := &domain.FundModel{
		Rows:               make([]domain.FundModelRow, len(months)),
		TargetWithdrawRate: policy.TargetWithdrawRate,
		RepaymentMonths:    policy.RepaymentMonths,
	}

	for i, m := range months {
		row := domain.FundModelRow{Month: m}

		cpi, ok := in.CPI.Lookup(m)
		if !ok {
			return nil, &MisalignedSeriesError{Month: m, Field: "cpi"}
		}
		w, ok := workforce[m]
		if !ok {
			return nil, &MisalignedSeriesError{Month: m, Field: "workers"}
		}
		ret, ok := in.Returns.Lookup(m)
		if !ok && i < len(months)-1 {
			return nil, &MisalignedSeriesError{Month: m, Field: "return"}
		}
		if w.Workers == 0 {
			return nil, &DegenerateInputError{Month: m, Field: "workers"}
		}

		row.Return = ret
		row.CPI = cpi
		row.Workers = w.Workers
		row.Retirees = w.Retirees
		row.Distribution = policy.DistributionMultiplier.Mul(cpi)

		total := row.TotalDistribution()
		row.Target = monthsPerYear.Mul(total).Div(policy.TargetWithdrawRate)
		row.BAU = total.Div(decimal.NewFromInt(w.Workers))
		row.TargetFundRatio = ratio(row.Target, cpi.Mul(decimal.NewFromInt(w.Retirees)))

		model.Rows[i] = row
	}

	seed := in.StartingBalance
	model.Rows[0].Real = &seed
	return model, nil
}
