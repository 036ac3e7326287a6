package calculation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// SimulationState is everything carried from one month to the next.
type SimulationState struct {
	Index int
	Month dateutil.Month
	Real  decimal.Decimal
}

// MonthInputs are the assembled columns of the current month.
type MonthInputs struct {
	Return       decimal.Decimal
	Distribution decimal.Decimal
	Target       decimal.Decimal
	Workers      int64
	Retirees     int64
}

// StepOutput is what a step decided for the current month.
type StepOutput struct {
	TotalDistribution decimal.Decimal
	Shortfall         decimal.Decimal
	Proposed          decimal.Decimal
	Principal         decimal.Decimal
}

// MonthInputsOf extracts the step inputs from an assembled row.
func MonthInputsOf(r *domain.FundModelRow) MonthInputs {
	return MonthInputs{
		Return:       r.Return,
		Distribution: r.Distribution,
		Target:       r.Target,
		Workers:      r.Workers,
		Retirees:     r.Retirees,
	}
}

// Step advances the fund by one month. The per-worker contribution closes the shortfall
// against target over the repayment horizon, plus interest on it, but never raises more than
// the month's total distribution.
func Step(policy Policy, state SimulationState, in MonthInputs) (SimulationState, StepOutput, error) {
	if in.Workers == 0 {
		return state, StepOutput{}, &DegenerateInputError{Month: state.Month, Field: "workers"}
	}
	if policy.TargetWithdrawRate.IsZero() {
		return state, StepOutput{}, &DegenerateInputError{Month: state.Month, Field: "target withdraw rate"}
	}
	if policy.RepaymentMonths <= 0 {
		return state, StepOutput{}, fmt.Errorf("repayment timeline must be positive, got %d months", policy.RepaymentMonths)
	}

	workers := decimal.NewFromInt(in.Workers)
	var out StepOutput
	out.TotalDistribution = in.Distribution.Mul(decimal.NewFromInt(in.Retirees))
	out.Shortfall = decimal.Max(in.Target.Sub(state.Real), decimal.Zero)
	out.Proposed = policy.TargetWithdrawRate.Mul(out.Shortfall).Div(monthsPerYear).
		Add(out.Shortfall.Div(decimal.NewFromInt(int64(policy.RepaymentMonths))))
	out.Principal = decimal.Min(out.Proposed, out.TotalDistribution).Div(workers)

	balance := state.Real.Mul(decimal.NewFromInt(1).Add(in.Return)).
		Sub(out.TotalDistribution).
		Add(out.Principal.Mul(workers)).
		Round(levelScale)

	next := SimulationState{Index: state.Index + 1, Month: state.Month.Next(), Real: balance}
	return next, out, nil
}

// Simulate folds Step over the model in month order, writing Principal for every row but the
// last and Real for every row after the first. Only the seeded first Real is read. On error
// the model is left untouched.
func Simulate(model *domain.FundModel) error {
	if model == nil || len(model.Rows) == 0 {
		return errors.New("simulate: empty fund model")
	}
	if model.Rows[0].Real == nil {
		return &MisalignedSeriesError{Month: model.Rows[0].Month, Field: "starting balance"}
	}

	policy := Policy{
		TargetWithdrawRate: model.TargetWithdrawRate,
		RepaymentMonths:    model.RepaymentMonths,
	}
	rows := slices.Clone(model.Rows)
	state := SimulationState{Month: rows[0].Month, Real: *rows[0].Real}

	for t := 0; t < len(rows)-1; t++ {
		next, out, err := Step(policy, state, MonthInputsOf(&rows[t]))
		if err != nil {
			return fmt.Errorf("simulate %s: %w", rows[t].Month, err)
		}
		principal := out.Principal
		balance := next.Real
		rows[t].Principal = &principal
		rows[t+1].Real = &balance

		next.Month = rows[t+1].Month
		state = next
	}
	rows[len(rows)-1].Principal = nil

	model.Rows = rows
	return nil
}
