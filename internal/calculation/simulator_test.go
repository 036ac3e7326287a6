package calculation

import (
	"errors"
	"math"
	"testing"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStepFormula(t *testing.T) {
	policy := Policy{TargetWithdrawRate: d("0.03"), RepaymentMonths: 360}
	state := SimulationState{Month: dateutil.MustParseMonth("2000-01"), Real: d("1000")}
	in := MonthInputs{Return: d("0.01"), Distribution: d("1"), Target: d("2000"), Workers: 100, Retirees: 10}

	next, out, err := Step(policy, state, in)
	require.NoError(t, err)

	proposed := 0.03*1000/12 + 1000.0/360
	assert.InDelta(t, 10.0, out.TotalDistribution.InexactFloat64(), 1e-12)
	assert.InDelta(t, 1000.0, out.Shortfall.InexactFloat64(), 1e-12)
	assert.InDelta(t, proposed, out.Proposed.InexactFloat64(), 1e-9)
	assert.InDelta(t, proposed/100, out.Principal.InexactFloat64(), 1e-9)
	assert.InDelta(t, 1000*1.01-10+proposed, next.Real.InexactFloat64(), 1e-8)
	assert.Equal(t, 1, next.Index)
	assert.Equal(t, dateutil.MustParseMonth("2000-02"), next.Month)
}

func TestStepContributionCap(t *testing.T) {
	policy := Policy{TargetWithdrawRate: d("0.03"), RepaymentMonths: 360}
	state := SimulationState{Real: d("0")}
	in := MonthInputs{Distribution: d("2"), Target: d("1000000"), Workers: 7, Retirees: 50}

	_, out, err := Step(policy, state, in)
	require.NoError(t, err)
	assert.True(t, out.Proposed.GreaterThan(out.TotalDistribution))
	assert.InDelta(t, 100.0, out.Principal.Mul(decimal.NewFromInt(7)).InexactFloat64(), 1e-9)
}

func TestStepShortfallNeverNegative(t *testing.T) {
	policy := Policy{TargetWithdrawRate: d("0.03"), RepaymentMonths: 360}
	state := SimulationState{Real: d("5000")}
	in := MonthInputs{Return: d("0.02"), Distribution: d("1"), Target: d("1000"), Workers: 10, Retirees: 10}

	next, out, err := Step(policy, state, in)
	require.NoError(t, err)
	assert.True(t, out.Shortfall.IsZero())
	assert.True(t, out.Proposed.IsZero())
	assert.True(t, out.Principal.IsZero())
	assert.True(t, next.Real.Equal(d("5090")), "got %s", next.Real)
}

func TestStepErrors(t *testing.T) {
	in := MonthInputs{Distribution: d("1"), Target: d("10"), Workers: 1, Retirees: 1}

	_, _, err := Step(Policy{TargetWithdrawRate: d("0.03"), RepaymentMonths: 360}, SimulationState{}, MonthInputs{Workers: 0})
	assert.True(t, errors.Is(err, ErrDegenerateInput))

	_, _, err = Step(Policy{RepaymentMonths: 360}, SimulationState{}, in)
	assert.True(t, errors.Is(err, ErrDegenerateInput))

	_, _, err = Step(Policy{TargetWithdrawRate: d("0.03")}, SimulationState{}, in)
	assert.Error(t, err)
}

// buildModel assembles a flat model of n months.
func buildModel(t *testing.T, n int, ret, cpi string, workers, retirees int64, balance string) *domain.FundModel {
	t.Helper()
	start := dateutil.MustParseMonth("2000-01")
	end := start.AddMonths(n - 1)
	model, err := AssembleFundModel(
		Policy{DistributionMultiplier: d("1"), TargetWithdrawRate: d("0.03"), RepaymentMonths: 360},
		AssemblyInputs{
			Returns:         flat(start.String(), end.String(), ret),
			Workforce:       flatWorkforce(start.String(), end.String(), workers, retirees),
			CPI:             flat(start.String(), end.String(), cpi),
			StartingBalance: d(balance),
			Start:           start,
			End:             end,
		})
	require.NoError(t, err)
	return model
}

func TestSimulateWritesEveryRow(t *testing.T) {
	model := buildModel(t, 12, "0.005", "1", 100, 20, "1000")
	require.NoError(t, Simulate(model))

	for i, r := range model.Rows {
		require.NotNil(t, r.Real, "row %d real", i)
		if i < len(model.Rows)-1 {
			require.NotNil(t, r.Principal, "row %d principal", i)
		} else {
			assert.Nil(t, r.Principal)
		}
	}
	assert.True(t, model.Rows[0].Real.Equal(d("1000")))
}

func TestSimulateIsCausal(t *testing.T) {
	base := buildModel(t, 24, "0.004", "1", 100, 20, "1000")
	require.NoError(t, Simulate(base))

	const k = 15
	perturbed := buildModel(t, 24, "0.004", "1", 100, 20, "1000")
	perturbed.Rows[k].Return = d("0.5")
	perturbed.Rows[k].Target = d("123456")
	perturbed.Rows[k+3].Distribution = d("9")
	require.NoError(t, Simulate(perturbed))

	for i := 0; i <= k; i++ {
		assert.Equal(t, base.Rows[i].Real.String(), perturbed.Rows[i].Real.String(), "real %d", i)
	}
	for i := 0; i < k; i++ {
		assert.Equal(t, base.Rows[i].Principal.String(), perturbed.Rows[i].Principal.String(), "principal %d", i)
	}
	assert.NotEqual(t, base.Rows[k+1].Real.String(), perturbed.Rows[k+1].Real.String())
}

func TestSimulateIgnoresPreloadedBalances(t *testing.T) {
	base := buildModel(t, 6, "0", "1", 100, 20, "1000")
	require.NoError(t, Simulate(base))

	preloaded := buildModel(t, 6, "0", "1", 100, 20, "1000")
	junk := d("-999999")
	for i := 1; i < len(preloaded.Rows); i++ {
		preloaded.Rows[i].Real = &junk
	}
	require.NoError(t, Simulate(preloaded))
	for i := range base.Rows {
		assert.Equal(t, base.Rows[i].Real.String(), preloaded.Rows[i].Real.String())
	}
}

func TestSimulateLeavesModelOnError(t *testing.T) {
	model := buildModel(t, 6, "0", "1", 100, 20, "1000")
	model.Rows[3].Workers = 0

	err := Simulate(model)
	require.True(t, errors.Is(err, ErrDegenerateInput))
	var de *DegenerateInputError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, model.Rows[3].Month, de.Month)

	for i := 1; i < len(model.Rows); i++ {
		assert.Nil(t, model.Rows[i].Real, "row %d", i)
		assert.Nil(t, model.Rows[i].Principal, "row %d", i)
	}
	assert.Nil(t, model.Rows[0].Principal)
}

func TestSimulateRejectsUnseededModel(t *testing.T) {
	assert.Error(t, Simulate(nil))
	assert.Error(t, Simulate(&domain.FundModel{}))

	model := buildModel(t, 3, "0", "1", 10, 1, "1")
	model.Rows[0].Real = nil
	assert.True(t, errors.Is(Simulate(model), ErrMisalignedSeries))

	model = buildModel(t, 3, "0", "1", 10, 1, "1")
	model.RepaymentMonths = 0
	assert.Error(t, Simulate(model))
}

func TestSimulateConvergesWhenReturnMatchesRate(t *testing.T) {
	// With the monthly return equal to rate/12 and the cap slack, the shortfall shrinks by
	// exactly 1/360 each month.
	model := buildModel(t, 361, "0.0025", "1", 1000, 100, "36000")
	target := model.Rows[0].Target.InexactFloat64()
	require.InDelta(t, 40000.0, target, 1e-9)

	require.NoError(t, Simulate(model))
	ApplyRatios(model)

	prev := -1.0
	for i, r := range model.Rows {
		bal := r.Real.InexactFloat64()
		want := target - 4000*math.Pow(359.0/360.0, float64(i))
		assert.InDelta(t, want, bal, 1e-6, "month %d", i)
		assert.Greater(t, bal, prev, "month %d", i)
		assert.LessOrEqual(t, float64(r.FundRatio), 1.0)
		prev = bal
	}
	assert.Greater(t, float64(model.Rows[360].FundRatio), float64(model.Rows[0].FundRatio))
}
