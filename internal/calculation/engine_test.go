package calculation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// scenarioConfig is the synthetic scenario: a 3% target withdraw rate, distribution equal to
// CPI and a 360 month repayment horizon.
func scenarioConfig() *domain.Configuration {
	return &domain.Configuration{
		Assumptions: domain.Assumptions{AverageReturn: d("0.03")},
		Policy: domain.PolicySettings{
			DistributionMultiplier:  d("1"),
			RepaymentTimelineMonths: 360,
		},
		Population: domain.PopulationSettings{
			WorkerAges:  domain.AgeRange{From: 20, To: 64},
			RetireeAges: domain.AgeRange{From: 65, To: domain.AgePlus100},
		},
		Simulation: domain.SimulationSettings{
			Name:            "synthetic",
			Start:           dateutil.MustParseMonth("2001-01"),
			End:             dateutil.MustParseMonth("2002-12"),
			StartingBalance: d("1000"),
		},
	}
}

func scenarioInputs() *Inputs {
	return &Inputs{
		Buckets: sparseBuckets(2000, 2001, 2002),
		CPI:     flat("2000-12", "2002-12", "1"),
		Market:  flat("2000-12", "2002-12", "100"),
	}
}

func testEngine() *CalculationEngine {
	ce := NewCalculationEngine()
	ce.Clock = FixedClock(testNow)
	ce.IDs = SequentialIDs("run")
	return ce
}

func TestRunScenarioSyntheticPopulation(t *testing.T) {
	result, err := testEngine().RunScenario(context.Background(), scenarioConfig(), scenarioInputs())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "synthetic", result.Name)
	assert.Equal(t, testNow, result.CreatedAt)
	assert.Len(t, result.Assumptions, 6)
	require.NotNil(t, result.Population)
	assert.Len(t, result.Population.Rows, 25)

	rows := result.Fund.Rows
	require.Len(t, rows, 24)
	target := rows[0].Target
	assert.True(t, target.IsPositive())

	for i, r := range rows {
		assert.True(t, r.Target.Equal(target), "target changed at %s", r.Month)
		require.NotNil(t, r.Real)
		assert.True(t, r.Real.LessThanOrEqual(r.Target), "real above target at %s", r.Month)
		assert.LessOrEqual(t, float64(r.FundRatio), 1.0+1e-12)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Real.InexactFloat64(), rows[i-1].Real.InexactFloat64()-1e-9, "real fell at %s", r.Month)
		}
		if i < len(rows)-1 {
			// The shortfall is far larger than one month of distributions, so the cap binds.
			assert.InDelta(t, 1.0, float64(r.PrincipalRatio), 1e-9, "month %s", r.Month)
		}
	}

	assert.Equal(t, 24, result.Summary.MonthsBelowTarget)
	assert.Equal(t, 0, result.Summary.PopulationAnomalies)
	assert.True(t, result.Summary.TargetWithdrawRate.Equal(d("0.03")))
}

func TestRunScenarioProjectsBeyondHistory(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Assumptions.AverageInflation = d("0.03")
	cfg.Assumptions.AverageReturn = d("0.09")
	in := scenarioInputs()
	in.CPI = flat("2000-12", "2001-06", "1")
	in.Market = flat("2000-12", "2001-06", "100")

	result, err := testEngine().RunScenario(context.Background(), cfg, in)
	require.NoError(t, err)

	rows := result.Fund.Rows
	last := rows[len(rows)-1]
	assert.InDelta(t, math.Pow(1.03, 18.0/12), last.CPI.InexactFloat64(), 1e-6)

	monthlyReturn := math.Pow(1.09, 1.0/12) - 1
	assert.True(t, rows[4].Return.IsZero(), "historical flat price gives zero return")
	assert.InDelta(t, monthlyReturn, rows[10].Return.InexactFloat64(), 1e-6)
}

func TestRunScenarioStartingBalanceFromSeries(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Simulation.StartingBalanceFromSeries = true
	in := scenarioInputs()
	in.FundReserves = []domain.YearlyAmount{
		{Year: 1999, Amount: decimal.NewFromInt(12)},
		{Year: 2000, Amount: decimal.NewFromInt(24)},
	}

	result, err := testEngine().RunScenario(context.Background(), cfg, in)
	require.NoError(t, err)
	assert.True(t, result.Summary.StartingBalance.Equal(decimal.NewFromInt(13_000_000)),
		"got %s", result.Summary.StartingBalance)

	in.FundReserves = nil
	_, err = testEngine().RunScenario(context.Background(), cfg, in)
	assert.Error(t, err)
}

func TestRunScenarioErrors(t *testing.T) {
	t.Run("cpi gap inside window", func(t *testing.T) {
		in := scenarioInputs()
		in.CPI = append(flat("2000-12", "2001-03", "1"), flat("2001-05", "2002-12", "1")...)
		_, err := testEngine().RunScenario(context.Background(), scenarioConfig(), in)
		var ms *MisalignedSeriesError
		require.ErrorAs(t, err, &ms)
		assert.Equal(t, dateutil.MustParseMonth("2001-04"), ms.Month)
		assert.Equal(t, "cpi", ms.Field)
	})

	t.Run("window beyond population", func(t *testing.T) {
		cfg := scenarioConfig()
		cfg.Simulation.End = dateutil.MustParseMonth("2003-06")
		_, err := testEngine().RunScenario(context.Background(), cfg, scenarioInputs())
		assert.True(t, errors.Is(err, ErrMisalignedSeries), "got %v", err)
	})

	t.Run("no workers", func(t *testing.T) {
		in := scenarioInputs()
		in.Buckets = make(domain.YearlyBuckets)
		for _, y := range []int{2000, 2001, 2002} {
			in.Buckets.Add(y, "65-69", 20)
			in.Buckets.Add(y, "100+", 5)
		}
		_, err := testEngine().RunScenario(context.Background(), scenarioConfig(), in)
		assert.True(t, errors.Is(err, ErrDegenerateInput), "got %v", err)
	})

	t.Run("zero withdraw rate", func(t *testing.T) {
		cfg := scenarioConfig()
		cfg.Assumptions.AverageReturn = decimal.Zero
		_, err := testEngine().RunScenario(context.Background(), cfg, scenarioInputs())
		assert.True(t, errors.Is(err, ErrDegenerateInput), "got %v", err)
	})

	t.Run("single population year", func(t *testing.T) {
		in := scenarioInputs()
		in.Buckets = sparseBuckets(2000)
		_, err := testEngine().RunScenario(context.Background(), scenarioConfig(), in)
		assert.True(t, errors.Is(err, ErrDataGap), "got %v", err)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := scenarioConfig()
		cfg.Policy.RepaymentTimelineMonths = 0
		_, err := testEngine().RunScenario(context.Background(), cfg, scenarioInputs())
		assert.Error(t, err)

		_, err = testEngine().RunScenario(context.Background(), nil, scenarioInputs())
		assert.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := testEngine().RunScenario(ctx, scenarioConfig(), scenarioInputs())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunScenarioIsDeterministic(t *testing.T) {
	a, err := testEngine().RunScenario(context.Background(), scenarioConfig(), scenarioInputs())
	require.NoError(t, err)
	b, err := testEngine().RunScenario(context.Background(), scenarioConfig(), scenarioInputs())
	require.NoError(t, err)

	// NaN ratios never compare equal, so compare the serialized form.
	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
	assert.Equal(t, a.Population, b.Population)
}

func TestSequentialIDsAndRunIDs(t *testing.T) {
	ids := SequentialIDs("x")
	assert.Equal(t, "x-1", ids())
	assert.Equal(t, "x-2", ids())

	id := NewRunID()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, NewRunID())
}
