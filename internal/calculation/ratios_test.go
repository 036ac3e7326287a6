package calculation

import (
	"math"
	"testing"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v decimal.Decimal) *decimal.Decimal { return &v }

func TestApplyRatios(t *testing.T) {
	model := &domain.FundModel{Rows: []domain.FundModelRow{
		{
			Month: dateutil.MustParseMonth("2000-01"), CPI: d("2"), Retirees: 10,
			Target: d("400"), BAU: d("4"), Real: ptr(d("100")), Principal: ptr(d("1")),
		},
		{
			Month: dateutil.MustParseMonth("2000-02"), CPI: d("2"), Retirees: 0,
			Target: d("0"), BAU: d("0"), Real: ptr(d("50")),
		},
	}}
	before := model.Rows[0].Real.String()

	ApplyRatios(model)

	first := model.Rows[0]
	assert.InDelta(t, 0.25, float64(first.FundRatio), 1e-12)
	assert.InDelta(t, 0.25, float64(first.PrincipalRatio), 1e-12)
	assert.InDelta(t, 5.0, float64(first.RealFundRatio), 1e-12)
	assert.Equal(t, before, first.Real.String())

	last := model.Rows[1]
	assert.True(t, math.IsInf(float64(last.FundRatio), 1))
	assert.True(t, math.IsNaN(float64(last.PrincipalRatio)))
	assert.True(t, math.IsInf(float64(last.RealFundRatio), 1))
	assert.False(t, last.FundRatio.IsFinite())

	assert.NotPanics(t, func() { ApplyRatios(nil) })
}

func TestSummarize(t *testing.T) {
	model := buildModel(t, 24, "0.004", "1", 100, 20, "1000")
	require.NoError(t, Simulate(model))
	ApplyRatios(model)

	s := Summarize(model)
	assert.Equal(t, model.Rows[0].Month, s.Start)
	assert.Equal(t, model.Rows[23].Month, s.End)
	assert.Equal(t, 24, s.Months)
	assert.True(t, s.StartingBalance.Equal(d("1000")))
	assert.True(t, s.EndingBalance.Equal(*model.Rows[23].Real))
	assert.True(t, s.EndingTarget.Equal(model.Rows[23].Target))
	assert.Equal(t, 24, s.MonthsBelowTarget)
	assert.Equal(t, model.Rows[0].FundRatio, s.FirstFundRatio)
	assert.Equal(t, model.Rows[23].FundRatio, s.FinalFundRatio)

	for _, r := range model.Rows {
		assert.GreaterOrEqual(t, float64(r.FundRatio), float64(s.MinFundRatio))
		if r.PrincipalRatio.IsFinite() {
			assert.LessOrEqual(t, float64(r.PrincipalRatio), float64(s.PeakPrincipalRatio))
		}
	}
	assert.False(t, s.PeakPrincipalMonth.IsZero())

	assert.Equal(t, domain.SimulationSummary{}, Summarize(nil))
}
