package output

import (
	"math"
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func fundRow(month, ret string, workers, retirees int64, cpi, dist, target, bal string, principal *decimal.Decimal) domain.FundModelRow {
	return domain.FundModelRow{
		Month:        dateutil.MustParseMonth(month),
		Return:       dec(ret),
		Workers:      workers,
		Retirees:     retirees,
		CPI:          dec(cpi),
		Distribution: dec(dist),
		Target:       dec(target),
		BAU:          dec("25"),
		Real:         decPtr(bal),
		Principal:    principal,
	}
}

// buildTestResult is a small hand-made run with round ratios so formatted output is predictable.
func buildTestResult() *domain.SimulationResult {
	rows := []domain.FundModelRow{
		fundRow("2024-11", "0.005", 1000, 200, "300", "1800", "72000000", "54000000", decPtr("12.5")),
		fundRow("2024-12", "0.004", 1000, 210, "301.5", "1809", "76000000", "57000000", decPtr("12.5")),
		fundRow("2025-01", "0", 1010, 210, "302", "1812", "80000000", "60000000", nil),
	}
	rows[0].FundRatio, rows[0].PrincipalRatio, rows[0].TargetFundRatio, rows[0].RealFundRatio = 0.75, 0.5, 1200, 0.75
	rows[1].FundRatio, rows[1].PrincipalRatio, rows[1].TargetFundRatio, rows[1].RealFundRatio = 0.75, 0.5, 1200, 0.75
	rows[2].FundRatio, rows[2].PrincipalRatio, rows[2].TargetFundRatio, rows[2].RealFundRatio = 0.75, domain.Ratio(math.NaN()), 1250, 0.75

	var counts domain.AgeCounts
	counts[20] = 100
	counts[domain.AgePlus100] = 5

	return &domain.SimulationResult{
		RunID:       "run-0001",
		Name:        "baseline",
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Assumptions: []string{"Average market return: 9.50% annually"},
		Population: &domain.PopulationTable{Rows: []domain.PopulationRow{
			{Month: dateutil.MustParseMonth("2024-12"), Counts: counts},
		}},
		Fund: &domain.FundModel{Rows: rows, TargetWithdrawRate: dec("0.0088"), RepaymentMonths: 360},
		Summary: domain.SimulationSummary{
			Start:              dateutil.MustParseMonth("2024-11"),
			End:                dateutil.MustParseMonth("2025-01"),
			Months:             3,
			StartingBalance:    dec("54000000"),
			EndingBalance:      dec("60000000"),
			EndingTarget:       dec("80000000"),
			FirstFundRatio:     0.75,
			FinalFundRatio:     0.75,
			MinFundRatio:       0.75,
			MinFundRatioMonth:  dateutil.MustParseMonth("2024-11"),
			PeakPrincipalRatio: 0.5,
			PeakPrincipalMonth: dateutil.MustParseMonth("2024-11"),
			MonthsBelowTarget:  3,
			TargetWithdrawRate: dec("0.0088"),
		},
	}
}
