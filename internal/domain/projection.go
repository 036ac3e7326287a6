package domain

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// AgeBucketRecord is one yearly population count for a 5-year bucket ("20-24") or "100+".
type AgeBucketRecord struct {
	Year   int    `json:"year"`
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// YearlyBuckets maps year -> bucket label -> population count.
type YearlyBuckets map[int]map[string]int64

// Add records a count, summing when the bucket already exists for the year.
func (yb YearlyBuckets) Add(year int, bucket string, count int64) {
	if yb[year] == nil {
		yb[year] = make(map[string]int64)
	}
	yb[year][bucket] += count
}

// Years returns the years present, ascending.
func (yb YearlyBuckets) Years() []int {
	years := make([]int, 0, len(yb))
	for y := range yb {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Records flattens the table, ordered by year then label.
func (yb YearlyBuckets) Records() []AgeBucketRecord {
	var records []AgeBucketRecord
	for _, y := range yb.Years() {
		labels := make([]string, 0, len(yb[y]))
		for l := range yb[y] {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			records = append(records, AgeBucketRecord{Year: y, Bucket: l, Count: yb[y][l]})
		}
	}
	return records
}

// AgeCounts holds one population count per single year of age 0..100.
type AgeCounts [AgeCount]int64

// PopulationRow is the single-year-of-age population for one month.
type PopulationRow struct {
	Month  dateutil.Month `json:"month"`
	Counts AgeCounts      `json:"counts"`
}

// Sum totals the counts over an inclusive age range.
func (r PopulationRow) Sum(ages AgeRange) int64 {
	var total int64
	for a := ages.From; a <= ages.To && a.Valid(); a++ {
		total += r.Counts[a]
	}
	return total
}

// Total is the population over all ages.
func (r PopulationRow) Total() int64 { return r.Sum(AgeRange{From: 0, To: AgePlus100}) }

// MonthlyPopulationRow is the long form of a population table: one row per (month, age).
type MonthlyPopulationRow struct {
	Month dateutil.Month `json:"month"`
	Age   Age            `json:"age"`
	Count int64          `json:"count"`
}

// PopulationAnomaly flags a boundary-extrapolated count that came out negative.
type PopulationAnomaly struct {
	Month dateutil.Month `json:"month"`
	Age   Age            `json:"age"`
	Value float64        `json:"value"`
}

// PopulationTable is the monthly single-year-of-age population, ordered by month.
type PopulationTable struct {
	Rows      []PopulationRow     `json:"rows"`
	Anomalies []PopulationAnomaly `json:"anomalies,omitempty"`
}

// Long returns the table as (month, age, count) rows.
func (t *PopulationTable) Long() []MonthlyPopulationRow {
	out := make([]MonthlyPopulationRow, 0, len(t.Rows)*AgeCount)
	for _, r := range t.Rows {
		for a := Age(0); a <= AgePlus100; a++ {
			out = append(out, MonthlyPopulationRow{Month: r.Month, Age: a, Count: r.Counts[a]})
		}
	}
	return out
}

// WorkforcePoint is the worker and retiree headcount for a month.
type WorkforcePoint struct {
	Month    dateutil.Month `json:"month"`
	Workers  int64          `json:"workers"`
	Retirees int64          `json:"retirees"`
}

// SeriesPoint is one month of a level series (CPI, market price, fund balance).
type SeriesPoint struct {
	Month dateutil.Month  `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// Series is a monthly series ordered by month.
type Series []SeriesPoint

// Last returns the final point of the series.
func (s Series) Last() (SeriesPoint, bool) {
	if len(s) == 0 {
		return SeriesPoint{}, false
	}
	return s[len(s)-1], true
}

// Lookup returns the value for a month.
func (s Series) Lookup(m dateutil.Month) (decimal.Decimal, bool) {
	i := sort.Search(len(s), func(i int) bool { return !s[i].Month.Before(m) })
	if i < len(s) && s[i].Month == m {
		return s[i].Value, true
	}
	return decimal.Zero, false
}

// YearlyAmount is one yearly figure, such as the trust fund reserves reported for a year.
type YearlyAmount struct {
	Year   int             `json:"year"`
	Amount decimal.Decimal `json:"amount"`
}

// FundModelRow is one simulated month. Real and Principal are written only by the simulator,
// except the first Real which is seeded with the starting balance.
type FundModelRow struct {
	Month        dateutil.Month  `json:"month"`
	Return       decimal.Decimal `json:"return"`
	Workers      int64           `json:"workers"`
	Retirees     int64           `json:"retirees"`
	CPI          decimal.Decimal `json:"cpi"`
	Distribution decimal.Decimal `json:"distribution"`
	Target       decimal.Decimal `json:"target"`
	BAU          decimal.Decimal `json:"bau"`

	Real      *decimal.Decimal `json:"real,omitempty"`
	Principal *decimal.Decimal `json:"principal,omitempty"`

	FundRatio       Ratio `json:"fund_ratio"`
	PrincipalRatio  Ratio `json:"principal_ratio"`
	TargetFundRatio Ratio `json:"target_fund_ratio"`
	RealFundRatio   Ratio `json:"real_fund_ratio"`
}

// TotalDistribution is what the fund owes all retirees for the month.
func (r *FundModelRow) TotalDistribution() decimal.Decimal {
	return r.Distribution.Mul(decimal.NewFromInt(r.Retirees))
}

// FundModel is the assembled table plus the policy scalars the simulator needs.
type FundModel struct {
	Rows               []FundModelRow  `json:"rows"`
	TargetWithdrawRate decimal.Decimal `json:"target_withdraw_rate"`
	RepaymentMonths    int             `json:"repayment_months"`
}

// SimulationSummary collects headline figures of a simulated window.
type SimulationSummary struct {
	Start               dateutil.Month  `json:"start"`
	End                 dateutil.Month  `json:"end"`
	Months              int             `json:"months"`
	StartingBalance     decimal.Decimal `json:"starting_balance"`
	EndingBalance       decimal.Decimal `json:"ending_balance"`
	EndingTarget        decimal.Decimal `json:"ending_target"`
	FirstFundRatio      Ratio           `json:"first_fund_ratio"`
	FinalFundRatio      Ratio           `json:"final_fund_ratio"`
	MinFundRatio        Ratio           `json:"min_fund_ratio"`
	MinFundRatioMonth   dateutil.Month  `json:"min_fund_ratio_month"`
	PeakPrincipalRatio  Ratio           `json:"peak_principal_ratio"`
	PeakPrincipalMonth  dateutil.Month  `json:"peak_principal_month"`
	MonthsBelowTarget   int             `json:"months_below_target"`
	TargetWithdrawRate  decimal.Decimal `json:"target_withdraw_rate"`
	PopulationAnomalies int             `json:"population_anomalies"`
}

// SimulationResult is the output of a full pipeline run.
type SimulationResult struct {
	RunID       string            `json:"run_id"`
	Name        string            `json:"name"`
	CreatedAt   time.Time         `json:"created_at"`
	Assumptions []string          `json:"assumptions"`
	Population  *PopulationTable  `json:"-"`
	Fund        *FundModel        `json:"fund"`
	Summary     SimulationSummary `json:"summary"`
}

// Ratio is a presentation ratio. Zero denominators make it NaN or infinite, which
// JSON cannot carry, so those marshal as null.
type Ratio float64

// IsFinite reports whether the ratio is a usable number.
func (r Ratio) IsFinite() bool {
	f := float64(r)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.IsFinite() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(r), 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler; null reads back as NaN.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}
