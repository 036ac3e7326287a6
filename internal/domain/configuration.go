package domain

import (
	"fmt"

	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// Configuration is the complete input for a trust fund projection.
type Configuration struct {
	Assumptions Assumptions        `yaml:"assumptions" json:"assumptions"`
	Policy      PolicySettings     `yaml:"policy" json:"policy"`
	Population  PopulationSettings `yaml:"population" json:"population"`
	Simulation  SimulationSettings `yaml:"simulation" json:"simulation"`
	Data        DataSettings       `yaml:"data" json:"data"`
	Storage     StorageSettings    `yaml:"storage" json:"storage"`
	Server      ServerSettings     `yaml:"server" json:"server"`
	Schedule    ScheduleSettings   `yaml:"schedule" json:"schedule"`
}

// Assumptions are the long-run annual growth assumptions. They are fixed inputs, never calibrated.
type Assumptions struct {
	AverageReturn           decimal.Decimal `yaml:"average_return" json:"average_return"`
	AverageInflation        decimal.Decimal `yaml:"average_inflation" json:"average_inflation"`
	AveragePopulationGrowth decimal.Decimal `yaml:"average_population_growth" json:"average_population_growth"`
	AverageVolatility       decimal.Decimal `yaml:"average_volatility" json:"average_volatility"`
	MarginOfSafety          decimal.Decimal `yaml:"margin_of_safety" json:"margin_of_safety"`
}

// TargetWithdrawRate is the sustainable annual drawdown of a fully funded balance:
// return - inflation - population growth - volatility^2/2 - margin of safety.
func (a Assumptions) TargetWithdrawRate() decimal.Decimal {
	drag := a.AverageVolatility.Mul(a.AverageVolatility).Div(decimal.NewFromInt(2))
	return a.AverageReturn.
		Sub(a.AverageInflation).
		Sub(a.AveragePopulationGrowth).
		Sub(drag).
		Sub(a.MarginOfSafety)
}

// GenerateAssumptions renders the assumptions as human readable lines for reports.
func (a Assumptions) GenerateAssumptions() []string {
	pct := func(d decimal.Decimal) float64 { return d.Mul(decimal.NewFromInt(100)).InexactFloat64() }
	return []string{
		fmt.Sprintf("Average market return: %.2f%% annually", pct(a.AverageReturn)),
		fmt.Sprintf("Average inflation (CPI): %.2f%% annually", pct(a.AverageInflation)),
		fmt.Sprintf("Average population growth: %.2f%% annually", pct(a.AveragePopulationGrowth)),
		fmt.Sprintf("Average volatility: %.2f%%", pct(a.AverageVolatility)),
		fmt.Sprintf("Margin of safety: %.2f%%", pct(a.MarginOfSafety)),
		fmt.Sprintf("Target withdraw rate: %.2f%% annually", pct(a.TargetWithdrawRate())),
	}
}

// PolicySettings controls distributions and how shortfalls are repaid.
type PolicySettings struct {
	// DistributionMultiplier scales the CPI level into a per-retiree monthly distribution.
	DistributionMultiplier  decimal.Decimal `yaml:"distribution_multiplier" json:"distribution_multiplier"`
	RepaymentTimelineMonths int             `yaml:"repayment_timeline_months" json:"repayment_timeline_months"`
}

// PopulationSettings classifies single-year ages into workers and retirees.
type PopulationSettings struct {
	WorkerAges  AgeRange `yaml:"worker_ages" json:"worker_ages"`
	RetireeAges AgeRange `yaml:"retiree_ages" json:"retiree_ages"`
	// HorizonYear is the last December of the monthly population calendar.
	HorizonYear int `yaml:"horizon_year" json:"horizon_year"`
}

// SimulationSettings is the simulated window and its seed balance.
type SimulationSettings struct {
	Name                      string          `yaml:"name" json:"name"`
	Start                     dateutil.Month  `yaml:"start" json:"start"`
	End                       dateutil.Month  `yaml:"end" json:"end"`
	StartingBalance           decimal.Decimal `yaml:"starting_balance" json:"starting_balance"`
	StartingBalanceFromSeries bool            `yaml:"starting_balance_from_series,omitempty" json:"starting_balance_from_series,omitempty"`
}

// DataSettings locates the input CSV files. File names are relative to Dir.
type DataSettings struct {
	Dir            string `yaml:"dir" json:"dir"`
	PopulationFile string `yaml:"population_file" json:"population_file"`
	CPIFile        string `yaml:"cpi_file" json:"cpi_file"`
	MarketFile     string `yaml:"market_file" json:"market_file"`
	FundFile       string `yaml:"fund_file,omitempty" json:"fund_file,omitempty"`
	// PyramidBaseURL is where fetch-population downloads yearly age pyramids from.
	PyramidBaseURL string `yaml:"pyramid_base_url,omitempty" json:"pyramid_base_url,omitempty"`
}

// StorageSettings configures the run history database.
type StorageSettings struct {
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// ServerSettings configures the read-only HTTP API.
type ServerSettings struct {
	Addr           string   `yaml:"addr" json:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
}

// ScheduleSettings configures periodic re-runs.
type ScheduleSettings struct {
	Cron string `yaml:"cron,omitempty" json:"cron,omitempty"`
}
