package calculation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// Inputs are the historical datasets a scenario is projected from.
type Inputs struct {
	Buckets      domain.YearlyBuckets
	CPI          domain.Series
	Market       domain.Series
	FundReserves []domain.YearlyAmount
}

// CalculationEngine orchestrates the projection pipeline. It holds no state between runs.
type CalculationEngine struct {
	Logger Logger
	Clock  Clock
	IDs    IDGenerator
}

// NewCalculationEngine creates an engine with a no-op logger, the wall clock and UUIDv7 run ids.
func NewCalculationEngine() *CalculationEngine {
	return &CalculationEngine{
		Logger: NopLogger{},
		Clock:  time.Now,
		IDs:    NewRunID,
	}
}

// SetLogger sets the logger for the calculation engine. If nil is provided, a no-op logger is used.
func (ce *CalculationEngine) SetLogger(l Logger) {
	if l == nil {
		ce.Logger = NopLogger{}
		return
	}
	ce.Logger = l
}

func (ce *CalculationEngine) logger() Logger {
	if ce.Logger == nil {
		return NopLogger{}
	}
	return ce.Logger
}

// validateRun checks the parts of a configuration the pipeline cannot run without.
func validateRun(cfg *domain.Configuration, in *Inputs) error {
	if cfg == nil {
		return errors.New("configuration is required")
	}
	if in == nil {
		return errors.New("inputs are required")
	}
	if cfg.Simulation.Start.IsZero() || cfg.Simulation.End.IsZero() {
		return errors.New("simulation window is not set")
	}
	if cfg.Simulation.End.Before(cfg.Simulation.Start) {
		return fmt.Errorf("simulation end %s is before start %s", cfg.Simulation.End, cfg.Simulation.Start)
	}
	if cfg.Policy.RepaymentTimelineMonths <= 0 {
		return fmt.Errorf("repayment timeline must be positive, got %d months", cfg.Policy.RepaymentTimelineMonths)
	}
	if cfg.Population.WorkerAges.IsZero() || cfg.Population.RetireeAges.IsZero() {
		return errors.New("worker and retiree age ranges are required")
	}
	if cfg.Simulation.StartingBalanceFromSeries && len(in.FundReserves) == 0 {
		return errors.New("starting balance from series requires fund reserves data")
	}
	return nil
}

// ExpandPopulation runs the age-bucket expander with the configured horizon.
func (ce *CalculationEngine) ExpandPopulation(cfg *domain.Configuration, buckets domain.YearlyBuckets) (*domain.PopulationTable, error) {
	table, err := NewPopulationExpander(ce.logger()).Expand(buckets, cfg.Population.HorizonYear)
	if err != nil {
		return nil, fmt.Errorf("expand population: %w", err)
	}
	return table, nil
}

// ProjectLevels extends CPI at the assumed inflation and market prices at the assumed return
// through horizon.
func (ce *CalculationEngine) ProjectLevels(cfg *domain.Configuration, in *Inputs, horizon dateutil.Month) (cpi, market domain.Series, err error) {
	inflation, err := MonthlyRate(cfg.Assumptions.AverageInflation)
	if err != nil {
		return nil, nil, fmt.Errorf("inflation: %w", err)
	}
	growth, err := MonthlyRate(cfg.Assumptions.AverageReturn)
	if err != nil {
		return nil, nil, fmt.Errorf("market return: %w", err)
	}

	cpi, err = ProjectSeries("cpi", in.CPI, inflation, horizon)
	if err != nil {
		return nil, nil, fmt.Errorf("project cpi: %w", err)
	}
	market, err = ProjectSeries("market price", in.Market, growth, horizon)
	if err != nil {
		return nil, nil, fmt.Errorf("project market: %w", err)
	}

	if last, ok := in.CPI.Last(); ok && last.Month.Before(horizon) {
		ce.logger().Debugf("cpi projected from %s to %s at %s monthly", last.Month, horizon, inflation.StringFixed(6))
	}
	if last, ok := in.Market.Last(); ok && last.Month.Before(horizon) {
		ce.logger().Debugf("market projected from %s to %s at %s monthly", last.Month, horizon, growth.StringFixed(6))
	}
	return cpi, market, nil
}

// StartingBalance returns the configured starting balance, or the balance derived from yearly
// reserves at the window start when configured to.
func (ce *CalculationEngine) StartingBalance(cfg *domain.Configuration, in *Inputs) (decimal.Decimal, error) {
	if !cfg.Simulation.StartingBalanceFromSeries {
		return cfg.Simulation.StartingBalance, nil
	}
	balances, err := FundBalanceSeries(in.FundReserves)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fund balance: %w", err)
	}
	return StartingBalanceAt(balances, cfg.Simulation.Start)
}

// RunScenario runs the whole pipeline for one configuration: expand population, aggregate
// workers and retirees, project CPI and market levels, derive returns, assemble, simulate and
// apply ratios. Any error aborts the run; no partial result is returned.
func (ce *CalculationEngine) RunScenario(ctx context.Context, cfg *domain.Configuration, in *Inputs) (*domain.SimulationResult, error) {
	if err := validateRun(cfg, in); err != nil {
		return nil, err
	}
	log := ce.logger()
	start, end := cfg.Simulation.Start, cfg.Simulation.End

	population, err := ce.ExpandPopulation(cfg, in.Buckets)
	if err != nil {
		return nil, err
	}
	workforce := AggregateWorkforce(population, cfg.Population.WorkerAges, cfg.Population.RetireeAges)
	log.Infof("population expanded: %d months, %d anomalies", len(population.Rows), len(population.Anomalies))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cpi, market, err := ce.ProjectLevels(cfg, in, end)
	if err != nil {
		return nil, err
	}
	returns, err := MarketReturns(market)
	if err != nil {
		return nil, fmt.Errorf("market returns: %w", err)
	}
	balance, err := ce.StartingBalance(cfg, in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	policy := PolicyFromConfig(cfg)
	model, err := AssembleFundModel(policy, AssemblyInputs{
		Returns:         returns,
		Workforce:       workforce,
		CPI:             cpi,
		StartingBalance: balance,
		Start:           start,
		End:             end,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble fund model: %w", err)
	}
	log.Infof("fund model assembled: %s to %s, target withdraw rate %s", start, end, policy.TargetWithdrawRate)

	if err := Simulate(model); err != nil {
		return nil, err
	}
	ApplyRatios(model)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := Summarize(model)
	summary.PopulationAnomalies = len(population.Anomalies)
	log.Infof("simulation complete: final fund ratio %.4f, %d of %d months below target",
		float64(summary.FinalFundRatio), summary.MonthsBelowTarget, summary.Months)

	clock, ids := ce.Clock, ce.IDs
	if clock == nil {
		clock = time.Now
	}
	if ids == nil {
		ids = NewRunID
	}
	return &domain.SimulationResult{
		RunID:       ids(),
		Name:        cfg.Simulation.Name,
		CreatedAt:   clock().UTC(),
		Assumptions: cfg.Assumptions.GenerateAssumptions(),
		Population:  population,
		Fund:        model,
		Summary:     summary,
	}, nil
}
