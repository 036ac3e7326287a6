package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/robfig/cron/v3"
	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRUSTSIM_"

// DefaultPyramidBaseURL serves yearly United States age pyramids as CSV.
const DefaultPyramidBaseURL = "https://www.populationpyramid.net/api/pp/840/"

// InputParser handles parsing of input configuration files
type InputParser struct {
	// Getenv looks up environment overrides. Defaults to os.Getenv.
	Getenv func(string) string
}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{Getenv: os.Getenv}
}

// DefaultConfiguration returns the built-in assumptions and policy.
func DefaultConfiguration() *domain.Configuration {
	return &domain.Configuration{
		Assumptions: domain.Assumptions{
			AverageReturn:           decimal.RequireFromString("0.095"),
			AverageInflation:        decimal.RequireFromString("0.03"),
			AveragePopulationGrowth: decimal.RequireFromString("0.015"),
			AverageVolatility:       decimal.RequireFromString("0.18"),
			MarginOfSafety:          decimal.Zero,
		},
		Policy: domain.PolicySettings{
			DistributionMultiplier:  decimal.NewFromInt(6),
			RepaymentTimelineMonths: 30 * 12,
		},
		Population: domain.PopulationSettings{
			WorkerAges:  domain.AgeRange{From: 20, To: 64},
			RetireeAges: domain.AgeRange{From: 65, To: domain.AgePlus100},
		},
		Simulation: domain.SimulationSettings{
			Name:            "baseline",
			Start:           dateutil.NewMonth(1990, 1),
			End:             dateutil.NewMonth(2025, 1),
			StartingBalance: decimal.NewFromInt(162_968_000_000),
		},
		Data: domain.DataSettings{
			Dir:            "data",
			PopulationFile: "population.csv",
			CPIFile:        "cpi.csv",
			MarketFile:     "sp500.csv",
			PyramidBaseURL: DefaultPyramidBaseURL,
		},
		Storage: domain.StorageSettings{SQLitePath: "data/trustsim.db"},
		Server:  domain.ServerSettings{Addr: ":8080"},
	}
}

// Load reads filename when it is set, otherwise starts from the defaults. Environment
// overrides are applied and the result validated either way.
func (ip *InputParser) Load(filename string) (*domain.Configuration, error) {
	if filename != "" {
		return ip.LoadFromFile(filename)
	}
	config := DefaultConfiguration()
	if err := ip.ApplyEnvOverrides(config); err != nil {
		return nil, err
	}
	if err := ip.ValidateConfiguration(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func (ip *InputParser) LoadFromFile(filename string) (*domain.Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.Parse(filename, data)
}

// Parse checks data against the schema, decodes it over the defaults, applies environment
// overrides and validates the result. filename is only used in messages.
func (ip *InputParser) Parse(filename string, data []byte) (*domain.Configuration, error) {
	if err := ValidateSchema(filename, data); err != nil {
		return nil, err
	}

	config := DefaultConfiguration()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ip.ApplyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := ip.ValidateConfiguration(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// ValidateSchema unifies a YAML document with the embedded #Configuration schema. Unknown
// keys and values of the wrong shape are rejected before decoding.
func ValidateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile configuration schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Configuration")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ApplyEnvOverrides overwrites configuration values from TRUSTSIM_* environment variables.
func (ip *InputParser) ApplyEnvOverrides(config *domain.Configuration) error {
	getenv := ip.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	strs := map[string]*string{
		"DATA_DIR":         &config.Data.Dir,
		"PYRAMID_BASE_URL": &config.Data.PyramidBaseURL,
		"SQLITE_PATH":      &config.Storage.SQLitePath,
		"SERVER_ADDR":      &config.Server.Addr,
		"CRON":             &config.Schedule.Cron,
		"NAME":             &config.Simulation.Name,
	}
	for key, dst := range strs {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	decimals := map[string]*decimal.Decimal{
		"AVERAGE_RETURN":            &config.Assumptions.AverageReturn,
		"AVERAGE_INFLATION":         &config.Assumptions.AverageInflation,
		"AVERAGE_POPULATION_GROWTH": &config.Assumptions.AveragePopulationGrowth,
		"AVERAGE_VOLATILITY":        &config.Assumptions.AverageVolatility,
		"MARGIN_OF_SAFETY":          &config.Assumptions.MarginOfSafety,
		"STARTING_BALANCE":          &config.Simulation.StartingBalance,
	}
	for key, dst := range decimals {
		if v := getenv(EnvPrefix + key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("%s%s: invalid number %q", EnvPrefix, key, v)
			}
			*dst = d
		}
	}

	months := map[string]*dateutil.Month{
		"START": &config.Simulation.Start,
		"END":   &config.Simulation.End,
	}
	for key, dst := range months {
		if v := getenv(EnvPrefix + key); v != "" {
			m, err := dateutil.ParseMonth(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = m
		}
	}

	if v := getenv(EnvPrefix + "REPAYMENT_TIMELINE_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREPAYMENT_TIMELINE_MONTHS: invalid integer %q", EnvPrefix, v)
		}
		config.Policy.RepaymentTimelineMonths = n
	}
	return nil
}

// ValidateConfiguration validates the loaded configuration
func (ip *InputParser) ValidateConfiguration(config *domain.Configuration) error {
	if config == nil {
		return errors.New("configuration is required")
	}
	if err := ip.validateAssumptions(&config.Assumptions); err != nil {
		return fmt.Errorf("assumptions validation failed: %w", err)
	}
	if err := ip.validatePolicy(&config.Policy); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	if err := ip.validatePopulation(&config.Population); err != nil {
		return fmt.Errorf("population validation failed: %w", err)
	}
	if err := ip.validateSimulation(&config.Simulation); err != nil {
		return fmt.Errorf("simulation validation failed: %w", err)
	}
	if config.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(config.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule validation failed: invalid cron %q: %w", config.Schedule.Cron, err)
		}
	}
	return nil
}

func (ip *InputParser) validateAssumptions(a *domain.Assumptions) error {
	minusOne := decimal.NewFromInt(-1)
	if a.AverageReturn.LessThanOrEqual(minusOne) {
		return fmt.Errorf("average return must be above -100%%")
	}
	if a.AverageInflation.LessThanOrEqual(minusOne) {
		return fmt.Errorf("average inflation must be above -100%%")
	}
	if a.AverageVolatility.IsNegative() {
		return fmt.Errorf("average volatility cannot be negative")
	}
	if a.MarginOfSafety.IsNegative() {
		return fmt.Errorf("margin of safety cannot be negative")
	}
	if rate := a.TargetWithdrawRate(); !rate.IsPositive() {
		return fmt.Errorf("target withdraw rate must be positive, got %s", rate)
	}
	return nil
}

func (ip *InputParser) validatePolicy(p *domain.PolicySettings) error {
	if !p.DistributionMultiplier.IsPositive() {
		return fmt.Errorf("distribution multiplier must be positive")
	}
	if p.RepaymentTimelineMonths <= 0 {
		return fmt.Errorf("repayment timeline must be a positive number of months")
	}
	return nil
}

func (ip *InputParser) validatePopulation(p *domain.PopulationSettings) error {
	if p.WorkerAges.IsZero() {
		return fmt.Errorf("worker ages are required")
	}
	if p.RetireeAges.IsZero() {
		return fmt.Errorf("retiree ages are required")
	}
	if !p.WorkerAges.From.Valid() || !p.WorkerAges.To.Valid() || !p.RetireeAges.From.Valid() || !p.RetireeAges.To.Valid() {
		return fmt.Errorf("ages must be between 0 and 100")
	}
	if p.WorkerAges.Overlaps(p.RetireeAges) {
		return fmt.Errorf("worker ages %s overlap retiree ages %s", p.WorkerAges, p.RetireeAges)
	}
	if p.HorizonYear < 0 {
		return fmt.Errorf("horizon year cannot be negative")
	}
	return nil
}

func (ip *InputParser) validateSimulation(s *domain.SimulationSettings) error {
	if s.Start.IsZero() || s.End.IsZero() {
		return fmt.Errorf("start and end months are required")
	}
	if s.End.Before(s.Start) {
		return fmt.Errorf("end %s is before start %s", s.End, s.Start)
	}
	if s.StartingBalance.IsNegative() {
		return fmt.Errorf("starting balance cannot be negative")
	}
	return nil
}

// CreateExampleConfiguration creates an example configuration file
func (ip *InputParser) CreateExampleConfiguration() *domain.Configuration {
	config := DefaultConfiguration()
	config.Simulation.Name = "Social Security trust fund, 1990-2025"
	config.Population.HorizonYear = 2100
	config.Data.FundFile = "fund.csv"
	config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	config.Schedule.Cron = "0 6 * * 1"
	return config
}

// SaveConfiguration writes config as YAML.
func (ip *InputParser) SaveConfiguration(config *domain.Configuration, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filename, err)
	}
	return nil
}
