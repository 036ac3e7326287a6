package output

import "github.com/rpgo/trust-solvency/internal/domain"

// DefaultAssumptions lists the modeling conventions rendered in reports.
var DefaultAssumptions = []string{
	"Population ages are expanded from 5-year buckets; ages 100 and above form one group",
	"CPI and market levels are extended beyond history at constant monthly growth",
	"Shortfalls are repaid by workers over the repayment timeline, capped at the month's distributions",
}

// AssumptionsFor returns the run's own assumptions followed by the modeling conventions.
func AssumptionsFor(result *domain.SimulationResult) []string {
	out := append([]string(nil), result.Assumptions...)
	return append(out, DefaultAssumptions...)
}
