package output

import (
	"bytes"
	"fmt"

	"github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/domain"
)

// PopulationCSVExporter writes the expanded monthly single-year-of-age table.
type PopulationCSVExporter struct{}

func (p PopulationCSVExporter) Name() string { return "population-csv" }

func (p PopulationCSVExporter) Format(result *domain.SimulationResult) ([]byte, error) {
	if result == nil || result.Population == nil {
		return nil, fmt.Errorf("population-csv: result has no population table")
	}
	buf := &bytes.Buffer{}
	if err := calculation.WritePopulationCSV(buf, result.Population); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
