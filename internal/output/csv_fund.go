package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rpgo/trust-solvency/internal/domain"
)

// FundColumns is the header of the fund model CSV.
var FundColumns = []string{
	"date", "return", "workers", "retirees", "cpi", "distribution", "target", "bau",
	"real", "principal", "fund_ratio", "principal_ratio", "target_fund_ratio", "real_fund_ratio",
}

// FundCSVExporter writes one row per simulated month.
type FundCSVExporter struct{}

func (c FundCSVExporter) Name() string { return "csv" }

func (c FundCSVExporter) Format(result *domain.SimulationResult) ([]byte, error) {
	if result == nil || result.Fund == nil {
		return nil, fmt.Errorf("csv: result has no fund model")
	}
	buf := &bytes.Buffer{}
	if err := WriteFundCSV(buf, result.Fund); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFundCSV renders a fund model. Unset balances and non-finite ratios become empty cells.
func WriteFundCSV(out io.Writer, model *domain.FundModel) error {
	w := csv.NewWriter(out)
	if err := w.Write(FundColumns); err != nil {
		return err
	}
	for _, r := range model.Rows {
		row := []string{
			r.Month.String(),
			r.Return.String(),
			intToString(r.Workers),
			intToString(r.Retirees),
			r.CPI.String(),
			r.Distribution.StringFixed(2),
			r.Target.StringFixed(2),
			r.BAU.StringFixed(2),
			formatOptional(r.Real),
			formatOptional(r.Principal),
			formatRatio(r.FundRatio),
			formatRatio(r.PrincipalRatio),
			formatRatio(r.TargetFundRatio),
			formatRatio(r.RealFundRatio),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
