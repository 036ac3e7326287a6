package output

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
)

// MarkdownFormatter renders a summary, the assumptions and a yearly table.
type MarkdownFormatter struct{}

func (m MarkdownFormatter) Name() string { return "markdown" }

func (m MarkdownFormatter) Format(result *domain.SimulationResult) ([]byte, error) {
	if result == nil || result.Fund == nil {
		return nil, fmt.Errorf("markdown: result has no fund model")
	}
	var buf bytes.Buffer
	s := result.Summary

	fmt.Fprintf(&buf, "# Trust fund projection: %s\n\n", result.Name)
	fmt.Fprintf(&buf, "Run `%s` created %s.\n\n", result.RunID, result.CreatedAt.UTC().Format(time.RFC3339))

	fmt.Fprintln(&buf, "## Summary")
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "| Metric | Value |")
	fmt.Fprintln(&buf, "|---|---|")
	fmt.Fprintf(&buf, "| Window | %s to %s (%s months) |\n", s.Start, s.End, FormatCount(int64(s.Months)))
	fmt.Fprintf(&buf, "| Starting balance | %s |\n", FormatBalance(s.StartingBalance))
	fmt.Fprintf(&buf, "| Ending balance | %s |\n", FormatBalance(s.EndingBalance))
	fmt.Fprintf(&buf, "| Ending target | %s |\n", FormatBalance(s.EndingTarget))
	fmt.Fprintf(&buf, "| First fund ratio | %s |\n", FormatPercentage(s.FirstFundRatio))
	fmt.Fprintf(&buf, "| Final fund ratio | %s |\n", FormatPercentage(s.FinalFundRatio))
	fmt.Fprintf(&buf, "| Minimum fund ratio | %s (%s) |\n", FormatPercentage(s.MinFundRatio), s.MinFundRatioMonth)
	fmt.Fprintf(&buf, "| Peak principal ratio | %s (%s) |\n", FormatPercentage(s.PeakPrincipalRatio), s.PeakPrincipalMonth)
	fmt.Fprintf(&buf, "| Months below target | %s |\n", FormatCount(int64(s.MonthsBelowTarget)))
	fmt.Fprintf(&buf, "| Target withdraw rate | %s |\n", FormatPercentage(domain.Ratio(s.TargetWithdrawRate.InexactFloat64())))
	fmt.Fprintf(&buf, "| Population anomalies | %s |\n", FormatCount(int64(s.PopulationAnomalies)))
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, AnalyzeSummary(s).Message)
	fmt.Fprintln(&buf)

	fmt.Fprintln(&buf, "## Assumptions")
	fmt.Fprintln(&buf)
	for _, a := range AssumptionsFor(result) {
		fmt.Fprintf(&buf, "- %s\n", a)
	}
	fmt.Fprintln(&buf)

	fmt.Fprintln(&buf, "## Yearly snapshot")
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "| Year | Workers | Retirees | Target | Real | Principal | Fund ratio | Principal ratio |")
	fmt.Fprintln(&buf, "|---:|---:|---:|---:|---:|---:|---:|---:|")
	for _, y := range YearlySnapshots(result.Fund) {
		principal := "n/a"
		if y.Principal != nil {
			principal = FormatCurrency(*y.Principal)
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s | %s | %s |\n",
			y.Year,
			FormatCount(y.Workers),
			FormatCount(y.Retirees),
			FormatBalance(y.Target),
			FormatOptionalBalance(y.Real),
			principal,
			FormatPercentage(y.FundRatio),
			FormatPercentage(y.PrincipalRatio),
		)
	}
	return buf.Bytes(), nil
}
