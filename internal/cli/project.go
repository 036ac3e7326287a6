package cli

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
)

// ProjectOptions holds flags for the project command.
type ProjectOptions struct {
	*RootOptions
	Out     string
	Through string
	Check   bool
}

// NewProjectCommand creates the project command.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Extend CPI and market levels beyond history",
		Long: `Extend the CPI series at the assumed inflation and the market price series at the
assumed return, month by month, through --through (default simulation.end).
--check prints descriptive statistics and data quality issues for all inputs instead.

Example:
  trustsim project -c trustsim.yaml --through 2100-12 -o levels.csv
  trustsim project -c trustsim.yaml --check`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output CSV path (default stdout)")
	cmd.Flags().StringVar(&opts.Through, "through", "", "last projected month, YYYY-MM")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "print input statistics and data quality issues")

	return cmd
}

func runProject(cmd *cobra.Command, opts *ProjectOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Check {
		return runDataCheck(cmd, cfg)
	}

	horizon := cfg.Simulation.End
	if opts.Through != "" {
		if horizon, err = dateutil.ParseMonth(opts.Through); err != nil {
			return WrapExitError(ExitCommandError, "invalid --through", err)
		}
	}

	hdm := calculation.NewHistoricalDataManager(cfg.Data)
	cpi, err := calculation.ReadSeriesCSV(filepath.Join(hdm.Settings.Dir, hdm.Settings.CPIFile), "cpi")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load CPI data", err)
	}
	market, err := calculation.ReadSeriesCSV(filepath.Join(hdm.Settings.Dir, hdm.Settings.MarketFile), "price")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load market data", err)
	}

	cpi, market, err = newEngine(logger).ProjectLevels(cfg, &calculation.Inputs{CPI: cpi, Market: market}, horizon)
	if err != nil {
		return WrapExitError(ExitFailure, "projection failed", err)
	}

	var buf bytes.Buffer
	if err := writeLevels(&buf, cpi, market); err != nil {
		return WrapExitError(ExitCommandError, "failed to encode levels", err)
	}
	return writeOutput(cmd, opts.Out, buf.Bytes())
}

// writeLevels writes date,cpi,market over the union of months; a series that does not
// cover a month leaves its cell empty.
func writeLevels(buf *bytes.Buffer, cpi, market domain.Series) error {
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"date", "cpi", "market"}); err != nil {
		return err
	}
	first, last, ok := span(cpi, market)
	if ok {
		for _, m := range dateutil.Range(first, last) {
			row := []string{m.String(), "", ""}
			if v, ok := cpi.Lookup(m); ok {
				row[1] = v.String()
			}
			if v, ok := market.Lookup(m); ok {
				row[2] = v.String()
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func span(series ...domain.Series) (first, last dateutil.Month, ok bool) {
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		if !ok || s[0].Month.Before(first) {
			first = s[0].Month
		}
		if !ok || s[len(s)-1].Month.After(last) {
			last = s[len(s)-1].Month
		}
		ok = true
	}
	return first, last, ok
}

func runDataCheck(cmd *cobra.Command, cfg *domain.Configuration) error {
	hdm := calculation.NewHistoricalDataManager(cfg.Data)
	if err := hdm.LoadAllData(); err != nil {
		return WrapExitError(ExitCommandError, "failed to load input data", err)
	}
	stats, err := hdm.Statistics()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute statistics", err)
	}
	issues, err := hdm.ValidateDataQuality()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to check data quality", err)
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tCOUNT\tFIRST\tLAST\tMEAN\tSTDDEV\tMIN\tMAX\tMISSING")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			s.Name, s.Count, s.First, s.Last,
			s.Mean.StringFixed(4), s.StdDev.StringFixed(4), s.Min.String(), s.Max.String(),
			len(s.MissingMonths))
	}
	tw.Flush()
	fmt.Fprintf(out, "population years: %d\n", len(hdm.Buckets.Years()))

	if len(issues) == 0 {
		fmt.Fprintln(out, "no data quality issues")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(out, "issue: %s\n", issue)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d data quality issue(s)", len(issues)))
}
