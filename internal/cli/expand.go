package cli

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/domain"
)

// ExpandOptions holds flags for the expand command.
type ExpandOptions struct {
	*RootOptions
	Out     string
	Horizon int
	Long    bool
}

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand yearly age buckets into a monthly single-year-of-age table",
		Long: `Expand the configured population file (yearly 5-year buckets) into one row per month
with one column per age 0..99 and 100+. --long writes (date, age, count) rows instead.

Example:
  trustsim expand -c trustsim.yaml -o population_monthly.csv
  trustsim expand -c trustsim.yaml --horizon 2050 --long`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output CSV path (default stdout)")
	cmd.Flags().IntVar(&opts.Horizon, "horizon", 0, "last December of the calendar (default population.horizon_year)")
	cmd.Flags().BoolVar(&opts.Long, "long", false, "write the long (date, age, count) form")

	return cmd
}

func runExpand(cmd *cobra.Command, opts *ExpandOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Horizon != 0 {
		cfg.Population.HorizonYear = opts.Horizon
	}

	hdm := calculation.NewHistoricalDataManager(cfg.Data)
	buckets, err := calculation.ReadBucketsCSV(filepath.Join(hdm.Settings.Dir, hdm.Settings.PopulationFile))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load population data", err)
	}

	table, err := newEngine(logger).ExpandPopulation(cfg, buckets)
	if err != nil {
		return WrapExitError(ExitFailure, "expansion failed", err)
	}
	logger.Info("population expanded", "months", len(table.Rows), "anomalies", len(table.Anomalies))

	var buf bytes.Buffer
	if opts.Long {
		err = writeLongPopulation(&buf, table)
	} else {
		err = calculation.WritePopulationCSV(&buf, table)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode population", err)
	}
	return writeOutput(cmd, opts.Out, buf.Bytes())
}

func writeLongPopulation(buf *bytes.Buffer, table *domain.PopulationTable) error {
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"date", "age", "count"}); err != nil {
		return err
	}
	for _, r := range table.Long() {
		if err := w.Write([]string{r.Month.String(), r.Age.String(), strconv.FormatInt(r.Count, 10)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
