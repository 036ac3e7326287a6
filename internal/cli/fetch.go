package cli

import (
	"bytes"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/collector"
)

// FetchOptions holds flags for the fetch-population command.
type FetchOptions struct {
	*RootOptions
	From    int
	To      int
	Out     string
	BaseURL string
}

// NewFetchPopulationCommand creates the fetch-population command.
func NewFetchPopulationCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch-population",
		Short: "Download yearly age pyramids into the population CSV",
		Long: `Download one age pyramid per year (columns Age, M, F) from data.pyramid_base_url,
sum both sexes per bucket and write the wide population CSV read by simulate and expand.

Example:
  trustsim fetch-population -c trustsim.yaml --from 1950 --to 2100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetchPopulation(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.From, "from", 1950, "first year")
	cmd.Flags().IntVar(&opts.To, "to", 2100, "last year")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output CSV path (default the configured population file, - for stdout)")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "override data.pyramid_base_url")

	return cmd
}

func runFetchPopulation(cmd *cobra.Command, opts *FetchOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	years := collector.Years(opts.From, opts.To)
	if len(years) == 0 {
		return NewExitError(ExitCommandError, "--to must not be before --from")
	}

	base := cfg.Data.PyramidBaseURL
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	var source collector.PopulationSource = collector.NewPyramidFetcher(base, logger)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	logger.Info("fetching population pyramids", "from", opts.From, "to", opts.To)
	buckets, err := source.Fetch(ctx, years)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fetch population", err)
	}

	var buf bytes.Buffer
	if err := calculation.WriteBucketsCSV(&buf, buckets); err != nil {
		return WrapExitError(ExitCommandError, "failed to encode population", err)
	}

	out := opts.Out
	if out == "" {
		hdm := calculation.NewHistoricalDataManager(cfg.Data)
		out = filepath.Join(hdm.Settings.Dir, hdm.Settings.PopulationFile)
	}
	if err := writeOutput(cmd, out, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("population written", "path", out, "years", len(years))
	return nil
}
