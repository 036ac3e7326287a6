package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/output"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Name   string
	OutDir string
	Save   bool

	// Clock and IDs override the engine defaults (for testing).
	Clock calculation.Clock
	IDs   calculation.IDGenerator
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the configured trust fund projection",
		Long: `Run the full pipeline for the configured scenario and print or write the result.

Without --out the result is printed in the chosen format (default console).
With --out every requested format is written to the directory as <name>_<timestamp>.<ext>;
--format all writes the fund CSV, the population CSV and the markdown report.

Example:
  trustsim simulate --config trustsim.yaml
  trustsim simulate -c trustsim.yaml --format csv > fund.csv
  trustsim simulate -c trustsim.yaml --format all --out reports --save`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "override the scenario name")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "write output files to this directory instead of stdout")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "save the run to the configured SQLite database")

	return cmd
}

func runSimulate(cmd *cobra.Command, opts *SimulateOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Name != "" {
		cfg.Simulation.Name = opts.Name
	}

	format := opts.Format
	if format == "" {
		format = "console"
	}
	if output.NormalizeFormatName(format) == "all" && opts.OutDir == "" {
		return NewExitError(ExitCommandError, "--format all requires --out")
	}

	in, err := loadInputs(cfg)
	if err != nil {
		return err
	}

	eng := newEngine(logger)
	if opts.Clock != nil {
		eng.Clock = opts.Clock
	}
	if opts.IDs != nil {
		eng.IDs = opts.IDs
	}

	logger.Info("running simulation", "name", cfg.Simulation.Name, "start", cfg.Simulation.Start, "end", cfg.Simulation.End)
	result, err := eng.RunScenario(cmd.Context(), cfg, in)
	if err != nil {
		return WrapExitError(ExitFailure, "simulation failed", err)
	}
	logger.Info("simulation complete",
		"run_id", result.RunID,
		"months", result.Summary.Months,
		"months_below_target", result.Summary.MonthsBelowTarget,
	)

	if opts.Save {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(cmd.Context(), result); err != nil {
			return WrapExitError(ExitCommandError, "failed to save run", err)
		}
		logger.Info("run saved", "run_id", result.RunID, "database", cfg.Storage.SQLitePath)
	}

	if opts.OutDir != "" {
		paths, err := output.GenerateReport(result, format, opts.OutDir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	}

	data, err := output.GetFormatterByName(format).Format(result)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to format output", err)
	}
	return writeOutput(cmd, "", data)
}
