package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/output"
	"github.com/rpgo/trust-solvency/internal/store"
)

// RunsOptions holds flags for the runs subcommands.
type RunsOptions struct {
	*RootOptions
	Limit int
}

// NewRunsCommand creates the runs command group for the saved run history.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved simulation runs",
		Long: `List, show and delete runs saved with simulate --save or by watch.

Example:
  trustsim runs list -c trustsim.yaml --limit 5
  trustsim runs show 0192c3e4-... -f markdown`,
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List saved runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd, opts)
		},
	}
	list.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 for all)")

	show := &cobra.Command{
		Use:           "show <id>",
		Short:         "Print a saved run in the chosen format (default console)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, opts, args[0])
		},
	}

	del := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a saved run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsDelete(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func withStore(opts *RootOptions, fn func(*store.Store) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func runRunsList(cmd *cobra.Command, opts *RunsOptions) error {
	return withStore(opts.RootOptions, func(st *store.Store) error {
		runs, err := st.ListRuns(cmd.Context(), opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}

		if output.NormalizeFormatName(opts.Format) == "json" {
			data, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode runs", err)
			}
			return writeOutput(cmd, "", append(data, '\n'))
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCREATED\tWINDOW\tFINAL RATIO\tBELOW TARGET")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s..%s\t%s\t%d\n",
				r.ID, r.Name, r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Summary.Start, r.Summary.End,
				output.FormatPercentage(r.Summary.FinalFundRatio), r.Summary.MonthsBelowTarget)
		}
		return tw.Flush()
	})
}

func runRunsShow(cmd *cobra.Command, opts *RunsOptions, id string) error {
	format := opts.Format
	if format == "" {
		format = "console"
	}
	if output.NormalizeFormatName(format) == "all" {
		return NewExitError(ExitCommandError, "runs show prints a single format")
	}
	return withStore(opts.RootOptions, func(st *store.Store) error {
		result, err := st.LoadRun(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load run", err)
		}
		data, err := output.GetFormatterByName(format).Format(result)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to format output", err)
		}
		return writeOutput(cmd, "", data)
	})
}

func runRunsDelete(cmd *cobra.Command, opts *RunsOptions, id string) error {
	return withStore(opts.RootOptions, func(st *store.Store) error {
		err := st.DeleteRun(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to delete run", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		return nil
	})
}
