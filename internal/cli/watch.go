package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/internal/scheduler"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Cron       string
	RunOnStart bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the scenario on a cron schedule and save every run",
		Long: `Re-run the configured scenario on a standard five-field cron schedule until
interrupted. Input files are reloaded on every tick and each run is saved to the
configured SQLite database. A tick is skipped while the previous run is still going.

Example:
  trustsim watch -c trustsim.yaml --cron "0 6 * * 1" --run-on-start`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Cron, "cron", "", "cron spec (default schedule.cron)")
	cmd.Flags().BoolVar(&opts.RunOnStart, "run-on-start", false, "run once immediately before waiting for the schedule")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	spec := cfg.Schedule.Cron
	if opts.Cron != "" {
		spec = opts.Cron
	}
	if spec == "" {
		return NewExitError(ExitCommandError, "no schedule: set schedule.cron or --cron")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	runner := func(ctx context.Context) (*domain.SimulationResult, error) {
		in, err := loadInputs(cfg)
		if err != nil {
			return nil, err
		}
		return newEngine(logger).RunScenario(ctx, cfg, in)
	}

	sched := scheduler.NewScheduler(ctx, runner, st, logger)
	if err := sched.Register(spec); err != nil {
		return WrapExitError(ExitCommandError, "invalid cron spec", err)
	}
	if opts.RunOnStart {
		if err := sched.RunNow(); err != nil {
			logger.Error("initial simulation failed", "error", err)
		}
	}

	sched.Start()
	<-ctx.Done()
	sched.Stop()

	status := sched.Status()
	logger.Info("watch finished", "runs", status.Runs, "failures", status.Failures)
	return nil
}
