package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/output"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // formatter name or alias; empty means the command's default
	Config  string // YAML configuration file; empty means defaults plus TRUSTSIM_* overrides
}

// NewRootCommand creates the root command for the trustsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trustsim",
		Short: "Trust fund solvency projector",
		Long: `trustsim projects the long-run solvency of a pension-style trust fund.

It expands yearly age-bucket populations into monthly single-year ages, extends CPI and
market levels at fixed growth rates, and simulates the fund balance, the distributions
owed to retirees and the per-worker contribution that repays any shortfall.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %s (aliases: %s)",
					opts.Format,
					strings.Join(ValidFormats(), ", "),
					strings.Join(output.AvailableFormatAliases(), ", ")))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "", "output format ("+strings.Join(ValidFormats(), "|")+")")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to YAML configuration")

	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewExpandCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewFetchPopulationCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// ValidFormats lists the accepted --format values besides aliases.
func ValidFormats() []string {
	return append(output.AvailableFormatterNames(), "all")
}

// isValidFormat checks if the format is empty, "all", a formatter name or an alias.
func isValidFormat(format string) bool {
	if format == "" || output.NormalizeFormatName(format) == "all" {
		return true
	}
	return output.GetFormatterByName(format) != nil
}
