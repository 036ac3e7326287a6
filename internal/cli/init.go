package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Force bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an example configuration file",
		Long: `Write an example YAML configuration with the default assumptions.

Example:
  trustsim init
  trustsim init scenarios/baseline.yaml --force`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "trustsim.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			return runInit(cmd, opts, path)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions, path string) error {
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}
	parser := config.NewInputParser()
	if err := parser.SaveConfiguration(parser.CreateExampleConfiguration(), path); err != nil {
		return WrapExitError(ExitCommandError, "failed to write configuration", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
