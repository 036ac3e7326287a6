package cli

import (
	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve saved runs over a read-only HTTP API",
		Long: `Serve the run history database over HTTP until interrupted.

Routes:
  GET /healthz
  GET /api/runs?limit=N
  GET /api/runs/{id}
  GET /api/runs/{id}/fund.csv
  GET /api/runs/{id}/report.md

Example:
  trustsim serve -c trustsim.yaml --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	if addr == "" {
		return NewExitError(ExitCommandError, "no listen address: set server.addr or --addr")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	router := api.NewRouter(api.NewHandler(st, logger), cfg.Server.AllowedOrigins)
	if err := api.ListenAndServe(ctx, addr, router, logger); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}
