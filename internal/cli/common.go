package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/config"
	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/internal/store"
)

// newLogger writes text logs to w, at debug level with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(opts *RootOptions) (*domain.Configuration, error) {
	cfg, err := config.NewInputParser().Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

func loadInputs(cfg *domain.Configuration) (*calculation.Inputs, error) {
	hdm := calculation.NewHistoricalDataManager(cfg.Data)
	if err := hdm.LoadAllData(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load input data", err)
	}
	in, err := hdm.Inputs()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load input data", err)
	}
	return in, nil
}

func newEngine(logger *slog.Logger) *calculation.CalculationEngine {
	eng := calculation.NewCalculationEngine()
	eng.SetLogger(calculation.SlogLogger{L: logger})
	return eng
}

func openStore(cfg *domain.Configuration) (*store.Store, error) {
	path := cfg.Storage.SQLitePath
	if path == "" {
		return nil, NewExitError(ExitCommandError, "storage.sqlite_path is not configured")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// signalContext derives a context cancelled on SIGINT or SIGTERM.
// Uses the command's context when set so tests can cancel it.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// writeOutput writes data to path, or to the command's stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
