// Package cmd defines and implements the CLI commands for the scholar-trend
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stromning/scholar-trend/internal/config"
	"github.com/stromning/scholar-trend/internal/id/uuid"
	"github.com/stromning/scholar-trend/internal/logging"
)

var cfgFile string

// runtimeKeyType is the key for storing the Runtime in the context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// Runtime bundles the long-lived services commands depend on.
type Runtime struct {
	Cfg    config.Config
	Logger *zap.Logger
	RunID  string
}

// newRuntime is the runtime factory. It's a variable so tests can replace it
// with a stub factory.
var newRuntime = func(cfgPath string) (*Runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	runID, err := uuid.NewGenerator().NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	return &Runtime{
		Cfg:    cfg,
		Logger: logger.With(zap.String("run_id", runID)),
		RunID:  runID,
	}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scholar-trend",
		Short: "Collects per-year Google Scholar result counts and charts the trend.",
		Long: `scholar-trend queries Google Scholar once per publication year for a fixed
search term, extracts the approximate result count from each results page,
and writes the series as a CSV file plus an annotated bar chart image.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		// This hook runs BEFORE the subcommand's RunE and injects the
		// runtime into the command context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), runtimeKey, rt)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook flushes buffered log output after the command finishes.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*Runtime); ok && rt != nil {
				_ = rt.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults + SCHOLAR_* env vars)")

	cmd.AddCommand(newCollectCmd())

	return cmd
}

// resolveRuntime fetches the Runtime injected by the root command.
func resolveRuntime(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*Runtime)
	if !ok || rt == nil {
		return nil, errors.New("application services not initialized")
	}
	return rt, nil
}

// Execute is the main entry point. A keyboard interrupt aborts the run with
// exit code 1 after printing an interruption notice; no output files are
// produced for an interrupted run.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nInterrupted by user.")
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
