package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stromning/scholar-trend/internal/api"
	"github.com/stromning/scholar-trend/internal/clock/system"
	"github.com/stromning/scholar-trend/internal/collector"
	"github.com/stromning/scholar-trend/internal/config"
	collyfetcher "github.com/stromning/scholar-trend/internal/fetcher/colly"
	"github.com/stromning/scholar-trend/internal/scholar"
	"github.com/stromning/scholar-trend/internal/sink"
)

// newCollectCmd creates and configures the 'collect' subcommand, which runs
// one full collection pass over the year range.
func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Runs one collection pass and writes the CSV and chart",
		Long: `Fetches the approximate Google Scholar result count for every year in the
configured range, one request per year with politeness delays, then writes
the series as CSV and renders the bar chart image.`,

		RunE: runCollectCommand,
	}
	return cmd
}

func runCollectCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg := rt.Cfg
	logger := rt.Logger

	col, err := buildCollector(cfg, cmd, logger)
	if err != nil {
		return err
	}

	if cfg.Status.Enabled {
		statusSrv := api.New(cfg.Status.Port, logger)
		statusSrv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := statusSrv.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("failed to stop status server", zap.Error(serr))
			}
		}()
	}

	if err := col.Run(cmd.Context()); err != nil {
		return err
	}

	logger.Info("collect command finished")
	return nil
}

func buildCollector(cfg config.Config, cmd *cobra.Command, logger *zap.Logger) (*collector.Collector, error) {
	fetcher, err := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		Headers:       cfg.RequestHeaders(),
		Timeout:       cfg.RequestTimeout(),
		MaxRetries:    cfg.HTTP.MaxRetries,
		BackoffFactor: cfg.HTTP.BackoffFactor,
		RetryStatuses: cfg.HTTP.RetryStatuses,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	query := scholar.Query{
		BaseURL:       cfg.Search.BaseURL,
		Term:          cfg.Search.Term,
		Language:      cfg.Search.Language,
		DocTypeFilter: cfg.Search.DocTypeFilter,
	}
	yearFetcher := scholar.NewYearFetcher(fetcher, query, cfg.Fetch.MaxAttempts, nil, nil, logger)

	csvSink, err := sink.NewCSVSink(cfg.Output.Dir, cfg.Output.CSVPrefix, logger)
	if err != nil {
		return nil, fmt.Errorf("init csv sink: %w", err)
	}
	chartSink, err := sink.NewChartSink(cfg.Output.Dir, cfg.Output.ChartFile, cfg.Output.ChartDPI, logger)
	if err != nil {
		return nil, fmt.Errorf("init chart sink: %w", err)
	}

	col := collector.New(
		collector.Config{
			Term:                 cfg.Search.Term,
			StartYear:            cfg.Search.StartYear,
			PolitenessMinSeconds: cfg.Fetch.PolitenessMinSeconds,
			PolitenessMaxSeconds: cfg.Fetch.PolitenessMaxSeconds,
			Attribution:          cfg.Output.Attribution,
		},
		yearFetcher,
		csvSink,
		chartSink,
		system.New(),
		nil,
		nil,
		cmd.OutOrStdout(),
		logger,
	)
	return col, nil
}
