// Package collector orchestrates a full collection run: one fetch per year,
// then CSV and chart generation.
package collector

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/stromning/scholar-trend/internal/metrics"
	"github.com/stromning/scholar-trend/internal/scholar"
)

// YearFetcher resolves the approximate result count for one year.
type YearFetcher interface {
	FetchYear(ctx context.Context, year int) (int, error)
}

// CSVWriter persists the collected series and returns the file path.
type CSVWriter interface {
	Save(series []scholar.YearCount) (string, error)
}

// ChartRenderer renders the collected series and returns the file path.
type ChartRenderer interface {
	Save(series []scholar.YearCount, title, footer string) (string, error)
}

// Config holds the settings for a collection run.
type Config struct {
	Term                 string
	StartYear            int
	PolitenessMinSeconds float64
	PolitenessMaxSeconds float64
	Attribution          string
}

// Collector runs the sequential year loop and writes the outputs. Requests
// are intentionally serialized, with a randomized politeness delay between
// years that is independent of the fetcher's own backoff.
type Collector struct {
	cfg     Config
	fetcher YearFetcher
	csv     CSVWriter
	chart   ChartRenderer
	clock   scholar.Clock
	pauser  scholar.Pauser
	jitter  func() float64
	out     io.Writer
	logger  *zap.Logger
}

// New constructs a Collector. pauser and jitter may be nil, in which case a
// real timer and math/rand are used.
func New(
	cfg Config,
	fetcher YearFetcher,
	csv CSVWriter,
	chart ChartRenderer,
	clock scholar.Clock,
	pauser scholar.Pauser,
	jitter func() float64,
	out io.Writer,
	logger *zap.Logger,
) *Collector {
	if pauser == nil {
		pauser = scholar.TimerPauser{}
	}
	if jitter == nil {
		jitter = rand.Float64
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		cfg:     cfg,
		fetcher: fetcher,
		csv:     csv,
		chart:   chart,
		clock:   clock,
		pauser:  pauser,
		jitter:  jitter,
		out:     out,
		logger:  logger,
	}
}

// Run collects one count per year from the configured start year through the
// current calendar year, then writes the CSV and the chart. The end year is
// recomputed on every run. An interrupted run returns the context error
// before any output file is written.
func (c *Collector) Run(ctx context.Context) error {
	startYear := c.cfg.StartYear
	endYear := c.clock.Now().Year()
	if endYear < startYear {
		return fmt.Errorf("current year %d precedes start year %d", endYear, startYear)
	}

	fmt.Fprintf(c.out, "Collecting Google Scholar counts for %q (%d-%d)...\n", c.cfg.Term, startYear, endYear)
	c.logger.Info("collection run started",
		zap.String("term", c.cfg.Term),
		zap.Int("start_year", startYear),
		zap.Int("end_year", endYear),
	)

	series := make([]scholar.YearCount, 0, endYear-startYear+1)
	for year := startYear; year <= endYear; year++ {
		if year > startYear {
			c.pauser.Pause(ctx, c.politenessDelay())
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		count, err := c.fetcher.FetchYear(ctx, year)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			metrics.TotalYearsFailed.Inc()
			c.logger.Warn("year fetch failed", zap.Int("year", year), zap.Error(err))
			fmt.Fprintf(c.out, "%d: ERROR - %v\n", year, err)
			// Failed years are recorded as zero, indistinguishable from a
			// genuine zero-result year in the CSV and chart.
			count = 0
		} else {
			metrics.TotalYearsSucceeded.Inc()
			fmt.Fprintf(c.out, "%d: %d results\n", year, count)
		}
		series = append(series, scholar.YearCount{Year: year, Count: count})
	}

	csvPath, err := c.csv.Save(series)
	if err != nil {
		return fmt.Errorf("save csv: %w", err)
	}
	fmt.Fprintf(c.out, "Saved CSV -> %s\n", csvPath)

	title := fmt.Sprintf("Google Scholar %q approximate results by year (%d-%d)", c.cfg.Term, startYear, endYear)
	footer := fmt.Sprintf("Last updated: %s\n%s",
		c.clock.Now().UTC().Format("2006-01-02 15:04 UTC"),
		c.cfg.Attribution,
	)
	chartPath, err := c.chart.Save(series, title, footer)
	if err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	fmt.Fprintf(c.out, "Saved bar plot -> %s\n", chartPath)

	c.logger.Info("collection run finished",
		zap.String("csv", csvPath),
		zap.String("chart", chartPath),
		zap.Int("years", len(series)),
	)
	return nil
}

// politenessDelay draws a uniform delay from the configured window.
func (c *Collector) politenessDelay() time.Duration {
	span := c.cfg.PolitenessMaxSeconds - c.cfg.PolitenessMinSeconds
	seconds := c.cfg.PolitenessMinSeconds + span*c.jitter()
	return time.Duration(seconds * float64(time.Second))
}
