package collector

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stromning/scholar-trend/internal/scholar"
	"github.com/stromning/scholar-trend/internal/sink"
)

// MockYearFetcher is a mock implementation of the YearFetcher interface.
type MockYearFetcher struct {
	mock.Mock
}

func (m *MockYearFetcher) FetchYear(ctx context.Context, year int) (int, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Error(1)
}

// MockChartRenderer is a mock implementation of the ChartRenderer interface.
type MockChartRenderer struct {
	mock.Mock
}

func (m *MockChartRenderer) Save(series []scholar.YearCount, title, footer string) (string, error) {
	args := m.Called(series, title, footer)
	return args.String(0), args.Error(1)
}

// fixedClock always reports the same instant.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// recordingPauser records requested delays instead of sleeping.
type recordingPauser struct {
	delays []time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, delay time.Duration) {
	p.delays = append(p.delays, delay)
}

func testConfig() Config {
	return Config{
		Term:                 "OpenFOAM",
		StartYear:            2005,
		PolitenessMinSeconds: 2.0,
		PolitenessMaxSeconds: 4.0,
		Attribution:          "Plot provided by Johan Roenby, STROMNING",
	}
}

func TestCollector_Run(t *testing.T) {
	clock := fixedClock{now: time.Date(2006, time.July, 1, 12, 30, 0, 0, time.UTC)}
	zeroJitter := func() float64 { return 0 }

	t.Run("failed year recorded as zero in csv", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		csvSink, err := sink.NewCSVSink(dir, "openfoam_scholar_counts", nil)
		require.NoError(t, err)

		fetcher := new(MockYearFetcher)
		fetcher.On("FetchYear", mock.Anything, 2005).Return(100, nil)
		fetcher.On("FetchYear", mock.Anything, 2006).Return(0, errors.New("blocked"))

		chart := new(MockChartRenderer)
		chart.On("Save", mock.Anything, mock.Anything, mock.Anything).Return("openfoam_trend.png", nil)

		pauser := &recordingPauser{}
		out := &bytes.Buffer{}
		c := New(testConfig(), fetcher, csvSink, chart, clock, pauser, zeroJitter, out, nil)

		// Act
		err = c.Run(context.Background())

		// Assert
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(dir, "openfoam_scholar_counts_2005_2006.csv"))
		require.NoError(t, err)
		require.Equal(t, "year,approx_results\n2005,100\n2006,0\n", string(data))

		require.Contains(t, out.String(), "2005: 100 results")
		require.Contains(t, out.String(), "2006: ERROR - blocked")
		require.Contains(t, out.String(), "Saved CSV ->")
		require.Contains(t, out.String(), "Saved bar plot -> openfoam_trend.png")
		fetcher.AssertExpectations(t)
		chart.AssertExpectations(t)
	})

	t.Run("politeness delay before every fetch except the first", func(t *testing.T) {
		fetcher := new(MockYearFetcher)
		fetcher.On("FetchYear", mock.Anything, mock.Anything).Return(1, nil)

		chart := new(MockChartRenderer)
		chart.On("Save", mock.Anything, mock.Anything, mock.Anything).Return("trend.png", nil)

		csvSink, err := sink.NewCSVSink(t.TempDir(), "counts", nil)
		require.NoError(t, err)

		pauser := &recordingPauser{}
		c := New(testConfig(), fetcher, csvSink, chart, clock, pauser, zeroJitter, nil, nil)

		require.NoError(t, c.Run(context.Background()))
		// Two years (2005, 2006) -> exactly one politeness pause.
		require.Len(t, pauser.delays, 1)
		require.Equal(t, 2*time.Second, pauser.delays[0], "zero jitter pins the delay at the window minimum")
	})

	t.Run("chart gets title and timestamped footer", func(t *testing.T) {
		fetcher := new(MockYearFetcher)
		fetcher.On("FetchYear", mock.Anything, mock.Anything).Return(5, nil)

		csvSink, err := sink.NewCSVSink(t.TempDir(), "counts", nil)
		require.NoError(t, err)

		chart := new(MockChartRenderer)
		chart.On("Save",
			mock.Anything,
			`Google Scholar "OpenFOAM" approximate results by year (2005-2006)`,
			"Last updated: 2006-07-01 12:30 UTC\nPlot provided by Johan Roenby, STROMNING",
		).Return("trend.png", nil)

		c := New(testConfig(), fetcher, csvSink, chart, clock, &recordingPauser{}, zeroJitter, nil, nil)
		require.NoError(t, c.Run(context.Background()))
		chart.AssertExpectations(t)
	})

	t.Run("interrupt produces no output files", func(t *testing.T) {
		dir := t.TempDir()
		csvSink, err := sink.NewCSVSink(dir, "counts", nil)
		require.NoError(t, err)

		chart := new(MockChartRenderer)

		fetcher := new(MockYearFetcher)
		ctx, cancel := context.WithCancel(context.Background())
		fetcher.On("FetchYear", mock.Anything, 2005).Run(func(mock.Arguments) {
			cancel()
		}).Return(0, context.Canceled)

		c := New(testConfig(), fetcher, csvSink, chart, clock, &recordingPauser{}, zeroJitter, nil, nil)

		err = c.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Empty(t, entries, "no CSV should be written for an interrupted run")
		chart.AssertNotCalled(t, "Save")
	})

	t.Run("end year before start year fails", func(t *testing.T) {
		early := fixedClock{now: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)}
		csvSink, err := sink.NewCSVSink(t.TempDir(), "counts", nil)
		require.NoError(t, err)

		c := New(testConfig(), new(MockYearFetcher), csvSink, new(MockChartRenderer), early, &recordingPauser{}, zeroJitter, nil, nil)
		require.Error(t, c.Run(context.Background()))
	})
}
