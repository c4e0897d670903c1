package scholar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(Page), args.Error(1)
}

// recordingPauser records requested delays instead of sleeping.
type recordingPauser struct {
	delays []time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, delay time.Duration) {
	p.delays = append(p.delays, delay)
}

func newTestQuery() Query {
	return Query{
		BaseURL:       "https://scholar.example.com/scholar",
		Term:          "OpenFOAM",
		Language:      "en",
		DocTypeFilter: "0,5",
	}
}

func TestYearFetcher_FetchYear(t *testing.T) {
	zeroJitter := func() float64 { return 0 }

	t.Run("success on first attempt, no sleep", func(t *testing.T) {
		// Arrange
		fetcher := new(MockFetcher)
		pauser := &recordingPauser{}
		yf := NewYearFetcher(fetcher, newTestQuery(), 3, pauser, zeroJitter, nil)

		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{
			StatusCode: 200,
			Body:       []byte("About 12,345 results"),
		}, nil).Once()

		// Act
		count, err := yf.FetchYear(context.Background(), 2010)

		// Assert
		require.NoError(t, err)
		require.Equal(t, 12345, count)
		require.Empty(t, pauser.delays, "no backoff should occur on immediate success")
		fetcher.AssertExpectations(t)
	})

	t.Run("explicit zero-result page is a success", func(t *testing.T) {
		fetcher := new(MockFetcher)
		pauser := &recordingPauser{}
		yf := NewYearFetcher(fetcher, newTestQuery(), 3, pauser, zeroJitter, nil)

		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{
			StatusCode: 200,
			Body:       []byte("Your search did not match any articles."),
		}, nil).Once()

		count, err := yf.FetchYear(context.Background(), 2005)
		require.NoError(t, err)
		require.Zero(t, count)
		require.Empty(t, pauser.delays)
	})

	t.Run("rate limited then success uses throttle backoff", func(t *testing.T) {
		fetcher := new(MockFetcher)
		pauser := &recordingPauser{}
		yf := NewYearFetcher(fetcher, newTestQuery(), 3, pauser, zeroJitter, nil)

		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{
			StatusCode: 429,
			Body:       []byte("slow down"),
		}, nil).Once()
		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{
			StatusCode: 200,
			Body:       []byte("About 7 results"),
		}, nil).Once()

		count, err := yf.FetchYear(context.Background(), 2012)
		require.NoError(t, err)
		require.Equal(t, 7, count)
		require.Len(t, pauser.delays, 1)
		require.Equal(t, 2*time.Second, pauser.delays[0], "429 backoff is 2*attempt seconds plus jitter")
	})

	t.Run("block page retried with parse backoff", func(t *testing.T) {
		fetcher := new(MockFetcher)
		pauser := &recordingPauser{}
		yf := NewYearFetcher(fetcher, newTestQuery(), 3, pauser, zeroJitter, nil)

		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{
			StatusCode: 200,
			Body:       []byte("unusual traffic from your network"),
		}, nil).Once()
		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{
			StatusCode: 200,
			Body:       []byte("About 3 results"),
		}, nil).Once()

		count, err := yf.FetchYear(context.Background(), 2015)
		require.NoError(t, err)
		require.Equal(t, 3, count)
		require.Len(t, pauser.delays, 1)
		require.Equal(t, 1500*time.Millisecond, pauser.delays[0], "parse backoff is 1.5*attempt seconds plus jitter")
	})

	t.Run("exhausted attempts returns last error", func(t *testing.T) {
		fetcher := new(MockFetcher)
		pauser := &recordingPauser{}
		yf := NewYearFetcher(fetcher, newTestQuery(), 3, pauser, zeroJitter, nil)

		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{}, errors.New("connection reset")).Times(3)

		count, err := yf.FetchYear(context.Background(), 2020)
		require.Error(t, err)
		require.Contains(t, err.Error(), "connection reset")
		require.Zero(t, count)
		require.Len(t, pauser.delays, 3)
		fetcher.AssertExpectations(t)
	})

	t.Run("exhausted 503 responses report the status", func(t *testing.T) {
		fetcher := new(MockFetcher)
		pauser := &recordingPauser{}
		yf := NewYearFetcher(fetcher, newTestQuery(), 2, pauser, zeroJitter, nil)

		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(Page{
			StatusCode: 503,
		}, nil).Times(2)

		_, err := yf.FetchYear(context.Background(), 2021)
		require.EqualError(t, err, "HTTP 503")
	})

	t.Run("canceled context stops immediately", func(t *testing.T) {
		fetcher := new(MockFetcher)
		yf := NewYearFetcher(fetcher, newTestQuery(), 3, &recordingPauser{}, zeroJitter, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := yf.FetchYear(ctx, 2019)
		require.ErrorIs(t, err, context.Canceled)
		fetcher.AssertNotCalled(t, "Fetch")
	})
}
