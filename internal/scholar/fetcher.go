package scholar

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stromning/scholar-trend/internal/metrics"
)

const defaultMaxAttempts = 3

// YearFetcher fetches the approximate result count for single years. It
// layers its own retry loop on top of the transport's status-code retries,
// because soft-block pages arrive with HTTP 200 and are only visible in the
// body content.
type YearFetcher struct {
	fetcher     Fetcher
	query       Query
	maxAttempts int
	pauser      Pauser
	jitter      func() float64
	logger      *zap.Logger
}

// NewYearFetcher constructs a YearFetcher. pauser and jitter may be nil, in
// which case a real timer and math/rand are used.
func NewYearFetcher(
	fetcher Fetcher,
	query Query,
	maxAttempts int,
	pauser Pauser,
	jitter func() float64,
	logger *zap.Logger,
) *YearFetcher {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if pauser == nil {
		pauser = TimerPauser{}
	}
	if jitter == nil {
		jitter = rand.Float64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YearFetcher{
		fetcher:     fetcher,
		query:       query,
		maxAttempts: maxAttempts,
		pauser:      pauser,
		jitter:      jitter,
		logger:      logger,
	}
}

// FetchYear returns the approximate result count for year, retrying up to
// maxAttempts times. A zero count from an explicit empty result page is a
// success. After exhausting attempts it returns the last error observed.
func (f *YearFetcher) FetchYear(ctx context.Context, year int) (int, error) {
	target, err := f.query.URLForYear(year)
	if err != nil {
		return 0, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		metrics.TotalRequests.Inc()
		page, err := f.fetcher.Fetch(ctx, target)
		if err != nil {
			metrics.TotalRequestErrors.Inc()
			lastErr = fmt.Errorf("request error: %w", err)
			f.logger.Debug("fetch attempt failed",
				zap.Int("year", year),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			f.pauser.Pause(ctx, f.retryBackoff(attempt))
			continue
		}

		if page.StatusCode == http.StatusTooManyRequests || page.StatusCode == http.StatusServiceUnavailable {
			metrics.TotalRateLimitHits.Inc()
			lastErr = fmt.Errorf("HTTP %d", page.StatusCode)
			f.logger.Debug("throttled by server",
				zap.Int("year", year),
				zap.Int("attempt", attempt),
				zap.Int("status", page.StatusCode),
			)
			f.pauser.Pause(ctx, f.throttleBackoff(attempt))
			continue
		}

		count, err := ParseResultsCount(string(page.Body))
		if err == nil {
			return count, nil
		}
		if errors.Is(err, ErrBlocked) {
			metrics.TotalBlockedPages.Inc()
		} else {
			metrics.TotalParseFailures.Inc()
		}
		lastErr = errors.New("could not parse results count (possible block or page variant)")
		f.logger.Debug("unparseable results page",
			zap.Int("year", year),
			zap.Int("attempt", attempt),
			zap.Int("status", page.StatusCode),
			zap.Error(err),
		)
		f.pauser.Pause(ctx, f.retryBackoff(attempt))
	}
	return 0, lastErr
}

// throttleBackoff is the delay after a 429/503 response: 2*attempt seconds
// plus up to one second of jitter.
func (f *YearFetcher) throttleBackoff(attempt int) time.Duration {
	return secondsToDuration(2*float64(attempt) + f.jitter())
}

// retryBackoff is the delay after a transport error or an unparseable page:
// 1.5*attempt seconds plus up to 0.6 seconds of jitter.
func (f *YearFetcher) retryBackoff(attempt int) time.Duration {
	return secondsToDuration(1.5*float64(attempt) + 0.6*f.jitter())
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
