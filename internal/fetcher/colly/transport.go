package collyfetcher

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"time"
)

const (
	defaultMaxRetries    = 5
	defaultBackoffFactor = 1.2
	maxRetryBackoff      = 30 * time.Second
)

// defaultRetryStatuses are the transient status codes retried by the
// transport layer.
var defaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryTransport retries GET requests on connection errors and on a fixed
// set of transient status codes, with exponential backoff. When the retry
// budget is exhausted the last response is returned as-is, never a synthetic
// error, so callers can inspect the final status themselves.
type RetryTransport struct {
	base          http.RoundTripper
	maxRetries    int
	backoffFactor float64
	retryStatuses map[int]struct{}

	// sleep is overridable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration)
}

// NewRetryTransport wraps base with the bounded retry policy. Zero values
// fall back to the defaults: 5 retries, factor 1.2, statuses
// {429, 500, 502, 503, 504}.
func NewRetryTransport(base http.RoundTripper, maxRetries int, backoffFactor float64, statuses []int) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if backoffFactor <= 0 {
		backoffFactor = defaultBackoffFactor
	}
	if len(statuses) == 0 {
		statuses = defaultRetryStatuses
	}
	set := make(map[int]struct{}, len(statuses))
	for _, code := range statuses {
		set[code] = struct{}{}
	}
	return &RetryTransport{
		base:          base,
		maxRetries:    maxRetries,
		backoffFactor: backoffFactor,
		retryStatuses: set,
		sleep:         sleepWithContext,
	}
}

// RoundTrip implements http.RoundTripper. Only GET requests are retried.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = t.base.RoundTrip(req)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, err
		}
		if !t.shouldRetry(resp, err) || attempt >= t.maxRetries {
			return resp, err
		}
		if resp != nil {
			// Drain and close so the pooled connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		t.sleep(req.Context(), t.backoff(attempt))
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
}

func (t *RetryTransport) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	_, retryable := t.retryStatuses[resp.StatusCode]
	return retryable
}

// backoff returns factor * 2^attempt seconds, capped.
func (t *RetryTransport) backoff(attempt int) time.Duration {
	delay := time.Duration(t.backoffFactor * math.Pow(2, float64(attempt)) * float64(time.Second))
	if delay > maxRetryBackoff {
		delay = maxRetryBackoff
	}
	return delay
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
