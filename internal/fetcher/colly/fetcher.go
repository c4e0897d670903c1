// Package collyfetcher implements scholar.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/stromning/scholar-trend/internal/scholar"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	Headers       map[string]string
	Timeout       time.Duration
	MaxRetries    int
	BackoffFactor float64
	RetryStatuses []int
}

// Fetcher fetches single result pages via a Colly collector backed by a
// pooled, retrying transport.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []colly.CollectorOption{}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	base := colly.NewCollector(opts...)
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	// Non-2xx pages still carry the signal we need (429/503 status, block
	// page bodies), so they must reach OnResponse instead of OnError.
	base.ParseHTTPErrorResponse = true

	transport := NewRetryTransport(
		newHTTPTransport(cfg.Timeout),
		cfg.MaxRetries,
		cfg.BackoffFactor,
		cfg.RetryStatuses,
	)
	base.WithTransport(transport)
	base.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: base,
		logger:        logger,
	}, nil
}

// ctxTransport binds a per-call context to every request passing through,
// so cancellation reaches both the in-flight request and the retry sleeps
// underneath, instead of waiting for the next loop-boundary check.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// Fetch retrieves a page via the configured Colly collector.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (scholar.Page, error) {
	collector := f.baseCollector.Clone()
	collector.WithTransport(ctxTransport{ctx: ctx, base: f.transport})

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range f.cfg.Headers {
			r.Headers.Set(key, value)
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		page := scholar.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}
		send(fetchResult{page: page})
	})

	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return scholar.Page{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return scholar.Page{}, err
		}
		if res.err != nil {
			return scholar.Page{}, res.err
		}
		f.logger.Debug("page fetched",
			zap.String("url", res.page.URL),
			zap.Int("status", res.page.StatusCode),
			zap.Int("bytes", len(res.page.Body)),
		)
		return res.page, nil
	default:
		return scholar.Page{}, errors.New("colly fetch produced no result")
	}
}

type fetchResult struct {
	page scholar.Page
	err  error
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
}
