// Package metrics exposes Prometheus collectors for the collector service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of search page fetches dispatched.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_requests_total",
		Help: "The total number of search result page fetches attempted.",
	})
	// TotalRequestErrors tracks fetches that failed at the transport level.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_request_errors_total",
		Help: "The total number of fetches that failed with a transport error.",
	})
	// TotalRateLimitHits tracks 429/503 responses seen by the year fetcher.
	TotalRateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_rate_limit_hits_total",
		Help: "The total number of rate-limit or server-busy responses.",
	})
	// TotalBlockedPages tracks responses identified as block/CAPTCHA pages.
	TotalBlockedPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_blocked_pages_total",
		Help: "The total number of responses flagged as automated-traffic checks.",
	})
	// TotalParseFailures tracks pages where no result count could be extracted.
	TotalParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_parse_failures_total",
		Help: "The total number of result pages that could not be parsed.",
	})
	// TotalYearsSucceeded tracks years that yielded a count.
	TotalYearsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_years_succeeded_total",
		Help: "The total number of years for which a count was collected.",
	})
	// TotalYearsFailed tracks years recorded as zero after exhausted retries.
	TotalYearsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_years_failed_total",
		Help: "The total number of years recorded as zero after all attempts failed.",
	})
)
