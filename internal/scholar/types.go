// Package scholar implements per-year result-count collection against the
// Google Scholar results page.
package scholar

import (
	"context"
	"time"
)

// YearCount is one point of the collected series. It is immutable once
// produced and only lives for the duration of a run.
type YearCount struct {
	Year  int
	Count int
}

// Page is the raw result of one HTTP fetch of a results page.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a single results page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Pauser abstracts how the collector backs off between requests so tests can
// run without real sleeps.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}
