package scholar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when no result count can be extracted from a
// results page. Callers treat it as a transient failure eligible for retry.
var ErrUnparseable = fmt.Errorf("could not parse results count")

// ErrBlocked wraps ErrUnparseable for pages that signal automated-traffic
// detection rather than genuine results. It is retried the same way, but
// callers may count it separately.
var ErrBlocked = fmt.Errorf("%w: automated traffic check", ErrUnparseable)

// blockMarkers are case-insensitive substrings that identify a block or
// CAPTCHA page served with an HTTP 200 status.
var blockMarkers = []string{"unusual traffic", "recaptcha"}

// noResultsMarker is the phrase Scholar renders when a query matches nothing.
const noResultsMarker = "did not match any articles"

// countPatterns capture a localized, thousands-separated number followed by a
// results-count phrase. The page's exact phrasing varies between snapshots
// and locales, so the patterns are tried in priority order and the first
// match wins.
var countPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)About\s+([\d\s.,\x{00A0}]+)\s+results`),
	regexp.MustCompile(`(?i)of about\s+([\d\s.,\x{00A0}]+)\s+results`),
	regexp.MustCompile(`(?im)^\s*([\d\s.,\x{00A0}]+)\s+results`),
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// ParseResultsCount extracts the approximate result count from raw HTML.
// It returns 0 with a nil error for an explicit empty result page, and
// ErrUnparseable (or ErrBlocked) when the page yields no usable count.
func ParseResultsCount(html string) (int, error) {
	lower := strings.ToLower(html)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return 0, ErrBlocked
		}
	}
	if strings.Contains(lower, noResultsMarker) {
		return 0, nil
	}
	for _, pattern := range countPatterns {
		match := pattern.FindStringSubmatch(html)
		if match == nil {
			continue
		}
		digits := nonDigits.ReplaceAllString(match[1], "")
		if digits == "" {
			return 0, ErrUnparseable
		}
		count, err := strconv.Atoi(digits)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseable, digits)
		}
		return count, nil
	}
	return 0, ErrUnparseable
}
