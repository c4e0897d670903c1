package scholar

import (
	"fmt"
	"net/url"
	"strconv"
)

// Query holds the fixed parts of the search request. Per-year URLs are
// derived from it by adding the year-range filters.
type Query struct {
	BaseURL       string
	Term          string
	Language      string
	DocTypeFilter string
}

// URLForYear builds the search URL restricted to a single publication year
// via the as_ylo/as_yhi range filters.
func (q Query) URLForYear(year int) (string, error) {
	u, err := url.Parse(q.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	params := url.Values{}
	params.Set("as_q", q.Term)
	params.Set("hl", q.Language)
	params.Set("as_sdt", q.DocTypeFilter)
	params.Set("as_ylo", strconv.Itoa(year))
	params.Set("as_yhi", strconv.Itoa(year))
	u.RawQuery = params.Encode()
	return u.String(), nil
}
