// Package sink persists a collected series as CSV and as a bar chart image.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/stromning/scholar-trend/internal/scholar"
)

// CSVSink writes the year/count series under a root directory.
type CSVSink struct {
	root   string
	prefix string
	logger *zap.Logger
}

// NewCSVSink returns a sink rooted at root. The output filename embeds the
// first and last year of the series: <prefix>_<start>_<end>.csv.
func NewCSVSink(root, prefix string, logger *zap.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSink{
		root:   root,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Save writes the series as UTF-8 CSV (no BOM) with a year,approx_results
// header and returns the file path.
func (s *CSVSink) Save(series []scholar.YearCount) (string, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("empty series")
	}
	name := fmt.Sprintf("%s_%d_%d.csv", s.prefix, series[0].Year, series[len(series)-1].Year)
	target := filepath.Join(s.root, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create csv %s: %w", target, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"year", "approx_results"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, yc := range series {
		row := []string{strconv.Itoa(yc.Year), strconv.Itoa(yc.Count)}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row for %d: %w", yc.Year, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	s.logger.Debug("csv saved", zap.String("path", target), zap.Int("rows", len(series)))
	return target, nil
}
