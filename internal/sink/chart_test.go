package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stromning/scholar-trend/internal/scholar"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestChartSink_Save(t *testing.T) {
	dir := t.TempDir()
	s, err := NewChartSink(dir, "openfoam_trend.png", 200, nil)
	require.NoError(t, err)

	series := []scholar.YearCount{
		{Year: 2005, Count: 100},
		{Year: 2006, Count: 250},
		{Year: 2007, Count: 0},
	}

	path, err := s.Save(series,
		`Google Scholar "OpenFOAM" approximate results by year (2005-2007)`,
		"Last updated: 2026-01-02 15:04 UTC\nPlot provided by Johan Roenby, STROMNING",
	)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "openfoam_trend.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), len(pngMagic))
	require.Equal(t, pngMagic, data[:len(pngMagic)], "output should be a PNG")
}

func TestChartSink_SaveEmptySeries(t *testing.T) {
	s, err := NewChartSink(t.TempDir(), "trend.png", 200, nil)
	require.NoError(t, err)

	_, err = s.Save(nil, "title", "")
	require.Error(t, err)
}
