package sink

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/stromning/scholar-trend/internal/scholar"
)

// ChartSink renders the series as a bar chart PNG.
type ChartSink struct {
	root     string
	filename string
	dpi      int
	logger   *zap.Logger
}

// NewChartSink returns a sink that writes the chart to root/filename at the
// given DPI.
func NewChartSink(root, filename string, dpi int, logger *zap.Logger) (*ChartSink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir %s: %w", root, err)
	}
	if dpi <= 0 {
		dpi = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartSink{
		root:     root,
		filename: filename,
		dpi:      dpi,
		logger:   logger,
	}, nil
}

// Save renders the bar chart with the given title and a footer note placed
// in the top-left corner of the plotting area, and returns the file path.
func (s *ChartSink) Save(series []scholar.YearCount, title, footer string) (string, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("empty series")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Approximate results"

	values := make(plotter.Values, len(series))
	labels := make([]string, len(series))
	maxCount := 0
	for i, yc := range series {
		values[i] = float64(yc.Count)
		labels[i] = strconv.Itoa(yc.Year)
		if yc.Count > maxCount {
			maxCount = yc.Count
		}
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return "", fmt.Errorf("build bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 0x87, G: 0xCE, B: 0xEB, A: 0xFF}
	bars.LineStyle.Width = vg.Points(0.5)
	bars.LineStyle.Color = color.Black
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	grid := plotter.NewGrid()
	grid.Vertical.Width = 0
	grid.Horizontal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(grid)

	if footer != "" {
		notes, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: 0, Y: float64(maxCount) * 0.97}},
			Labels: []string{footer},
		})
		if err != nil {
			return "", fmt.Errorf("build footer label: %w", err)
		}
		p.Add(notes)
	}

	canvas := vgimg.NewWith(
		vgimg.UseWH(12*vg.Inch, 6*vg.Inch),
		vgimg.UseDPI(s.dpi),
	)
	p.Draw(draw.New(canvas))

	target := filepath.Join(s.root, s.filename)
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create chart %s: %w", target, err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: canvas}
	if _, err := png.WriteTo(f); err != nil {
		return "", fmt.Errorf("write chart %s: %w", target, err)
	}

	s.logger.Debug("chart saved", zap.String("path", target), zap.Int("dpi", s.dpi))
	return target, nil
}
