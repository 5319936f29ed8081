package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	"surveystat/domain/dataset"
	"surveystat/internal/config"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Chart is a rendered PNG figure
type Chart struct {
	Title string
	PNG   []byte
}

// DataURI returns the chart as a base64 data URI
func (c *Chart) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG)
}

// Markdown returns an inline image reference
func (c *Chart) Markdown() string {
	return fmt.Sprintf("![%s](%s)", c.Title, c.DataURI())
}

// ChartRenderer draws report figures. A renderer that cannot draw returns a nil chart
// and no error.
type ChartRenderer interface {
	Enabled() bool
	Histogram(title string, values []float64) (*Chart, error)
	Scatter(title, xLabel, yLabel string, x, y []float64) (*Chart, error)
	Trend(title string, series []float64) (*Chart, error)
	Heatmap(title string, labels []string, matrix [][]float64) (*Chart, error)
}

// Capabilities records what the environment can render. Detected once at startup.
type Capabilities struct {
	Charts bool   `json:"charts"`
	Reason string `json:"reason,omitempty"`
}

// DetectCapabilities checks that a PNG chart can be drawn
func DetectCapabilities() (caps Capabilities) {
	defer func() {
		if r := recover(); r != nil {
			caps = Capabilities{Reason: fmt.Sprintf("chart rendering panicked: %v", r)}
		}
	}()

	trial := &pngRenderer{width: 2, height: 2, dpi: 72}
	if _, err := trial.Histogram("capability check", []float64{1, 2, 2, 3}); err != nil {
		return Capabilities{Reason: err.Error()}
	}
	return Capabilities{Charts: true}
}

// NewChartRenderer returns a PNG renderer when charts are available and a no-op
// renderer otherwise
func NewChartRenderer(caps Capabilities, cfg config.ChartConfig) ChartRenderer {
	if !caps.Charts {
		return noopRenderer{}
	}
	return &pngRenderer{width: cfg.Width, height: cfg.Height, dpi: cfg.DPI}
}

type noopRenderer struct{}

func (noopRenderer) Enabled() bool { return false }

func (noopRenderer) Histogram(string, []float64) (*Chart, error) { return nil, nil }

func (noopRenderer) Scatter(string, string, string, []float64, []float64) (*Chart, error) {
	return nil, nil
}

func (noopRenderer) Trend(string, []float64) (*Chart, error) { return nil, nil }

func (noopRenderer) Heatmap(string, []string, [][]float64) (*Chart, error) { return nil, nil }

type pngRenderer struct {
	width, height float64
	dpi           int
}

func (r *pngRenderer) Enabled() bool { return true }

func (r *pngRenderer) Histogram(title string, values []float64) (*Chart, error) {
	clean := dataset.DropMissing(values)
	if len(clean) == 0 {
		return nil, fmt.Errorf("histogram %q: no values", title)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Value"
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(plotter.Values(clean), sturgesBins(len(clean)))
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", title, err)
	}
	p.Add(h)
	return r.encode(p, title)
}

func (r *pngRenderer) Scatter(title, xLabel, yLabel string, x, y []float64) (*Chart, error) {
	var xs, ys []float64
	pts := make(plotter.XYs, 0, len(x))
	for i := 0; i < len(x) && i < len(y); i++ {
		if dataset.IsMissing(x[i]) || dataset.IsMissing(y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("scatter %q: need at least 2 complete pairs", title)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter %q: %w", title, err)
	}
	p.Add(s)

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if !math.IsNaN(beta) {
		fit := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
		fit.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(fit)
		p.Legend.Add("linear fit", fit)
	}
	return r.encode(p, title)
}

func (r *pngRenderer) Trend(title string, series []float64) (*Chart, error) {
	clean := dataset.DropMissing(series)
	if len(clean) < 2 {
		return nil, fmt.Errorf("trend %q: need at least 2 points", title)
	}
	pts := make(plotter.XYs, len(clean))
	for i, v := range clean {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Period"
	p.Y.Label.Text = "Value"

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("trend %q: %w", title, err)
	}
	p.Add(line, points)
	return r.encode(p, title)
}

func (r *pngRenderer) Heatmap(title string, labels []string, matrix [][]float64) (*Chart, error) {
	if len(labels) == 0 || len(matrix) != len(labels) {
		return nil, fmt.Errorf("heatmap %q: matrix does not match labels", title)
	}

	p := plot.New()
	p.Title.Text = title

	hm := plotter.NewHeatMap(correlationGrid(matrix), palette.Heat(12, 1))
	hm.Min, hm.Max = -1, 1
	p.Add(hm)

	ticks := make(plot.ConstantTicks, len(labels))
	for i, l := range labels {
		ticks[i] = plot.Tick{Value: float64(i), Label: l}
	}
	p.X.Tick.Marker = ticks
	p.Y.Tick.Marker = ticks
	return r.encode(p, title)
}

func (r *pngRenderer) encode(p *plot.Plot, title string) (*Chart, error) {
	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(r.width)*vg.Inch, vg.Length(r.height)*vg.Inch),
		vgimg.UseDPI(r.dpi),
	)
	p.Draw(draw.New(img))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode %q: %w", title, err)
	}
	return &Chart{Title: title, PNG: buf.Bytes()}, nil
}

// correlationGrid adapts a square matrix to plotter.GridXYZ
type correlationGrid [][]float64

func (g correlationGrid) Dims() (int, int)   { return len(g), len(g) }
func (g correlationGrid) Z(c, r int) float64 { return g[r][c] }
func (g correlationGrid) X(c int) float64    { return float64(c) }
func (g correlationGrid) Y(r int) float64    { return float64(r) }

func sturgesBins(n int) int {
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}
