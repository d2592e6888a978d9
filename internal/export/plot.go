package export

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/debris-cloud/internal/cloud"
	"github.com/banshee-data/debris-cloud/internal/estimator"
	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// MaxPlotPoints bounds the scatter points drawn per image; larger inputs
// are stride-decimated.
const MaxPlotPoints = 50000

// Plane selects the two coordinates of a projection.
type Plane int

const (
	XY Plane = iota
	XZ
	YZ
)

func (p Plane) String() string {
	switch p {
	case XY:
		return "xy"
	case XZ:
		return "xz"
	case YZ:
		return "yz"
	default:
		return fmt.Sprintf("Plane(%d)", int(p))
	}
}

// project returns the in-plane coordinates of v.
func (p Plane) project(v r3.Vec) (float64, float64) {
	switch p {
	case XZ:
		return v.X, v.Z
	case YZ:
		return v.Y, v.Z
	default:
		return v.X, v.Y
	}
}

func (p Plane) axes() (string, string) {
	switch p {
	case XZ:
		return "X (m)", "Z (m)"
	case YZ:
		return "Y (m)", "Z (m)"
	default:
		return "X (m)", "Y (m)"
	}
}

func stride(n, limit int) int {
	if n <= limit || limit <= 0 {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(limit)))
}

// circle returns a closed polyline of the given radius around the origin.
func circle(radius float64, segments int) plotter.XYs {
	pts := make(plotter.XYs, segments+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(segments)
		pts[i] = plotter.XY{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return pts
}

// SaveProjectionPNG draws points projected onto plane together with the
// bounding circle of the given radius.
func SaveProjectionPNG(path string, points []r3.Vec, radius float64, plane Plane) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to plot")
	}
	s := stride(len(points), MaxPlotPoints)
	xys := make(plotter.XYs, 0, len(points)/s+1)
	for i := 0; i < len(points); i += s {
		x, y := plane.project(points[i])
		xys = append(xys, plotter.XY{X: x, Y: y})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Debris cloud, %s projection (%d of %d points)", plane, len(xys), len(points))
	p.X.Label.Text, p.Y.Label.Text = plane.axes()

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(0.6)
	sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(sc)

	if radius > 0 {
		edge, err := plotter.NewLine(circle(radius, 180))
		if err != nil {
			return fmt.Errorf("boundary: %w", err)
		}
		edge.Width = vg.Points(1)
		edge.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		edge.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(edge)
		p.Legend.Add(fmt.Sprintf("R = %.2f m", radius), edge)
		pad := radius * 1.05
		p.X.Min, p.X.Max = -pad, pad
		p.Y.Min, p.Y.Max = -pad, pad
	}
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	monitoring.Logf("Saved %s projection plot to %s", plane, path)
	return nil
}

// SaveRadialHistogramPNG draws one histogram of fragment radial distance per
// size regime, with each regime's t=0 radius for reference.
func SaveRadialHistogramPNG(path string, c *cloud.Cloud, bins int) error {
	if bins <= 0 {
		bins = 50
	}
	p := plot.New()
	p.Title.Text = "Fragment radial distance by regime"
	p.X.Label.Text = "r (m)"
	p.Y.Label.Text = "fragments"

	drawn := 0
	for i, r := range cloud.Regimes {
		var values plotter.Values
		for _, e := range c.SubClouds(r) {
			for _, f := range e.Sub.Fragments {
				values = append(values, f.Radial())
			}
		}
		if len(values) == 0 {
			continue
		}
		h, err := plotter.NewHist(values, bins)
		if err != nil {
			return fmt.Errorf("%s histogram: %w", r, err)
		}
		col := plotutil.Color(i)
		h.FillColor = withAlpha(col, 96)
		h.LineStyle.Color = col
		p.Add(h)
		p.Legend.Add(fmt.Sprintf("%s (%d)", r, len(values)), h)
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("cloud has no fragments")
	}
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	monitoring.Logf("Saved radial histogram to %s", path)
	return nil
}

// SaveSweepPNG plots probability against hit distance with the confidence
// bounds of each estimate.
func SaveSweepPNG(path string, estimates []estimator.Estimate) error {
	if len(estimates) == 0 {
		return fmt.Errorf("no estimates to plot")
	}
	mid := make(plotter.XYs, len(estimates))
	lo := make(plotter.XYs, len(estimates))
	hi := make(plotter.XYs, len(estimates))
	for i, e := range estimates {
		mid[i] = plotter.XY{X: e.HitDistance, Y: e.Probability}
		lo[i] = plotter.XY{X: e.HitDistance, Y: e.Lower}
		hi[i] = plotter.XY{X: e.HitDistance, Y: e.Upper}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Collision probability vs hit distance (%d trials each)", estimates[0].Trials)
	p.X.Label.Text = "hit distance (m)"
	p.Y.Label.Text = "P(hit)"
	p.Y.Min, p.Y.Max = 0, 1
	if err := plotutil.AddLinePoints(p, "estimate", mid, "lower", lo, "upper", hi); err != nil {
		return fmt.Errorf("sweep lines: %w", err)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	monitoring.Logf("Saved sweep plot to %s", path)
	return nil
}

func withAlpha(c color.Color, a uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: a}
}
