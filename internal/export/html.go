package export

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// DefaultHTMLPoints is the default point budget of the interactive 3D view.
const DefaultHTMLPoints = 20000

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// WriteScatter3DHTML renders an interactive 3D scatter of the points,
// coloured by radial distance, as a standalone HTML page. At most maxPoints
// points are drawn; larger inputs are stride-decimated.
func WriteScatter3DHTML(w io.Writer, points []r3.Vec, radius float64, maxPoints int) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to render")
	}
	if maxPoints <= 0 {
		maxPoints = DefaultHTMLPoints
	}
	s := stride(len(points), maxPoints)

	data := make([]opts.Chart3DData, 0, len(points)/s+1)
	maxR := 0.0
	for i := 0; i < len(points); i += s {
		p := points[i]
		r := r3.Norm(p)
		maxR = math.Max(maxR, r)
		data = append(data, opts.Chart3DData{Value: []interface{}{p.X, p.Y, p.Z, r}})
	}

	pad := math.Max(radius, maxR) * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Debris Cloud", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Debris Cloud", Subtitle: fmt.Sprintf("points=%d of %d stride=%d radius=%.2f m", len(data), len(points), s, radius)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X (m)", Min: -pad, Max: pad}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y (m)", Min: -pad, Max: pad}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z (m)", Min: -pad, Max: pad}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(math.Max(maxR, 1e-9)),
			Dimension:  "3",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("fragments", data)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// SaveScatter3DHTML writes the interactive 3D view to path.
func SaveScatter3DHTML(path string, points []r3.Vec, radius float64, maxPoints int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteScatter3DHTML(f, points, radius, maxPoints); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Logf("Saved 3D view to %s", path)
	return nil
}
