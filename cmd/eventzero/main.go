// Command eventzero builds the debris cloud of a single breakup event and
// estimates the probability that a trajectory through it hits a fragment.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/cloud"
	"github.com/banshee-data/debris-cloud/internal/config"
	"github.com/banshee-data/debris-cloud/internal/estimator"
	"github.com/banshee-data/debris-cloud/internal/export"
	"github.com/banshee-data/debris-cloud/internal/geometry"
	"github.com/banshee-data/debris-cloud/internal/monitoring"
	"github.com/banshee-data/debris-cloud/internal/runstore"
	"github.com/banshee-data/debris-cloud/internal/version"
)

var (
	configPath  = flag.String("config", "", "Run configuration (.json, .yaml or .yml), defaults to "+config.DefaultConfigPath)
	mode        = flag.String("mode", "estimate", "Run mode: estimate, adaptive, sweep or inside")
	trials      = flag.Int("trials", 0, "Override the configured trial count")
	dbPath      = flag.String("db", "", "SQLite database to record runs in (optional)")
	outDir      = flag.String("out", "out", "Directory for exported files")
	plots       = flag.Bool("plots", false, "Write PNG projections and histograms")
	html        = flag.Bool("html", false, "Write an interactive 3D view of the cloud")
	asc         = flag.Bool("asc", false, "Write fragment positions as ASC text")
	metricsFile = flag.String("metrics", "", "Write Prometheus metrics to this file after the run")
	atTime      = flag.Float64("t", 0, "Seconds after breakup for -mode inside")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// cloudStream is the PCG stream the cloud population is drawn from. The
// estimator counts its worker streams up from zero.
const cloudStream = ^uint64(0) - 1

type options struct {
	mode    string
	trials  int
	dbPath  string
	outDir  string
	plots   bool
	html    bool
	asc     bool
	metrics string
	atTime  float64
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("eventzero", version.String())
		return
	}

	rc, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		mode:    *mode,
		trials:  *trials,
		dbPath:  *dbPath,
		outDir:  *outDir,
		plots:   *plots,
		html:    *html,
		asc:     *asc,
		metrics: *metricsFile,
		atTime:  *atTime,
	}
	if err := run(ctx, rc, opts, os.Stdout); err != nil {
		log.Fatalf("eventzero: %v", err)
	}
}

func loadConfig(path string) (*config.RunConfig, error) {
	if path != "" {
		return config.LoadRunConfig(path)
	}
	rc, err := config.LoadRunConfig(config.DefaultConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("%s not found, using built-in defaults", config.DefaultConfigPath)
		return config.EmptyRunConfig(), nil
	}
	return rc, err
}

func run(ctx context.Context, rc *config.RunConfig, o options, w io.Writer) error {
	switch o.mode {
	case "estimate", "adaptive", "sweep", "inside":
	default:
		return fmt.Errorf("unknown mode %q", o.mode)
	}
	if o.trials < 0 {
		return fmt.Errorf("trials must be positive, got %d", o.trials)
	}
	n := rc.GetTrials()
	if o.trials > 0 {
		n = o.trials
	}

	if timeout := rc.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	params, err := rc.CloudParams()
	if err != nil {
		return err
	}
	ecfg, err := rc.EstimatorConfig()
	if err != nil {
		return err
	}
	est, err := estimator.New(ecfg)
	if err != nil {
		return err
	}

	c, err := cloud.Build(params, rand.New(rand.NewPCG(est.Seed(), cloudStream)))
	if err != nil {
		return fmt.Errorf("build cloud: %w", err)
	}
	counts := c.Counts()
	fmt.Fprintf(w, "cloud: %d fragments (small %d, medium %d, large %d), R=%.3f m, v_exp=%.3f m/s, seed %d\n",
		counts.Total(), counts[cloud.Small], counts[cloud.Medium], counts[cloud.Large],
		c.Radius(), c.ExpansionVelocity(), est.Seed())

	var store *runstore.Store
	if o.dbPath != "" && o.mode != "inside" {
		store, err = runstore.Open(o.dbPath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer store.Close()
	}
	cfgJSON, err := json.Marshal(rc)
	if err != nil {
		return err
	}
	record := func(r runstore.Run) error {
		if store == nil {
			return nil
		}
		r.Seed = est.Seed()
		r.Config = cfgJSON
		id, err := store.Record(ctx, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "recorded run %s\n", id)
		return nil
	}

	var sweep []estimator.Estimate
	switch o.mode {
	case "estimate":
		e, err := est.Run(ctx, c, n)
		if err != nil {
			return err
		}
		printEstimate(w, e)
		diameter := geometry.NewLine(r3.Vec{X: -c.Radius()}, r3.Vec{X: c.Radius()})
		fmt.Fprintf(w, "analytic (x-axis diameter): %.6f\n",
			estimator.AnalyticProbability(c, diameter, e.HitDistance, 200))
		if err := record(runstore.Run{Mode: o.mode, Estimate: e}); err != nil {
			return err
		}

	case "adaptive":
		res, err := est.Adaptive(ctx, c, rc.GetTargetPrecision(), rc.GetMaxTrials())
		if err != nil {
			return err
		}
		printEstimate(w, res.Estimate)
		fmt.Fprintf(w, "adaptive: %s after %d batches, relative width %.4f (target %.4f)\n",
			res.State, res.Batches, res.RelativeWidth, rc.GetTargetPrecision())
		if err := record(runstore.Run{Mode: o.mode, Estimate: res.Estimate, State: res.State.String(), Batches: res.Batches}); err != nil {
			return err
		}

	case "sweep":
		sweep, err = est.Sweep(ctx, c, rc.GetSweepDistances(), n)
		if err != nil {
			return err
		}
		sweepID := uuid.NullUUID{UUID: uuid.New(), Valid: true}
		for _, e := range sweep {
			printEstimate(w, e)
			if err := record(runstore.Run{Mode: o.mode, SweepID: sweepID, Estimate: e}); err != nil {
				return err
			}
		}

	case "inside":
		printInside(w, c, o.atTime)
	}

	if err := exportAll(c, sweep, o); err != nil {
		return err
	}

	for _, d := range monitoring.Degradations() {
		fmt.Fprintf(w, "degraded: %s x%d\n", d.Kind, d.Count)
	}
	if o.metrics != "" {
		if err := prometheus.WriteToTextfile(o.metrics, monitoring.Registry()); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func printEstimate(w io.Writer, e estimator.Estimate) {
	fmt.Fprintf(w, "hit distance %.3f m: P=%.6f [%.6f, %.6f] at %.0f%% (%d/%d hits, se %.6f, %d fragments",
		e.HitDistance, e.Probability, e.Lower, e.Upper, 100*e.ConfidenceLevel,
		e.Hits, e.Trials, e.StdError, e.FragmentsUsed)
	if e.Subsampled {
		fmt.Fprint(w, " subsampled")
	}
	fmt.Fprintf(w, ", %s)\n", e.Elapsed)
}

func printInside(w io.Writer, c *cloud.Cloud, t float64) {
	fmt.Fprintf(w, "fragments inside their sub-cloud radius at t=%gs\n", t)
	for _, r := range cloud.Regimes {
		entries := c.SubClouds(r)
		if len(entries) == 0 {
			continue
		}
		total, inside := 0, 0.0
		for _, e := range entries {
			n := len(e.Sub.Fragments)
			total += n
			inside += e.Sub.InsideFraction(t) * float64(n)
		}
		share := 0.0
		if total > 0 {
			share = inside / float64(total)
		}
		fmt.Fprintf(w, "  %-6s %4d sub-clouds %8d fragments %6.2f%% inside\n", r, len(entries), total, 100*share)
	}
}

func exportAll(c *cloud.Cloud, sweep []estimator.Estimate, o options) error {
	if !o.plots && !o.html && !o.asc {
		return nil
	}
	out := func(name string) (string, error) { return export.OutputPath(o.outDir, name) }
	points := c.Points()

	if o.asc {
		path, err := out("cloud.asc")
		if err != nil {
			return err
		}
		if err := export.SaveASC(path, points); err != nil {
			return err
		}
	}
	if o.html {
		path, err := out("cloud.html")
		if err != nil {
			return err
		}
		if err := export.SaveScatter3DHTML(path, points, c.Radius(), export.DefaultHTMLPoints); err != nil {
			return err
		}
	}
	if o.plots {
		for _, plane := range []export.Plane{export.XY, export.XZ, export.YZ} {
			path, err := out("projection_" + plane.String() + ".png")
			if err != nil {
				return err
			}
			if err := export.SaveProjectionPNG(path, points, c.Radius(), plane); err != nil {
				return err
			}
		}
		path, err := out("radial.png")
		if err != nil {
			return err
		}
		if err := export.SaveRadialHistogramPNG(path, c, 0); err != nil {
			return err
		}
		if len(sweep) > 0 {
			path, err := out("sweep.png")
			if err != nil {
				return err
			}
			if err := export.SaveSweepPNG(path, sweep); err != nil {
				return err
			}
		}
	}
	return nil
}
