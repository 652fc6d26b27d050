// Command nowcast advects a radar reflectivity field along HRRR-style wind
// component fields to produce a short-range forecast sequence. It mirrors
// the classic pipeline: resample the wind fields onto a coarse regular grid,
// zoom them back onto the radar grid, then step a semi-Lagrangian projector.
//
// Inputs and outputs are plain-array JSON envelopes; GRIB/NetCDF decoding is
// an upstream responsibility.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/nowcast/internal/advect"
	"github.com/banshee-data/nowcast/internal/config"
	"github.com/banshee-data/nowcast/internal/fieldio"
	"github.com/banshee-data/nowcast/internal/grid"
	"github.com/banshee-data/nowcast/internal/monitoring"
	"github.com/banshee-data/nowcast/internal/units"
	"github.com/banshee-data/nowcast/internal/version"
)

var (
	radarPath     = flag.String("radar", "", "Radar reflectivity field JSON (required)")
	uWindPath     = flag.String("u-wind", "", "U wind component field JSON (required)")
	vWindPath     = flag.String("v-wind", "", "V wind component field JSON (required)")
	configPath    = flag.String("config", "", "Run config JSON (optional)")
	outDir        = flag.String("out", "nowcast-out", "Output directory")
	steps         = flag.Int("steps", 0, "Override number of advection steps")
	stepSeconds   = flag.Float64("step-seconds", 0, "Override step duration in seconds")
	workers       = flag.Int("workers", 0, "Override worker goroutines per step")
	metricsListen = flag.String("metrics-listen", "", "Serve Prometheus metrics on this address (optional)")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// manifest summarises one completed run next to its step files.
type manifest struct {
	RunID       string   `json:"run_id"`
	Steps       int      `json:"steps"`
	StepSeconds float64  `json:"step_seconds"`
	Shape       []int    `json:"shape"`
	Files       []string `json:"files"`
	Elapsed     string   `json:"elapsed"`
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("nowcast %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *radarPath == "" || *uWindPath == "" || *vWindPath == "" {
		flag.Usage()
		log.Fatal("missing required flags: -radar, -u-wind and -v-wind")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("nowcast: %v", err)
	}
}

// loadConfig merges defaults, the optional config file and flag overrides.
func loadConfig() (*config.RunConfig, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *steps > 0 {
		cfg.Steps = steps
	}
	if *stepSeconds > 0 {
		cfg.StepSeconds = stepSeconds
	}
	if *workers > 0 {
		cfg.Workers = workers
	}
	if *metricsListen != "" {
		cfg.MetricsListen = metricsListen
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.RunConfig) error {
	runID := uuid.New().String()
	start := time.Now()
	monitoring.Logf("run %s starting: %d steps of %gs", runID, *cfg.Steps, *cfg.StepSeconds)

	var metrics *monitoring.Metrics
	if *cfg.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		metrics = monitoring.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			monitoring.Logf("metrics listening on %s", *cfg.MetricsListen)
			if err := http.ListenAndServe(*cfg.MetricsListen, mux); err != nil {
				monitoring.Logf("metrics server error: %v", err)
			}
		}()
	}

	// One cache shared by every field in the run, so the radar grid's tree
	// is built once no matter how many fields land on it.
	cache := grid.NewIndexCache(grid.WithCacheMetrics(metrics))

	radar, err := fieldio.Load(*radarPath, cache)
	if err != nil {
		return fmt.Errorf("radar field: %w", err)
	}
	monitoring.Logf("loaded radar composite %v", radar.Shape())

	uWind, err := fieldio.Load(*uWindPath, cache)
	if err != nil {
		return fmt.Errorf("u wind field: %w", err)
	}
	monitoring.Logf("loaded U wind %v", uWind.Shape())

	vWind, err := fieldio.Load(*vWindPath, cache)
	if err != nil {
		return fmt.Errorf("v wind field: %w", err)
	}
	monitoring.Logf("loaded V wind %v", vWind.Shape())
	logWindSummary(uWind, vWind, *cfg.Units)

	// Coarse intermediate grid over the radar extents: the winds are
	// nearest-neighbour resampled onto it, then spline-zoomed back onto
	// the radar grid so the projector sees matching shapes.
	latA, latB, lonA, lonB := gridExtents(radar.Grid())
	latStep := signedStep(*cfg.CoarseLatStep, latA, latB)
	lonStep := signedStep(*cfg.CoarseLonStep, lonA, lonB)
	coarse, err := grid.FromRanges(latA, latB, latStep, lonA, lonB, lonStep)
	if err != nil {
		return fmt.Errorf("coarse grid: %w", err)
	}
	monitoring.Logf("coarse grid %v", coarse.Shape())

	resampleStart := time.Now()
	uCoarse, err := uWind.ResampleTo(coarse)
	if err != nil {
		return fmt.Errorf("resample U wind: %w", err)
	}
	vCoarse, err := vWind.ResampleTo(coarse)
	if err != nil {
		return fmt.Errorf("resample V wind: %w", err)
	}
	if metrics != nil {
		metrics.ResampleDuration.Observe(time.Since(resampleStart).Seconds())
	}
	monitoring.Logf("resampled winds onto coarse grid")

	uZoomed, err := uCoarse.ZoomTo(radar.Grid())
	if err != nil {
		return fmt.Errorf("zoom U wind: %w", err)
	}
	vZoomed, err := vCoarse.ZoomTo(radar.Grid())
	if err != nil {
		return fmt.Errorf("zoom V wind: %w", err)
	}
	monitoring.Logf("zoomed winds onto radar grid")

	proj, err := advect.NewProjector(radar, uZoomed, vZoomed,
		advect.WithWorkers(*cfg.Workers),
		advect.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("projector: %w", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	frames, err := proj.Run(ctx, *cfg.Steps, *cfg.StepSeconds)
	if err != nil {
		return err
	}

	s := radar.Shape()
	lats, lons := radar.Grid().LatsLons()
	files := make([]string, 0, len(frames))
	for i, frame := range frames {
		name := fmt.Sprintf("step_%03d.json", i+1)
		env := &fieldio.Envelope{
			Lats:   lats,
			Lons:   lons,
			Values: frame,
			Shape:  []int{s.Rows, s.Cols},
		}
		if err := fieldio.Write(filepath.Join(*outDir, name), env); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		files = append(files, name)
	}

	m := manifest{
		RunID:       runID,
		Steps:       len(frames),
		StepSeconds: *cfg.StepSeconds,
		Shape:       []int{s.Rows, s.Cols},
		Files:       files,
		Elapsed:     time.Since(start).String(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	monitoring.Logf("run %s wrote %d frames to %s in %s", runID, len(frames), *outDir, time.Since(start))
	return nil
}

// signedStep orients a configured step magnitude to run from a toward b.
func signedStep(step, a, b float64) float64 {
	if b < a {
		return -step
	}
	return step
}

// gridExtents returns the first and last coordinate along each axis, the
// same bounds the original pipeline fed to its coarse range grid.
func gridExtents(g *grid.Grid) (latA, latB, lonA, lonB float64) {
	first := g.Point(0)
	last := g.Point(g.Len() - 1)
	return first.Lat, last.Lat, first.Lon, last.Lon
}

// logWindSummary reports the peak wind speed in the configured display units.
func logWindSummary(u, v *grid.Field, unit string) {
	uRaw, vRaw := u.Raw(), v.Raw()
	peak := 0.0
	for i := range uRaw {
		speed := math.Hypot(uRaw[i], vRaw[i])
		if speed > peak {
			peak = speed
		}
	}
	monitoring.Logf("peak wind speed %.1f %s", units.ConvertSpeed(peak, unit), unit)
}
