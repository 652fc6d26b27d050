// Package config holds the run configuration for the nowcast pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/nowcast/internal/units"
)

// RunConfig controls a nowcast run. JSON files may set any subset of fields;
// omitted fields keep their defaults, so partial configs are safe.
type RunConfig struct {
	// Coarse grid used as the intermediate resample target for the wind
	// fields, built with half-open ranges over the target grid's extents.
	CoarseLatStep *float64 `json:"coarse_lat_step,omitempty"`
	CoarseLonStep *float64 `json:"coarse_lon_step,omitempty"`

	// Advection loop.
	Steps       *int     `json:"steps,omitempty"`
	StepSeconds *float64 `json:"step_seconds,omitempty"`
	Workers     *int     `json:"workers,omitempty"`

	// Display units for wind speed summary log lines.
	Units *string `json:"units,omitempty"`

	// Optional Prometheus listen address (empty disables the listener).
	MetricsListen *string `json:"metrics_listen,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// Default returns the default run configuration: a 0.03 degree coarse grid
// and fifteen one-minute steps.
func Default() *RunConfig {
	return &RunConfig{
		CoarseLatStep: ptrFloat64(0.03),
		CoarseLonStep: ptrFloat64(0.03),
		Steps:         ptrInt(15),
		StepSeconds:   ptrFloat64(60),
		Workers:       ptrInt(runtime.NumCPU()),
		Units:         ptrString(units.MPS),
		MetricsListen: ptrString(""),
	}
}

// Load reads a RunConfig from a JSON file and overlays it onto the
// defaults. The file must have a .json extension and stay under the size
// cap.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded RunConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Default()
	cfg.Merge(&loaded)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Merge overlays every set field of other onto c.
func (c *RunConfig) Merge(other *RunConfig) {
	if other == nil {
		return
	}
	if other.CoarseLatStep != nil {
		c.CoarseLatStep = other.CoarseLatStep
	}
	if other.CoarseLonStep != nil {
		c.CoarseLonStep = other.CoarseLonStep
	}
	if other.Steps != nil {
		c.Steps = other.Steps
	}
	if other.StepSeconds != nil {
		c.StepSeconds = other.StepSeconds
	}
	if other.Workers != nil {
		c.Workers = other.Workers
	}
	if other.Units != nil {
		c.Units = other.Units
	}
	if other.MetricsListen != nil {
		c.MetricsListen = other.MetricsListen
	}
}

// Validate rejects configurations that cannot drive a run.
func (c *RunConfig) Validate() error {
	if c.CoarseLatStep == nil || *c.CoarseLatStep <= 0 {
		return fmt.Errorf("coarse_lat_step must be positive")
	}
	if c.CoarseLonStep == nil || *c.CoarseLonStep <= 0 {
		return fmt.Errorf("coarse_lon_step must be positive")
	}
	if c.Steps == nil || *c.Steps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}
	if c.StepSeconds == nil || *c.StepSeconds <= 0 {
		return fmt.Errorf("step_seconds must be positive")
	}
	if c.Workers == nil || *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Units == nil || !units.IsValid(*c.Units) {
		return fmt.Errorf("units must be one of: %s", units.GetValidUnitsString())
	}
	return nil
}
