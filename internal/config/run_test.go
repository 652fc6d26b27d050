package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if *cfg.Steps != 15 {
		t.Errorf("Steps = %d, want 15", *cfg.Steps)
	}
	if *cfg.StepSeconds != 60 {
		t.Errorf("StepSeconds = %v, want 60", *cfg.StepSeconds)
	}
	if *cfg.CoarseLatStep != 0.03 {
		t.Errorf("CoarseLatStep = %v, want 0.03", *cfg.CoarseLatStep)
	}
}

func TestLoad_PartialOverlay(t *testing.T) {
	path := writeConfig(t, "run.json", `{"steps": 4, "units": "mph"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg.Steps != 4 {
		t.Errorf("Steps = %d, want 4", *cfg.Steps)
	}
	if *cfg.Units != "mph" {
		t.Errorf("Units = %q, want mph", *cfg.Units)
	}
	// Untouched fields keep their defaults.
	if *cfg.StepSeconds != 60 {
		t.Errorf("StepSeconds = %v, want default 60", *cfg.StepSeconds)
	}
}

func TestMerge_FullOverlay(t *testing.T) {
	// An overlay setting every field replaces every default.
	over := &RunConfig{
		CoarseLatStep: ptrFloat64(0.1),
		CoarseLonStep: ptrFloat64(0.2),
		Steps:         ptrInt(3),
		StepSeconds:   ptrFloat64(30),
		Workers:       ptrInt(2),
		Units:         ptrString("kmph"),
		MetricsListen: ptrString("localhost:9090"),
	}
	cfg := Default()
	cfg.Merge(over)
	require.Equal(t, over, cfg)
	require.NoError(t, cfg.Validate())
}

func TestMerge_Nil(t *testing.T) {
	cfg := Default()
	cfg.Merge(nil)
	require.Equal(t, Default(), cfg)
}

func TestLoad_RejectsNonJSONExtension(t *testing.T) {
	path := writeConfig(t, "run.yaml", `steps: 4`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a non-.json file")
	}
}

func TestLoad_RejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, "run.json", `{"steps": `)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed JSON")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load accepted a missing file")
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"zero steps", func(c *RunConfig) { c.Steps = ptrInt(0) }},
		{"negative step seconds", func(c *RunConfig) { c.StepSeconds = ptrFloat64(-1) }},
		{"zero lat step", func(c *RunConfig) { c.CoarseLatStep = ptrFloat64(0) }},
		{"zero lon step", func(c *RunConfig) { c.CoarseLonStep = ptrFloat64(0) }},
		{"zero workers", func(c *RunConfig) { c.Workers = ptrInt(0) }},
		{"unknown units", func(c *RunConfig) { c.Units = ptrString("knots") }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted invalid config", tc.name)
		}
	}
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	path := writeConfig(t, "run.json", `{"step_seconds": 0}`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted step_seconds = 0")
	}
}
