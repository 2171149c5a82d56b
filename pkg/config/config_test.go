package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fitcoach-backend/internal/pipeline"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PIPELINE_CONFIG", "RESAMPLE_DT", "WINDOW_SECONDS", "STEP_SECONDS", "MODEL_PATH", "MQTT_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline != pipeline.DefaultParams() {
		t.Errorf("unexpected pipeline params %+v", cfg.Pipeline)
	}
	if cfg.ModelPath != "models/bicep_model.json" || cfg.MQTTEnabled {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionTimeout != 2*time.Minute {
		t.Errorf("unexpected session timeout %v", cfg.SessionTimeout)
	}
}

func TestLoadPipelineYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("window_seconds: 3.0\nstep_seconds: 1.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIPELINE_CONFIG", path)
	t.Setenv("RESAMPLE_DT", "")
	t.Setenv("WINDOW_SECONDS", "")
	t.Setenv("STEP_SECONDS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := pipeline.Params{ResampleDT: 0.01, WindowSeconds: 3.0, StepSeconds: 2}
	if cfg.Pipeline != want {
		t.Errorf("got %+v, want %+v", cfg.Pipeline, want)
	}
}

func TestLoadRejectsInvalidPipeline(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG", "")
	t.Setenv("STEP_SECONDS", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a negative step")
	}

	t.Setenv("STEP_SECONDS", "")
	t.Setenv("PIPELINE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing pipeline file")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("FITCOACH_TEST_FLOAT", "abc")
	if v := getEnvFloat("FITCOACH_TEST_FLOAT", 1.5); v != 1.5 {
		t.Errorf("bad float should fall back to default, got %v", v)
	}
	t.Setenv("FITCOACH_TEST_BOOL", "true")
	if !getEnvBool("FITCOACH_TEST_BOOL", false) {
		t.Error("expected true")
	}
}
