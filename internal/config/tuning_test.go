package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetSampleRateHz() != 50.0 {
		t.Errorf("GetSampleRateHz() = %f, want 50.0", cfg.GetSampleRateHz())
	}
	if cfg.GetDCWindowS() != 0.20 {
		t.Errorf("GetDCWindowS() = %f, want 0.20", cfg.GetDCWindowS())
	}
	if cfg.GetMAWindowS() != 0.05 {
		t.Errorf("GetMAWindowS() = %f, want 0.05", cfg.GetMAWindowS())
	}
	if cfg.GetGridMs() != 20.0 {
		t.Errorf("GetGridMs() = %f, want 20.0", cfg.GetGridMs())
	}
	if cfg.GetWindowS() != 10.0 {
		t.Errorf("GetWindowS() = %f, want 10.0", cfg.GetWindowS())
	}
	if cfg.GetStallTimeout() != 5*time.Second {
		t.Errorf("GetStallTimeout() = %v, want 5s", cfg.GetStallTimeout())
	}
	if cfg.GetMaxLagS() != 0.5 {
		t.Errorf("GetMaxLagS() = %f, want 0.5", cfg.GetMaxLagS())
	}
	if cfg.GetBaselineWindowMs() != 1500.0 {
		t.Errorf("GetBaselineWindowMs() = %f, want 1500.0", cfg.GetBaselineWindowMs())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "sample_rate_hz": 100,
  "dc_window_s": 0.5,
  "grid_ms": 10,
  "stall_timeout": "2s"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.SampleRateHz == nil || *cfg.SampleRateHz != 100 {
		t.Errorf("Expected SampleRateHz 100, got %v", cfg.SampleRateHz)
	}
	if cfg.GetDCWindowS() != 0.5 {
		t.Errorf("GetDCWindowS() = %f, want 0.5", cfg.GetDCWindowS())
	}
	if cfg.GetGridMs() != 10 {
		t.Errorf("GetGridMs() = %f, want 10", cfg.GetGridMs())
	}
	if cfg.GetStallTimeout() != 2*time.Second {
		t.Errorf("GetStallTimeout() = %v, want 2s", cfg.GetStallTimeout())
	}

	// Omitted fields keep their defaults.
	if cfg.GetMAWindowS() != 0.05 {
		t.Errorf("GetMAWindowS() = %f, want default 0.05", cfg.GetMAWindowS())
	}
	if cfg.GetWindowS() != 10.0 {
		t.Errorf("GetWindowS() = %f, want default 10.0", cfg.GetWindowS())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig("/nonexistent/tuning.json"); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestTuningConfigValidate(t *testing.T) {
	bad := -1.0
	cases := []struct {
		name string
		cfg  TuningConfig
	}{
		{"negative sample rate", TuningConfig{SampleRateHz: &bad}},
		{"negative dc window", TuningConfig{DCWindowS: &bad}},
		{"negative grid", TuningConfig{GridMs: &bad}},
		{"negative window", TuningConfig{WindowS: &bad}},
		{"negative max lag", TuningConfig{MaxLagS: &bad}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}

	timeout := "not-a-duration"
	cfg := TuningConfig{StallTimeout: &timeout}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for bad stall_timeout, got nil")
	}
}
