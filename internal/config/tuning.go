package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents the root configuration for signal tuning
// parameters. The schema matches the /api/tuning endpoint so the same
// JSON can be used for both startup configuration and runtime inspection.
type TuningConfig struct {
	// Filter params
	SampleRateHz *float64 `json:"sample_rate_hz,omitempty"`
	DCWindowS    *float64 `json:"dc_window_s,omitempty"`
	MAWindowS    *float64 `json:"ma_window_s,omitempty"`

	// Fusion params
	GridMs  *float64 `json:"grid_ms,omitempty"`
	WindowS *float64 `json:"window_s,omitempty"`

	// Link params
	StallTimeout *string `json:"stall_timeout,omitempty"` // duration string like "5s"

	// Lag estimation params
	MaxLagS          *float64 `json:"max_lag_s,omitempty"`
	BaselineWindowMs *float64 `json:"baseline_window_ms,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// The Get* methods supply defaults for unset fields.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to have a .json extension and to be under the max file size.
// Fields omitted from the JSON file fall back to their defaults, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SampleRateHz != nil && *c.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %f", *c.SampleRateHz)
	}
	if c.DCWindowS != nil && *c.DCWindowS <= 0 {
		return fmt.Errorf("dc_window_s must be positive, got %f", *c.DCWindowS)
	}
	if c.MAWindowS != nil && *c.MAWindowS <= 0 {
		return fmt.Errorf("ma_window_s must be positive, got %f", *c.MAWindowS)
	}
	if c.GridMs != nil && *c.GridMs <= 0 {
		return fmt.Errorf("grid_ms must be positive, got %f", *c.GridMs)
	}
	if c.WindowS != nil && *c.WindowS <= 0 {
		return fmt.Errorf("window_s must be positive, got %f", *c.WindowS)
	}
	if c.StallTimeout != nil && *c.StallTimeout != "" {
		if _, err := time.ParseDuration(*c.StallTimeout); err != nil {
			return fmt.Errorf("invalid stall_timeout '%s': %w", *c.StallTimeout, err)
		}
	}
	if c.MaxLagS != nil && *c.MaxLagS <= 0 {
		return fmt.Errorf("max_lag_s must be positive, got %f", *c.MaxLagS)
	}
	if c.BaselineWindowMs != nil && *c.BaselineWindowMs < 0 {
		return fmt.Errorf("baseline_window_ms must be non-negative, got %f", *c.BaselineWindowMs)
	}
	return nil
}

// GetSampleRateHz returns the sample_rate_hz value or the default.
func (c *TuningConfig) GetSampleRateHz() float64 {
	if c.SampleRateHz == nil {
		return 50.0 // default: ring PPG notification rate
	}
	return *c.SampleRateHz
}

// GetDCWindowS returns the dc_window_s value or the default.
func (c *TuningConfig) GetDCWindowS() float64 {
	if c.DCWindowS == nil {
		return 0.20
	}
	return *c.DCWindowS
}

// GetMAWindowS returns the ma_window_s value or the default.
func (c *TuningConfig) GetMAWindowS() float64 {
	if c.MAWindowS == nil {
		return 0.05
	}
	return *c.MAWindowS
}

// GetGridMs returns the grid_ms value or the default.
func (c *TuningConfig) GetGridMs() float64 {
	if c.GridMs == nil {
		return 20.0 // default: 50 Hz fusion grid
	}
	return *c.GridMs
}

// GetWindowS returns the window_s value or the default.
func (c *TuningConfig) GetWindowS() float64 {
	if c.WindowS == nil {
		return 10.0
	}
	return *c.WindowS
}

// GetStallTimeout parses and returns the StallTimeout as a time.Duration.
func (c *TuningConfig) GetStallTimeout() time.Duration {
	if c.StallTimeout == nil || *c.StallTimeout == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.StallTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetMaxLagS returns the max_lag_s value or the default.
func (c *TuningConfig) GetMaxLagS() float64 {
	if c.MaxLagS == nil {
		return 0.5
	}
	return *c.MaxLagS
}

// GetBaselineWindowMs returns the baseline_window_ms value or the default.
func (c *TuningConfig) GetBaselineWindowMs() float64 {
	if c.BaselineWindowMs == nil {
		return 1500.0
	}
	return *c.BaselineWindowMs
}
