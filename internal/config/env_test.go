package config

import "testing"

func TestLoadEnvDefaults(t *testing.T) {
	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error: %v", err)
	}
	if cfg.NamePrefix != "R0" {
		t.Errorf("NamePrefix = %q, want R0", cfg.NamePrefix)
	}
	if cfg.Listen != ":8090" {
		t.Errorf("Listen = %q, want :8090", cfg.Listen)
	}
	if cfg.BaudRate != 921600 {
		t.Errorf("BaudRate = %d, want 921600", cfg.BaudRate)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEARTSYNC_LEFT_ADDR", "AA:BB:CC:DD:EE:01")
	t.Setenv("HEARTSYNC_RIGHT_ADDR", "AA:BB:CC:DD:EE:02")
	t.Setenv("HEARTSYNC_LISTEN", "127.0.0.1:9000")
	t.Setenv("HEARTSYNC_BAUD", "115200")
	t.Setenv("HEARTSYNC_SERIAL_PORT", "/dev/ttyUSB0")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error: %v", err)
	}
	if cfg.LeftAddress != "AA:BB:CC:DD:EE:01" {
		t.Errorf("LeftAddress = %q", cfg.LeftAddress)
	}
	if cfg.RightAddress != "AA:BB:CC:DD:EE:02" {
		t.Errorf("RightAddress = %q", cfg.RightAddress)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.BaudRate != 115200 {
		t.Errorf("BaudRate = %d", cfg.BaudRate)
	}
	if cfg.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("SerialPort = %q", cfg.SerialPort)
	}
}

func TestLoadEnvBadInt(t *testing.T) {
	t.Setenv("HEARTSYNC_BAUD", "fast")
	if _, err := LoadEnv(); err == nil {
		t.Error("Expected error for non-numeric HEARTSYNC_BAUD, got nil")
	}
}
