package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from the environment. Command-line
// flags take precedence over these; see cmd/heartsyncd.
type Env struct {
	LeftAddress  string `env:"HEARTSYNC_LEFT_ADDR"`
	RightAddress string `env:"HEARTSYNC_RIGHT_ADDR"`
	NamePrefix   string `env:"HEARTSYNC_NAME_PREFIX" envDefault:"R0"`
	Listen       string `env:"HEARTSYNC_LISTEN"      envDefault:":8090"`
	SerialPort   string `env:"HEARTSYNC_SERIAL_PORT"`
	BaudRate     int    `env:"HEARTSYNC_BAUD"        envDefault:"921600"`
	TuningPath   string `env:"HEARTSYNC_TUNING"`
}

// LoadEnv parses the HEARTSYNC_* environment variables.
func LoadEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
