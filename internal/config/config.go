package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment knobs of the gl binary. Everything has a
// sensible default so a bare invocation just works.
type Config struct {
	// DBPath overrides the default ~/.growthline.db location.
	DBPath string `env:"GROWTHLINE_DB"`
	// NoScheduler disables the background reset scheduler in the TUI.
	NoScheduler bool `env:"GROWTHLINE_NO_SCHEDULER"`
	// CleanupIntervalMinutes controls how often expired inventory is swept.
	CleanupIntervalMinutes int `env:"GROWTHLINE_CLEANUP_INTERVAL" envDefault:"60"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
