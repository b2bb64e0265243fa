// Package config loads herald settings from the environment.
//
// Environment values are defaults; command-line flags override them.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-backed settings.
type Config struct {
	// DB is the SQLite database path.
	DB string `env:"HERALD_DB" envDefault:"herald.db"`

	// SystemActor is the PHID cycles rehydrate revisions as.
	SystemActor string `env:"HERALD_SYSTEM_ACTOR" envDefault:"PHID-USER-herald"`

	// Format is the default output format, text or json.
	Format string `env:"HERALD_FORMAT" envDefault:"text"`

	// Verbose enables debug logging.
	Verbose bool `env:"HERALD_VERBOSE"`
}

// Load reads Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values the environment cannot type-check.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("HERALD_FORMAT: invalid format %q (must be 'text' or 'json')", c.Format)
	}
	if c.SystemActor == "" {
		return fmt.Errorf("HERALD_SYSTEM_ACTOR: must be non-empty")
	}
	return nil
}
