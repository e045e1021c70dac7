package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides are deployment settings that may replace file values
type envOverrides struct {
	Addr        string `env:"LOGIN_FRONT_ADDR"`
	BaseURL     string `env:"LOGIN_FRONT_BASE_URL"`
	StorageKind string `env:"LOGIN_FRONT_STORAGE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func applyEnvOverrides(config *Config) error {
	var overrides envOverrides
	if err := ParseEnv(&overrides); err != nil {
		return err
	}

	if overrides.Addr != "" {
		config.Server.Addr = overrides.Addr
	}
	if overrides.BaseURL != "" {
		config.Server.BaseURL = overrides.BaseURL
	}
	if overrides.StorageKind != "" {
		config.Storage.Kind = StorageKind(overrides.StorageKind)
	}
	return nil
}
