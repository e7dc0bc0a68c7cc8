// Package config loads server configuration from the environment using
// koanf, layered over struct defaults. Every knob is a RANKLAB_-prefixed
// environment variable: RANKLAB_PORT, RANKLAB_DB_PATH, RANKLAB_JWT_SECRET
// and so on.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RANKLAB_"

// Config holds everything the server needs at startup.
type Config struct {
	Port        int    `koanf:"port"`
	DBPath      string `koanf:"db_path"`
	JWTSecret   string `koanf:"jwt_secret"`
	Environment string `koanf:"environment"`

	// Rate limiting: the suggestion endpoint and the anonymous
	// share-code lookup each get their own bucket.
	SuggestionLimit  int           `koanf:"suggestion_limit"`
	SuggestionWindow time.Duration `koanf:"suggestion_window"`
	ShareLimit       int           `koanf:"share_limit"`
	ShareWindow      time.Duration `koanf:"share_window"`
	RateLimitSweep   time.Duration `koanf:"rate_limit_sweep"`
}

func defaults() Config {
	return Config{
		Port:             8080,
		DBPath:           "ranklab.db",
		Environment:      "development",
		SuggestionLimit:  10,
		SuggestionWindow: time.Minute,
		ShareLimit:       60,
		ShareWindow:      time.Minute,
		RateLimitSweep:   5 * time.Minute,
	}
}

// Load reads defaults, then overlays RANKLAB_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	envProvider := env.Provider(envPrefix, ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: RANKLAB_JWT_SECRET is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.SuggestionLimit < 1 {
		return fmt.Errorf("config: suggestion limit %d must be positive", c.SuggestionLimit)
	}
	if c.ShareLimit < 1 {
		return fmt.Errorf("config: share limit %d must be positive", c.ShareLimit)
	}
	return nil
}

// IsProduction reports whether the server runs with production safeguards,
// such as refusing migration resets.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
