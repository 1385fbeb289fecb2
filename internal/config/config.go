// Package config loads runtime configuration from an optional yaml file
// overlaid with WEFT_-prefixed environment variables.
//
// Precedence, lowest to highest: defaults, file, environment. The env
// mapping folds every underscore into a key separator, so keys avoid
// embedded underscores: WEFT_ENGINE_MAXDEPTH sets engine.maxdepth.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full runtime configuration.
type Config struct {
	Log    LogConfig    `koanf:"log"`
	Engine EngineConfig `koanf:"engine"`
	Trace  TraceConfig  `koanf:"trace"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// EngineConfig bounds dispatch.
type EngineConfig struct {
	MaxDepth int `koanf:"maxdepth"`
	MaxSteps int `koanf:"maxsteps"`
}

// TraceConfig controls the completion audit log.
type TraceConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Load reads configuration. An empty path skips the file layer; a
// missing file at a given path is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"log.level":       "info",
		"log.format":      "text",
		"engine.maxdepth": 100,
		"engine.maxsteps": 1000,
		"trace.enabled":   false,
		"trace.path":      "weft-trace.db",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// WEFT_ENGINE_MAXDEPTH -> engine.maxdepth
	if err := k.Load(env.Provider("WEFT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "WEFT_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Engine.MaxDepth < 1 {
		return fmt.Errorf("config: engine.maxdepth must be positive, got %d", c.Engine.MaxDepth)
	}
	if c.Engine.MaxSteps < 1 {
		return fmt.Errorf("config: engine.maxsteps must be positive, got %d", c.Engine.MaxSteps)
	}
	if c.Trace.Enabled && c.Trace.Path == "" {
		return fmt.Errorf("config: trace.path required when trace is enabled")
	}
	return nil
}
