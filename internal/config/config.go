// Package config builds the harness configuration from three layers:
// built-in defaults matching the bowiephone dev setup, an optional TOML
// file, and BOWIETEST_* environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BOWIETEST_"

type Config struct {
	Collector CollectorConfig `koanf:"collector" toml:"collector" validate:"required"`
	Checker   CheckerConfig   `koanf:"checker" toml:"checker" validate:"required"`
}

// CollectorConfig configures the debug log endpoint.
type CollectorConfig struct {
	Host           string `koanf:"host" toml:"host" validate:"required"`
	Port           int    `koanf:"port" toml:"port" validate:"required,gte=1,lte=65535"`
	BufferCapacity int    `koanf:"buffer_capacity" toml:"buffer_capacity" validate:"required,gt=0"`
}

// CheckerConfig configures the asset checker's outbound probes.
type CheckerConfig struct {
	BaseURL        string `koanf:"base_url" toml:"base_url" validate:"required,url"`
	TimeoutSeconds int    `koanf:"timeout_seconds" toml:"timeout_seconds" validate:"required,gt=0"`
}

// Default returns the configuration for the standard dev setup: app
// server on :8001, collector on :8002.
func Default() *Config {
	return &Config{
		Collector: CollectorConfig{
			Host:           "localhost",
			Port:           8002,
			BufferCapacity: 200,
		},
		Checker: CheckerConfig{
			BaseURL:        "http://localhost:8001",
			TimeoutSeconds: 5,
		},
	}
}

// Load builds the effective configuration. path may be empty, in which
// case only defaults and environment overrides apply; a non-empty path
// must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	k := koanf.New(".")
	// BOWIETEST_COLLECTOR__PORT becomes collector.port; the double
	// underscore separates sections so key names keep their single
	// underscores.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// CollectorAddr is the host:port the collector listens on.
func (c *Config) CollectorAddr() string {
	return net.JoinHostPort(c.Collector.Host, strconv.Itoa(c.Collector.Port))
}

// CheckerTimeout is the per-request timeout for asset probes.
func (c *Config) CheckerTimeout() time.Duration {
	return time.Duration(c.Checker.TimeoutSeconds) * time.Second
}
