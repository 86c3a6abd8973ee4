// Package config loads the relay server settings from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset. A missing file is not an error.
const DefaultPath = "./config/config.yaml"

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	StatsEnabled   *bool    `yaml:"stats_enabled"`
}

type Relay struct {
	MaxMessageSize int64   `yaml:"max_message_size"`
	SendBuffer     int     `yaml:"send_buffer"`
	LocationRate   float64 `yaml:"location_rate"`
	LocationBurst  int     `yaml:"location_burst"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json|zap
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Relay   Relay   `yaml:"relay"`
	Logging Logging `yaml:"logging"`
}

// Stats reports whether the /api/rooms endpoint is served.
func (c *Config) Stats() bool {
	return c.HTTP.StatsEnabled == nil || *c.HTTP.StatsEnabled
}

func defaults() Config {
	return Config{
		HTTP: HTTP{
			Addr:           ":3000",
			AllowedOrigins: []string{"http://127.0.0.1:5500"},
		},
		Relay: Relay{
			MaxMessageSize: 4 * 1024,
			SendBuffer:     256,
			LocationRate:   0,
			LocationBurst:  10,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by CONFIG_PATH (or DefaultPath), applies
// environment overrides and validates the result.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	return LoadFile(path, explicit)
}

// LoadFile is Load with an explicit path. When required is false a missing
// file yields the defaults.
func LoadFile(path string, required bool) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		if !strings.Contains(port, ":") {
			port = ":" + port
		}
		c.HTTP.Addr = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.HTTP.AllowedOrigins = splitList(origins)
	}
	if v := os.Getenv("STATS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STATS_ENABLED: %w", err)
		}
		c.HTTP.StatsEnabled = &enabled
	}
	if v := os.Getenv("MAX_MESSAGE_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_MESSAGE_SIZE: %w", err)
		}
		c.Relay.MaxMessageSize = size
	}
	if v := os.Getenv("LOCATION_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LOCATION_RATE: %w", err)
		}
		c.Relay.LocationRate = r
	}
	if v := os.Getenv("LOCATION_BURST"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOCATION_BURST: %w", err)
		}
		c.Relay.LocationBurst = b
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Relay.MaxMessageSize <= 0 {
		return errors.New("relay.max_message_size must be positive")
	}
	if c.Relay.SendBuffer <= 0 {
		return errors.New("relay.send_buffer must be positive")
	}
	if c.Relay.LocationRate < 0 {
		return errors.New("relay.location_rate must not be negative")
	}
	if c.Relay.LocationRate > 0 && c.Relay.LocationBurst <= 0 {
		return errors.New("relay.location_burst must be positive when a rate is set")
	}
	switch c.Logging.Format {
	case "", "text", "json", "zap":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json, zap", c.Logging.Format)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
