package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Stream StreamConfig `yaml:"stream"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"`
	RTMPAddr    string `yaml:"rtmp_addr"`
}

type StreamConfig struct {
	SegmentSeconds float64 `yaml:"segment_seconds"`
	PartSeconds    float64 `yaml:"part_seconds"`
	WindowSize     int     `yaml:"window_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    8080,
			MetricsPort: 9091,
			RTMPAddr:    ":1935",
		},
		Stream: StreamConfig{
			SegmentSeconds: 6,
			PartSeconds:    1,
			WindowSize:     3,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Stream.SegmentSeconds <= 0 || cfg.Stream.PartSeconds <= 0 {
		return nil, fmt.Errorf("parse %s: stream durations must be positive", path)
	}
	return cfg, nil
}

// SegmentDuration returns the configured segment duration
func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.Stream.SegmentSeconds * float64(time.Second))
}

// PartDuration returns the configured nominal part duration
func (c *Config) PartDuration() time.Duration {
	return time.Duration(c.Stream.PartSeconds * float64(time.Second))
}
