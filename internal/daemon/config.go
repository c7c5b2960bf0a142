// Package daemon manages the CodeForge daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Source     SourceConfig     `toml:"source"`
	Engagement EngagementConfig `toml:"engagement"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Logging    LoggingConfig    `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// SourceConfig controls the upstream code database.
type SourceConfig struct {
	URL             string `toml:"url"`
	RefreshInterval string `toml:"refresh_interval"`
	Mirrors         bool   `toml:"mirrors"`
}

// EngagementConfig controls the engagement engine schedules.
type EngagementConfig struct {
	RankRefreshInterval string `toml:"rank_refresh_interval"`
	SweepInterval       string `toml:"sweep_interval"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := codeforgeHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8787,
			CORSOrigins: []string{"*"},
		},
		Source: SourceConfig{
			URL:             "https://db.hashblen.com/codes",
			RefreshInterval: "30m",
			Mirrors:         true,
		},
		Engagement: EngagementConfig{
			RankRefreshInterval: "15m",
			SweepInterval:       "1m",
		},
		Telemetry: TelemetryConfig{
			Prometheus: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, "codeforge.log"),
		},
	}
}

// LoadConfig reads config from ~/.codeforge/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(codeforgeHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.codeforge/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(codeforgeHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// codeforgeHome returns the CodeForge data directory.
func codeforgeHome() string {
	if env := os.Getenv("CODEFORGE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codeforge")
}

// CodeforgeHome is exported for use by other packages.
func CodeforgeHome() string {
	return codeforgeHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
