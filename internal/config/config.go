package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type Config struct {
	// PreferredPort is tried first when the proxy starts; 0 means no
	// preference and the default candidate list is used as-is.
	PreferredPort int `json:"preferredPort,omitempty"`
	// DefaultTargetHost is used for routes registered without an explicit
	// backend host.
	DefaultTargetHost string `json:"defaultTargetHost"`
	// Manifest is an optional path to a routes.yaml watched by `serve`.
	Manifest string `json:"manifest,omitempty"`
	// Dashboard controls whether the proxy serves its HTML dashboard at /.
	Dashboard *bool `json:"dashboard,omitempty"`
}

func Default() Config {
	dashboard := true
	return Config{
		DefaultTargetHost: "127.0.0.1",
		Dashboard:         &dashboard,
	}
}

func Path(dir string) string { return filepath.Join(dir, "config.json") }

func LoadOrCreate(configDir string) (Config, error) {
	p := Path(configDir)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(configDir, cfg); err != nil {
				return Config{}, err
			}
			return cfg, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func Save(configDir string, cfg Config) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(Path(configDir), b, 0o644)
}

func (c *Config) ApplyDefaults() {
	defaults := Default()
	if c.DefaultTargetHost == "" {
		c.DefaultTargetHost = defaults.DefaultTargetHost
	}
	if c.Dashboard == nil {
		c.Dashboard = defaults.Dashboard
	}
}

// DashboardEnabled unwraps the tri-state Dashboard field.
func (c Config) DashboardEnabled() bool {
	return c.Dashboard == nil || *c.Dashboard
}
