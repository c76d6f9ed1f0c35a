// Package config provides application configuration for crewboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the crewboard configuration.
type Config struct {
	ServerURL string `toml:"server_url"` // Base URL of the orchestrator API
	LogPath   string `toml:"log_path"`   // Debug log file (empty = disabled)

	// RefreshListOnStatus controls whether terminal project_status events
	// trigger a best-effort re-fetch of the project summary list in
	// addition to patching the entity in place.
	RefreshListOnStatus bool `toml:"refresh_list_on_status"`

	Notify NotifyConfig `toml:"notify"`
}

// NotifyConfig holds notification display durations as duration strings.
type NotifyConfig struct {
	DefaultDuration string `toml:"default_duration"` // success/info/warning
	ErrorDuration   string `toml:"error_duration"`
}

// DefaultDisplay returns the parsed default notification duration.
func (n NotifyConfig) DefaultDisplay() time.Duration {
	return parseDuration(n.DefaultDuration, 4*time.Second)
}

// ErrorDisplay returns the parsed error notification duration. Errors
// stay up longer because they need more reading time.
func (n NotifyConfig) ErrorDisplay() time.Duration {
	return parseDuration(n.ErrorDuration, 6*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// Dir returns the path to the .crewboard directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".crewboard"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns a configuration with all defaults set.
func Default() Config {
	return Config{
		ServerURL:           "http://localhost:8000",
		RefreshListOnStatus: true,
		Notify: NotifyConfig{
			DefaultDuration: "4s",
			ErrorDuration:   "6s",
		},
	}
}

// Load reads ~/.crewboard/config.toml, creating it with defaults if it
// does not exist. Missing keys keep their default values.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	_, err = toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		if saveErr := Save(cfg); saveErr != nil {
			return cfg, nil // return defaults even if save fails
		}
		return cfg, nil
	} else if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = Default().ServerURL
	}
	return cfg, nil
}

// Save writes the configuration to ~/.crewboard/config.toml.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
