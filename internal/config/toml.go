// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvHistoryDSN overrides the history DSN from the config file.
const EnvHistoryDSN = "STRESSTYPE_HISTORY_DSN"

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Check   CheckConfig   `toml:"check"`
	History HistoryConfig `toml:"history"`
	Serve   ServeConfig   `toml:"serve"`
}

// CheckConfig maps settings for the interactive check.
type CheckConfig struct {
	DurationSec  *int    `toml:"duration"`
	HesitationMs *int    `toml:"hesitation-ms"`
	Passage      *string `toml:"passage"`
	PassagesFile *string `toml:"passages-file"`
}

// HistoryConfig maps history storage and reporting settings.
type HistoryConfig struct {
	Driver      *string `toml:"driver"`
	DSN         *string `toml:"dsn"`
	CurveWindow *int    `toml:"curve-window"`
}

// ServeConfig maps settings for the HTTP service.
type ServeConfig struct {
	Addr         *string `toml:"addr"`
	RetentionSec *int    `toml:"retention"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
// The history DSN environment variable wins over the file.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	var cfg FileConfig
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvHistoryDSN)); dsn != "" {
		cfg.History.DSN = &dsn
	}
	return cfg, nil
}
