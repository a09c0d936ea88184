// Package config loads nestq settings from a YAML file and NESTQ_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds settings shared by every command. Flags override it.
type Config struct {
	// Schema is the default schema file or CUE package directory.
	Schema string `mapstructure:"schema"`

	// Database is the default SQLite path for the plan log and datasets.
	Database string `mapstructure:"database"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `mapstructure:"log_level"`

	// Checked rejects filters with negations over mixed subtrees instead
	// of splitting them.
	Checked bool `mapstructure:"checked"`
}

// GetDefaults returns a Config with all default values.
func GetDefaults() *Config {
	return &Config{LogLevel: "warn"}
}

// Load reads configuration.
//
// With an explicit path only that file is read and it must exist. Otherwise
// nestq.yaml is looked up in the user config directory and then the
// current directory, and a missing file is not an error. Environment
// variables such as NESTQ_SCHEMA and NESTQ_LOG_LEVEL win over files.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nestq")
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "nestq"))
		}
		v.AddConfigPath(".")
	}

	defaults := GetDefaults()
	v.SetDefault("schema", defaults.Schema)
	v.SetDefault("database", defaults.Database)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("checked", defaults.Checked)

	v.SetEnvPrefix("NESTQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", name, err)
	}
	return level, nil
}
