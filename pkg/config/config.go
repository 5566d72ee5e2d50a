// Package config loads and validates the packrat configuration and
// builds the configured store backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/packrat/pkg/adapter/backup"
)

// Config is the complete packrat configuration.
//
// Sources, in order of precedence:
//  1. Environment variables (PACKRAT_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Storage follows the store-factory pattern: Type selects the backend
// and only the matching type-specific section is decoded.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings.
	Server ServerConfig `mapstructure:"server"`

	// Storage selects and configures the store backend.
	Storage StorageConfig `mapstructure:"storage"`

	// Adapters contains protocol adapter configurations.
	Adapters AdaptersConfig `mapstructure:"adapters"`

	// Metrics controls the optional Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level to output: DEBUG, INFO, WARN or ERROR
	// (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output is where logs go: stdout, stderr or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StorageConfig selects the store backend. Only the section matching
// Type is used.
type StorageConfig struct {
	// Type is one of: filesystem, memory, badger, s3.
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory badger s3"`

	// Filesystem configures the filesystem backend (Type = "filesystem").
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Badger configures the BadgerDB backend (Type = "badger").
	Badger map[string]any `mapstructure:"badger"`

	// S3 configures the S3 backend (Type = "s3").
	S3 map[string]any `mapstructure:"s3"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// Backup configures the backup protocol adapter. Uses the adapter's
	// own config type to avoid duplication.
	Backup backup.Config `mapstructure:"backup"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the /metrics server on.
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics HTTP port. Default: 9090.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// Load loads configuration from file, environment and defaults.
// configPath may be empty, in which case the default location
// ($XDG_CONFIG_HOME/packrat/config.yaml) is searched and a missing file
// is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the PACKRAT_ prefix with underscores,
	// e.g. PACKRAT_LOGGING_LEVEL=DEBUG.
	v.SetEnvPrefix("PACKRAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			// Defaults plus environment are enough to run.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "packrat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "packrat")
}
