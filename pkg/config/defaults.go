package config

import (
	"strings"
	"time"
)

// Default values applied to fields the configuration leaves unset.
const (
	DefaultLogLevel        = "INFO"
	DefaultLogOutput       = "stdout"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultStorageType     = "filesystem"
	DefaultStorageRoot     = "/var/lib/packrat"
	DefaultBackupPort      = 1256
	DefaultMetricsPort     = 9090
)

// ApplyDefaults fills unset fields with defaults. It runs after
// unmarshalling and before validation, so a config file only needs the
// values it wants to change.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = DefaultStorageType
	}
	if cfg.Storage.Type == "filesystem" && cfg.Storage.Filesystem == nil {
		cfg.Storage.Filesystem = map[string]any{"root": DefaultStorageRoot}
	}

	if cfg.Adapters.Backup.Port == 0 {
		cfg.Adapters.Backup.Port = DefaultBackupPort
	}
	if cfg.Adapters.Backup.ShutdownTimeout == 0 {
		cfg.Adapters.Backup.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}
