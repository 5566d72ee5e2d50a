package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteDefault writes a starter configuration file with every default
// spelled out, so operators have a complete template to edit. It
// refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config file %s", path)
	}

	cfg := map[string]any{
		"logging": map[string]any{
			"level":  DefaultLogLevel,
			"output": DefaultLogOutput,
		},
		"server": map[string]any{
			"shutdown_timeout": DefaultShutdownTimeout.String(),
		},
		"storage": map[string]any{
			"type": DefaultStorageType,
			"filesystem": map[string]any{
				"root": DefaultStorageRoot,
			},
		},
		"adapters": map[string]any{
			"backup": map[string]any{
				"enabled":         true,
				"port":            DefaultBackupPort,
				"max_connections": 0,
			},
		},
		"metrics": map[string]any{
			"enabled": false,
			"port":    DefaultMetricsPort,
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	header := []byte("# packrat configuration\n# Values shown are the defaults.\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
