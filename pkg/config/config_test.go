package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Defaults Tests
// ============================================================================

func TestApplyDefaults(t *testing.T) {
	t.Run("FillsAllUnsetFields", func(t *testing.T) {
		var cfg Config
		ApplyDefaults(&cfg)

		assert.Equal(t, "INFO", cfg.Logging.Level)
		assert.Equal(t, "stdout", cfg.Logging.Output)
		assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "filesystem", cfg.Storage.Type)
		assert.Equal(t, DefaultStorageRoot, cfg.Storage.Filesystem["root"])
		assert.Equal(t, DefaultBackupPort, cfg.Adapters.Backup.Port)
		assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)
	})

	t.Run("KeepsSetFields", func(t *testing.T) {
		var cfg Config
		cfg.Logging.Level = "debug"
		cfg.Adapters.Backup.Port = 4000
		cfg.Storage.Type = "memory"
		ApplyDefaults(&cfg)

		// Levels are upper-cased for the logger.
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, 4000, cfg.Adapters.Backup.Port)
		assert.Equal(t, "memory", cfg.Storage.Type)
		assert.Nil(t, cfg.Storage.Filesystem)
	})

	t.Run("AdapterInheritsServerShutdownTimeout", func(t *testing.T) {
		var cfg Config
		cfg.Server.ShutdownTimeout = 5 * time.Second
		ApplyDefaults(&cfg)

		assert.Equal(t, 5*time.Second, cfg.Adapters.Backup.ShutdownTimeout)
	})
}

// ============================================================================
// Validation Tests
// ============================================================================

func validTestConfig() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Adapters.Backup.Enabled = true
	return &cfg
}

func TestValidate(t *testing.T) {
	t.Run("AcceptsDefaults", func(t *testing.T) {
		assert.NoError(t, Validate(validTestConfig()))
	})

	t.Run("RejectsBadLogLevel", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Logging.Level = "VERBOSE"
		assert.Error(t, Validate(cfg))
	})

	t.Run("RejectsBadStorageType", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Storage.Type = "cassandra"
		assert.Error(t, Validate(cfg))
	})

	t.Run("RejectsOutOfRangePort", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Adapters.Backup.Port = 70000
		assert.Error(t, Validate(cfg))
	})

	t.Run("RejectsDisabledBackupAdapter", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Adapters.Backup.Enabled = false
		assert.Error(t, Validate(cfg))
	})
}

// ============================================================================
// Load Tests
// ============================================================================

func TestLoad(t *testing.T) {
	t.Run("LoadsFromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
logging:
  level: debug
storage:
  type: memory
adapters:
  backup:
    enabled: true
    port: 4000
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, "memory", cfg.Storage.Type)
		assert.Equal(t, 4000, cfg.Adapters.Backup.Port)
		// Unset fields fall back to defaults.
		assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	})

	t.Run("FailsOnInvalidFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage: [not a map"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("FailsValidationOnBadValues", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
adapters:
  backup:
    enabled: false
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

// ============================================================================
// WriteDefault Tests
// ============================================================================

func TestWriteDefault(t *testing.T) {
	t.Run("WritesLoadableConfig", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, WriteDefault(path))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultBackupPort, cfg.Adapters.Backup.Port)
		assert.True(t, cfg.Adapters.Backup.Enabled)
	})

	t.Run("RefusesOverwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("precious"), 0644))

		assert.Error(t, WriteDefault(path))
	})
}

// ============================================================================
// Store Factory Tests
// ============================================================================

func TestCreateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesFilesystemStore", func(t *testing.T) {
		cfg := &StorageConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"root": t.TempDir()},
		}
		st, err := CreateStore(ctx, cfg)
		require.NoError(t, err)
		defer st.Close()

		require.NoError(t, st.Save(ctx, 1, "f", []byte("x")))
	})

	t.Run("CreatesMemoryStore", func(t *testing.T) {
		st, err := CreateStore(ctx, &StorageConfig{Type: "memory"})
		require.NoError(t, err)
		defer st.Close()
	})

	t.Run("CreatesBadgerStore", func(t *testing.T) {
		cfg := &StorageConfig{
			Type:   "badger",
			Badger: map[string]any{"path": t.TempDir()},
		}
		st, err := CreateStore(ctx, cfg)
		require.NoError(t, err)
		defer st.Close()

		require.NoError(t, st.Save(ctx, 1, "f", []byte("x")))
	})

	t.Run("FilesystemRequiresRoot", func(t *testing.T) {
		_, err := CreateStore(ctx, &StorageConfig{Type: "filesystem"})
		assert.Error(t, err)
	})

	t.Run("BadgerRequiresPath", func(t *testing.T) {
		_, err := CreateStore(ctx, &StorageConfig{Type: "badger"})
		assert.Error(t, err)
	})

	t.Run("S3RequiresBucketAndRegion", func(t *testing.T) {
		_, err := CreateStore(ctx, &StorageConfig{
			Type: "s3",
			S3:   map[string]any{"region": "eu-west-1"},
		})
		assert.Error(t, err)

		_, err = CreateStore(ctx, &StorageConfig{
			Type: "s3",
			S3:   map[string]any{"bucket": "backups"},
		})
		assert.Error(t, err)
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		_, err := CreateStore(ctx, &StorageConfig{Type: "tape"})
		assert.Error(t, err)
	})
}
