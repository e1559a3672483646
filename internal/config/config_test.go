package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .pairs/config.yml and .pairs/config.yaml
// - Load() merges a partial config file with defaults
// - Environment variables override config file values and defaults
// - Load() returns error for malformed YAML
// - Load() returns error for invalid configuration values
// - Validate() rejects unsupported language, bad depth, negative workers
// - Validate() rejects empty include patterns, bad cache size, bad split ratios
// - Validate() rejects unknown log levels and empty paths
// - Validate() returns multiple errors for multiple invalid fields
// - SourceExtensions() and SlogLevel() helpers

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, DirName)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "python", cfg.Extract.Language)
	assert.Equal(t, 1000, cfg.Extract.MaxDepth)
	assert.Equal(t, 0, cfg.Batch.Workers)
	assert.Equal(t, uint64(42), cfg.Batch.Seed)
	assert.Equal(t, []string{"**/*.py"}, cfg.Paths.Include)
	assert.Contains(t, cfg.Paths.Ignore, "__pycache__/**")
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, ".pairs/cache.db", cfg.Cache.Path)
	assert.Equal(t, ".pairs/pairs.db", cfg.Storage.DBPath)
	assert.Equal(t, 0.1, cfg.Export.ValidRatio)
	assert.Equal(t, 0.1, cfg.Export.TestRatio)
	assert.Equal(t, "warn", cfg.Log.Level)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
extract:
  max_depth: 200

batch:
  workers: 4
  seed: 7

paths:
  include:
    - "src/**/*.py"
    - "**/*.pyi"
  ignore:
    - "tests/**"

cache:
  enabled: false
  path: ""

storage:
  db_path: /var/lib/pairs/pairs.db

export:
  dir: out
  valid_ratio: 0.2
  test_ratio: 0.05

log:
  level: debug
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Extract.MaxDepth)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, uint64(7), cfg.Batch.Seed)
	assert.Equal(t, []string{"src/**/*.py", "**/*.pyi"}, cfg.Paths.Include)
	assert.Equal(t, []string{"tests/**"}, cfg.Paths.Ignore)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "", cfg.Cache.Path)
	assert.Equal(t, "/var/lib/pairs/pairs.db", cfg.Storage.DBPath)
	assert.Equal(t, "out", cfg.Export.Dir)
	assert.Equal(t, 0.2, cfg.Export.ValidRatio)
	assert.Equal(t, 0.05, cfg.Export.TestRatio)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "batch:\n  workers: 3\n")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Batch.Workers)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "export:\n  dir: datasets\n")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "datasets", cfg.Export.Dir)
	assert.Equal(t, 0.1, cfg.Export.ValidRatio)
	assert.Equal(t, 1000, cfg.Extract.MaxDepth)
	assert.Equal(t, []string{"**/*.py"}, cfg.Paths.Include)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "batch:\n  workers: 2\n  seed: 1\n")

	t.Setenv("PAIRS_BATCH_WORKERS", "16")
	t.Setenv("PAIRS_BATCH_SEED", "99")
	t.Setenv("PAIRS_LOG_LEVEL", "info")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Batch.Workers)
	assert.Equal(t, uint64(99), cfg.Batch.Seed)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	t.Setenv("PAIRS_STORAGE_DB_PATH", "/tmp/records.db")
	t.Setenv("PAIRS_CACHE_ENABLED", "false")

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/records.db", cfg.Storage.DBPath)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "batch:\n  workers: [unclosed\n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "extract:\n  language: ruby\n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_SingleErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"language", func(c *Config) { c.Extract.Language = "go" }, ErrUnsupportedLanguage},
		{"depth", func(c *Config) { c.Extract.MaxDepth = 0 }, ErrInvalidDepth},
		{"workers", func(c *Config) { c.Batch.Workers = -1 }, ErrInvalidWorkers},
		{"include", func(c *Config) { c.Paths.Include = nil }, ErrEmptyInclude},
		{"cache size", func(c *Config) { c.Cache.Size = 0 }, ErrInvalidCacheSettings},
		{"db path", func(c *Config) { c.Storage.DBPath = " " }, ErrEmptyPath},
		{"index path", func(c *Config) { c.Search.IndexPath = "" }, ErrEmptyPath},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, ErrInvalidLogLevel},
		{"valid ratio", func(c *Config) { c.Export.ValidRatio = -0.1 }, ErrInvalidSplit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_DisabledCacheIgnoresSize(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.Enabled = false
	cfg.Cache.Size = 0
	assert.NoError(t, Validate(cfg))
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Extract.MaxDepth = -1
	cfg.Batch.Workers = -2
	cfg.Export.ValidRatio = 0.6
	cfg.Export.TestRatio = 0.5

	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "validation failed")
	assert.Contains(t, msg, "max_depth must be positive")
	assert.Contains(t, msg, "workers cannot be negative")
	assert.Contains(t, msg, "must leave room for training data")
}

func TestConfig_SourceExtensions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Paths.Include = []string{"**/*.py", "src/*.pyi", "**/*.py", "scripts/run"}
	assert.Equal(t, []string{".py", ".pyi"}, cfg.SourceExtensions())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "info"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
}

func TestResolve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("/repo", ".pairs", "pairs.db"), Resolve("/repo", ".pairs/pairs.db"))
	assert.Equal(t, "/abs/file.db", Resolve("/repo", "/abs/file.db"))
	assert.Equal(t, "", Resolve("/repo", ""))
}
