// Package config provides configuration loading for code-pairs.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (PAIRS_*)
//  2. Project config (.pairs/config.yml)
//  3. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: PAIRS_
//   - Nested fields: Use underscores (PAIRS_BATCH_WORKERS)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
package config

import (
	"log/slog"
	"strings"
)

// DirName is the per-project directory holding config, cache and database.
const DirName = ".pairs"

// Config represents the complete code-pairs configuration.
// It can be loaded from .pairs/config.yml with environment variable overrides.
type Config struct {
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ExtractConfig configures per-blob extraction.
type ExtractConfig struct {
	Language string `yaml:"language" mapstructure:"language"`   // only "python" is supported
	MaxDepth int    `yaml:"max_depth" mapstructure:"max_depth"` // nesting limit for parsing and walking
}

// BatchConfig configures the batch driver.
type BatchConfig struct {
	Workers int    `yaml:"workers" mapstructure:"workers"` // 0 means one per CPU
	Seed    uint64 `yaml:"seed" mapstructure:"seed"`       // seed for dataset splitting
}

// PathsConfig defines which files to extract from and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// CacheConfig configures the extraction result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Size    int    `yaml:"size" mapstructure:"size"` // in-memory entries
	Path    string `yaml:"path" mapstructure:"path"` // on-disk cache file; empty disables the disk layer
}

// StorageConfig configures the record database.
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// ExportConfig configures dataset export.
type ExportConfig struct {
	Dir        string  `yaml:"dir" mapstructure:"dir"`
	ValidRatio float64 `yaml:"valid_ratio" mapstructure:"valid_ratio"`
	TestRatio  float64 `yaml:"test_ratio" mapstructure:"test_ratio"`
}

// SearchConfig configures the keyword index over records.
type SearchConfig struct {
	IndexPath string `yaml:"index_path" mapstructure:"index_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Extract: ExtractConfig{
			Language: "python",
			MaxDepth: 1000,
		},
		Batch: BatchConfig{
			Workers: 0,
			Seed:    42,
		},
		Paths: PathsConfig{
			Include: []string{
				"**/*.py",
			},
			Ignore: []string{
				".git/**",
				".pairs/**",
				"venv/**",
				".venv/**",
				"env/**",
				"node_modules/**",
				"build/**",
				"dist/**",
				"__pycache__/**",
				"*.pyc",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    10000,
			Path:    DirName + "/cache.db",
		},
		Storage: StorageConfig{
			DBPath: DirName + "/pairs.db",
		},
		Export: ExportConfig{
			Dir:        "data/processed",
			ValidRatio: 0.1,
			TestRatio:  0.1,
		},
		Search: SearchConfig{
			IndexPath: DirName + "/search.bleve",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// SourceExtensions extracts unique file extensions from the include patterns.
// Returns extensions with leading dot (e.g., []string{".py"}).
func (c *Config) SourceExtensions() []string {
	seen := make(map[string]bool)
	var extensions []string
	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.py" -> ".py", "*.pyi" -> ".pyi"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}

// SlogLevel maps the configured level name onto a slog level.
// Unknown names fall back to warn.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}
