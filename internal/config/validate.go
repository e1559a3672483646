package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedLanguage indicates a source language without a parser
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrInvalidDepth indicates a non-positive nesting limit
	ErrInvalidDepth = errors.New("invalid max depth")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrEmptyInclude indicates no include patterns
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrEmptyPath indicates a required path is missing
	ErrEmptyPath = errors.New("empty path")

	// ErrInvalidSplit indicates split ratios outside [0, 1) or summing to 1 or more
	ErrInvalidSplit = errors.New("invalid split ratios")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateExtract(&cfg.Extract); err != nil {
		errs = append(errs, err)
	}
	if err := validateBatch(&cfg.Batch); err != nil {
		errs = append(errs, err)
	}
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		errs = append(errs, fmt.Errorf("%w: storage.db_path is required", ErrEmptyPath))
	}
	if err := validateExport(&cfg.Export); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(cfg.Search.IndexPath) == "" {
		errs = append(errs, fmt.Errorf("%w: search.index_path is required", ErrEmptyPath))
	}
	if err := validateLog(&cfg.Log); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateExtract(cfg *ExtractConfig) error {
	var errs []error

	if strings.ToLower(cfg.Language) != "python" {
		errs = append(errs, fmt.Errorf("%w: must be 'python', got '%s'", ErrUnsupportedLanguage, cfg.Language))
	}

	if cfg.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_depth must be positive, got %d", ErrInvalidDepth, cfg.MaxDepth))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateBatch(cfg *BatchConfig) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers)
	}
	return nil
}

func validatePaths(cfg *PathsConfig) error {
	if len(cfg.Include) == 0 {
		return fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude)
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	if cfg.Enabled && cfg.Size <= 0 {
		return fmt.Errorf("%w: size must be positive when the cache is enabled, got %d", ErrInvalidCacheSettings, cfg.Size)
	}
	return nil
}

func validateExport(cfg *ExportConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Dir) == "" {
		errs = append(errs, fmt.Errorf("%w: export.dir is required", ErrEmptyPath))
	}

	if cfg.ValidRatio < 0 || cfg.ValidRatio >= 1 {
		errs = append(errs, fmt.Errorf("%w: valid_ratio must be in [0, 1), got %.2f", ErrInvalidSplit, cfg.ValidRatio))
	}
	if cfg.TestRatio < 0 || cfg.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("%w: test_ratio must be in [0, 1), got %.2f", ErrInvalidSplit, cfg.TestRatio))
	}
	if cfg.ValidRatio+cfg.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("%w: valid_ratio + test_ratio must leave room for training data, got %.2f", ErrInvalidSplit, cfg.ValidRatio+cfg.TestRatio))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateLog(cfg *LogConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("%w: must be one of debug, info, warn, error, got '%s'", ErrInvalidLogLevel, cfg.Level)
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
